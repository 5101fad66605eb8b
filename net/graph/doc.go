// Package graph builds the complete directed entity graphs the reasoning network passes messages over.
package graph
