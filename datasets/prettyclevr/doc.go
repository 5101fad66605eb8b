// Package prettyclevr generates Pretty-CLEVR style relational reasoning
// scenes.
//
// Every scene places up to eight objects in the unit square, each with a
// distinct color and a distinct marker. A query names an anchor object by its
// color or marker together with a jump count. Each jump moves to the object
// farthest from the current one, and the answer is the reached object's label
// of the same kind as the anchor. Zero jumps is a plain lookup.
//
// Scenes are a pure function of the seed and the scene index. The train and
// validation splits partition the index space with hash.Fold.
package prettyclevr
