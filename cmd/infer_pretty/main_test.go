package main

import (
	"bytes"
	"testing"

	"github.com/gookit/color"
	"github.com/neurlang/reasoner/diagnostics"
	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	enabled := color.Enable
	color.Enable = false
	defer func() { color.Enable = enabled }()

	var buf bytes.Buffer
	Table(&buf, []diagnostics.Accuracy{
		{Step: 0, Jumps: 0, Value: 1},
		{Step: 0, Jumps: 2, Value: 0.25},
		{Step: 1, Jumps: 1, Value: 0.5},
	})
	want := "  step     j0     j1     j2\n" +
		"     0  1.000      -  0.250\n" +
		"     1      -  0.500      -\n"
	assert.Equal(t, want, buf.String())
}
