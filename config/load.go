package config

import (
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/pkg/errors"
	"github.com/zclconf/go-cty/cty"
)

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "run"},
		{Type: "model"},
		{Type: "train"},
		{Type: "diagnostics"},
		{Type: "log"},
	},
}

// Load reads an HCL run file on top of Default. An empty path yields Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "reading config %s", path)
	}
	return Parse(src, path)
}

// Parse decodes HCL source on top of Default and validates the result.
func Parse(src []byte, filename string) (Config, error) {
	cfg := Default()
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return Config{}, errors.Wrapf(ErrConfig, "failed to parse %s: %s", filename, diags.Error())
	}
	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return Config{}, errors.Wrapf(ErrConfig, "failed to decode %s: %s", filename, diags.Error())
	}

	targets := map[string]any{
		"run":         &cfg.Run,
		"model":       &cfg.Model,
		"train":       &cfg.Train,
		"diagnostics": &cfg.Diagnostics,
		"log":         &cfg.Log,
	}
	evalCtx := EvalContext()
	seen := make(map[string]bool)
	for _, block := range content.Blocks {
		if seen[block.Type] {
			return Config{}, errors.Wrapf(ErrConfig, "%s: duplicate %q block", filename, block.Type)
		}
		seen[block.Type] = true
		// decoding into the populated struct keeps defaults for omitted attributes
		diags = gohcl.DecodeBody(block.Body, evalCtx, targets[block.Type])
		if diags.HasErrors() {
			return Config{}, errors.Wrapf(ErrConfig, "failed to decode %s block in %s: %s", block.Type, filename, diags.Error())
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EvalContext exposes the process environment as the "env" object.
func EvalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !hclsyntax.ValidIdentifier(name) {
			continue
		}
		env[name] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}
