// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package scatter

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/scatter/internal/sigparser"
	"github.com/pkg/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const opsSource = `package ops

import (
	"github.com/gomlx/scatter/pkg/core/options"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/scatter/pkg/core/shapes"
)

//scatter:op
func Count(n int64, o *options.Options) int { return 0 }

//scatter:op empty_like
func EmptyLike(shape shapes.Shape, opts options.Options) shapes.Shape { return shape }

//scatter:op
func Size(dims []int, dtype dtypes.DType) int { return 0 }

func NotMarked(opts options.Options) {}
`

func writeFile(t *testing.T, dir, name, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ops.go", opsSource)
	result, err := Run(dir, "", DefaultConfig(), false)
	require.NoError(t, err)
	assert.Equal(t, "ops", result.Package)
	assert.Equal(t, filepath.Join(dir, DefaultOutput), result.Output)
	require.Len(t, result.Plans, 3)
	assert.Equal(t, "Count", result.Plans[0].Sig.Name)
	assert.Equal(t, "EmptyLike", result.Plans[1].Sig.Name)
	assert.Equal(t, "Size", result.Plans[2].Sig.Name)

	written, err := os.ReadFile(result.Output)
	require.NoError(t, err)
	assert.Equal(t, result.Source, written)
	src := string(written)
	t.Logf("Generated:\n%s", src)

	// Valid Go, recognized as generated.
	file, err := parser.ParseFile(token.NewFileSet(), result.Output, written, parser.ParseComments)
	require.NoError(t, err)
	assert.True(t, ast.IsGenerated(file))

	assert.Contains(t, src, `
import (
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/scatter/pkg/core/options"
	"github.com/gomlx/scatter/pkg/core/shapes"
	"github.com/gomlx/scatter/pkg/ops/registry"
	"github.com/samber/mo"
)`)
	assert.Contains(t, src, `
// CountScattered calls Count with its options.Options parameter gathered from dtype, layout, device and pinMemory.
func CountScattered(n int64, dtype mo.Option[dtypes.DType], layout mo.Option[options.Layout], device mo.Option[options.Device], pinMemory mo.Option[bool]) int {
	opts := options.Gather(dtype, layout, device, pinMemory)
	return Count(n, &opts)
}`)
	assert.Contains(t, src, `
func EmptyLikeScattered(shape shapes.Shape, dtype mo.Option[dtypes.DType], layout mo.Option[options.Layout], device mo.Option[options.Device], pinMemory mo.Option[bool]) shapes.Shape {
	return EmptyLike(shape, options.Gather(dtype, layout, device, pinMemory))
}`)
	assert.Contains(t, src, `
// SizeScattered is Size itself, since it takes no options.Options to scatter.
var SizeScattered = Size`)
	assert.Contains(t, src, `
func RegisterScatteredOps(r *registry.Registry) error {
	if err := r.Register("count", CountScattered, true); err != nil {
		return err
	}
	if err := r.Register("empty_like", EmptyLikeScattered, true); err != nil {
		return err
	}
	if err := r.Register("size", SizeScattered, false); err != nil {
		return err
	}
	return nil
}`)
	assert.NotContains(t, src, "NotMarked")

	// Running again, with the generated file present, produces the same output.
	again, err := Run(dir, "", DefaultConfig(), false)
	require.NoError(t, err)
	assert.Equal(t, result.Source, again.Source)
}

// TestGolden compares the output for testdata/ops with testdata/golden/gen_scattered.golden.
// Use `go test -update` to regenerate it.
func TestGolden(t *testing.T) {
	result, err := Run(filepath.Join("testdata", "ops"), "", DefaultConfig(), true)
	require.NoError(t, err)
	assert.Empty(t, result.Output)
	g := goldie.New(t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "gen_scattered", result.Source)
}

func TestRunPassthroughOnly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "ops.go", `package ops

//scatter:op
func Reshape(dims []int, newDims ...int) ([]int, error) { return newDims, nil }
`)
	cfg := DefaultConfig()
	cfg.Register = false
	result, err := Run(dir, "gen_ops.go", cfg, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "gen_ops.go"), result.Output)
	want := `// Code generated by scatter_generator. DO NOT EDIT.

package ops

// ReshapeScattered is Reshape itself, since it takes no options.Options to scatter.
var ReshapeScattered = Reshape
`
	assert.Equal(t, want, string(result.Source))
}

func TestRunLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "options.go", `package options

//scatter:op
func Describe(prefix string, o Options) string { return prefix }
`)
	cfg := DefaultConfig()
	cfg.Register = false
	cfg.Matcher.Local = true
	result, err := Run(dir, "", cfg, true)
	require.NoError(t, err)
	src := string(result.Source)
	assert.NotContains(t, src, `"github.com/gomlx/scatter/pkg/core/options"`)
	assert.Contains(t, src, "func DescribeScattered(prefix string, dtype mo.Option[dtypes.DType], layout mo.Option[Layout], device mo.Option[Device], pinMemory mo.Option[bool]) string {\n\treturn Describe(prefix, Gather(dtype, layout, device, pinMemory))\n}")
}

func TestRunMultipleOptionsFails(t *testing.T) {
	// The generation fails, listing every violation, and nothing is written.
	dir := t.TempDir()
	writeFile(t, dir, "ops.go", `package ops

import "github.com/gomlx/scatter/pkg/core/options"

//scatter:op
func First(a options.Options, b options.Options) {}

//scatter:op
func Last(n int, a *options.Options, s string, b options.Options) int { return n }

//scatter:op
func Fine(n int, a options.Options) int { return n }
`)
	_, err := Run(dir, "", DefaultConfig(), false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sigparser.ErrMultipleOptions))
	var diags Diagnostics
	require.True(t, errors.As(err, &diags))
	require.Len(t, diags, 2)
	assert.Contains(t, diags[0].Error(), "First")
	assert.Contains(t, diags[0].Error(), filepath.Join(dir, "ops.go")+":6")
	assert.Contains(t, diags[1].Error(), "Last")
	assert.NoFileExists(t, filepath.Join(dir, DefaultOutput))

	// Check mode reports the same.
	_, err = Run(dir, "", DefaultConfig(), true)
	assert.True(t, errors.Is(err, sigparser.ErrMultipleOptions))
}

func TestRunDiagnostics(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.go", `package ops

import (
	"github.com/gomlx/scatter/pkg/core/options"
	dtypes "example.com/other/dtypes"
)

//scatter:op same
func A(d dtypes.Kind, opts options.Options) {}

//scatter:op same
func B(opts options.Options) {}
`)
	_, err := Run(dir, "", DefaultConfig(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `op name "same" already used by A`)

	writeFile(t, dir, "a.go", `package ops

import (
	"github.com/gomlx/scatter/pkg/core/options"
	dtypes "example.com/other/dtypes"
)

//scatter:op
func A(d dtypes.Kind, opts options.Options) {}
`)
	_, err = Run(dir, "", DefaultConfig(), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `package name "dtypes" refers to both`)
}
