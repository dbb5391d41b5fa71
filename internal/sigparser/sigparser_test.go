// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sigparser

import (
	"go/token"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/klog/v2"
)

func init() {
	klog.InitFlags(nil)
}

const testSource = `package ops

import (
	"context"

	opt "github.com/gomlx/scatter/pkg/core/options"
	other "example.com/other/options"
)

// NotMarked is ignored.
func NotMarked(opts opt.Options) {}

// ByReference takes the options as a pointer.
//
//scatter:op
func ByReference(n int64, opts *opt.Options) int { return 0 }

//scatter:op
func ByValue(n int64, opts opt.Options) int { return 0 }

//scatter:op
func NoOptions(n int64, s string) int { return 0 }

//scatter:op
func OtherPackage(n int64, opts other.Options) int { return 0 }

//scatter:op two_options
func TwoOptions(a opt.Options, n int64, b *opt.Options) int { return 0 }

//scatter:op
func Variadic(ctx context.Context, all ...opt.Options) error { return nil }

//scatter:opposite
func WrongDirective(opts opt.Options) {}

//scatter:op
func (r *Receiver) Method(opts opt.Options) {}

//scatter:op
func Generic[T any, S ~[]T](s S, opts opt.Options) (first T, ok bool) { return }

//scatter:op
func Unnamed(int, opt.Options, ...string) (int, error) { return 0, nil }
`

func parseTestSource(t *testing.T) map[string]*Signature {
	pkgName, sigs, err := ParseFile(token.NewFileSet(), "ops.go", testSource)
	require.NoError(t, err)
	require.Equal(t, "ops", pkgName)
	byName := make(map[string]*Signature, len(sigs))
	for _, sig := range sigs {
		byName[sig.Name] = sig
	}
	return byName
}

func TestParseFile(t *testing.T) {
	sigs := parseTestSource(t)
	assert.NotContains(t, sigs, "NotMarked")
	assert.NotContains(t, sigs, "WrongDirective")
	assert.Len(t, sigs, 9)

	sig := sigs["ByReference"]
	require.NotNil(t, sig)
	assert.Equal(t, "by_reference", sig.OpName)
	assert.Equal(t, "ops.go", sig.Pos.Filename)
	assert.Equal(t, 16, sig.Pos.Line)
	require.Len(t, sig.Params, 2)
	assert.Equal(t, "n", sig.Params[0].Name)
	assert.Equal(t, "int64", sig.Params[0].Type)
	assert.Equal(t, "*opt.Options", sig.Params[1].Type)
	require.Len(t, sig.Results, 1)
	assert.Equal(t, "int", sig.Results[0].Type)
	assert.Equal(t, "func ByReference(n int64, opts *opt.Options) int", sig.String())

	assert.Equal(t, "two_options", sigs["TwoOptions"].OpName)

	method := sigs["Method"]
	assert.True(t, method.IsMethod())
	assert.Equal(t, "*Receiver", method.Receiver)

	generic := sigs["Generic"]
	assert.True(t, generic.IsGeneric())
	assert.Equal(t, "[T any, S ~[]T]", generic.TypeParams)
	assert.Equal(t, "func Generic[T any, S ~[]T](s S, opts opt.Options) (first T, ok bool)", generic.String())

	unnamed := sigs["Unnamed"]
	require.Len(t, unnamed.Params, 3)
	assert.Equal(t, "", unnamed.Params[0].Name)
	assert.True(t, unnamed.Params[2].Variadic)
	assert.Equal(t, "...string", unnamed.Params[2].Type)
	assert.Equal(t, "func Unnamed(int, opt.Options, ...string) (int, error)", unnamed.String())
}

func TestFindOptions(t *testing.T) {
	sigs := parseTestSource(t)
	for _, tc := range []struct {
		name  string
		index int
		found bool
	}{
		{"ByReference", 1, true},
		{"ByValue", 1, true},
		{"NoOptions", -1, false},
		{"OtherPackage", -1, false},
		{"Generic", 1, true},
		{"Unnamed", 1, true},
	} {
		index, found, err := FindOptions(sigs[tc.name], DefaultMatcher)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.found, found, tc.name)
		assert.Equal(t, tc.index, index, tc.name)
	}

	_, _, err := FindOptions(sigs["TwoOptions"], DefaultMatcher)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMultipleOptions))
	assert.Contains(t, err.Error(), "ops.go:")
	assert.Contains(t, err.Error(), "[0 2]")

	_, _, err = FindOptions(sigs["Variadic"], DefaultMatcher)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVariadicOptions))
}

func TestFindOptionsMultiplePositions(t *testing.T) {
	// Two aggregates fail regardless of where they are.
	for _, params := range []string{
		"a options.Options, b options.Options",
		"a *options.Options, b options.Options, n int",
		"n int, a options.Options, s string, b *options.Options",
		"n int, s string, a *options.Options, b *options.Options",
		"a, b options.Options",
	} {
		src := "package p\nimport \"github.com/gomlx/scatter/pkg/core/options\"\n//scatter:op\nfunc F(" + params + ") {}\n"
		_, sigs, err := ParseFile(token.NewFileSet(), "p.go", src)
		require.NoError(t, err)
		require.Len(t, sigs, 1)
		found, err := HasOptions(sigs[0], DefaultMatcher)
		assert.Falsef(t, found, "params: %s", params)
		assert.Truef(t, errors.Is(err, ErrMultipleOptions), "params: %s", params)
	}
}

func TestMatcher(t *testing.T) {
	src := `package options
import . "github.com/gomlx/scatter/pkg/core/options"
//scatter:op
func Dotted(opts Options) {}
`
	_, sigs, err := ParseFile(token.NewFileSet(), "dot.go", src)
	require.NoError(t, err)
	found, err := HasOptions(sigs[0], DefaultMatcher)
	require.NoError(t, err)
	assert.True(t, found, "dot import should match unqualified Options")

	src = `package options
//scatter:op
func Local(opts *Options) {}
`
	_, sigs, err = ParseFile(token.NewFileSet(), "local.go", src)
	require.NoError(t, err)
	found, err = HasOptions(sigs[0], DefaultMatcher)
	require.NoError(t, err)
	assert.False(t, found, "unqualified Options should only match in Local mode")
	local := DefaultMatcher
	local.Local = true
	found, err = HasOptions(sigs[0], local)
	require.NoError(t, err)
	assert.True(t, found)

	assert.Equal(t, "options.Options", DefaultMatcher.String())
	custom := Matcher{ImportPath: "example.com/tensor/v2", TypeName: "CreateOptions"}
	assert.Equal(t, "tensor.CreateOptions", custom.String())
}

func TestDefaultImportName(t *testing.T) {
	assert.Equal(t, "options", DefaultImportName("github.com/gomlx/scatter/pkg/core/options"))
	assert.Equal(t, "klog", DefaultImportName("k8s.io/klog/v2"))
	assert.Equal(t, "yaml", DefaultImportName("gopkg.in/yaml.v3"))
	assert.Equal(t, "humanize", DefaultImportName("github.com/dustin/go-humanize"))
	assert.Equal(t, "fmt", DefaultImportName("fmt"))
}

func TestQualifiers(t *testing.T) {
	src := `package p
//scatter:op
func F(m map[string]*shapes.Shape, f func(dtypes.DType) shapes.Shape, n int) {}
`
	_, sigs, err := ParseFile(token.NewFileSet(), "p.go", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"shapes"}, sigs[0].Params[0].Qualifiers())
	assert.ElementsMatch(t, []string{"dtypes", "shapes"}, sigs[0].Params[1].Qualifiers())
	assert.Empty(t, sigs[0].Params[2].Qualifiers())
}

func TestParseDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("a.go", "package ops\n//scatter:op\nfunc A() {}\n")
	write("b.go", "package ops\n//scatter:op custom\nfunc B() {}\n")
	write("a_test.go", "package ops\n//scatter:op\nfunc InTest() {}\n")
	write("gen_scattered.go", "// Code generated by scatter_generator. DO NOT EDIT.\n\npackage ops\n//scatter:op\nfunc Generated() {}\n")
	write("excluded.go", "package ops\n//scatter:op\nfunc Excluded() {}\n")
	write("notes.txt", "not go")

	pkgName, sigs, err := ParseDir(dir, "excluded.go")
	require.NoError(t, err)
	assert.Equal(t, "ops", pkgName)
	require.Len(t, sigs, 2)
	assert.Equal(t, "A", sigs[0].Name)
	assert.Equal(t, "B", sigs[1].Name)
	assert.Equal(t, "custom", sigs[1].OpName)

	write("c.go", "package other\n")
	_, _, err = ParseDir(dir)
	require.ErrorContains(t, err, "files from packages")

	_, _, err = ParseDir(t.TempDir())
	require.ErrorContains(t, err, "no Go files")
}
