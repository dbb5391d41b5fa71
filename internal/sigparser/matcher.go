// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sigparser

import (
	"go/ast"

	"github.com/pkg/errors"
)

const (
	// OptionsImportPath is the default import path of the package defining the options aggregate.
	OptionsImportPath = "github.com/gomlx/scatter/pkg/core/options"

	// OptionsTypeName is the default name of the options aggregate type.
	OptionsTypeName = "Options"
)

// ErrMultipleOptions is returned (wrapped) when a function takes more than one options aggregate parameter:
// there would be no way to tell which scattered group maps to which aggregate.
var ErrMultipleOptions = errors.New("function has multiple options parameters, at most one is supported")

// ErrVariadicOptions is returned (wrapped) when the options aggregate is taken as a variadic parameter.
var ErrVariadicOptions = errors.New("variadic options parameter is not supported")

// Matcher recognizes the type expressions that refer to the options aggregate.
//
// Both the value type and a pointer to it match, since both carry one aggregate.
type Matcher struct {
	// ImportPath of the package defining the aggregate.
	ImportPath string

	// TypeName of the aggregate within its package.
	TypeName string

	// Local is set when the functions being parsed are declared in the package that defines the aggregate,
	// in which case the unqualified TypeName matches.
	Local bool
}

// DefaultMatcher matches options.Options.
var DefaultMatcher = Matcher{ImportPath: OptionsImportPath, TypeName: OptionsTypeName}

// String returns the qualified type name matched, e.g. "options.Options".
func (m Matcher) String() string {
	return m.PackageName() + "." + m.TypeName
}

// PackageName assumed for the package defining the aggregate.
func (m Matcher) PackageName() string {
	return DefaultImportName(m.ImportPath)
}

// Match returns whether the type expression refers to the aggregate, either by value or by pointer.
func (m Matcher) Match(expr ast.Expr, imports Imports) bool {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	expr = ast.Unparen(expr)
	switch e := expr.(type) {
	case *ast.Ident:
		return e.Name == m.TypeName && (m.Local || imports.HasDotImport(m.ImportPath))
	case *ast.SelectorExpr:
		pkgIdent, ok := e.X.(*ast.Ident)
		if !ok || e.Sel.Name != m.TypeName {
			return false
		}
		for _, importPath := range imports[pkgIdent.Name] {
			if importPath == m.ImportPath {
				return true
			}
		}
	}
	return false
}

// IsPointer returns whether the type expression is a pointer type.
func IsPointer(expr ast.Expr) bool {
	_, ok := ast.Unparen(expr).(*ast.StarExpr)
	return ok
}

// FindOptions scans the parameters of the signature for the options aggregate.
//
// It returns found=false if there is none, or the zero-based index of the one parameter that is the aggregate.
// If more than one parameter is the aggregate, it returns an error wrapping ErrMultipleOptions, and if the
// aggregate is variadic it returns an error wrapping ErrVariadicOptions.
func FindOptions(sig *Signature, m Matcher) (index int, found bool, err error) {
	var indices []int
	for ii, param := range sig.Params {
		if !m.Match(param.Expr, sig.Imports) {
			continue
		}
		if param.Variadic {
			return -1, false, errors.Wrapf(ErrVariadicOptions, "%s: function %s parameter #%d (%s)",
				Location(sig.Pos), sig.Name, ii, param)
		}
		indices = append(indices, ii)
	}
	switch len(indices) {
	case 0:
		return -1, false, nil
	case 1:
		return indices[0], true, nil
	default:
		return -1, false, errors.Wrapf(ErrMultipleOptions, "%s: function %s has %d %s parameters (at positions %v)",
			Location(sig.Pos), sig.Name, len(indices), m, indices)
	}
}

// HasOptions returns whether the signature has exactly one options aggregate parameter.
// It returns an error under the same conditions as FindOptions.
func HasOptions(sig *Signature, m Matcher) (bool, error) {
	_, found, err := FindOptions(sig, m)
	return found, err
}
