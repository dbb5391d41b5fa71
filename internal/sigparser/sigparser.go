// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sigparser parses the signatures of operator functions marked for scattering, and
// detects which of their parameters, if any, is the gathered options aggregate (options.Options).
package sigparser

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// Directive marks a function declaration to be scattered. It may be followed by the name under which the
// scattered function is registered, otherwise the snake-case version of the function name is used:
//
//	//scatter:op
//	func ZerosLike(x *Descriptor, opts options.Options) *Descriptor
//
//	//scatter:op eye_matrix
//	func Eye(n int64, opts *options.Options) (*Descriptor, error)
const Directive = "//scatter:op"

// Param is a parameter or a result of a function.
type Param struct {
	// Name may be empty if the parameter is not named.
	Name string

	// Type as Go source, including the "..." prefix for variadic parameters.
	Type string

	// Expr is the type expression. For variadic parameters it is the element type.
	Expr ast.Expr

	Variadic bool
}

// Signature of a top-level function declaration marked with Directive.
type Signature struct {
	// Name of the function.
	Name string

	// OpName is the name under which the scattered function is registered.
	OpName string

	// Pos of the function declaration.
	Pos token.Position

	// Receiver type as Go source, if the declaration is a method.
	Receiver string

	// TypeParams as Go source, if the function is generic.
	TypeParams string

	Params, Results []Param

	// Imports maps the package names visible in the declaring file to their import paths.
	Imports Imports
}

// IsMethod returns whether the declaration is a method.
func (sig *Signature) IsMethod() bool { return sig.Receiver != "" }

// IsGeneric returns whether the declaration has type parameters.
func (sig *Signature) IsGeneric() bool { return sig.TypeParams != "" }

// String returns the signature in Go syntax.
func (sig *Signature) String() string {
	var sb strings.Builder
	sb.WriteString("func ")
	sb.WriteString(sig.Name)
	sb.WriteString(sig.TypeParams)
	sb.WriteString("(")
	sb.WriteString(strings.Join(lo.Map(sig.Params, func(p Param, _ int) string { return p.String() }), ", "))
	sb.WriteString(")")
	switch {
	case len(sig.Results) == 1 && sig.Results[0].Name == "":
		sb.WriteString(" " + sig.Results[0].Type)
	case len(sig.Results) > 0:
		sb.WriteString(" (")
		sb.WriteString(strings.Join(lo.Map(sig.Results, func(p Param, _ int) string { return p.String() }), ", "))
		sb.WriteString(")")
	}
	return sb.String()
}

// String returns "name type", or only the type if the parameter is not named.
func (p Param) String() string {
	if p.Name == "" {
		return p.Type
	}
	return p.Name + " " + p.Type
}

// Imports maps package names, as used in a file, to their import paths.
// Dot imports are keyed by ".", and they may hold more than one path.
type Imports map[string][]string

// Path returns the import path for the package name, or "" if it is not imported.
func (imports Imports) Path(name string) string {
	if paths := imports[name]; len(paths) > 0 {
		return paths[0]
	}
	return ""
}

// HasDotImport returns whether importPath is imported with a "." name.
func (imports Imports) HasDotImport(importPath string) bool {
	return slices.Contains(imports["."], importPath)
}

// DefaultImportName returns the package name assumed for an import path without an explicit name, following
// the same convention as goimports: the last path element, skipping major version suffixes ("/v2"), dropping
// a "go-" prefix and anything after the first character that is not valid in an identifier (".v3", "-go").
//
// The actual package name is only known after loading the package, and may differ.
func DefaultImportName(importPath string) string {
	base := path.Base(importPath)
	if strings.HasPrefix(base, "v") {
		if _, err := strconv.Atoi(base[1:]); err == nil {
			if dir := path.Dir(importPath); dir != "." {
				base = path.Base(dir)
			}
		}
	}
	base = strings.TrimPrefix(base, "go-")
	if idx := strings.IndexFunc(base, notIdentifier); idx >= 0 {
		base = base[:idx]
	}
	return base
}

func notIdentifier(ch rune) bool {
	return !('a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || '0' <= ch && ch <= '9' || ch == '_' ||
		ch >= utf8.RuneSelf && (unicode.IsLetter(ch) || unicode.IsDigit(ch)))
}

func fileImports(file *ast.File) Imports {
	imports := make(Imports, len(file.Imports))
	for _, spec := range file.Imports {
		importPath, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := DefaultImportName(importPath)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" {
			continue
		}
		imports[name] = append(imports[name], importPath)
	}
	return imports
}

// ParseFile parses the Go source of one file and returns the signatures of the functions marked with Directive.
//
// If src is nil, the file is read from filename.
func ParseFile(fset *token.FileSet, filename string, src any) (pkgName string, sigs []*Signature, err error) {
	file, err := parser.ParseFile(fset, filename, src, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to parse %q", filename)
	}
	pkgName = file.Name.Name
	imports := fileImports(file)
	for _, decl := range file.Decls {
		funcDecl, ok := decl.(*ast.FuncDecl)
		if !ok {
			continue
		}
		opName, marked := directiveOpName(funcDecl.Doc)
		if !marked {
			continue
		}
		sig := &Signature{
			Name:    funcDecl.Name.Name,
			OpName:  opName,
			Pos:     fset.Position(funcDecl.Pos()),
			Imports: imports,
		}
		if sig.OpName == "" {
			sig.OpName = lo.SnakeCase(sig.Name)
		}
		if funcDecl.Recv != nil && len(funcDecl.Recv.List) > 0 {
			sig.Receiver = types.ExprString(funcDecl.Recv.List[0].Type)
		}
		if tParams := funcDecl.Type.TypeParams; tParams != nil && len(tParams.List) > 0 {
			sig.TypeParams = "[" + strings.Join(lo.Map(fieldListToParams(tParams), func(p Param, _ int) string {
				return p.String()
			}), ", ") + "]"
		}
		sig.Params = fieldListToParams(funcDecl.Type.Params)
		sig.Results = fieldListToParams(funcDecl.Type.Results)
		klog.V(2).Infof("sigparser: %s: %s", sig.Pos, sig)
		sigs = append(sigs, sig)
	}
	return pkgName, sigs, nil
}

// ParseDir parses all non-test, non-generated Go files in dir, and returns the package name and the signatures
// of the functions marked with Directive, ordered by file name and then position.
//
// Files whose base name is listed in exclude are skipped. Build constraints are not evaluated.
func ParseDir(dir string, exclude ...string) (pkgName string, sigs []*Signature, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil, errors.Wrapf(err, "failed to read directory %q", dir)
	}
	fset := token.NewFileSet()
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") ||
			slices.Contains(exclude, name) {
			continue
		}
		filename := filepath.Join(dir, name)
		src, err := os.ReadFile(filename)
		if err != nil {
			return "", nil, errors.Wrapf(err, "failed to read %q", filename)
		}
		if isGenerated(fset, filename, src) {
			klog.V(1).Infof("sigparser: skipping generated file %s", filename)
			continue
		}
		filePkgName, fileSigs, err := ParseFile(fset, filename, src)
		if err != nil {
			return "", nil, err
		}
		if strings.HasSuffix(filePkgName, "_test") {
			continue
		}
		if pkgName != "" && filePkgName != pkgName {
			return "", nil, errors.Errorf("directory %q has files from packages %q and %q", dir, pkgName, filePkgName)
		}
		pkgName = filePkgName
		sigs = append(sigs, fileSigs...)
	}
	if pkgName == "" {
		return "", nil, errors.Errorf("no Go files found in %q", dir)
	}
	return pkgName, sigs, nil
}

func isGenerated(fset *token.FileSet, filename string, src []byte) bool {
	file, err := parser.ParseFile(fset, filename, src, parser.PackageClauseOnly|parser.ParseComments)
	if err != nil {
		return false
	}
	return ast.IsGenerated(file)
}

// directiveOpName returns whether the doc comment holds the Directive, and the op name following it, if any.
func directiveOpName(doc *ast.CommentGroup) (opName string, marked bool) {
	if doc == nil {
		return "", false
	}
	for _, comment := range doc.List {
		rest, found := strings.CutPrefix(comment.Text, Directive)
		if !found {
			continue
		}
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			// Something like "//scatter:opposite".
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

func fieldListToParams(fields *ast.FieldList) []Param {
	if fields == nil {
		return nil
	}
	var params []Param
	for _, field := range fields.List {
		p := Param{Expr: field.Type, Type: types.ExprString(field.Type)}
		if ellipsis, ok := field.Type.(*ast.Ellipsis); ok {
			p.Variadic = true
			p.Expr = ellipsis.Elt
		}
		if len(field.Names) == 0 {
			params = append(params, p)
			continue
		}
		for _, name := range field.Names {
			named := p
			named.Name = name.Name
			params = append(params, named)
		}
	}
	return params
}

// Qualifiers returns the package names used in the type expression of the parameter, e.g.: for the
// type "map[string]*shapes.Shape" it returns ["shapes"].
func (p Param) Qualifiers() []string {
	var names []string
	ast.Inspect(p.Expr, func(n ast.Node) bool {
		if sel, ok := n.(*ast.SelectorExpr); ok {
			if ident, ok := sel.X.(*ast.Ident); ok {
				names = append(names, ident.Name)
			}
			return false
		}
		return true
	})
	return lo.Uniq(names)
}

// Location formats a position as "file:line", used in diagnostics.
func Location(pos token.Position) string {
	return fmt.Sprintf("%s:%d", pos.Filename, pos.Line)
}
