// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package scatter

import (
	"bytes"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/template"

	"github.com/gomlx/scatter/internal/sigparser"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"golang.org/x/tools/imports"
	"k8s.io/klog/v2"
)

// DefaultOutput is the default name of the generated file.
const DefaultOutput = "gen_scattered.go"

// Diagnostics collects all the errors found in the functions of a package, so they are reported at once.
type Diagnostics []error

// Error implements error, one diagnostic per line.
func (d Diagnostics) Error() string {
	return strings.Join(lo.Map(d, func(err error, _ int) string { return err.Error() }), "\n")
}

// Unwrap allows errors.Is and errors.As to inspect the individual diagnostics.
func (d Diagnostics) Unwrap() []error { return d }

type importSpec struct {
	Name, Path string
}

// Explicit returns whether the import needs an explicit name.
func (spec importSpec) Explicit() bool {
	return spec.Name != sigparser.DefaultImportName(spec.Path)
}

type fileData struct {
	Package     string
	Imports     []importSpec
	Plans       []*Plan
	OptionsType string
	Register    bool
}

// ScatteredNames returns the names of the scattered parameters, as a list in English.
func (p *Plan) ScatteredNames() string {
	names := lo.Map(p.Scattered[:], func(param sigparser.Param, _ int) string { return param.Name })
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

var fileTemplate = template.Must(template.New(DefaultOutput).Parse(`// Code generated by scatter_generator. DO NOT EDIT.

package {{.Package}}
{{- if .Imports}}

import (
{{- range .Imports}}
	{{if .Explicit}}{{.Name}} {{end}}"{{.Path}}"
{{- end}}
)
{{- end}}
{{- range .Plans}}

{{if .Passthrough -}}
// {{.WrapperName}} is {{.Sig.Name}} itself, since it takes no {{$.OptionsType}} to scatter.
var {{.WrapperName}} = {{.Sig.Name}}
{{- else -}}
// {{.WrapperName}} calls {{.Sig.Name}} with its {{$.OptionsType}} parameter gathered from {{.ScatteredNames}}.
func {{.WrapperSignature}} {
	{{.Body}}
}
{{- end}}
{{- end}}
{{- if .Register}}

// RegisterScatteredOps registers the scattered version of the operators of package {{.Package}} in r.
func RegisterScatteredOps(r *registry.Registry) error {
{{- range .Plans}}
	if err := r.Register({{printf "%q" .Sig.OpName}}, {{.WrapperName}}, {{not .Passthrough}}); err != nil {
		return err
	}
{{- end}}
	return nil
}
{{- end}}
`))

// Generate renders the Go source file with the scattered version of each plan, in the given order.
func Generate(pkgName string, plans []*Plan, cfg Config) ([]byte, error) {
	data := &fileData{
		Package:     pkgName,
		Plans:       plans,
		OptionsType: cfg.Matcher.String(),
		Register:    cfg.Register,
	}
	var err error
	data.Imports, err = collectImports(plans, cfg)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err = fileTemplate.Execute(&buf, data); err != nil {
		return nil, errors.Wrapf(err, "failed to render scattered functions of package %s", pkgName)
	}
	formatted, err := imports.Process(DefaultOutput, buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to format generated source:\n%s", buf.String())
	}
	return formatted, nil
}

// collectImports returns the imports needed by the generated file, sorted by path.
// Each package is imported under the name used by the file declaring the function.
func collectImports(plans []*Plan, cfg Config) ([]importSpec, error) {
	byName := make(map[string]string)
	var diags Diagnostics
	add := func(name, importPath string, plan *Plan) {
		if current, found := byName[name]; found && current != importPath {
			where := "generated code"
			if plan != nil {
				where = sigparser.Location(plan.Sig.Pos) + ": " + plan.Sig.Name
			}
			diags = append(diags, errors.Errorf("%s: package name %q refers to both %q and %q",
				where, name, current, importPath))
			return
		}
		byName[name] = importPath
	}

	if cfg.Register {
		add("registry", RegistryImportPath, nil)
	}
	for _, plan := range plans {
		if plan.Passthrough {
			continue
		}
		add("mo", moImportPath, nil)
		add("dtypes", dtypesImportPath, nil)
		optionsName := strings.TrimSuffix(plan.OptionsQualifier, ".")
		if optionsName == "" && !cfg.Matcher.Local {
			optionsName = "."
		}
		if optionsName != "" {
			add(optionsName, cfg.Matcher.ImportPath, plan)
		}
		for _, dotPath := range plan.Sig.Imports["."] {
			if dotPath != cfg.Matcher.ImportPath {
				diags = append(diags, errors.Errorf("%s: %s: dot import of %q not supported in scattered functions",
					sigparser.Location(plan.Sig.Pos), plan.Sig.Name, dotPath))
			}
		}
		for _, name := range plan.Qualifiers() {
			importPath := plan.Sig.Imports.Path(name)
			if importPath == "" {
				diags = append(diags, errors.Errorf("%s: %s: package %q used in the signature is not imported",
					sigparser.Location(plan.Sig.Pos), plan.Sig.Name, name))
				continue
			}
			add(name, importPath, plan)
		}
	}
	if len(diags) > 0 {
		return nil, diags
	}
	specs := make([]importSpec, 0, len(byName))
	for name, importPath := range byName {
		specs = append(specs, importSpec{Name: name, Path: importPath})
	}
	slices.SortFunc(specs, func(a, b importSpec) int {
		return strings.Compare(a.Path+" "+a.Name, b.Path+" "+b.Name)
	})
	return specs, nil
}

// Result of a Run.
type Result struct {
	// Package name.
	Package string

	// Plans for each function marked for scattering, sorted by function name.
	Plans []*Plan

	// Source generated.
	Source []byte

	// Output is the path of the file written, empty if nothing was written.
	Output string
}

// Run parses the package in dir, plans the scattered version of every function marked with sigparser.Directive,
// and writes them to output (relative to dir, unless absolute).
//
// If checkOnly is set, nothing is written. All the violations found are returned together as Diagnostics.
func Run(dir, output string, cfg Config, checkOnly bool) (*Result, error) {
	if output == "" {
		output = DefaultOutput
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(dir, output)
	}
	pkgName, sigs, err := sigparser.ParseDir(dir, filepath.Base(output))
	if err != nil {
		return nil, err
	}
	result := &Result{Package: pkgName}
	var diags Diagnostics
	opNames := make(map[string]*sigparser.Signature, len(sigs))
	for _, sig := range sigs {
		if previous, found := opNames[sig.OpName]; found {
			diags = append(diags, errors.Errorf("%s: %s: op name %q already used by %s at %s",
				sigparser.Location(sig.Pos), sig.Name, sig.OpName, previous.Name, sigparser.Location(previous.Pos)))
			continue
		}
		opNames[sig.OpName] = sig
		plan, err := NewPlan(sig, cfg)
		if err != nil {
			diags = append(diags, err)
			continue
		}
		klog.V(1).Infof("scatter: %s -> %s (passthrough=%v)", sig, plan.WrapperName, plan.Passthrough)
		result.Plans = append(result.Plans, plan)
	}
	if len(diags) > 0 {
		return nil, diags
	}
	slices.SortFunc(result.Plans, func(a, b *Plan) int { return strings.Compare(a.Sig.Name, b.Sig.Name) })
	result.Source, err = Generate(pkgName, result.Plans, cfg)
	if err != nil {
		return nil, err
	}
	if checkOnly {
		return result, nil
	}
	if err = os.WriteFile(output, result.Source, 0o644); err != nil {
		return nil, errors.Wrapf(err, "failed to write %q", output)
	}
	result.Output = output
	return result, nil
}
