// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package scatter synthesizes wrappers that take the options aggregate (options.Options) scattered into its
// four optional settings, and forward to the original function with the aggregate gathered back.
//
// Functions that don't take the aggregate are passed through: the generated symbol is the original function.
//
// The wrappers are generated as Go source, so there is no run-time cost beyond building the aggregate,
// and invalid signatures (e.g. two aggregates) fail the generation instead of failing at run time.
package scatter

import (
	"fmt"
	"go/ast"
	"slices"
	"strings"

	"github.com/gomlx/scatter/internal/sigparser"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

const (
	// DefaultSuffix appended to the function name to name the scattered version.
	DefaultSuffix = "Scattered"

	// RegistryImportPath is the import path of the operator registry used by the generated registration function.
	RegistryImportPath = "github.com/gomlx/scatter/pkg/ops/registry"

	moImportPath     = "github.com/samber/mo"
	dtypesImportPath = "github.com/gomlx/gopjrt/dtypes"
)

// ScatteredParamNames are the names of the scattered parameters, in canonical order.
// They are suffixed with a number if they collide with the names of other parameters.
var ScatteredParamNames = [4]string{"dtype", "layout", "device", "pinMemory"}

// Config of the wrappers synthesis.
type Config struct {
	// Matcher recognizes the options aggregate.
	Matcher sigparser.Matcher

	// Suffix appended to the function name to name the scattered version. Defaults to DefaultSuffix.
	Suffix string

	// Register enables the generation of RegisterScatteredOps.
	Register bool
}

// DefaultConfig for the options.Options aggregate.
func DefaultConfig() Config {
	return Config{Matcher: sigparser.DefaultMatcher, Suffix: DefaultSuffix, Register: true}
}

// Plan describes the scattered version of one function.
type Plan struct {
	Sig *sigparser.Signature

	// WrapperName is the name of the generated symbol.
	WrapperName string

	// Passthrough is set if the function takes no options aggregate: the generated symbol is
	// a variable holding the original function.
	Passthrough bool

	// OptionsIndex is the index of the aggregate parameter in Sig.Params, or -1 for Passthrough.
	OptionsIndex int

	// ByPointer is set if the aggregate is taken as a pointer.
	ByPointer bool

	// Before and After are the parameters preceding and following the aggregate, with names
	// assigned to unnamed parameters.
	Before, After []sigparser.Param

	// Scattered parameters that replace the aggregate, in canonical order.
	Scattered [4]sigparser.Param

	// OptionsQualifier is the prefix used to refer to the options package ("options." or "" if local).
	OptionsQualifier string

	// gatheredVar is the name of the local variable holding the aggregate, used when ByPointer.
	gatheredVar string
}

// NewPlan validates the signature and computes how to scatter it.
//
// It returns an error if the declaration is a method or generic, or if the options aggregate is
// used more than once or as a variadic parameter (see sigparser.FindOptions).
func NewPlan(sig *sigparser.Signature, cfg Config) (*Plan, error) {
	if sig.IsMethod() {
		return nil, errors.Errorf("%s: %s directive not supported on methods (receiver %s of %s)",
			sigparser.Location(sig.Pos), sigparser.Directive, sig.Receiver, sig.Name)
	}
	if sig.IsGeneric() {
		return nil, errors.Errorf("%s: %s directive not supported on generic function %s%s",
			sigparser.Location(sig.Pos), sigparser.Directive, sig.Name, sig.TypeParams)
	}
	suffix := cfg.Suffix
	if suffix == "" {
		suffix = DefaultSuffix
	}
	index, found, err := sigparser.FindOptions(sig, cfg.Matcher)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		Sig:          sig,
		WrapperName:  sig.Name + suffix,
		Passthrough:  !found,
		OptionsIndex: index,
	}
	if plan.Passthrough {
		return plan, nil
	}
	plan.ByPointer = sigparser.IsPointer(sig.Params[index].Expr)

	plan.OptionsQualifier, err = optionsQualifier(sig, index, cfg.Matcher)
	if err != nil {
		return nil, err
	}

	// Parameters named after a package used by the wrapper, or after the wrapped function, would shadow them:
	// they are renamed along with the unnamed ones. The names are internal to the wrapper.
	reserved := []string{"mo", "dtypes", strings.TrimSuffix(plan.OptionsQualifier, "."), sig.Name}
	if plan.OptionsQualifier == "" {
		// Unqualified references to the options package, used in the wrapper's body and parameter types.
		reserved = append(reserved, "Gather", "Layout", "Device")
	}
	for _, param := range sig.Params {
		reserved = append(reserved, param.Qualifiers()...)
	}
	for _, result := range sig.Results {
		reserved = append(reserved, result.Qualifiers()...)
	}
	// The aggregate parameter is dropped from the wrapper, so its name is free to use.
	names := newNameAllocator(append(slices.Clone(sig.Params[:index]), sig.Params[index+1:]...), reserved)
	params := make([]sigparser.Param, len(sig.Params))
	for ii, param := range sig.Params {
		switch {
		case param.Name == "" || param.Name == "_":
			param.Name = names.unique(fmt.Sprintf("arg%d", ii))
		case lo.Contains(reserved, param.Name):
			param.Name = names.unique(param.Name)
		}
		params[ii] = param
	}
	plan.Before = params[:index]
	plan.After = params[index+1:]

	q := plan.OptionsQualifier
	scatteredTypes := [4]string{
		"mo.Option[dtypes.DType]",
		"mo.Option[" + q + "Layout]",
		"mo.Option[" + q + "Device]",
		"mo.Option[bool]",
	}
	for ii, name := range ScatteredParamNames {
		plan.Scattered[ii] = sigparser.Param{Name: names.unique(name), Type: scatteredTypes[ii]}
	}
	if plan.ByPointer {
		plan.gatheredVar = names.unique("opts")
	}
	return plan, nil
}

// optionsQualifier returns how the options package is referred to by the aggregate parameter, e.g. "options.".
func optionsQualifier(sig *sigparser.Signature, index int, m sigparser.Matcher) (string, error) {
	expr := ast.Unparen(sig.Params[index].Expr)
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = ast.Unparen(star.X)
	}
	switch e := expr.(type) {
	case *ast.Ident:
		return "", nil
	case *ast.SelectorExpr:
		if pkgIdent, ok := e.X.(*ast.Ident); ok {
			return pkgIdent.Name + ".", nil
		}
	}
	return "", errors.Errorf("%s: unexpected type %s for %s parameter of %s",
		sigparser.Location(sig.Pos), sig.Params[index].Type, m, sig.Name)
}

// WrapperParams returns the parameters of the wrapper: before, scattered and after.
func (p *Plan) WrapperParams() []sigparser.Param {
	if p.Passthrough {
		return p.Sig.Params
	}
	params := make([]sigparser.Param, 0, len(p.Before)+len(p.Scattered)+len(p.After))
	params = append(params, p.Before...)
	params = append(params, p.Scattered[:]...)
	params = append(params, p.After...)
	return params
}

// WrapperSignature returns the signature of the wrapper, as Go source (without the "func" keyword).
func (p *Plan) WrapperSignature() string {
	return p.WrapperName + "(" + joinParams(p.WrapperParams()) + ")" + p.resultsString()
}

// Gather returns the expression that builds the aggregate from the scattered parameters.
func (p *Plan) Gather() string {
	return fmt.Sprintf("%sGather(%s)", p.OptionsQualifier, strings.Join(
		lo.Map(p.Scattered[:], func(param sigparser.Param, _ int) string { return param.Name }), ", "))
}

// CallArgs returns the arguments used to call the original function from the wrapper.
func (p *Plan) CallArgs() string {
	args := make([]string, 0, len(p.Sig.Params))
	for _, param := range p.Before {
		args = append(args, param.Name)
	}
	if p.ByPointer {
		args = append(args, "&"+p.gatheredVar)
	} else {
		args = append(args, p.Gather())
	}
	for _, param := range p.After {
		if param.Variadic {
			args = append(args, param.Name+"...")
		} else {
			args = append(args, param.Name)
		}
	}
	return strings.Join(args, ", ")
}

// Body returns the statements of the wrapper.
func (p *Plan) Body() string {
	var sb strings.Builder
	if p.ByPointer {
		fmt.Fprintf(&sb, "%s := %s\n", p.gatheredVar, p.Gather())
	}
	if len(p.Sig.Results) > 0 {
		sb.WriteString("return ")
	}
	fmt.Fprintf(&sb, "%s(%s)", p.Sig.Name, p.CallArgs())
	return sb.String()
}

// Qualifiers returns the package names used by the wrapper's before/after parameters and results.
func (p *Plan) Qualifiers() []string {
	var names []string
	for _, param := range append(append(append([]sigparser.Param{}, p.Before...), p.After...), p.Sig.Results...) {
		names = append(names, param.Qualifiers()...)
	}
	return lo.Uniq(names)
}

func (p *Plan) resultsString() string {
	results := p.Sig.Results
	switch len(results) {
	case 0:
		return ""
	case 1:
		return " " + results[0].Type
	default:
		return " (" + strings.Join(lo.Map(results, func(r sigparser.Param, _ int) string { return r.Type }), ", ") + ")"
	}
}

func joinParams(params []sigparser.Param) string {
	return strings.Join(lo.Map(params, func(param sigparser.Param, _ int) string { return param.String() }), ", ")
}

// nameAllocator hands out parameter names that don't collide with the ones already in use.
type nameAllocator map[string]bool

func newNameAllocator(params []sigparser.Param, reserved []string) nameAllocator {
	names := make(nameAllocator, len(params)+len(reserved)+5)
	for _, param := range params {
		if param.Name != "" && param.Name != "_" {
			names[param.Name] = true
		}
	}
	for _, name := range reserved {
		if name != "" {
			names[name] = true
		}
	}
	return names
}

// unique returns base, or base suffixed with a number if it is taken. Bases ending in a digit are
// suffixed with "_<n>", e.g. "arg0_1".
func (names nameAllocator) unique(base string) string {
	sep := ""
	if last := base[len(base)-1]; last >= '0' && last <= '9' {
		sep = "_"
	}
	name := base
	for ii := 1; names[name]; ii++ {
		name = fmt.Sprintf("%s%s%d", base, sep, ii)
	}
	names[name] = true
	return name
}
