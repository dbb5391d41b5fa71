// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package registry holds operators by name, so they can be looked up dynamically, e.g. by an interpreter
// or by bindings to other languages.
//
// Packages generated by scatter_generator with registration enabled provide a RegisterScatteredOps function
// that registers the scattered version of each of their operators.
package registry

import (
	"reflect"
	"slices"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

// Entry for a registered operator.
type Entry struct {
	// Name of the operator, usually in snake case.
	Name string

	// Fn is the function implementing the operator.
	Fn any

	// Scattered is true if Fn takes the options scattered as individual optional parameters.
	// It is false for functions registered as is, because they take no options.
	Scattered bool
}

// Type returns the Go type of the function.
func (e Entry) Type() reflect.Type {
	return reflect.TypeOf(e.Fn)
}

// Registry of operators. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]Entry)}
}

// Default registry.
var Default = New()

// Register fn as the operator name.
//
// It returns an error if name is empty, if fn is not a non-nil function or if name is already registered.
func (r *Registry) Register(name string, fn any, scattered bool) error {
	if name == "" {
		return errors.New("registry: empty operator name")
	}
	fnV := reflect.ValueOf(fn)
	if fnV.Kind() != reflect.Func {
		return errors.Errorf("registry: operator %q must be a function, got %T", name, fn)
	}
	if fnV.IsNil() {
		return errors.Errorf("registry: operator %q registered with a nil function", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, found := r.entries[name]; found {
		return errors.Errorf("registry: operator %q already registered", name)
	}
	r.entries[name] = Entry{Name: name, Fn: fn, Scattered: scattered}
	klog.V(1).Infof("registry: registered %q (scattered=%v): %s", name, scattered, fnV.Type())
	return nil
}

// MustRegister is like Register, but panics on error.
func (r *Registry) MustRegister(name string, fn any, scattered bool) {
	if err := r.Register(name, fn, scattered); err != nil {
		exceptions.Panicf("%+v", err)
	}
}

// Lookup returns the entry registered under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, found := r.entries[name]
	return entry, found
}

// Len returns the number of registered operators.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Names returns the names of all registered operators, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	names := lo.Keys(r.entries)
	r.mu.RUnlock()
	slices.Sort(names)
	return names
}

// Get returns the function registered under name, converted to F.
//
// It returns an error if name is not registered, or if the function registered is not of type F.
func Get[F any](r *Registry, name string) (F, error) {
	var zero F
	entry, found := r.Lookup(name)
	if !found {
		return zero, errors.Errorf("registry: operator %q not registered", name)
	}
	fn, ok := entry.Fn.(F)
	if !ok {
		return zero, errors.Errorf("registry: operator %q has type %s, not %s",
			name, entry.Type(), reflect.TypeFor[F]())
	}
	return fn, nil
}
