// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package factory implements tensor creation operators taking their creation settings gathered in an
// options.Options.
//
// Each operator also has a scattered version, in gen_scattered.go, that takes the dtype, layout, device and
// pinned memory settings as individual optional parameters. E.g.:
//
//	eye, err := factory.EyeScattered(5, mo.Some(dtypes.Float32), mo.None[options.Layout](),
//		mo.None[options.Device](), mo.None[bool]())
//
// The operators only describe the tensors to be created (see Descriptor), they don't allocate them.
//
// The scattered operators are registered in registry.Default under their snake case names, e.g. "eye".
package factory

//go:generate go run ../../../cmd/scatter_generator

import (
	"math"
	"slices"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/scatter/pkg/core/options"
	"github.com/gomlx/scatter/pkg/ops/registry"
	"github.com/pkg/errors"
	"github.com/samber/mo"
)

func init() {
	if err := RegisterScatteredOps(registry.Default); err != nil {
		exceptions.Panicf("factory: failed to register operators: %+v", err)
	}
}

// mustDescriptor is newDescriptor for the operators without an error result: it panics on invalid dimensions.
func mustDescriptor(op string, dims []int, opts options.Options) *Descriptor {
	d := newDescriptor(op, slices.Clone(dims), opts)
	if _, err := checkSize(d.Dims, d.DType); err != nil {
		exceptions.Panicf("%s: %+v", op, err)
	}
	return d
}

// checkedDescriptor is newDescriptor returning an error on invalid dimensions.
func checkedDescriptor(op string, dims []int, opts options.Options) (*Descriptor, error) {
	d := newDescriptor(op, dims, opts)
	if _, err := checkSize(d.Dims, d.DType); err != nil {
		return nil, errors.WithMessage(err, op)
	}
	return d, nil
}

// Empty describes an uninitialized tensor with the given dimensions.
// It panics if a dimension is negative, or if the tensor is too large.
//
//scatter:op
func Empty(dims []int, opts options.Options) *Descriptor {
	return mustDescriptor("empty", dims, opts)
}

// Full describes a tensor with the given dimensions with all elements set to fill.
// The fill value is rounded to the precision of the dtype: integer dtypes truncate it.
// It panics if a dimension is negative, or if the tensor is too large.
//
//scatter:op
func Full(dims []int, fill float64, opts options.Options) *Descriptor {
	d := mustDescriptor("full", dims, opts)
	d.Fill = mo.Some(roundToDType(d.DType, fill))
	return d
}

// Eye describes an identity matrix of shape [n, n]. A nil opts uses the defaults.
//
//scatter:op
func Eye(n int64, opts *options.Options) (*Descriptor, error) {
	if n < 0 {
		return nil, errors.Errorf("Eye requires a non-negative size, got n=%d", n)
	}
	if opts == nil {
		opts = &options.Options{}
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.WithMessage(err, "Eye")
	}
	if n > math.MaxInt {
		return nil, errors.Errorf("Eye(n=%d) is too large", n)
	}
	return checkedDescriptor("eye", []int{int(n), int(n)}, *opts)
}

// Arange describes a 1D tensor with the values from start (inclusive) to end (exclusive), spaced by step.
//
//scatter:op
func Arange(start, end, step float64, opts options.Options) (*Descriptor, error) {
	if step == 0 || math.IsNaN(step) || math.IsInf(step, 0) {
		return nil, errors.Errorf("Arange requires a finite non-zero step, got %g", step)
	}
	count := math.Ceil((end - start) / step)
	if math.IsNaN(count) || math.IsInf(count, 0) {
		return nil, errors.Errorf("Arange(start=%g, end=%g, step=%g) has an undefined number of elements",
			start, end, step)
	}
	if count < 0 {
		return nil, errors.Errorf("Arange(start=%g, end=%g, step=%g): step must move start towards end",
			start, end, step)
	}
	if count >= math.MaxInt {
		return nil, errors.Errorf("Arange(start=%g, end=%g, step=%g) has too many elements (%g)",
			start, end, step, count)
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.WithMessage(err, "Arange")
	}
	return checkedDescriptor("arange", []int{int(count)}, opts)
}

// Stack describes the tensor created by stacking parts along a new leading axis.
//
// The parts must have the same dimensions. Settings not given in opts are taken from the first part.
//
//scatter:op
func Stack(opts options.Options, parts ...*Descriptor) (*Descriptor, error) {
	if len(parts) == 0 {
		return nil, errors.New("Stack requires at least one part")
	}
	first := parts[0]
	for ii, part := range parts[1:] {
		if !slices.Equal(part.Dims, first.Dims) {
			return nil, errors.Errorf("Stack parts must have the same dimensions: part #0 has %v, part #%d has %v",
				first.Dims, ii+1, part.Dims)
		}
	}
	opts = first.Options().Merge(opts)
	if err := opts.Validate(); err != nil {
		return nil, errors.WithMessage(err, "Stack")
	}
	dims := append([]int{len(parts)}, first.Dims...)
	return checkedDescriptor("stack", dims, opts)
}

// Reshape returns a copy of d with new dimensions. One of the dimensions can be -1, in which case it is
// inferred from the number of elements.
//
//scatter:op
func Reshape(d *Descriptor, dims ...int) (*Descriptor, error) {
	newDims := slices.Clone(dims)
	inferred := -1
	for axis, dim := range dims {
		switch {
		case dim == -1 && inferred == -1:
			inferred = axis
			newDims[axis] = 1
		case dim < 0:
			return nil, errors.Errorf("Reshape(%v -> %v): invalid dimension %d at axis %d", d.Dims, dims, dim, axis)
		}
	}
	newSize, err := checkSize(newDims, d.DType)
	if err != nil {
		return nil, errors.WithMessagef(err, "Reshape(%v -> %v)", d.Dims, dims)
	}
	size := d.Size()
	if inferred >= 0 {
		if newSize == 0 || size%newSize != 0 {
			return nil, errors.Errorf("Reshape(%v -> %v): cannot infer dimension at axis %d", d.Dims, dims, inferred)
		}
		newDims[inferred] = size / newSize
		newSize = size
	}
	if newSize != size {
		return nil, errors.Errorf("Reshape(%v -> %v): number of elements %d differs from %d",
			d.Dims, dims, newSize, size)
	}
	reshaped := *d
	reshaped.Dims = newDims
	return &reshaped, nil
}
