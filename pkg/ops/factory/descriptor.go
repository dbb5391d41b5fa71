// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package factory

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/gomlx/gopjrt/dtypes"
	"github.com/gomlx/gopjrt/dtypes/bfloat16"
	"github.com/gomlx/scatter/pkg/core/options"
	"github.com/pkg/errors"
	"github.com/samber/mo"
	"github.com/x448/float16"
)

// Descriptor describes a tensor to be created: its shape and the creation options resolved.
// It holds no data.
type Descriptor struct {
	// Op that created the descriptor, e.g. "full".
	Op string

	Dims   []int
	DType  dtypes.DType
	Layout options.Layout
	Device options.Device
	Pinned bool

	// Fill value, if all elements hold the same value, already rounded to DType.
	Fill mo.Option[float64]
}

// newDescriptor with the settings resolved from opts, using the defaults for the ones not set.
func newDescriptor(op string, dims []int, opts options.Options) *Descriptor {
	return &Descriptor{
		Op:     op,
		Dims:   dims,
		DType:  opts.DType(),
		Layout: opts.Layout(),
		Device: opts.Device(),
		Pinned: opts.PinnedMemory(),
	}
}

// Options returns the creation options of the descriptor, with all fields set.
func (d *Descriptor) Options() options.Options {
	return options.Options{}.
		WithDType(d.DType).
		WithLayout(d.Layout).
		WithDevice(d.Device).
		WithPinnedMemory(d.Pinned)
}

// Size is the number of elements.
// Descriptors created by the operators of this package are checked with checkSize, so it doesn't overflow.
func (d *Descriptor) Size() int {
	size := 1
	for _, dim := range d.Dims {
		size *= dim
	}
	return size
}

// Memory returns the number of bytes used by a dense version of the tensor.
func (d *Descriptor) Memory() uint64 {
	return uint64(d.Size()) * uint64(d.DType.Size())
}

// String implements fmt.Stringer.
func (d *Descriptor) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)%v on %s", d.Op, d.DType, d.Dims, d.Device)
	if d.Layout != options.LayoutStrided {
		fmt.Fprintf(&sb, ", layout=%s", d.Layout)
	}
	if d.Pinned {
		sb.WriteString(", pinned")
	}
	if fill, ok := d.Fill.Get(); ok {
		fmt.Fprintf(&sb, ", fill=%g", fill)
	}
	fmt.Fprintf(&sb, ": %s", humanize.Bytes(d.Memory()))
	return sb.String()
}

// checkSize returns the number of elements of a tensor with the given dimensions, and an error if a dimension
// is negative or if the number of elements or of bytes doesn't fit an int.
func checkSize(dims []int, dtype dtypes.DType) (int, error) {
	size := 1
	for axis, dim := range dims {
		if dim < 0 {
			return 0, errors.Errorf("negative dimension %d at axis %d of %v", dim, axis, dims)
		}
		if dim != 0 && size > math.MaxInt/dim {
			return 0, errors.Errorf("dimensions %v have too many elements", dims)
		}
		size *= dim
	}
	if itemSize := dtype.Size(); itemSize > 0 && size > math.MaxInt/itemSize {
		return 0, errors.Errorf("dimensions %v of %s use too many bytes", dims, dtype)
	}
	return size, nil
}

// roundToDType returns value as it is represented by dtype.
func roundToDType(dtype dtypes.DType, value float64) float64 {
	switch {
	case dtype == dtypes.Bool:
		if value != 0 {
			return 1
		}
		return 0
	case dtype == dtypes.Float16:
		return float64(float16.Fromfloat32(float32(value)).Float32())
	case dtype == dtypes.BFloat16:
		return float64(bfloat16.FromFloat32(float32(value)).Float32())
	case dtype == dtypes.Float32 || dtype == dtypes.Complex64:
		return float64(float32(value))
	case dtype.IsInt() || dtype.IsUnsigned():
		return math.Trunc(value)
	}
	return value
}
