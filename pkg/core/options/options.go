// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package options defines Options, the gathered set of tensor construction options taken by
// legacy operators: element type (dtype), memory layout, device placement and whether memory is pinned.
//
// Each of the four settings is independently optional. Settings that are not set resolve to
// the defaults (DefaultDType, DefaultLayout, DefaultDevice and unpinned memory) when read.
//
// Options is a small value type: the With* methods return modified copies, so it can be built
// fluently:
//
//	opts := options.Options{}.WithDType(dtypes.Int64).WithDevice(options.MustParseDevice("cuda:0"))
//
// The scattered form of Options, used by the operator calling convention, is the sequence of
// four mo.Option values (dtype, layout, device, pinMemory). See Gather and Options.Scatter.
package options

import (
	"fmt"
	"strings"

	"github.com/gomlx/gopjrt/dtypes"
	"github.com/pkg/errors"
	"github.com/samber/mo"
)

var (
	// DefaultDType is the dtype used when none is set.
	DefaultDType = dtypes.Float32

	// DefaultLayout is the layout used when none is set.
	DefaultLayout = LayoutStrided

	// DefaultDevice is the device used when none is set: the current CPU.
	DefaultDevice = Device{Type: DeviceCPU, Index: AnyIndex}
)

// Options gathers the tensor construction options.
//
// The zero value has nothing set, and it is ready to use. Options values are comparable.
type Options struct {
	dtype     mo.Option[dtypes.DType]
	layout    mo.Option[Layout]
	device    mo.Option[Device]
	pinMemory mo.Option[bool]
}

// Gather builds an Options from its scattered parts: only the present values are set.
//
// This is the inverse of Options.Scatter.
func Gather(dtype mo.Option[dtypes.DType], layout mo.Option[Layout], device mo.Option[Device],
	pinMemory mo.Option[bool]) Options {
	return Options{}.
		WithOptionalDType(dtype).
		WithOptionalDevice(device).
		WithOptionalLayout(layout).
		WithOptionalPinnedMemory(pinMemory)
}

// Scatter returns the four settings of the Options in canonical order: dtype, layout, device and pinMemory.
func (o Options) Scatter() (dtype mo.Option[dtypes.DType], layout mo.Option[Layout], device mo.Option[Device],
	pinMemory mo.Option[bool]) {
	return o.dtype, o.layout, o.device, o.pinMemory
}

// WithDType returns a copy of the Options with the dtype set.
func (o Options) WithDType(dtype dtypes.DType) Options {
	o.dtype = mo.Some(dtype)
	return o
}

// WithOptionalDType returns a copy of the Options with the dtype set, if present.
// If dtype is absent, the returned Options is unchanged.
func (o Options) WithOptionalDType(dtype mo.Option[dtypes.DType]) Options {
	if dtype.IsPresent() {
		o.dtype = dtype
	}
	return o
}

// WithLayout returns a copy of the Options with the layout set.
func (o Options) WithLayout(layout Layout) Options {
	o.layout = mo.Some(layout)
	return o
}

// WithOptionalLayout returns a copy of the Options with the layout set, if present.
func (o Options) WithOptionalLayout(layout mo.Option[Layout]) Options {
	if layout.IsPresent() {
		o.layout = layout
	}
	return o
}

// WithDevice returns a copy of the Options with the device set.
func (o Options) WithDevice(device Device) Options {
	o.device = mo.Some(device)
	return o
}

// WithOptionalDevice returns a copy of the Options with the device set, if present.
func (o Options) WithOptionalDevice(device mo.Option[Device]) Options {
	if device.IsPresent() {
		o.device = device
	}
	return o
}

// WithPinnedMemory returns a copy of the Options with the pinned memory flag set.
func (o Options) WithPinnedMemory(pinned bool) Options {
	o.pinMemory = mo.Some(pinned)
	return o
}

// WithOptionalPinnedMemory returns a copy of the Options with the pinned memory flag set, if present.
func (o Options) WithOptionalPinnedMemory(pinned mo.Option[bool]) Options {
	if pinned.IsPresent() {
		o.pinMemory = pinned
	}
	return o
}

// DType returns the dtype set, or DefaultDType.
func (o Options) DType() dtypes.DType { return o.dtype.OrElse(DefaultDType) }

// HasDType returns whether the dtype was set.
func (o Options) HasDType() bool { return o.dtype.IsPresent() }

// Layout returns the layout set, or DefaultLayout.
func (o Options) Layout() Layout { return o.layout.OrElse(DefaultLayout) }

// HasLayout returns whether the layout was set.
func (o Options) HasLayout() bool { return o.layout.IsPresent() }

// Device returns the device set, or DefaultDevice.
func (o Options) Device() Device { return o.device.OrElse(DefaultDevice) }

// HasDevice returns whether the device was set.
func (o Options) HasDevice() bool { return o.device.IsPresent() }

// PinnedMemory returns whether pinned memory was requested. It defaults to false.
func (o Options) PinnedMemory() bool { return o.pinMemory.OrElse(false) }

// HasPinnedMemory returns whether the pinned memory flag was set.
func (o Options) HasPinnedMemory() bool { return o.pinMemory.IsPresent() }

// IsEmpty returns whether none of the options is set.
func (o Options) IsEmpty() bool {
	return !o.HasDType() && !o.HasLayout() && !o.HasDevice() && !o.HasPinnedMemory()
}

// Merge returns a copy of o, with the settings present in other overriding the ones in o.
func (o Options) Merge(other Options) Options {
	return o.
		WithOptionalDType(other.dtype).
		WithOptionalLayout(other.layout).
		WithOptionalDevice(other.device).
		WithOptionalPinnedMemory(other.pinMemory)
}

// Validate checks that the options can be resolved to a valid tensor placement.
func (o Options) Validate() error {
	if o.HasDType() && o.DType() == dtypes.InvalidDType {
		return errors.New("invalid options: dtype set to InvalidDType")
	}
	if !o.Layout().IsALayout() {
		return errors.Errorf("invalid options: unknown layout %s", o.Layout())
	}
	device := o.Device()
	if !device.Type.IsADeviceType() {
		return errors.Errorf("invalid options: unknown device type %s", device.Type)
	}
	if device.Index < AnyIndex {
		return errors.Errorf("invalid options: device index %d for %s", device.Index, device.Type)
	}
	if o.PinnedMemory() {
		if device.Type != DeviceCPU {
			return errors.Errorf("invalid options: only CPU memory can be pinned, got device %s", device)
		}
		if o.Layout() != LayoutStrided {
			return errors.Errorf("invalid options: only strided (dense) memory can be pinned, got layout %s",
				o.Layout())
		}
	}
	return nil
}

// String implements fmt.Stringer. Only the settings that are set are listed.
func (o Options) String() string {
	parts := make([]string, 0, 4)
	if dtype, ok := o.dtype.Get(); ok {
		parts = append(parts, "dtype="+dtype.String())
	}
	if layout, ok := o.layout.Get(); ok {
		parts = append(parts, "layout="+layout.String())
	}
	if device, ok := o.device.Get(); ok {
		parts = append(parts, "device="+device.String())
	}
	if pinned, ok := o.pinMemory.Get(); ok {
		parts = append(parts, fmt.Sprintf("pinned_memory=%v", pinned))
	}
	return "Options(" + strings.Join(parts, ", ") + ")"
}
