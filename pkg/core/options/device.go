// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package options

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
)

// DeviceType is the kind of hardware a tensor is placed on.
type DeviceType int

const (
	DeviceCPU DeviceType = iota
	DeviceCUDA
	DeviceMPS
	DeviceXLA

	// DeviceMeta holds no data: only shape and type information is tracked.
	DeviceMeta
)

//go:generate go tool enumer -type=DeviceType -trimprefix=Device -output=gen_devicetype_enumer.go device.go

// AnyIndex is used as Device.Index when no specific device of the given type was selected,
// and the current one should be used.
const AnyIndex = -1

// Device placement: the type of the device and the index of the device within its type.
type Device struct {
	Type DeviceType

	// Index of the device, or AnyIndex.
	Index int
}

// NewDevice returns a Device of the given type and index.
func NewDevice(deviceType DeviceType, index int) Device {
	return Device{Type: deviceType, Index: index}
}

// HasIndex returns whether a specific device index was selected.
func (d Device) HasIndex() bool {
	return d.Index != AnyIndex
}

// String implements fmt.Stringer, in the same format accepted by ParseDevice. E.g.: "cpu", "cuda:1".
func (d Device) String() string {
	name := strings.ToLower(d.Type.String())
	if !d.HasIndex() {
		return name
	}
	return fmt.Sprintf("%s:%d", name, d.Index)
}

// ParseDevice parses a device description of the form "<type>[:<index>]", e.g.: "cpu", "cuda:0", "XLA:3".
// The type is case-insensitive.
func ParseDevice(spec string) (Device, error) {
	spec = strings.TrimSpace(spec)
	typeName, indexStr, hasIndex := strings.Cut(spec, ":")
	deviceType, err := DeviceTypeString(typeName)
	if err != nil {
		return Device{}, errors.Errorf("invalid device %q: unknown device type %q, valid types are %q",
			spec, typeName, DeviceTypeStrings())
	}
	d := Device{Type: deviceType, Index: AnyIndex}
	if !hasIndex {
		return d, nil
	}
	d.Index, err = strconv.Atoi(indexStr)
	if err != nil {
		return Device{}, errors.Wrapf(err, "invalid device %q: failed to parse index", spec)
	}
	if d.Index < 0 {
		return Device{}, errors.Errorf("invalid device %q: index must be >= 0", spec)
	}
	return d, nil
}

// MustParseDevice is like ParseDevice, but panics on error.
func MustParseDevice(spec string) Device {
	d, err := ParseDevice(spec)
	if err != nil {
		exceptions.Panicf("MustParseDevice: %+v", err)
	}
	return d
}
