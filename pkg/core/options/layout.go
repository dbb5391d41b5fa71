// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package options

// Layout of the memory backing a tensor.
type Layout int

const (
	// LayoutStrided is the dense layout, with one stride per axis. It's the default.
	LayoutStrided Layout = iota

	// LayoutSparse is the coordinate (COO) sparse layout.
	LayoutSparse

	// LayoutSparseCSR is the compressed sparse row layout.
	LayoutSparseCSR

	// LayoutMkldnn is the opaque blocked layout used by oneDNN kernels.
	LayoutMkldnn
)

//go:generate go tool enumer -type=Layout -trimprefix=Layout -output=gen_layout_enumer.go layout.go

// IsSparse returns whether the layout is one of the sparse layouts.
func (l Layout) IsSparse() bool {
	return l == LayoutSparse || l == LayoutSparseCSR
}
