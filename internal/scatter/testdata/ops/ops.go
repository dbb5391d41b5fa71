package ops

import (
	"example.com/tensor/shapes"
	"github.com/gomlx/gopjrt/dtypes"
	opt "github.com/gomlx/scatter/pkg/core/options"
)

// Cast has a parameter named like the first scattered one.
//
//scatter:op cast_to
func Cast(x shapes.Shape, dtype dtypes.DType, o opt.Options) (shapes.Shape, error) { return x, nil }

//scatter:op
func Zeros(dims []int, opts *opt.Options, names ...string) {}

//scatter:op
func Identity(x shapes.Shape) shapes.Shape { return x }

// NotMarked is not scattered.
func NotMarked(o opt.Options) {}
