// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for the dense tensors used by lingua.
//
// The package exposes three row-major tensor kinds:
//   - Tensor: float32 values (activations, parameters, logits)
//   - IntTensor: int32 token ids and validity indicators
//   - BoolTensor: attention masks, true = may attend
//
// Example:
//
//	ids := tensor.MustFromInts([]int32{5, 6, 7, 0}, 1, 4)
//	valid := tensor.MustFromInts([]int32{1, 1, 1, 0}, 1, 4)
//	x := tensor.Zeros(2, 3)
//	y := x.AddScalar(1)
package tensor

import (
	"github.com/born-ml/lingua/internal/tensor"
)

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// Tensor is a dense float32 tensor.
type Tensor = tensor.Tensor

// IntTensor is a dense int32 tensor of token ids.
type IntTensor = tensor.IntTensor

// BoolTensor is a dense boolean tensor, used for masks.
type BoolTensor = tensor.BoolTensor

// Zeros creates a float32 tensor filled with zeros.
func Zeros(shape ...int) *Tensor {
	return tensor.Zeros(shape...)
}

// Full creates a float32 tensor filled with value.
func Full(value float32, shape ...int) *Tensor {
	return tensor.Full(value, shape...)
}

// FromSlice creates a tensor over data. The slice is not copied.
//
// Returns an error if len(data) does not match the shape.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	return tensor.FromSlice(data, shape...)
}

// MustFromSlice is FromSlice that panics on error.
func MustFromSlice(data []float32, shape ...int) *Tensor {
	return tensor.MustFromSlice(data, shape...)
}

// FromInts creates an id tensor over data.
func FromInts(data []int32, shape ...int) (*IntTensor, error) {
	return tensor.FromInts(data, shape...)
}

// MustFromInts is FromInts that panics on error.
func MustFromInts(data []int32, shape ...int) *IntTensor {
	return tensor.MustFromInts(data, shape...)
}

// FromRows builds a [len(rows), width] id tensor, padding short rows with pad.
//
// Example:
//
//	ids := tensor.FromRows([][]int32{{5, 6, 7}, {8}}, 3, 0)
//	// [[5 6 7] [8 0 0]]
func FromRows(rows [][]int32, width int, pad int32) *IntTensor {
	return tensor.FromRows(rows, width, pad)
}

// FullInt creates an id tensor filled with value.
func FullInt(value int32, shape ...int) *IntTensor {
	return tensor.FullInt(value, shape...)
}
