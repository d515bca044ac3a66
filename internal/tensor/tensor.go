// Package tensor implements the dense CPU tensors used by the translation model.
//
// Three element types are provided:
//   - Tensor: float32 activations and parameters
//   - IntTensor: int32 token ids and validity indicators
//   - BoolTensor: attention masks (true = attention allowed)
//
// All tensors are row-major and contiguous. Reshape returns a view that
// shares storage; every other operation allocates a new result.
package tensor

import (
	"fmt"
	"math"
	"math/rand"
)

// Tensor is a dense row-major float32 tensor.
type Tensor struct {
	shape Shape
	data  []float32
}

// Zeros creates a tensor filled with zeros.
func Zeros(shape ...int) *Tensor {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.Zeros: %v", err))
	}
	return &Tensor{shape: s.Clone(), data: make([]float32, s.NumElements())}
}

// Full creates a tensor filled with value.
func Full(value float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = value
	}
	return t
}

// FromSlice creates a tensor from a Go slice.
// The slice is copied into the tensor's memory.
func FromSlice(data []float32, shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", s, s.NumElements(), len(data))
	}
	t := &Tensor{shape: s.Clone(), data: make([]float32, len(data))}
	copy(t.data, data)
	return t, nil
}

// MustFromSlice is FromSlice that panics on error. Intended for tests and constants.
func MustFromSlice(data []float32, shape ...int) *Tensor {
	t, err := FromSlice(data, shape...)
	if err != nil {
		panic(err)
	}
	return t
}

// Randn creates a tensor with samples from N(0, std^2).
func Randn(rng *rand.Rand, std float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	for i := range t.data {
		t.data[i] = float32(rng.NormFloat64()) * std
	}
	return t
}

// Uniform creates a tensor with samples from U(low, high).
func Uniform(rng *rand.Rand, low, high float32, shape ...int) *Tensor {
	t := Zeros(shape...)
	span := high - low
	for i := range t.data {
		t.data[i] = low + rng.Float32()*span
	}
	return t
}

// Shape returns the tensor's shape. The returned slice must not be modified.
func (t *Tensor) Shape() Shape {
	return t.shape
}

// Rank returns the number of dimensions.
func (t *Tensor) Rank() int {
	return len(t.shape)
}

// Dim returns the size of dimension d (negative d counts from the end).
func (t *Tensor) Dim(d int) int {
	return t.shape[normalizeDim(d, len(t.shape))]
}

// NumElements returns the total number of elements.
func (t *Tensor) NumElements() int {
	return len(t.data)
}

// Data returns the underlying storage (zero-copy).
// Writes through the returned slice are visible to every view of the tensor.
func (t *Tensor) Data() []float32 {
	return t.data
}

// At returns the element at the given multi-dimensional index.
func (t *Tensor) At(indices ...int) float32 {
	return t.data[t.offset(indices)]
}

// Set writes the element at the given multi-dimensional index.
func (t *Tensor) Set(value float32, indices ...int) {
	t.data[t.offset(indices)] = value
}

func (t *Tensor) offset(indices []int) int {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: got %d indices for shape %v", len(indices), t.shape))
	}
	strides := t.shape.ComputeStrides()
	off := 0
	for i, idx := range indices {
		if idx < 0 || idx >= t.shape[i] {
			panic(fmt.Sprintf("tensor: index %v out of bounds for shape %v", indices, t.shape))
		}
		off += idx * strides[i]
	}
	return off
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	data := make([]float32, len(t.data))
	copy(data, t.data)
	return &Tensor{shape: t.shape.Clone(), data: data}
}

// CopyFrom overwrites t's elements with src's. Shapes must match.
func (t *Tensor) CopyFrom(src *Tensor) {
	if !t.shape.Equal(src.shape) {
		panic(fmt.Sprintf("tensor.CopyFrom: shape mismatch %v vs %v", t.shape, src.shape))
	}
	copy(t.data, src.data)
}

// HasNonFinite reports whether any element is NaN or ±Inf.
func (t *Tensor) HasNonFinite() bool {
	for _, v := range t.data {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return true
		}
	}
	return false
}

// String returns a short description of the tensor.
func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(shape=%v)", t.shape)
}
