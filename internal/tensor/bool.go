package tensor

import "fmt"

// BoolTensor is a dense row-major boolean tensor used for attention masks.
type BoolTensor struct {
	shape Shape
	data  []bool
}

// NewBool creates a BoolTensor from a Go slice (copied).
func NewBool(data []bool, shape ...int) (*BoolTensor, error) {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.NumElements() != len(data) {
		return nil, fmt.Errorf("shape %v requires %d elements, but got %d", s, s.NumElements(), len(data))
	}
	t := &BoolTensor{shape: s.Clone(), data: make([]bool, len(data))}
	copy(t.data, data)
	return t, nil
}

// FullBool creates a BoolTensor filled with value.
func FullBool(value bool, shape ...int) *BoolTensor {
	s := Shape(shape)
	if err := s.Validate(); err != nil {
		panic(fmt.Sprintf("tensor.FullBool: %v", err))
	}
	t := &BoolTensor{shape: s.Clone(), data: make([]bool, s.NumElements())}
	if value {
		for i := range t.data {
			t.data[i] = true
		}
	}
	return t
}

// Shape returns the tensor's shape. The returned slice must not be modified.
func (t *BoolTensor) Shape() Shape {
	return t.shape
}

// Data returns the underlying storage (zero-copy).
func (t *BoolTensor) Data() []bool {
	return t.data
}

// At returns the element at the given multi-dimensional index.
func (t *BoolTensor) At(indices ...int) bool {
	if len(indices) != len(t.shape) {
		panic(fmt.Sprintf("tensor: got %d indices for shape %v", len(indices), t.shape))
	}
	strides := t.shape.ComputeStrides()
	off := 0
	for i, idx := range indices {
		off += idx * strides[i]
	}
	return t.data[off]
}

// Reshape returns a view with a new shape sharing t's storage.
func (t *BoolTensor) Reshape(shape ...int) *BoolTensor {
	return &BoolTensor{shape: resolveShape(len(t.data), shape), data: t.data}
}

// And returns the element-wise conjunction with broadcasting.
func (t *BoolTensor) And(other *BoolTensor) *BoolTensor {
	outShape, _, err := BroadcastShapes(t.shape, other.shape)
	if err != nil {
		panic(fmt.Sprintf("tensor.And: %v", err))
	}
	out := &BoolTensor{shape: outShape, data: make([]bool, outShape.NumElements())}
	forEachBroadcast(outShape, broadcastStrides(t.shape, outShape), broadcastStrides(other.shape, outShape),
		func(o, ai, bi int) {
			out.data[o] = t.data[ai] && other.data[bi]
		})
	return out
}

// Not returns the element-wise negation.
func (t *BoolTensor) Not() *BoolTensor {
	out := &BoolTensor{shape: t.shape.Clone(), data: make([]bool, len(t.data))}
	for i, v := range t.data {
		out.data[i] = !v
	}
	return out
}

// All reports whether every element is true.
func (t *BoolTensor) All() bool {
	for _, v := range t.data {
		if !v {
			return false
		}
	}
	return true
}
