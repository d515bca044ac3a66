package nn

import "github.com/born-ml/lingua/internal/tensor"

// ReLU applies max(0, x) element-wise.
type ReLU struct{}

// NewReLU creates a ReLU activation.
func NewReLU() *ReLU {
	return &ReLU{}
}

// Forward applies ReLU.
func (r *ReLU) Forward(x *tensor.Tensor) *tensor.Tensor {
	return x.ReLU()
}

// Parameters returns nil (activation has no parameters).
func (r *ReLU) Parameters() []*Parameter {
	return nil
}
