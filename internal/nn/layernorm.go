package nn

import (
	"fmt"

	"github.com/born-ml/lingua/internal/tensor"
)

// DefaultLayerNormEps is the epsilon used by the encoder and decoder blocks.
const DefaultLayerNormEps = 1e-5

// LayerNorm implements Layer Normalization over the last dimension.
//
// LayerNorm(x) = gamma * (x - mean(x)) / sqrt(var(x) + epsilon) + beta
//
// Parameters:
//   - gamma: learnable scale [d_model], initialized to 1
//   - beta: learnable shift [d_model], initialized to 0
type LayerNorm struct {
	Gamma   *Parameter
	Beta    *Parameter
	Epsilon float32
}

// NewLayerNorm creates a new LayerNorm layer.
//
// Parameters:
//   - name: Parameter name prefix ("<name>.gamma", "<name>.beta")
//   - normalizedShape: Size of the last dimension
//   - epsilon: Small constant for numerical stability
func NewLayerNorm(name string, normalizedShape int, epsilon float32) *LayerNorm {
	if normalizedShape <= 0 {
		panic(fmt.Sprintf("LayerNorm: normalized shape must be positive, got %d", normalizedShape))
	}
	return &LayerNorm{
		Gamma:   NewParameter(name+".gamma", tensor.Full(1, normalizedShape)),
		Beta:    NewParameter(name+".beta", tensor.Zeros(normalizedShape)),
		Epsilon: epsilon,
	}
}

// Forward applies LayerNorm to the input tensor.
//
// Shapes:
//   - input: [..., d_model]
//   - output: [..., d_model]
func (l *LayerNorm) Forward(x *tensor.Tensor) *tensor.Tensor {
	if x.Shape().Last() != l.Gamma.Tensor().NumElements() {
		panic(fmt.Sprintf("LayerNorm.Forward: expected last dim %d, got shape %v", l.Gamma.Tensor().NumElements(), x.Shape()))
	}

	mean := x.MeanDim(true)
	xCentered := x.Sub(mean)
	variance := xCentered.Mul(xCentered).MeanDim(true)
	xNorm := xCentered.Mul(variance.AddScalar(l.Epsilon).Rsqrt())

	return xNorm.Mul(l.Gamma.Tensor()).Add(l.Beta.Tensor())
}

// Parameters returns the learnable parameters (gamma and beta).
func (l *LayerNorm) Parameters() []*Parameter {
	return []*Parameter{l.Gamma, l.Beta}
}
