package nn

import (
	"fmt"

	"github.com/born-ml/lingua/internal/tensor"
)

// Linear implements a fully connected (dense) layer.
//
// Performs the transformation: y = x @ W.T + b
// where:
//   - x is the input tensor with shape [..., in_features]
//   - W is the weight matrix with shape [out_features, in_features]
//   - b is the optional bias vector with shape [out_features]
//   - y is the output tensor with shape [..., out_features]
//
// Weights are initialized using Xavier/Glorot initialization.
// Biases are initialized to zeros.
//
// Example:
//
//	env := nn.NewEnv(42)
//	layer := nn.NewLinear(env, "proj", 512, 128, true)
//	output := layer.Forward(input) // [batch, seq, 512] -> [batch, seq, 128]
type Linear struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter // [out_features, in_features]
	bias        *Parameter // [out_features], nil when the layer has no bias
}

// NewLinear creates a new Linear layer.
//
// Parameters:
//   - env: Source of randomness for initialization
//   - name: Prefix for parameter names ("<name>.weight", "<name>.bias")
//   - inFeatures: Number of input features
//   - outFeatures: Number of output features
//   - withBias: Whether to add a learnable bias
func NewLinear(env *Env, name string, inFeatures, outFeatures int, withBias bool) *Linear {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("Linear: features must be positive, got in=%d out=%d", inFeatures, outFeatures))
	}

	weight := NewParameter(name+".weight", Xavier(env, inFeatures, outFeatures, outFeatures, inFeatures))

	var bias *Parameter
	if withBias {
		bias = NewParameter(name+".bias", tensor.Zeros(outFeatures))
	}

	return &Linear{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
	}
}

// NewLinearWithWeight creates a Linear layer around an existing weight.
//
// The weight parameter is shared, not copied: this is how an output
// projection reuses an embedding table. bias may be nil.
func NewLinearWithWeight(weight, bias *Parameter) *Linear {
	shape := weight.Tensor().Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Linear: weight must be 2D, got shape %v", shape))
	}
	if bias != nil && !bias.Tensor().Shape().Equal(tensor.Shape{shape[0]}) {
		panic(fmt.Sprintf("Linear: bias shape %v does not match %d output features", bias.Tensor().Shape(), shape[0]))
	}
	return &Linear{
		inFeatures:  shape[1],
		outFeatures: shape[0],
		weight:      weight,
		bias:        bias,
	}
}

// Forward computes the output of the linear layer.
//
// Input shape: [..., in_features]
// Output shape: [..., out_features]
func (l *Linear) Forward(input *tensor.Tensor) *tensor.Tensor {
	inputShape := input.Shape()
	if len(inputShape) == 0 || inputShape.Last() != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected input with %d features, got shape %v", l.inFeatures, inputShape))
	}

	// Flatten leading dimensions: [N, in_features] @ [out_features, in_features]^T
	flat := input.Reshape(-1, l.inFeatures)
	output := flat.MatMulTransposed(l.weight.Tensor())

	if l.bias != nil {
		output = output.Add(l.bias.Tensor())
	}

	outShape := inputShape.Clone()
	outShape[len(outShape)-1] = l.outFeatures
	return output.Reshape(outShape...)
}

// Parameters returns the trainable parameters of this layer.
//
// Returns [weight, bias] if bias is present, otherwise [weight].
func (l *Linear) Parameters() []*Parameter {
	if l.bias != nil {
		return []*Parameter{l.weight, l.bias}
	}
	return []*Parameter{l.weight}
}

// Weight returns the weight parameter.
func (l *Linear) Weight() *Parameter {
	return l.weight
}

// Bias returns the bias parameter, or nil if the layer has none.
func (l *Linear) Bias() *Parameter {
	return l.bias
}

// InFeatures returns the number of input features.
func (l *Linear) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the number of output features.
func (l *Linear) OutFeatures() int {
	return l.outFeatures
}
