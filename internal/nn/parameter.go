package nn

import (
	"github.com/born-ml/lingua/internal/tensor"
)

// Parameter represents a trainable tensor of the network.
//
// A Parameter is identified by pointer. Layers that share weights hold the
// same *Parameter, so an update through one layer is visible to the others.
//
// Example:
//
//	table := nn.NewEmbedding(env, "embed", 1000, 64, 0)
//	out := nn.NewLinearWithWeight(table.Weight, nil) // shares table.Weight
type Parameter struct {
	name   string         // Fully qualified name (e.g., "encoder.blocks.0.ffn.0.weight")
	tensor *tensor.Tensor // The parameter tensor
}

// NewParameter creates a new trainable parameter.
//
// Parameters:
//   - name: Fully qualified name used as the key in state dicts
//   - t: The initialized parameter tensor
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return &Parameter{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter) Name() string {
	return p.name
}

// Tensor returns the parameter tensor.
func (p *Parameter) Tensor() *tensor.Tensor {
	return p.tensor
}

// NumElements returns the number of scalar values held by the parameter.
func (p *Parameter) NumElements() int {
	return p.tensor.NumElements()
}

// UniqueParameters concatenates parameter lists, keeping the first
// occurrence of every shared parameter.
func UniqueParameters(lists ...[]*Parameter) []*Parameter {
	seen := make(map[*Parameter]struct{})
	var out []*Parameter
	for _, list := range lists {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
