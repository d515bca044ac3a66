package nn

import (
	"github.com/born-ml/lingua/internal/tensor"
)

// FFN implements the position-wise feed-forward block.
//
// Architecture:
//
//	FFN(x) = Dropout(Linear2(Dropout(ReLU(Linear1(x)))))
//
// Where:
//   - Linear1: [dim → hidden] (expansion)
//   - Linear2: [hidden → dim] (projection back)
//
// Example:
//
//	ffn := nn.NewFFN(env, "encoder.blocks.0.ffn", 512, 2048, 0.1)
//	output := ffn.Forward(x) // [batch, seq, 512] -> [batch, seq, 512]
type FFN struct {
	Linear1 *Linear
	Linear2 *Linear
	seq     *Sequential
}

// NewFFN creates a new feed-forward block.
//
// Parameters:
//   - env: Source of randomness and train/eval switch
//   - name: Parameter name prefix
//   - dim: Input/output dimension
//   - hidden: Hidden dimension
//   - dropoutRate: Dropout probability after the activation and after the output
func NewFFN(env *Env, name string, dim, hidden int, dropoutRate float32) *FFN {
	l1 := NewLinear(env, name+".linear1", dim, hidden, true)
	l2 := NewLinear(env, name+".linear2", hidden, dim, true)
	return &FFN{
		Linear1: l1,
		Linear2: l2,
		seq: NewSequential(
			l1,
			NewReLU(),
			NewDropout(env, dropoutRate),
			l2,
			NewDropout(env, dropoutRate),
		),
	}
}

// Forward computes the FFN output.
//
// Input shape: [..., dim]
// Output shape: [..., dim]
func (f *FFN) Forward(x *tensor.Tensor) *tensor.Tensor {
	return f.seq.Forward(x)
}

// Parameters returns the parameters of both linear layers.
func (f *FFN) Parameters() []*Parameter {
	return f.seq.Parameters()
}
