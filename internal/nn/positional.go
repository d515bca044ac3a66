package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/lingua/internal/tensor"
)

// SinusoidalPositionalEncoding implements fixed sinusoidal positional encodings.
//
// Mathematical formulation:
//
//	PE(pos, 2i)   = sin(pos / 10000^(2i/d))
//	PE(pos, 2i+1) = cos(pos / 10000^(2i/d))
//
// Where:
//   - pos is the position (0 to max_len-1)
//   - i is the column pair index (0 to d/2-1)
//   - d is the model dimension
//
// The table is computed once and never changes. Forward adds the first
// seq_len rows to every sequence in the batch, then applies dropout.
//
// Example:
//
//	pe := nn.NewSinusoidalPositionalEncoding(env, 512, 256, 0.1)
//	x = pe.Forward(x) // [batch, seq, 256]
type SinusoidalPositionalEncoding struct {
	Encoding *tensor.Tensor // [max_len, dim] - pre-computed encodings
	MaxLen   int            // Maximum sequence length
	Dim      int            // Embedding dimension
	dropout  *Dropout
}

// NewSinusoidalPositionalEncoding creates a new SinusoidalPositionalEncoding layer.
//
// Parameters:
//   - env: Controls the dropout applied after the addition
//   - maxLen: Maximum sequence length to pre-compute
//   - dim: Embedding dimension (same as model dimension); odd values are allowed
//   - dropoutRate: Dropout probability applied to the sum
func NewSinusoidalPositionalEncoding(env *Env, maxLen, dim int, dropoutRate float32) *SinusoidalPositionalEncoding {
	if maxLen <= 0 {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding: maxLen must be positive, got %d", maxLen))
	}
	if dim <= 0 {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding: dim must be positive, got %d", dim))
	}

	encoding := tensor.Zeros(maxLen, dim)
	data := encoding.Data()
	for pos := 0; pos < maxLen; pos++ {
		for i := 0; i < dim; i++ {
			angle := float64(pos) / math.Pow(10000.0, float64(2*(i/2))/float64(dim))
			if i%2 == 0 {
				data[pos*dim+i] = float32(math.Sin(angle))
			} else {
				data[pos*dim+i] = float32(math.Cos(angle))
			}
		}
	}

	return &SinusoidalPositionalEncoding{
		Encoding: encoding,
		MaxLen:   maxLen,
		Dim:      dim,
		dropout:  NewDropout(env, dropoutRate),
	}
}

// Forward adds positional encodings to x.
//
// Input shape: [batch, seq_len, dim]
// Output shape: [batch, seq_len, dim]
//
// Panics if seq_len > MaxLen or the last dimension differs from Dim.
func (p *SinusoidalPositionalEncoding) Forward(x *tensor.Tensor) *tensor.Tensor {
	shape := x.Shape()
	if len(shape) != 3 || shape[2] != p.Dim {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding.Forward: expected [batch, seq, %d], got %v", p.Dim, shape))
	}
	seqLen := shape[1]
	if seqLen > p.MaxLen {
		panic(fmt.Sprintf("SinusoidalPositionalEncoding.Forward: seq_len %d exceeds max_len %d", seqLen, p.MaxLen))
	}

	return p.dropout.Forward(x.Add(p.Encoding.SliceDim(0, 0, seqLen)))
}

// Parameters returns nil: the table is fixed.
func (p *SinusoidalPositionalEncoding) Parameters() []*Parameter {
	return nil
}
