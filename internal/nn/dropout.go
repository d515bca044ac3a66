package nn

import (
	"fmt"
	"math/rand"

	"github.com/born-ml/lingua/internal/tensor"
)

// Dropout zeroes elements with probability Rate during training and scales
// the survivors by 1/(1-Rate). In evaluation mode it is the identity.
type Dropout struct {
	Rate float32
	env  *Env
}

// NewDropout creates a Dropout layer bound to env's training switch.
func NewDropout(env *Env, rate float32) *Dropout {
	if rate < 0 || rate > 1 {
		panic(fmt.Sprintf("Dropout: rate must be in [0, 1], got %v", rate))
	}
	return &Dropout{Rate: rate, env: env}
}

// Forward applies dropout.
func (d *Dropout) Forward(x *tensor.Tensor) *tensor.Tensor {
	if d.Rate == 0 || !d.env.Training() {
		return x
	}
	if d.Rate == 1 {
		return tensor.Zeros(x.Shape()...)
	}

	out := x.Clone()
	data := out.Data()
	scale := 1 / (1 - d.Rate)
	d.env.withRand(func(rng *rand.Rand) {
		for i := range data {
			if rng.Float32() < d.Rate {
				data[i] = 0
			} else {
				data[i] *= scale
			}
		}
	})
	return out
}

// Parameters returns nil (dropout has no parameters).
func (d *Dropout) Parameters() []*Parameter {
	return nil
}
