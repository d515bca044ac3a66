package nn

import (
	"math"
	"math/rand"

	"github.com/born-ml/lingua/internal/tensor"
)

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// Parameters:
//   - env: Source of randomness
//   - fanIn: Number of input units
//   - fanOut: Number of output units
//   - shape: Shape of the weight tensor
func Xavier(env *Env, fanIn, fanOut int, shape ...int) *tensor.Tensor {
	bound := float32(math.Sqrt(6.0 / float64(fanIn+fanOut)))

	var t *tensor.Tensor
	env.withRand(func(rng *rand.Rand) {
		t = tensor.Uniform(rng, -bound, bound, shape...)
	})
	return t
}

// Normal initializes a tensor from N(0, std^2).
func Normal(env *Env, std float32, shape ...int) *tensor.Tensor {
	var t *tensor.Tensor
	env.withRand(func(rng *rand.Rand) {
		t = tensor.Randn(rng, std, shape...)
	})
	return t
}
