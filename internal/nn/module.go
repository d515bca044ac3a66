// Package nn implements the neural network layers of the translation model.
//
// This package provides the building blocks of an encoder-decoder Transformer:
//   - Module interface: Base interface for tensor-to-tensor components
//   - Parameter: Named trainable tensors, shareable between layers
//   - Env: Train/eval switch and random source shared by a model's layers
//   - Linear, Embedding, LayerNorm, Dropout, ReLU, Sequential
//   - SinusoidalPositionalEncoding
//   - MultiHeadAttention, FFN, EncoderBlock, DecoderBlock, Encoder, Decoder
//   - Mask helpers for padding and causal attention
//
// Shape violations inside layers are programming errors and panic with a
// descriptive message.
package nn

import (
	"math/rand"
	"sync"
	"sync/atomic"

	"github.com/born-ml/lingua/internal/tensor"
)

// Module is the base interface for tensor-to-tensor components.
//
// Modules can be composed to build larger blocks:
//
//	ffn := nn.NewSequential(
//	    nn.NewLinear(env, "ffn.0", 512, 2048, true),
//	    nn.NewReLU(),
//	    nn.NewLinear(env, "ffn.1", 2048, 512, true),
//	)
type Module interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor) *tensor.Tensor

	// Parameters returns all trainable parameters of this module.
	//
	// Returns an empty slice for modules without trainable parameters
	// (e.g., activation functions).
	Parameters() []*Parameter
}

// Env carries the state shared by every layer of one model: the
// training/evaluation switch and the random source used for weight
// initialization and dropout.
//
// Env is safe for concurrent use. Random draws are serialized by a mutex.
type Env struct {
	training atomic.Bool
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewEnv creates an Env in evaluation mode seeded with seed.
func NewEnv(seed int64) *Env {
	//nolint:gosec // math/rand is appropriate for ML weight initialization
	return &Env{rng: rand.New(rand.NewSource(seed))}
}

// SetTraining switches dropout on (true) or off (false).
func (e *Env) SetTraining(training bool) {
	e.training.Store(training)
}

// Training reports whether the model is in training mode.
func (e *Env) Training() bool {
	return e.training.Load()
}

// withRand runs f with exclusive access to the random source.
func (e *Env) withRand(f func(rng *rand.Rand)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f(e.rng)
}
