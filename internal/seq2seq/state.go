package seq2seq

import (
	"fmt"
	"sort"

	"github.com/born-ml/lingua/internal/tensor"
)

// StateDict returns every unique parameter keyed by name.
//
// The tensors are the live parameter storage, not copies. A table shared by
// tying appears once, under the name of the layer that created it.
func (t *Transformer) StateDict() map[string]*tensor.Tensor {
	params := t.Parameters()
	state := make(map[string]*tensor.Tensor, len(params))
	for _, p := range params {
		state[p.Name()] = p.Tensor()
	}
	return state
}

// ParameterNames returns the StateDict keys in a stable order.
func (t *Transformer) ParameterNames() []string {
	params := t.Parameters()
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.Name()
	}
	return names
}

// LoadStateDict copies a snapshot into the model's parameters.
//
// The snapshot must hold exactly the model's parameters with matching shapes.
// Everything is checked before the first copy, so a rejected snapshot leaves
// the model unchanged. Tied tables are written once and every layer sharing
// them sees the new values.
func (t *Transformer) LoadStateDict(state map[string]*tensor.Tensor) error {
	params := t.Parameters()
	known := make(map[string]struct{}, len(params))
	for _, p := range params {
		known[p.Name()] = struct{}{}
		src, ok := state[p.Name()]
		if !ok {
			return fmt.Errorf("%w: %s", ErrSnapshotMissing, p.Name())
		}
		if !src.Shape().Equal(p.Tensor().Shape()) {
			return fmt.Errorf("%w: %s has %v, model expects %v",
				ErrSnapshotShape, p.Name(), src.Shape(), p.Tensor().Shape())
		}
	}

	var unexpected []string
	for name := range state {
		if _, ok := known[name]; !ok {
			unexpected = append(unexpected, name)
		}
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return fmt.Errorf("%w: %v", ErrSnapshotUnexpected, unexpected)
	}

	for _, p := range params {
		p.Tensor().CopyFrom(state[p.Name()])
	}
	t.log.Debug().Int("tensors", len(params)).Msg("loaded state dict")
	return nil
}
