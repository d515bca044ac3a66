package seq2seq

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/tensor"
)

func TestStateDictRoundTrip(t *testing.T) {
	src := newSmall(t, TieTargetOutput)
	cfg := smallConfig(TieTargetOutput)
	cfg.Seed = 7
	dst, err := New(cfg)
	require.NoError(t, err)

	state := src.StateDict()
	assert.Len(t, state, len(src.Parameters()))
	assert.Contains(t, state, "target_embedding.weight")
	assert.NotContains(t, state, "output_projection.weight")

	require.NoError(t, dst.LoadStateDict(state))
	for name, want := range state {
		assert.Equal(t, want.Data(), dst.StateDict()[name].Data(), name)
	}
	// Tied output sees the loaded table.
	assert.Equal(t, state["target_embedding.weight"].Data(), dst.OutputProjection().Weight().Tensor().Data())
}

func TestLoadStateDictRejectsWithoutPartialWrite(t *testing.T) {
	m := newSmall(t, TieNone)
	before := m.StateDict()["encoder.blocks.0.norm1.gamma"].Clone()

	tests := []struct {
		name   string
		mutate func(map[string]*tensor.Tensor)
		err    error
	}{
		{"missing", func(s map[string]*tensor.Tensor) {
			delete(s, "output_projection.bias")
		}, ErrSnapshotMissing},
		{"shape", func(s map[string]*tensor.Tensor) {
			s["output_projection.bias"] = tensor.Zeros(49)
		}, ErrSnapshotShape},
		{"unexpected", func(s map[string]*tensor.Tensor) {
			s["decoder.final_norm.gamma"] = tensor.Zeros(16)
		}, ErrSnapshotUnexpected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := map[string]*tensor.Tensor{}
			for name, v := range m.StateDict() {
				state[name] = tensor.Full(3, v.Shape()...)
			}
			tt.mutate(state)
			assert.ErrorIs(t, m.LoadStateDict(state), tt.err)
			assert.Equal(t, before.Data(), m.StateDict()["encoder.blocks.0.norm1.gamma"].Data())
		})
	}
}

func TestParameterNamesStable(t *testing.T) {
	a := newSmall(t, TieSourceTarget)
	b := newSmall(t, TieSourceTarget)
	assert.Equal(t, a.ParameterNames(), b.ParameterNames())
	assert.Equal(t, "target_embedding.weight", a.ParameterNames()[0])
}
