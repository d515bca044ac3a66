package seq2seq

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/metrics"
	"github.com/born-ml/lingua/internal/tensor"
)

// forceToken makes the output projection pick id at every step.
func forceToken(m *Transformer, id int) {
	w := m.OutputProjection().Weight().Tensor()
	w.CopyFrom(tensor.Zeros(w.Shape()...))
	b := m.OutputProjection().Bias().Tensor()
	b.CopyFrom(tensor.Zeros(b.Shape()...))
	b.Set(10, id)
}

// Greedy decoding stays within maxLen and pads after the end token.
func TestTranslateBounded(t *testing.T) {
	m := newSmall(t, TieNone)
	src, valid := batchOf([]int32{5, 6, 7}, []int32{8, 9, 10, 11, 12})

	gen, err := m.Translate(src, valid, 10)
	require.NoError(t, err)
	require.Equal(t, 2, gen.Tokens.Shape()[0])
	assert.LessOrEqual(t, gen.Tokens.Shape()[1], 10)
	assert.Equal(t, gen.Steps, gen.Tokens.Shape()[1])

	for _, row := range gen.Tokens.Rows() {
		ended := false
		for _, id := range row {
			if ended {
				assert.Equal(t, m.Config().PadID, id)
			}
			if id == m.Config().EndID {
				ended = true
			}
		}
	}
}

func TestTranslateEarlyStop(t *testing.T) {
	m := newSmall(t, TieNone)
	forceToken(m, int(m.Config().EndID))
	src, valid := batchOf([]int32{5, 6, 7}, []int32{8, 9})

	gen, err := m.Translate(src, valid, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, gen.Steps)
	assert.True(t, gen.EarlyStopped)
	assert.Equal(t, [][]int32{{1}, {1}}, gen.Tokens.Rows())
}

func TestTranslateNoEndToken(t *testing.T) {
	m := newSmall(t, TieNone)
	forceToken(m, 7)
	src, valid := batchOf([]int32{5, 6, 7})

	gen, err := m.Translate(src, valid, 6)
	require.NoError(t, err)
	assert.Equal(t, 6, gen.Steps)
	assert.False(t, gen.EarlyStopped)
	assert.Equal(t, [][]int32{{7, 7, 7, 7, 7, 7}}, gen.Tokens.Rows())
}

func TestTranslateEdgeLengths(t *testing.T) {
	m := newSmall(t, TieNone)
	src, valid := batchOf([]int32{5, 6, 7})

	gen, err := m.Translate(src, valid, 0)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{1, 0}, gen.Tokens.Shape())
	assert.Zero(t, gen.Steps)

	_, err = m.Translate(src, valid, 65)
	assert.ErrorIs(t, err, ErrShapeMismatch)
	_, err = m.Translate(src, valid, -1)
	assert.ErrorIs(t, err, ErrShapeMismatch)

	empty := tensor.FullInt(0, 0, 3)
	gen, err = m.Translate(empty, empty.Clone(), 5)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0, 0}, gen.Tokens.Shape())
}

func TestTranslateCapture(t *testing.T) {
	cfg := smallConfig(TieAll)
	cfg.CaptureAttention = true
	m, err := New(cfg)
	require.NoError(t, err)
	src, valid := batchOf([]int32{5, 6, 7, 8})

	gen, err := m.Translate(src, valid, 4, WithCapture())
	require.NoError(t, err)
	require.NotNil(t, gen.Attention)
	cross := gen.Attention.DecoderCross[0]
	assert.Equal(t, 2, cross.Shape()[1])
	assert.Equal(t, gen.Steps, cross.Shape()[2])
	assert.Equal(t, 4, cross.Shape()[3])

	plain, err := m.Translate(src, valid, 4)
	require.NoError(t, err)
	assert.Nil(t, plain.Attention)
	assert.Equal(t, plain.Tokens.Rows(), gen.Tokens.Rows())
}

func TestTranslateMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := newSmall(t, TieNone, WithMetrics(mt))
	forceToken(m, int(m.Config().EndID))
	src, valid := batchOf([]int32{5, 6, 7}, []int32{8})

	_, err := m.Translate(src, valid, 5)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.DecodeSteps))
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.EarlyStops))
	assert.Equal(t, 2.0, testutil.ToFloat64(mt.GeneratedTokens))
}

func TestPadAfterEnd(t *testing.T) {
	tests := []struct {
		name string
		in   []int32
		want []int32
		kept int
	}{
		{"no end", []int32{4, 5, 6}, []int32{4, 5, 6}, 3},
		{"end first", []int32{1, 5, 1}, []int32{1, 0, 0}, 1},
		{"end middle", []int32{4, 1, 6}, []int32{4, 1, 0}, 2},
		{"end last", []int32{4, 5, 1}, []int32{4, 5, 1}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := tensor.MustFromInts(append([]int32(nil), tt.in...), 1, len(tt.in))
			kept := padAfterEnd(tokens, 1, 0)
			assert.Equal(t, tt.want, tokens.Data())
			assert.Equal(t, tt.kept, kept)
		})
	}
}
