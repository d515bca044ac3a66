package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/tensor"
)

func TestLinear_Forward(t *testing.T) {
	env := NewEnv(1)
	layer := NewLinear(env, "fc", 3, 2, true)

	copy(layer.Weight().Tensor().Data(), []float32{1, 0, 0, 0, 1, 1})
	copy(layer.Bias().Tensor().Data(), []float32{0.5, -1})

	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, 1, 2, 3)
	y := layer.Forward(x)

	require.Equal(t, tensor.Shape{1, 2, 2}, y.Shape())
	assert.Equal(t, []float32{1.5, 4, 4.5, 10}, y.Data())
	assert.Len(t, layer.Parameters(), 2)
	assert.Equal(t, "fc.weight", layer.Weight().Name())
	assert.Equal(t, "fc.bias", layer.Bias().Name())

	assert.Panics(t, func() { layer.Forward(tensor.Zeros(2, 4)) })
}

func TestLinear_NoBias(t *testing.T) {
	layer := NewLinear(NewEnv(1), "fc", 4, 3, false)
	assert.Nil(t, layer.Bias())
	assert.Len(t, layer.Parameters(), 1)
	assert.Equal(t, tensor.Shape{3, 4}, layer.Weight().Tensor().Shape())
}

func TestLinear_SharedWeight(t *testing.T) {
	env := NewEnv(1)
	embed := NewEmbedding(env, "embed", 5, 4, 0)
	proj := NewLinearWithWeight(embed.Weight, nil)

	assert.Same(t, embed.Weight, proj.Weight())
	assert.Equal(t, 4, proj.InFeatures())
	assert.Equal(t, 5, proj.OutFeatures())

	proj.Weight().Tensor().Data()[4] = 7
	assert.Equal(t, float32(7), embed.Weight.Tensor().At(1, 0))
}

func TestEmbedding_Forward(t *testing.T) {
	env := NewEnv(3)
	embed := NewEmbedding(env, "embed", 6, 4, 0)

	// Padding row starts at zero.
	for j := 0; j < 4; j++ {
		assert.Equal(t, float32(0), embed.Weight.Tensor().At(0, j))
	}

	ids := tensor.MustFromInts([]int32{2, 0, 5, 1}, 2, 2)
	out := embed.Forward(ids)
	require.Equal(t, tensor.Shape{2, 2, 4}, out.Shape())

	scale := float32(2) // sqrt(4)
	for j := 0; j < 4; j++ {
		assert.InDelta(t, embed.Weight.Tensor().At(2, j)*scale, out.At(0, 0, j), 1e-6)
		assert.Equal(t, float32(0), out.At(0, 1, j))
	}

	// The padding lookup stays zero even if the stored row changes.
	embed.Weight.Tensor().Set(3, 0, 1)
	out = embed.Forward(ids)
	assert.Equal(t, float32(0), out.At(0, 1, 1))

	assert.Panics(t, func() { embed.Forward(tensor.MustFromInts([]int32{6}, 1, 1)) })
}

func TestDropout_Modes(t *testing.T) {
	env := NewEnv(7)
	drop := NewDropout(env, 0.5)
	x := tensor.Full(1, 1000)

	assert.Same(t, x, drop.Forward(x), "eval mode is the identity")

	env.SetTraining(true)
	y := drop.Forward(x)
	zeros := 0
	for _, v := range y.Data() {
		if v == 0 {
			zeros++
		} else {
			assert.Equal(t, float32(2), v)
		}
	}
	assert.InDelta(t, 500, zeros, 100)

	assert.Panics(t, func() { NewDropout(env, 1.5) })
}

func TestLayerNorm_Forward(t *testing.T) {
	ln := NewLayerNorm("ln", 4, DefaultLayerNormEps)
	x := tensor.MustFromSlice([]float32{1, 2, 3, 4, 10, 10, 10, 10}, 2, 4)
	y := ln.Forward(x)

	row := y.Data()[:4]
	var mean, variance float64
	for _, v := range row {
		mean += float64(v)
	}
	mean /= 4
	for _, v := range row {
		variance += (float64(v) - mean) * (float64(v) - mean)
	}
	variance /= 4

	assert.InDelta(t, 0, mean, 1e-5)
	assert.InDelta(t, 1, variance, 1e-3)
	assert.InDeltaSlice(t, []float32{0, 0, 0, 0}, y.Data()[4:], 1e-6)

	ln.Beta.Tensor().Data()[0] = 5
	assert.InDelta(t, 5, ln.Forward(x).At(1, 0), 1e-6)
}

func TestSequential(t *testing.T) {
	env := NewEnv(1)
	seq := NewSequential(
		NewLinear(env, "l1", 4, 8, true),
		NewReLU(),
		NewLinear(env, "l2", 8, 2, true),
	)
	y := seq.Forward(tensor.Full(1, 3, 4))
	assert.Equal(t, tensor.Shape{3, 2}, y.Shape())
	assert.Len(t, seq.Parameters(), 4)
	assert.Equal(t, 3, seq.Len())
	assert.Panics(t, func() { seq.Module(3) })
}

func TestFFN(t *testing.T) {
	ffn := NewFFN(NewEnv(1), "ffn", 6, 12, 0.1)
	y := ffn.Forward(tensor.Full(0.5, 2, 3, 6))
	assert.Equal(t, tensor.Shape{2, 3, 6}, y.Shape())

	params := ffn.Parameters()
	require.Len(t, params, 4)
	assert.Equal(t, "ffn.linear1.weight", params[0].Name())
	assert.Equal(t, tensor.Shape{12, 6}, params[0].Tensor().Shape())
	assert.Equal(t, tensor.Shape{6, 12}, params[2].Tensor().Shape())
}

func TestUniqueParameters(t *testing.T) {
	a := NewParameter("a", tensor.Zeros(2))
	b := NewParameter("b", tensor.Zeros(3))

	got := UniqueParameters([]*Parameter{a, b}, []*Parameter{b, a})
	assert.Equal(t, []*Parameter{a, b}, got)
}

func TestPositionalEncoding_Table(t *testing.T) {
	pe := NewSinusoidalPositionalEncoding(NewEnv(1), 10, 6, 0)

	for pos := 0; pos < 10; pos++ {
		for i := 0; i < 3; i++ {
			angle := float64(pos) / math.Pow(10000, float64(2*i)/6)
			assert.InDelta(t, math.Sin(angle), pe.Encoding.At(pos, 2*i), 1e-6)
			assert.InDelta(t, math.Cos(angle), pe.Encoding.At(pos, 2*i+1), 1e-6)
		}
	}

	x := tensor.Zeros(2, 4, 6)
	y := pe.Forward(x)
	assert.Equal(t, pe.Encoding.SliceDim(0, 0, 4).Data(), y.Data()[:24])
	assert.Equal(t, pe.Encoding.SliceDim(0, 0, 4).Data(), y.Data()[24:])

	assert.Panics(t, func() { pe.Forward(tensor.Zeros(1, 11, 6)) })
	assert.Nil(t, pe.Parameters())
}

func TestPositionalEncoding_OddDim(t *testing.T) {
	pe := NewSinusoidalPositionalEncoding(NewEnv(1), 4, 5, 0)
	angle := 3 / math.Pow(10000, 4.0/5)
	assert.InDelta(t, math.Sin(angle), pe.Encoding.At(3, 4), 1e-6)
}
