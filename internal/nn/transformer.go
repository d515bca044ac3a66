package nn

import (
	"fmt"
	"strconv"

	"github.com/born-ml/lingua/internal/tensor"
)

// BlockConfig defines the shape of encoder and decoder blocks.
type BlockConfig struct {
	Dim       int     // d_model: model dimension
	NumHeads  int     // Number of attention heads
	FFNHidden int     // FFN hidden dimension
	Dropout   float32 // Dropout rate (0 = no dropout)
	NormEps   float32 // LayerNorm epsilon (0 = DefaultLayerNormEps)
}

func (c BlockConfig) eps() float32 {
	if c.NormEps == 0 {
		return DefaultLayerNormEps
	}
	return c.NormEps
}

// EncoderBlock implements a pre-norm Transformer encoder block.
//
// Architecture:
//
//	x = x + SelfAttn(LN1(x), srcMask)
//	x = x + FFN(LN2(x))
type EncoderBlock struct {
	Norm1    *LayerNorm
	SelfAttn *MultiHeadAttention
	Norm2    *LayerNorm
	FFN      *FFN
}

// NewEncoderBlock creates a new encoder block.
func NewEncoderBlock(env *Env, name string, cfg BlockConfig) *EncoderBlock {
	return &EncoderBlock{
		Norm1:    NewLayerNorm(name+".norm1", cfg.Dim, cfg.eps()),
		SelfAttn: NewMultiHeadAttention(env, name+".self_attn", cfg.Dim, cfg.NumHeads, cfg.Dropout),
		Norm2:    NewLayerNorm(name+".norm2", cfg.Dim, cfg.eps()),
		FFN:      NewFFN(env, name+".ffn", cfg.Dim, cfg.FFNHidden, cfg.Dropout),
	}
}

// Forward applies the block.
//
// Shapes:
//   - x: [batch, src_len, dim]
//   - srcMask: [batch, 1, 1, src_len]
//
// Returns the output [batch, src_len, dim] and the self-attention weights
// [batch, heads, src_len, src_len].
func (b *EncoderBlock) Forward(x *tensor.Tensor, srcMask *tensor.BoolTensor) (*tensor.Tensor, *tensor.Tensor) {
	normed := b.Norm1.Forward(x)
	attn, weights := b.SelfAttn.ForwardWithWeights(normed, normed, srcMask)
	x = x.Add(attn)
	x = x.Add(b.FFN.Forward(b.Norm2.Forward(x)))
	return x, weights
}

// Parameters returns all trainable parameters.
func (b *EncoderBlock) Parameters() []*Parameter {
	var params []*Parameter
	params = append(params, b.Norm1.Parameters()...)
	params = append(params, b.SelfAttn.Parameters()...)
	params = append(params, b.Norm2.Parameters()...)
	params = append(params, b.FFN.Parameters()...)
	return params
}

// DecoderBlock implements a pre-norm Transformer decoder block.
//
// Architecture:
//
//	x = x + SelfAttn(LN1(x), tgtMask)
//	x = x + CrossAttn(q=LN2(x), kv=encOut, srcMask)
//	x = x + FFN(LN3(x))
type DecoderBlock struct {
	Norm1     *LayerNorm
	SelfAttn  *MultiHeadAttention
	Norm2     *LayerNorm
	CrossAttn *MultiHeadAttention
	Norm3     *LayerNorm
	FFN       *FFN
}

// NewDecoderBlock creates a new decoder block.
func NewDecoderBlock(env *Env, name string, cfg BlockConfig) *DecoderBlock {
	return &DecoderBlock{
		Norm1:     NewLayerNorm(name+".norm1", cfg.Dim, cfg.eps()),
		SelfAttn:  NewMultiHeadAttention(env, name+".self_attn", cfg.Dim, cfg.NumHeads, cfg.Dropout),
		Norm2:     NewLayerNorm(name+".norm2", cfg.Dim, cfg.eps()),
		CrossAttn: NewMultiHeadAttention(env, name+".cross_attn", cfg.Dim, cfg.NumHeads, cfg.Dropout),
		Norm3:     NewLayerNorm(name+".norm3", cfg.Dim, cfg.eps()),
		FFN:       NewFFN(env, name+".ffn", cfg.Dim, cfg.FFNHidden, cfg.Dropout),
	}
}

// Forward applies the block.
//
// Shapes:
//   - x: [batch, tgt_len, dim]
//   - encOut: [batch, src_len, dim]
//   - srcMask: [batch, 1, 1, src_len]
//   - tgtMask: [batch, 1, tgt_len, tgt_len]
//
// Returns the output [batch, tgt_len, dim], the self-attention weights and
// the cross-attention weights.
func (b *DecoderBlock) Forward(
	x, encOut *tensor.Tensor,
	srcMask, tgtMask *tensor.BoolTensor,
) (out, selfWeights, crossWeights *tensor.Tensor) {
	normed := b.Norm1.Forward(x)
	attn, selfWeights := b.SelfAttn.ForwardWithWeights(normed, normed, tgtMask)
	x = x.Add(attn)

	cross, crossWeights := b.CrossAttn.ForwardWithWeights(b.Norm2.Forward(x), encOut, srcMask)
	x = x.Add(cross)

	x = x.Add(b.FFN.Forward(b.Norm3.Forward(x)))
	return x, selfWeights, crossWeights
}

// Parameters returns all trainable parameters.
func (b *DecoderBlock) Parameters() []*Parameter {
	var params []*Parameter
	params = append(params, b.Norm1.Parameters()...)
	params = append(params, b.SelfAttn.Parameters()...)
	params = append(params, b.Norm2.Parameters()...)
	params = append(params, b.CrossAttn.Parameters()...)
	params = append(params, b.Norm3.Parameters()...)
	params = append(params, b.FFN.Parameters()...)
	return params
}

// Encoder is a stack of encoder blocks applied in order.
type Encoder struct {
	Blocks []*EncoderBlock
}

// NewEncoder creates numBlocks encoder blocks named "<name>.blocks.<i>".
func NewEncoder(env *Env, name string, numBlocks int, cfg BlockConfig) *Encoder {
	if numBlocks < 0 {
		panic(fmt.Sprintf("Encoder: block count must be >= 0, got %d", numBlocks))
	}
	blocks := make([]*EncoderBlock, numBlocks)
	for i := range blocks {
		blocks[i] = NewEncoderBlock(env, name+".blocks."+strconv.Itoa(i), cfg)
	}
	return &Encoder{Blocks: blocks}
}

// Forward applies every block in order.
//
// Returns the encoder output and, when capture is set, the self-attention
// weights of each block.
func (e *Encoder) Forward(x *tensor.Tensor, srcMask *tensor.BoolTensor, capture bool) (*tensor.Tensor, []*tensor.Tensor) {
	var maps []*tensor.Tensor
	for _, block := range e.Blocks {
		var w *tensor.Tensor
		x, w = block.Forward(x, srcMask)
		if capture {
			maps = append(maps, w)
		}
	}
	return x, maps
}

// Parameters returns all trainable parameters.
func (e *Encoder) Parameters() []*Parameter {
	var params []*Parameter
	for _, block := range e.Blocks {
		params = append(params, block.Parameters()...)
	}
	return params
}

// Decoder is a stack of decoder blocks applied in order.
// Every block attends to the same encoder output.
type Decoder struct {
	Blocks []*DecoderBlock
}

// NewDecoder creates numBlocks decoder blocks named "<name>.blocks.<i>".
func NewDecoder(env *Env, name string, numBlocks int, cfg BlockConfig) *Decoder {
	if numBlocks < 0 {
		panic(fmt.Sprintf("Decoder: block count must be >= 0, got %d", numBlocks))
	}
	blocks := make([]*DecoderBlock, numBlocks)
	for i := range blocks {
		blocks[i] = NewDecoderBlock(env, name+".blocks."+strconv.Itoa(i), cfg)
	}
	return &Decoder{Blocks: blocks}
}

// Forward applies every block in order.
//
// Returns the decoder output and, when capture is set, the per-block
// self-attention and cross-attention weights.
func (d *Decoder) Forward(
	x, encOut *tensor.Tensor,
	srcMask, tgtMask *tensor.BoolTensor,
	capture bool,
) (out *tensor.Tensor, selfMaps, crossMaps []*tensor.Tensor) {
	for _, block := range d.Blocks {
		var sw, cw *tensor.Tensor
		x, sw, cw = block.Forward(x, encOut, srcMask, tgtMask)
		if capture {
			selfMaps = append(selfMaps, sw)
			crossMaps = append(crossMaps, cw)
		}
	}
	return x, selfMaps, crossMaps
}

// Parameters returns all trainable parameters.
func (d *Decoder) Parameters() []*Parameter {
	var params []*Parameter
	for _, block := range d.Blocks {
		params = append(params, block.Parameters()...)
	}
	return params
}
