// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides the neural network building blocks of the lingua
// Transformer.
//
// Layers:
//   - Embedding, Linear, LayerNorm, FFN, Dropout
//   - SinusoidalPositionalEncoding
//   - MultiHeadAttention with optional attention capture
//   - EncoderBlock, DecoderBlock and their Encoder/Decoder stacks (pre-norm)
//
// Every layer draws its random state from an Env, so a model built twice from
// the same seed has identical parameters.
//
// Example:
//
//	env := nn.NewEnv(42)
//	mha := nn.NewMultiHeadAttention(env, "attn", 512, 8, 0.1)
//	mask := nn.TargetMask(nn.PaddingMask(valid))
package nn

import (
	"github.com/born-ml/lingua/internal/nn"
	"github.com/born-ml/lingua/tensor"
)

// Module is implemented by every layer with parameters.
type Module = nn.Module

// Env holds the random source and train/eval mode shared by one model's layers.
type Env = nn.Env

// NewEnv creates an Env seeded with seed, in evaluation mode.
func NewEnv(seed int64) *Env {
	return nn.NewEnv(seed)
}

// Parameter is a named, trainable tensor. Tied layers share one *Parameter.
type Parameter = nn.Parameter

// NewParameter wraps t as a named parameter.
func NewParameter(name string, t *tensor.Tensor) *Parameter {
	return nn.NewParameter(name, t)
}

// UniqueParameters concatenates parameter lists, dropping repeated pointers.
func UniqueParameters(lists ...[]*Parameter) []*Parameter {
	return nn.UniqueParameters(lists...)
}

// Layers

// Linear is a fully connected layer: y = x @ W^T + b.
type Linear = nn.Linear

// NewLinear creates a linear layer with Xavier-initialized weight [out, in].
func NewLinear(env *Env, name string, inFeatures, outFeatures int, withBias bool) *Linear {
	return nn.NewLinear(env, name, inFeatures, outFeatures, withBias)
}

// NewLinearWithWeight creates a linear layer over existing parameters.
// bias may be nil.
func NewLinearWithWeight(weight, bias *Parameter) *Linear {
	return nn.NewLinearWithWeight(weight, bias)
}

// Embedding maps token ids to rows of a [vocab, dim] table.
type Embedding = nn.Embedding

// NewEmbedding creates an embedding table. The paddingIdx row is zero.
func NewEmbedding(env *Env, name string, numEmbeddings, embeddingDim int, paddingIdx int32) *Embedding {
	return nn.NewEmbedding(env, name, numEmbeddings, embeddingDim, paddingIdx)
}

// NewEmbeddingWithWeight creates an embedding over an existing table.
func NewEmbeddingWithWeight(weight *Parameter, paddingIdx int32) *Embedding {
	return nn.NewEmbeddingWithWeight(weight, paddingIdx)
}

// SinusoidalPositionalEncoding adds fixed sine/cosine position signals.
type SinusoidalPositionalEncoding = nn.SinusoidalPositionalEncoding

// NewSinusoidalPositionalEncoding precomputes maxLen positions of width dim.
func NewSinusoidalPositionalEncoding(env *Env, maxLen, dim int, dropoutRate float32) *SinusoidalPositionalEncoding {
	return nn.NewSinusoidalPositionalEncoding(env, maxLen, dim, dropoutRate)
}

// LayerNorm normalizes the last dimension.
type LayerNorm = nn.LayerNorm

// DefaultLayerNormEps is the LayerNorm epsilon used when none is configured.
const DefaultLayerNormEps = nn.DefaultLayerNormEps

// NewLayerNorm creates a LayerNorm with unit gain and zero bias.
func NewLayerNorm(name string, normalizedShape int, epsilon float32) *LayerNorm {
	return nn.NewLayerNorm(name, normalizedShape, epsilon)
}

// FFN is the position-wise feed-forward block: Linear, ReLU and Linear with dropout.
type FFN = nn.FFN

// NewFFN creates a feed-forward block.
func NewFFN(env *Env, name string, dim, hidden int, dropoutRate float32) *FFN {
	return nn.NewFFN(env, name, dim, hidden, dropoutRate)
}

// Dropout zeroes elements with probability rate in training mode.
type Dropout = nn.Dropout

// NewDropout creates a dropout layer.
func NewDropout(env *Env, rate float32) *Dropout {
	return nn.NewDropout(env, rate)
}

// Attention

// MultiHeadAttention is multi-head scaled dot-product attention.
type MultiHeadAttention = nn.MultiHeadAttention

// NewMultiHeadAttention creates attention with numHeads heads of width embedDim/numHeads.
func NewMultiHeadAttention(env *Env, name string, embedDim, numHeads int, dropoutRate float32) *MultiHeadAttention {
	return nn.NewMultiHeadAttention(env, name, embedDim, numHeads, dropoutRate)
}

// Masks

// PaddingMask turns a [batch, len] validity indicator into a [batch, 1, 1, len] key mask.
func PaddingMask(valid *tensor.IntTensor) *tensor.BoolTensor {
	return nn.PaddingMask(valid)
}

// PaddingMaskFromIDs builds the key mask from ids, treating padID as padding.
func PaddingMaskFromIDs(ids *tensor.IntTensor, padID int32) *tensor.BoolTensor {
	return nn.PaddingMaskFromIDs(ids, padID)
}

// CausalMask returns the [1, 1, size, size] lower-triangular mask.
func CausalMask(size int) *tensor.BoolTensor {
	return nn.CausalMask(size)
}

// TargetMask combines a padding mask with the causal mask.
func TargetMask(padding *tensor.BoolTensor) *tensor.BoolTensor {
	return nn.TargetMask(padding)
}

// Transformer blocks

// BlockConfig sizes an encoder or decoder block.
type BlockConfig = nn.BlockConfig

// EncoderBlock is a pre-norm self-attention + feed-forward block.
type EncoderBlock = nn.EncoderBlock

// DecoderBlock is a pre-norm masked self-attention + cross-attention + feed-forward block.
type DecoderBlock = nn.DecoderBlock

// Encoder applies encoder blocks in order.
type Encoder = nn.Encoder

// Decoder applies decoder blocks in order.
type Decoder = nn.Decoder

// NewEncoder creates a stack of numBlocks encoder blocks.
func NewEncoder(env *Env, name string, numBlocks int, cfg BlockConfig) *Encoder {
	return nn.NewEncoder(env, name, numBlocks, cfg)
}

// NewDecoder creates a stack of numBlocks decoder blocks.
func NewDecoder(env *Env, name string, numBlocks int, cfg BlockConfig) *Decoder {
	return nn.NewDecoder(env, name, numBlocks, cfg)
}
