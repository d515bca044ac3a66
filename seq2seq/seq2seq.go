// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package seq2seq provides the encoder-decoder Transformer for translation.
//
// The model embeds source and target tokens, adds sinusoidal positions, runs
// pre-norm encoder and decoder stacks and projects the decoder output onto
// the target vocabulary. Embeddings and the output projection can share
// weights according to a TyingMode.
//
// Example usage:
//
//	cfg := seq2seq.DefaultConfig(32000)
//	cfg.Tying = seq2seq.TieAll
//	model, err := seq2seq.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Scoring with teacher forcing
//	out, err := model.Forward(seq2seq.ForwardInput{
//	    Source: src, SourceValid: srcValid,
//	    Target: tgt, TargetValid: tgtValid,
//	})
//
//	// Greedy decoding
//	gen, err := model.Translate(src, srcValid, 64)
package seq2seq

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/born-ml/lingua/internal/metrics"
	"github.com/born-ml/lingua/internal/seq2seq"
)

// Transformer is an encoder-decoder Transformer.
type Transformer = seq2seq.Transformer

// Config defines a Transformer.
type Config = seq2seq.Config

// TyingMode selects which embedding tables and output projection weight are shared.
type TyingMode = seq2seq.TyingMode

// Weight tying modes.
const (
	TieNone         = seq2seq.TieNone
	TieAll          = seq2seq.TieAll
	TieSourceTarget = seq2seq.TieSourceTarget
	TieTargetOutput = seq2seq.TieTargetOutput
	TieSourceOutput = seq2seq.TieSourceOutput
)

// Errors.
var (
	ErrUnknownTyingMode   = seq2seq.ErrUnknownTyingMode
	ErrInvalidConfig      = seq2seq.ErrInvalidConfig
	ErrVocabMismatch      = seq2seq.ErrVocabMismatch
	ErrShapeMismatch      = seq2seq.ErrShapeMismatch
	ErrTokenOutOfRange    = seq2seq.ErrTokenOutOfRange
	ErrSnapshotShape      = seq2seq.ErrSnapshotShape
	ErrSnapshotMissing    = seq2seq.ErrSnapshotMissing
	ErrSnapshotUnexpected = seq2seq.ErrSnapshotUnexpected
)

// ForwardInput is one teacher-forced batch.
type ForwardInput = seq2seq.ForwardInput

// ForwardOutput holds logits and, when captured, attention maps.
type ForwardOutput = seq2seq.ForwardOutput

// Generation is the result of greedy decoding.
type Generation = seq2seq.Generation

// AttentionMaps holds post-softmax attention probabilities per block.
type AttentionMaps = seq2seq.AttentionMaps

// Option configures a Transformer at construction.
type Option = seq2seq.Option

// CallOption configures a single Forward or Translate call.
type CallOption = seq2seq.CallOption

// DefaultConfig returns the base configuration for a shared vocabulary of vocabSize.
func DefaultConfig(vocabSize int) Config {
	return seq2seq.DefaultConfig(vocabSize)
}

// ParseTyingMode resolves a mode name, including the legacy upper-case names.
func ParseTyingMode(s string) (TyingMode, error) {
	return seq2seq.ParseTyingMode(s)
}

// New builds a Transformer. An unknown tying mode fails before any
// parameter is allocated.
func New(cfg Config, opts ...Option) (*Transformer, error) {
	return seq2seq.New(cfg, opts...)
}

// WithLogger sets the model logger.
func WithLogger(l zerolog.Logger) Option {
	return seq2seq.WithLogger(l)
}

// Metrics groups the Prometheus collectors of a model and its translator.
type Metrics = metrics.Metrics

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return seq2seq.WithMetrics(m)
}

// WithCapture asks a call for attention maps. They are returned only when
// Config.CaptureAttention is set.
func WithCapture() CallOption {
	return seq2seq.WithCapture()
}
