// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package generate provides batched greedy translation in lingua.
//
// A Translator pairs a seq2seq model with a tokenizer. Translate calls may run
// concurrently; Reload swaps in a parameter snapshot between them.
//
// Example usage:
//
//	import (
//	    "github.com/born-ml/lingua/generate"
//	    "github.com/born-ml/lingua/seq2seq"
//	    "github.com/born-ml/lingua/tokenizer"
//	)
//
//	model, err := seq2seq.New(cfg)
//	tok, err := tokenizer.LoadVocabFile("vocab.txt", tokenizer.DefaultSpecialNames())
//	tr, err := generate.NewTranslator(model, tok, generate.WithMaxLength(64))
//
//	res, err := tr.Translate(ctx, []string{"guten morgen"})
//	fmt.Println(res.Texts[0])
package generate

import (
	"github.com/born-ml/lingua/internal/generate"
	"github.com/born-ml/lingua/seq2seq"
	"github.com/born-ml/lingua/tokenizer"
)

// Translator turns texts into translations with a shared model.
type Translator = generate.Translator

// Result is the outcome of Translator.Translate.
type Result = generate.Result

// Publisher receives the attention capture of each translated batch.
type Publisher = generate.Publisher

// Option configures a Translator.
type Option = generate.Option

// TranslateOption configures one Translate call.
type TranslateOption = generate.TranslateOption

// ErrTokenizerMismatch is returned when the tokenizer cannot feed the model.
var ErrTokenizerMismatch = generate.ErrTokenizerMismatch

// NewTranslator wraps a model and a tokenizer and switches the model to
// evaluation mode.
func NewTranslator(model *seq2seq.Transformer, tok tokenizer.Tokenizer, opts ...Option) (*Translator, error) {
	return generate.NewTranslator(model, tok, opts...)
}

// WithMaxLength sets the default number of generated tokens per input.
func WithMaxLength(n int) Option {
	return generate.WithMaxLength(n)
}

// WithBatchSize caps the number of texts decoded together.
func WithBatchSize(n int) Option {
	return generate.WithBatchSize(n)
}

// WithPublisher sends every attention capture to p.
func WithPublisher(p Publisher) Option {
	return generate.WithPublisher(p)
}

// MaxLength overrides the number of generated tokens for one call.
func MaxLength(n int) TranslateOption {
	return generate.MaxLength(n)
}

// Attention requests attention captures for one call.
func Attention() TranslateOption {
	return generate.Attention()
}
