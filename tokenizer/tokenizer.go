// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tokenizer provides the text tokenizers that feed lingua models.
//
// Supported tokenizers:
//   - WordLevel: whitespace split over a fixed vocabulary with an unknown-token fallback
//   - HuggingFace tokenizer.json vocabularies (WordLevel, WordPiece, BPE, Unigram)
//   - TikToken: OpenAI BPE encodings (cl100k_base, p50k_base, ...)
//
// Example usage:
//
//	import "github.com/born-ml/lingua/tokenizer"
//
//	tok, err := tokenizer.LoadVocabFile("vocab.txt", tokenizer.DefaultSpecialNames())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Batch for the model: ids and validity, end token appended
//	ids, valid, err := tokenizer.EncodeBatch(tok, []string{"guten morgen", "hallo"}, 128)
//	if err != nil {
//	    log.Fatal(err)
//	}
package tokenizer

import (
	"github.com/born-ml/lingua/internal/tokenizer"
	"github.com/born-ml/lingua/tensor"
)

// Tokenizer is the core interface for text tokenization.
type Tokenizer = tokenizer.Tokenizer

// ErrNoPadToken is returned by EncodeBatch when the tokenizer has no padding id.
var ErrNoPadToken = tokenizer.ErrNoPadToken

// Specials holds special token ids. -1 means absent.
type Specials = tokenizer.Specials

// NoSpecials returns a Specials with every token absent.
func NoSpecials() Specials {
	return tokenizer.NoSpecials()
}

// SpecialNames names the special tokens inside a vocabulary.
type SpecialNames = tokenizer.SpecialNames

// DefaultSpecialNames returns <s>, </s>, <pad> and <unk>.
func DefaultSpecialNames() SpecialNames {
	return tokenizer.DefaultSpecialNames()
}

// WordLevel is a whitespace tokenizer over a fixed vocabulary.
type WordLevel = tokenizer.WordLevel

// NewWordLevel builds a tokenizer where tokens[i] has id i.
func NewWordLevel(tokens []string, names SpecialNames, lowercase bool) (*WordLevel, error) {
	return tokenizer.NewWordLevel(tokens, names, lowercase)
}

// LoadVocabFile loads a vocabulary with one token per line.
func LoadVocabFile(path string, names SpecialNames) (*WordLevel, error) {
	return tokenizer.LoadVocabFile(path, names)
}

// LoadFromHuggingFace loads the vocabulary of a HuggingFace tokenizer.json.
func LoadFromHuggingFace(path string) (*WordLevel, error) {
	return tokenizer.LoadFromHuggingFace(path)
}

// TikToken wraps an OpenAI BPE encoding.
type TikToken = tokenizer.TikToken

// NewTikToken creates a TikToken tokenizer with the specified encoding.
//
// Supported encodings: "cl100k_base" (GPT-4), "p50k_base" (GPT-3).
func NewTikToken(encodingName string, specials Specials) (*TikToken, error) {
	return tokenizer.NewTikToken(encodingName, specials)
}

// AutoLoad attempts to automatically load the correct tokenizer.
//
// It tries multiple strategies:
//  1. A directory containing tokenizer.json, or a tokenizer.json file
//  2. A plain vocabulary file
//  3. A tiktoken encoding name
func AutoLoad(pathOrName string, names SpecialNames) (Tokenizer, error) {
	return tokenizer.AutoLoadTokenizer(pathOrName, names)
}

// EncodeBatch encodes texts into padded ids [batch, len] and validity [batch, len].
// maxLen <= 0 disables truncation.
func EncodeBatch(tok Tokenizer, texts []string, maxLen int) (ids, valid *tensor.IntTensor, err error) {
	return tokenizer.EncodeBatch(tok, texts, maxLen)
}

// DecodeBatch decodes every row of ids, dropping special tokens.
func DecodeBatch(tok Tokenizer, ids *tensor.IntTensor) ([]string, error) {
	return tokenizer.DecodeBatch(tok, ids)
}
