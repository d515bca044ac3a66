package tokenizer

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

const (
	// encodingCL100kBase is the encoding name for GPT-4 and GPT-3.5-turbo.
	encodingCL100kBase = "cl100k_base"
	// encodingP50kBase is the encoding name for GPT-3.
	encodingP50kBase = "p50k_base"
	// encodingR50kBase is the encoding name for older GPT-3 models.
	encodingR50kBase = "r50k_base"
)

// TikToken wraps the pkoukk/tiktoken-go library for OpenAI BPE encodings.
//
// tiktoken defines no start, padding or unknown token. Translation models
// need start and padding ids, so they are supplied by the caller through
// Specials; the end token defaults to <|endoftext|>.
//
// Supported encodings:
//   - cl100k_base: GPT-4, GPT-3.5-turbo, text-embedding-ada-002
//   - p50k_base: GPT-3, Codex
//   - r50k_base: GPT-3, davinci-002, babbage-002
type TikToken struct {
	encoding *tiktoken.Tiktoken
	name     string
	specials Specials
}

// NewTikToken creates a TikToken tokenizer with the specified encoding.
//
// specials.Eos of -1 selects the encoding's <|endoftext|> id.
func NewTikToken(encodingName string, specials Specials) (*TikToken, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding %q: %w", encodingName, err)
	}

	t := &TikToken{encoding: encoding, name: encodingName, specials: specials}
	if t.specials.Eos < 0 {
		t.specials.Eos = endOfText(encodingName)
	}
	return t, nil
}

// endOfText returns the <|endoftext|> id of a known encoding, or -1.
func endOfText(name string) int32 {
	switch name {
	case encodingCL100kBase:
		return 100257
	case encodingP50kBase, encodingR50kBase:
		return 50256
	default:
		return -1
	}
}

// Encode converts text to token IDs.
func (t *TikToken) Encode(text string) ([]int32, error) {
	tokens := t.encoding.Encode(text, nil, nil)

	result := make([]int32, len(tokens))
	for i, tok := range tokens {
		result[i] = int32(tok) //nolint:gosec // G115: Token ID fits in int32 - vocab size < 2^31.
	}
	return result, nil
}

// Decode converts token IDs back to text.
func (t *TikToken) Decode(tokens []int32) (string, error) {
	intTokens := make([]int, len(tokens))
	for i, tok := range tokens {
		intTokens[i] = int(tok)
	}
	return t.encoding.Decode(intTokens), nil
}

// VocabSize returns the total vocabulary size, special tokens included.
func (t *TikToken) VocabSize() int {
	switch t.name {
	case encodingCL100kBase:
		return 100277 // 100256 ranks + 21 specials up to <|endofprompt|>
	case encodingP50kBase, encodingR50kBase:
		return 50257
	default:
		return 100000
	}
}

// BosToken returns the start-of-sequence token ID, -1 unless configured.
func (t *TikToken) BosToken() int32 { return t.specials.Bos }

// EosToken returns the end-of-sequence token ID.
func (t *TikToken) EosToken() int32 { return t.specials.Eos }

// PadToken returns the padding token ID, -1 unless configured.
func (t *TikToken) PadToken() int32 { return t.specials.Pad }

// UnkToken returns the unknown token ID. BPE has no unknown words, so -1 unless configured.
func (t *TikToken) UnkToken() int32 { return t.specials.Unk }

// IsSpecialToken checks if a token ID is a special token.
func (t *TikToken) IsSpecialToken(token int32) bool {
	if t.specials.contains(token) {
		return true
	}
	// cl100k_base special tokens: 100257-100276.
	return t.name == encodingCL100kBase && token >= 100257 && token <= 100276
}

// Name returns the encoding name.
func (t *TikToken) Name() string {
	return t.name
}
