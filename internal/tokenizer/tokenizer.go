package tokenizer

import "errors"

// ErrNoPadToken is returned by EncodeBatch when the tokenizer has no padding id.
var ErrNoPadToken = errors.New("tokenizer: padding token not configured")

// Tokenizer is the core interface for text tokenization.
//
// All tokenizer implementations (word-level, tiktoken) must implement this interface.
type Tokenizer interface {
	// Encode converts text to token IDs. No special tokens are added.
	Encode(text string) ([]int32, error)

	// Decode converts token IDs back to text.
	Decode(tokens []int32) (string, error)

	// VocabSize returns the total vocabulary size.
	VocabSize() int

	// BosToken returns the start-of-sequence token ID.
	// Returns -1 if not applicable.
	BosToken() int32

	// EosToken returns the end-of-sequence token ID.
	// Returns -1 if not applicable.
	EosToken() int32

	// PadToken returns the padding token ID.
	// Returns -1 if not applicable.
	PadToken() int32

	// UnkToken returns the unknown token ID.
	// Returns -1 if not applicable.
	UnkToken() int32

	// IsSpecialToken checks if a token ID is a special token.
	IsSpecialToken(token int32) bool
}

// Specials holds the special token IDs of a tokenizer. -1 means absent.
type Specials struct {
	Bos int32
	Eos int32
	Pad int32
	Unk int32
}

// NoSpecials returns a Specials with every token absent.
func NoSpecials() Specials {
	return Specials{Bos: -1, Eos: -1, Pad: -1, Unk: -1}
}

// contains reports whether id is one of the configured special tokens.
func (s Specials) contains(id int32) bool {
	if id < 0 {
		return false
	}
	return id == s.Bos || id == s.Eos || id == s.Pad || id == s.Unk
}
