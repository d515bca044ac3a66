package tokenizer

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// SpecialNames are the vocabulary entries that act as special tokens.
// An empty name means the tokenizer has no such token.
type SpecialNames struct {
	Bos string
	Eos string
	Pad string
	Unk string
}

// DefaultSpecialNames returns the T5-style names used by the translation vocabularies.
func DefaultSpecialNames() SpecialNames {
	return SpecialNames{Bos: "<s>", Eos: "</s>", Pad: "<pad>", Unk: "<unk>"}
}

// WordLevel maps whitespace-separated words to ids through a fixed vocabulary.
//
// Words missing from the vocabulary map to the unknown token, or are an error
// when no unknown token is configured.
type WordLevel struct {
	vocab     map[string]int32
	tokens    []string // id -> token
	specials  Specials
	lowercase bool
}

// NewWordLevel builds a tokenizer where tokens[i] has id i.
//
// Special tokens are looked up by name; names absent from tokens are an error
// unless empty.
func NewWordLevel(tokens []string, names SpecialNames, lowercase bool) (*WordLevel, error) {
	if len(tokens) == 0 {
		return nil, fmt.Errorf("tokenizer: empty vocabulary")
	}
	vocab := make(map[string]int32, len(tokens))
	for i, tok := range tokens {
		if _, dup := vocab[tok]; dup {
			return nil, fmt.Errorf("tokenizer: duplicate vocabulary entry %q", tok)
		}
		vocab[tok] = int32(i) //nolint:gosec // G115: vocabulary size fits in int32
	}

	w := &WordLevel{vocab: vocab, tokens: tokens, lowercase: lowercase}
	lookup := func(name string) (int32, error) {
		if name == "" {
			return -1, nil
		}
		id, ok := vocab[name]
		if !ok {
			return -1, fmt.Errorf("tokenizer: special token %q not in vocabulary", name)
		}
		return id, nil
	}

	var err error
	if w.specials.Bos, err = lookup(names.Bos); err != nil {
		return nil, err
	}
	if w.specials.Eos, err = lookup(names.Eos); err != nil {
		return nil, err
	}
	if w.specials.Pad, err = lookup(names.Pad); err != nil {
		return nil, err
	}
	if w.specials.Unk, err = lookup(names.Unk); err != nil {
		return nil, err
	}
	return w, nil
}

// LoadVocabFile reads a vocabulary with one token per line; the line number is the id.
func LoadVocabFile(path string, names SpecialNames) (*WordLevel, error) {
	//nolint:gosec // G304: vocabulary path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open vocabulary: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var tokens []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tokens = append(tokens, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vocabulary: %w", err)
	}
	return NewWordLevel(tokens, names, false)
}

// Encode splits text on whitespace and maps each word to its id.
func (w *WordLevel) Encode(text string) ([]int32, error) {
	if w.lowercase {
		text = strings.ToLower(text)
	}
	words := strings.Fields(text)
	ids := make([]int32, 0, len(words))
	for _, word := range words {
		if id, ok := w.vocab[word]; ok {
			ids = append(ids, id)
			continue
		}
		if w.specials.Unk < 0 {
			return nil, fmt.Errorf("tokenizer: %q not in vocabulary and no unknown token", word)
		}
		ids = append(ids, w.specials.Unk)
	}
	return ids, nil
}

// Decode joins the tokens of ids with single spaces.
func (w *WordLevel) Decode(ids []int32) (string, error) {
	parts := make([]string, len(ids))
	for i, id := range ids {
		if id < 0 || int(id) >= len(w.tokens) {
			return "", fmt.Errorf("tokenizer: id %d out of range [0, %d)", id, len(w.tokens))
		}
		parts[i] = w.tokens[id]
	}
	return strings.Join(parts, " "), nil
}

// Token returns the vocabulary entry of id, or "" when out of range.
func (w *WordLevel) Token(id int32) string {
	if id < 0 || int(id) >= len(w.tokens) {
		return ""
	}
	return w.tokens[id]
}

// VocabSize returns the total vocabulary size.
func (w *WordLevel) VocabSize() int { return len(w.tokens) }

// BosToken returns the start-of-sequence token ID.
func (w *WordLevel) BosToken() int32 { return w.specials.Bos }

// EosToken returns the end-of-sequence token ID.
func (w *WordLevel) EosToken() int32 { return w.specials.Eos }

// PadToken returns the padding token ID.
func (w *WordLevel) PadToken() int32 { return w.specials.Pad }

// UnkToken returns the unknown token ID.
func (w *WordLevel) UnkToken() int32 { return w.specials.Unk }

// IsSpecialToken checks if a token ID is a special token.
func (w *WordLevel) IsSpecialToken(token int32) bool {
	return w.specials.contains(token)
}
