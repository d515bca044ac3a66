package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// HFTokenizerType identifies the tokenizer implementation type.
type HFTokenizerType string

const (
	// HFTypeWordLevel indicates a plain vocabulary lookup tokenizer.
	HFTypeWordLevel HFTokenizerType = "WordLevel"

	// HFTypeBPE indicates Byte-Pair Encoding tokenizer.
	HFTypeBPE HFTokenizerType = "BPE"

	// HFTypeWordPiece indicates WordPiece tokenizer (BERT-style).
	HFTypeWordPiece HFTokenizerType = "WordPiece"

	// HFTypeUnigram indicates Unigram tokenizer (SentencePiece-style).
	HFTypeUnigram HFTokenizerType = "Unigram"
)

// hfTokenizerFile is the subset of tokenizer.json this package reads.
type hfTokenizerFile struct {
	Model struct {
		Type     string          `json:"type"`
		Vocab    json.RawMessage `json:"vocab"`
		UnkToken string          `json:"unk_token"`
	} `json:"model"`
	Normalizer *struct {
		Type string `json:"type"`
	} `json:"normalizer"`
	AddedTokens []struct {
		ID      int    `json:"id"`
		Content string `json:"content"`
		Special bool   `json:"special"`
	} `json:"added_tokens"`
}

// LoadFromHuggingFace loads a WordLevel tokenizer from tokenizer.json.
//
// WordLevel, WordPiece and BPE files carry a token -> id map; Unigram files
// carry [token, score] pairs whose position is the id. In every case only
// the vocabulary is used: words are split on whitespace and looked up whole.
// Special tokens come from added_tokens, matched by the T5/BERT names.
func LoadFromHuggingFace(path string) (*WordLevel, error) {
	//nolint:gosec // G304: tokenizer path comes from configuration
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tokenizer.json: %w", err)
	}

	var file hfTokenizerFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse tokenizer.json: %w", err)
	}

	tokens, err := hfVocab(HFTokenizerType(file.Model.Type), file.Model.Vocab)
	if err != nil {
		return nil, err
	}
	for _, added := range file.AddedTokens {
		for len(tokens) <= added.ID {
			tokens = append(tokens, "")
		}
		tokens[added.ID] = added.Content
	}
	for i, tok := range tokens {
		if tok == "" {
			tokens[i] = fmt.Sprintf("<unused_%d>", i)
		}
	}

	names := SpecialNames{Unk: file.Model.UnkToken}
	for _, added := range file.AddedTokens {
		if !added.Special {
			continue
		}
		switch added.Content {
		case "<s>", "<bos>", "[CLS]":
			names.Bos = added.Content
		case "</s>", "<eos>", "[SEP]":
			names.Eos = added.Content
		case "<pad>", "[PAD]":
			names.Pad = added.Content
		case "<unk>", "[UNK]":
			names.Unk = added.Content
		}
	}

	lowercase := file.Normalizer != nil && strings.EqualFold(file.Normalizer.Type, "Lowercase")
	return NewWordLevel(tokens, names, lowercase)
}

// hfVocab converts the model.vocab field into an id-ordered token list.
func hfVocab(kind HFTokenizerType, raw json.RawMessage) ([]string, error) {
	switch kind {
	case HFTypeWordLevel, HFTypeWordPiece, HFTypeBPE:
		var vocab map[string]int
		if err := json.Unmarshal(raw, &vocab); err != nil {
			return nil, fmt.Errorf("failed to parse %s vocabulary: %w", kind, err)
		}
		type entry struct {
			tok string
			id  int
		}
		entries := make([]entry, 0, len(vocab))
		for tok, id := range vocab {
			if id < 0 {
				return nil, fmt.Errorf("tokenizer: negative id %d for %q", id, tok)
			}
			entries = append(entries, entry{tok, id})
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })
		size := 0
		if len(entries) > 0 {
			size = entries[len(entries)-1].id + 1
		}
		tokens := make([]string, size)
		for _, e := range entries {
			tokens[e.id] = e.tok
		}
		return tokens, nil
	case HFTypeUnigram:
		var pairs [][2]any
		if err := json.Unmarshal(raw, &pairs); err != nil {
			return nil, fmt.Errorf("failed to parse Unigram vocabulary: %w", err)
		}
		tokens := make([]string, len(pairs))
		for i, p := range pairs {
			s, ok := p[0].(string)
			if !ok {
				return nil, fmt.Errorf("tokenizer: Unigram entry %d has no token string", i)
			}
			tokens[i] = s
		}
		return tokens, nil
	default:
		return nil, fmt.Errorf("unknown tokenizer type: %q", kind)
	}
}

// AutoLoadTokenizer attempts to automatically load the correct tokenizer.
//
// It tries multiple strategies:
//  1. A directory containing tokenizer.json, or a tokenizer.json file
//  2. A plain vocabulary file, one token per line
//  3. A tiktoken encoding name such as "cl100k_base"
func AutoLoadTokenizer(pathOrName string, names SpecialNames) (Tokenizer, error) {
	if info, err := os.Stat(pathOrName); err == nil {
		path := pathOrName
		if info.IsDir() {
			path = filepath.Join(pathOrName, "tokenizer.json")
		}
		if strings.HasSuffix(path, ".json") {
			return LoadFromHuggingFace(path)
		}
		return LoadVocabFile(path, names)
	}

	tok, err := NewTikToken(pathOrName, NoSpecials())
	if err != nil {
		return nil, fmt.Errorf("failed to auto-load tokenizer from %q: %w", pathOrName, err)
	}
	return tok, nil
}
