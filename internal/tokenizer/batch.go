package tokenizer

import (
	"fmt"

	"github.com/born-ml/lingua/internal/tensor"
)

// EncodeBatch encodes texts into a padded id batch and its validity indicator.
//
// Each row is the encoded text followed by the end token (when the tokenizer
// has one), truncated so the row is at most maxLen ids; truncation keeps the
// end token. Rows are padded with the padding token to the longest row.
// maxLen <= 0 disables truncation.
//
// Returns:
//   - ids: [len(texts), longest]
//   - valid: [len(texts), longest], 1 for real tokens, 0 for padding
func EncodeBatch(tok Tokenizer, texts []string, maxLen int) (ids, valid *tensor.IntTensor, err error) {
	pad := tok.PadToken()
	if pad < 0 {
		return nil, nil, ErrNoPadToken
	}
	eos := tok.EosToken()

	rows := make([][]int32, len(texts))
	width := 0
	for i, text := range texts {
		row, err := tok.Encode(text)
		if err != nil {
			return nil, nil, fmt.Errorf("encode text %d: %w", i, err)
		}
		if eos >= 0 {
			row = append(row, eos)
		}
		if maxLen > 0 && len(row) > maxLen {
			last := row[len(row)-1]
			row = row[:maxLen]
			if eos >= 0 {
				row[maxLen-1] = last
			}
		}
		rows[i] = row
		width = max(width, len(row))
	}

	ids = tensor.FromRows(rows, width, pad)
	valid = tensor.FullInt(0, len(rows), width)
	for i, row := range rows {
		for j := range row {
			valid.Set(1, i, j)
		}
	}
	return ids, valid, nil
}

// DecodeBatch decodes every row of ids, dropping special tokens.
func DecodeBatch(tok Tokenizer, ids *tensor.IntTensor) ([]string, error) {
	rows := ids.Rows()
	out := make([]string, len(rows))
	for i, row := range rows {
		kept := make([]int32, 0, len(row))
		for _, id := range row {
			if !tok.IsSpecialToken(id) {
				kept = append(kept, id)
			}
		}
		text, err := tok.Decode(kept)
		if err != nil {
			return nil, fmt.Errorf("decode row %d: %w", i, err)
		}
		out[i] = text
	}
	return out, nil
}

// Tokens maps each id to its token string, for labelling attention maps.
// Tokenizers without a per-id vocabulary decode ids one at a time.
func Tokens(tok Tokenizer, ids []int32) []string {
	out := make([]string, len(ids))
	wl, isWordLevel := tok.(*WordLevel)
	for i, id := range ids {
		if isWordLevel {
			out[i] = wl.Token(id)
			continue
		}
		s, err := tok.Decode([]int32{id})
		if err != nil {
			s = fmt.Sprintf("<%d>", id)
		}
		out[i] = s
	}
	return out
}
