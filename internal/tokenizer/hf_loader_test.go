package tokenizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTokenizerJSON(t *testing.T, dir string, config map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, "tokenizer.json")
	data, err := json.Marshal(config)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestLoadFromHuggingFace_WordLevel(t *testing.T) {
	path := writeTokenizerJSON(t, t.TempDir(), map[string]any{
		"model": map[string]any{
			"type":      "WordLevel",
			"vocab":     map[string]int{"<pad>": 0, "</s>": 1, "<unk>": 2, "hello": 3, "world": 4},
			"unk_token": "<unk>",
		},
		"normalizer": map[string]any{"type": "Lowercase"},
		"added_tokens": []map[string]any{
			{"id": 0, "content": "<pad>", "special": true},
			{"id": 1, "content": "</s>", "special": true},
			{"id": 5, "content": "<s>", "special": true},
		},
	})

	tok, err := LoadFromHuggingFace(path)
	require.NoError(t, err)
	assert.Equal(t, 6, tok.VocabSize())
	assert.Equal(t, int32(0), tok.PadToken())
	assert.Equal(t, int32(1), tok.EosToken())
	assert.Equal(t, int32(2), tok.UnkToken())
	assert.Equal(t, int32(5), tok.BosToken())

	ids, err := tok.Encode("Hello there WORLD")
	require.NoError(t, err)
	assert.Equal(t, []int32{3, 2, 4}, ids)
}

func TestLoadFromHuggingFace_Unigram(t *testing.T) {
	path := writeTokenizerJSON(t, t.TempDir(), map[string]any{
		"model": map[string]any{
			"type":  "Unigram",
			"vocab": [][]any{{"<pad>", 0.0}, {"</s>", 0.0}, {"<unk>", 0.0}, {"▁hello", -3.2}},
		},
		"added_tokens": []map[string]any{
			{"id": 0, "content": "<pad>", "special": true},
			{"id": 1, "content": "</s>", "special": true},
			{"id": 2, "content": "<unk>", "special": true},
		},
	})

	tok, err := LoadFromHuggingFace(path)
	require.NoError(t, err)
	assert.Equal(t, 4, tok.VocabSize())
	assert.Equal(t, "▁hello", tok.Token(3))
	assert.Equal(t, int32(-1), tok.BosToken())
}

func TestLoadFromHuggingFace_SparseIDs(t *testing.T) {
	path := writeTokenizerJSON(t, t.TempDir(), map[string]any{
		"model": map[string]any{
			"type":  "BPE",
			"vocab": map[string]int{"hello": 0, "world": 2},
		},
	})

	tok, err := LoadFromHuggingFace(path)
	require.NoError(t, err)
	assert.Equal(t, 3, tok.VocabSize())
	assert.Equal(t, "<unused_1>", tok.Token(1))
}

func TestLoadFromHuggingFace_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("invalid json"), 0o600))
	_, err := LoadFromHuggingFace(bad)
	assert.Error(t, err)

	_, err = LoadFromHuggingFace("/nonexistent/path/tokenizer.json")
	assert.Error(t, err)

	path := writeTokenizerJSON(t, dir, map[string]any{
		"model": map[string]any{"type": "Mystery", "vocab": map[string]int{"a": 0}},
	})
	_, err = LoadFromHuggingFace(path)
	assert.ErrorContains(t, err, "unknown tokenizer type")
}

func TestAutoLoadTokenizer_Files(t *testing.T) {
	dir := t.TempDir()
	writeTokenizerJSON(t, dir, map[string]any{
		"model": map[string]any{"type": "WordLevel", "vocab": map[string]int{"a": 0, "b": 1, "c": 2}},
	})

	tok, err := AutoLoadTokenizer(dir, SpecialNames{})
	require.NoError(t, err)
	assert.Equal(t, 3, tok.VocabSize())

	vocab := filepath.Join(dir, "vocab.txt")
	require.NoError(t, os.WriteFile(vocab, []byte("<pad>\n</s>\n<unk>\n<s>\nhi\n"), 0o600))
	tok, err = AutoLoadTokenizer(vocab, DefaultSpecialNames())
	require.NoError(t, err)
	assert.Equal(t, 5, tok.VocabSize())
	assert.Equal(t, int32(3), tok.BosToken())
}

func TestAutoLoadTokenizer_Invalid(t *testing.T) {
	_, err := AutoLoadTokenizer("/nonexistent/path/xyz", DefaultSpecialNames())
	assert.Error(t, err)
}
