package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/seq2seq"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	m := cfg.ModelConfig()
	assert.Equal(t, 64101, m.SourceVocabSize)
	assert.Equal(t, 64101, m.TargetVocabSize)
	assert.Equal(t, int32(64100), m.StartID)
	assert.Equal(t, seq2seq.TieNone, m.Tying)
}

func TestDecode(t *testing.T) {
	src := `
model_dimension: 16
head_count: 2
encoder_block_count: 1
decoder_block_count: 2
feed_forward_hidden_dimension: 32
vocabulary_size: 50
source_vocabulary_size: 60
start_token_index: 49
maximum_sequence_length: 64
maximum_output_length: 10
weight_tying_mode: TYINGTGTFFC
tokenizer:
  type: tiktoken
  encoding: cl100k_base
log_format: json
`
	cfg, err := Decode(strings.NewReader(src))
	require.NoError(t, err)

	m := cfg.ModelConfig()
	assert.Equal(t, 60, m.SourceVocabSize)
	assert.Equal(t, 50, m.TargetVocabSize)
	assert.Equal(t, 2, m.DecoderBlocks)
	assert.Equal(t, float32(0.1), m.DropoutRate, "unset keys keep defaults")
	assert.Equal(t, 10, cfg.MaximumOutputLength)
	assert.Equal(t, "cl100k_base", cfg.Tokenizer.Encoding)
	assert.Equal(t, "json", cfg.LogFormat)

	mode, err := seq2seq.ParseTyingMode(string(m.Tying))
	require.NoError(t, err)
	assert.Equal(t, seq2seq.TieTargetOutput, mode)
}

func TestDecodeEmpty(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		is   error
	}{
		{"unknown key", "model_dim: 4\n", nil},
		{"bad tying", "weight_tying_mode: sideways\n", seq2seq.ErrUnknownTyingMode},
		{"bad heads", "head_count: 0\n", seq2seq.ErrInvalidConfig},
		{"output too long", "maximum_output_length: 2048\n", ErrInvalid},
		{"bad tokenizer", "tokenizer:\n  type: sentencepiece\n", ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.yaml))
			require.Error(t, err)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}
}

func TestLoadAndMarshal(t *testing.T) {
	cfg := Default()
	cfg.ModelDimension = 32
	cfg.HeadCount = 4
	cfg.WeightTyingMode = string(seq2seq.TieAll)

	data, err := cfg.Marshal()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "lingua.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
