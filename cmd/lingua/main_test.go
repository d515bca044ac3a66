package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/attnexport"
	"github.com/born-ml/lingua/internal/serialization"
)

// writeFixture writes a tiny vocabulary and config into a temp dir and
// returns the config path and the snapshot path it names.
func writeFixture(t *testing.T) (cfgPath, snapshot string) {
	t.Helper()
	dir := t.TempDir()

	vocab := filepath.Join(dir, "vocab.txt")
	require.NoError(t, os.WriteFile(vocab,
		[]byte("<pad>\n</s>\n<unk>\nguten\nmorgen\ngood\nmorning\n<s>\n"), 0o600))

	snapshot = filepath.Join(dir, "model.safetensors")
	cfg := fmt.Sprintf(`model_dimension: 8
head_count: 2
encoder_block_count: 1
decoder_block_count: 1
feed_forward_hidden_dimension: 16
vocabulary_size: 9
start_token_index: 8
maximum_sequence_length: 16
maximum_output_length: 4
weight_tying_mode: tie-all
seed: 3
tokenizer:
  type: wordlevel
  path: %s
snapshot_path: %s
log_level: disabled
`, vocab, snapshot)
	cfgPath = filepath.Join(dir, "lingua.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	return cfgPath, snapshot
}

func TestRunVersionAndUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, nil, &out))
	assert.Equal(t, "lingua "+version+"\n", out.String())

	out.Reset()
	require.NoError(t, run(nil, nil, &out))
	assert.Contains(t, out.String(), "translate")

	assert.Error(t, run([]string{"train"}, nil, &out))
}

func TestRunInitAndTranslate(t *testing.T) {
	cfgPath, snapshot := writeFixture(t)

	var out bytes.Buffer
	require.NoError(t, run([]string{"init", "-config", cfgPath}, nil, &out))
	assert.Contains(t, out.String(), "tying tie-all")

	state, meta, err := serialization.Load(snapshot)
	require.NoError(t, err)
	assert.Equal(t, "tie-all", meta["tying"])
	assert.NotEmpty(t, state)

	out.Reset()
	stdin := strings.NewReader("guten morgen\n\nmorgen\n")
	require.NoError(t, run([]string{"translate", "-config", cfgPath}, stdin, &out))
	assert.Equal(t, 2, strings.Count(out.String(), "\n"), "one line per non-blank input")

	out.Reset()
	require.NoError(t, run([]string{"translate", "-config", cfgPath, "-max-len", "0", "guten"}, nil, &out))
	assert.Equal(t, "\n", out.String())
}

func TestRunTranslateAttentionOut(t *testing.T) {
	cfgPath, _ := writeFixture(t)
	var out bytes.Buffer
	require.NoError(t, run([]string{"init", "-config", cfgPath}, nil, &out))

	attn := filepath.Join(t.TempDir(), "attention.arrow")
	require.NoError(t, run([]string{"translate", "-config", cfgPath, "-attention-out", attn, "guten morgen"}, nil, &out))

	f, err := os.Open(attn)
	require.NoError(t, err)
	defer f.Close()
	rows, err := attnexport.ReadIPC(f, memory.NewGoAllocator())
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func TestRunInitNeedsOutput(t *testing.T) {
	var out bytes.Buffer
	err := run([]string{"init", "-log-level", "disabled"}, nil, &out)
	assert.ErrorContains(t, err, "snapshot_path")
}
