// Package config loads the YAML file that describes a translator deployment:
// model hyperparameters, special token ids, tokenizer, snapshot and
// observability settings.
//
// Example file:
//
//	model_dimension: 512
//	head_count: 8
//	encoder_block_count: 6
//	decoder_block_count: 6
//	feed_forward_hidden_dimension: 2048
//	vocabulary_size: 64101
//	start_token_index: 64100
//	end_token_index: 1
//	weight_tying_mode: tie-all
//	tokenizer:
//	  type: wordlevel
//	  path: vocab.txt
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/lingua/internal/seq2seq"
)

// ErrInvalid is returned by Validate for settings that cannot run.
var ErrInvalid = errors.New("config: invalid")

// Tokenizer kinds.
const (
	TokenizerWordLevel   = "wordlevel"
	TokenizerHuggingFace = "huggingface"
	TokenizerTikToken    = "tiktoken"
)

// Tokenizer selects and locates the tokenizer.
type Tokenizer struct {
	Type     string `yaml:"type"`     // wordlevel | huggingface | tiktoken
	Path     string `yaml:"path"`     // vocabulary or tokenizer.json path
	Encoding string `yaml:"encoding"` // tiktoken encoding name
}

// Config is the full deployment configuration.
type Config struct {
	ModelDimension             int     `yaml:"model_dimension"`
	HeadCount                  int     `yaml:"head_count"`
	EncoderBlockCount          int     `yaml:"encoder_block_count"`
	DecoderBlockCount          int     `yaml:"decoder_block_count"`
	FeedForwardHiddenDimension int     `yaml:"feed_forward_hidden_dimension"`
	DropoutRate                float32 `yaml:"dropout_rate"`
	LayerNormEpsilon           float32 `yaml:"layer_norm_epsilon"`

	// VocabularySize applies to both sides unless a side-specific size is set.
	VocabularySize       int `yaml:"vocabulary_size"`
	SourceVocabularySize int `yaml:"source_vocabulary_size"`
	TargetVocabularySize int `yaml:"target_vocabulary_size"`

	StartTokenIndex   int32 `yaml:"start_token_index"`
	EndTokenIndex     int32 `yaml:"end_token_index"`
	PaddingTokenIndex int32 `yaml:"padding_token_index"`
	UnknownTokenIndex int32 `yaml:"unknown_token_index"`

	MaximumSequenceLength int    `yaml:"maximum_sequence_length"`
	MaximumOutputLength   int    `yaml:"maximum_output_length"`
	BatchSize             int    `yaml:"batch_size"` // 0 = whole request
	WeightTyingMode       string `yaml:"weight_tying_mode"`
	CaptureAttention      bool   `yaml:"capture_attention"`
	Seed                  int64  `yaml:"seed"`

	Tokenizer    Tokenizer `yaml:"tokenizer"`
	SnapshotPath string    `yaml:"snapshot_path"`

	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
	MetricsAddress   string `yaml:"metrics_address"`
	AttentionAddress string `yaml:"attention_address"`
}

// Default returns the base translator configuration: a 6+6 block, 512-wide
// model over a 64101-token shared vocabulary.
func Default() Config {
	return Config{
		ModelDimension:             512,
		HeadCount:                  8,
		EncoderBlockCount:          6,
		DecoderBlockCount:          6,
		FeedForwardHiddenDimension: 2048,
		DropoutRate:                0.1,
		VocabularySize:             64101,
		StartTokenIndex:            64100,
		EndTokenIndex:              1,
		PaddingTokenIndex:          0,
		UnknownTokenIndex:          2,
		MaximumSequenceLength:      1024,
		MaximumOutputLength:        512,
		WeightTyingMode:            string(seq2seq.TieNone),
		CaptureAttention:           true,
		Tokenizer:                  Tokenizer{Type: TokenizerWordLevel},
		LogLevel:                   "info",
		LogFormat:                  "console",
	}
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML from r on top of Default and validates the result.
// Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML.
func (c Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("config: encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("config: encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// SourceVocab returns the effective source vocabulary size.
func (c Config) SourceVocab() int {
	if c.SourceVocabularySize > 0 {
		return c.SourceVocabularySize
	}
	return c.VocabularySize
}

// TargetVocab returns the effective target vocabulary size.
func (c Config) TargetVocab() int {
	if c.TargetVocabularySize > 0 {
		return c.TargetVocabularySize
	}
	return c.VocabularySize
}

// ModelConfig converts the file settings to a seq2seq.Config.
func (c Config) ModelConfig() seq2seq.Config {
	return seq2seq.Config{
		SourceVocabSize:  c.SourceVocab(),
		TargetVocabSize:  c.TargetVocab(),
		ModelDim:         c.ModelDimension,
		HeadCount:        c.HeadCount,
		EncoderBlocks:    c.EncoderBlockCount,
		DecoderBlocks:    c.DecoderBlockCount,
		FFNHiddenDim:     c.FeedForwardHiddenDimension,
		DropoutRate:      c.DropoutRate,
		StartID:          c.StartTokenIndex,
		EndID:            c.EndTokenIndex,
		PadID:            c.PaddingTokenIndex,
		UnknownID:        c.UnknownTokenIndex,
		MaxSeqLen:        c.MaximumSequenceLength,
		Tying:            seq2seq.TyingMode(c.WeightTyingMode),
		CaptureAttention: c.CaptureAttention,
		LayerNormEps:     c.LayerNormEpsilon,
		Seed:             c.Seed,
	}
}

// Validate checks the model settings and the deployment settings around them.
func (c Config) Validate() error {
	if err := c.ModelConfig().Validate(); err != nil {
		return err
	}
	if c.MaximumOutputLength < 0 || c.MaximumOutputLength > c.MaximumSequenceLength {
		return fmt.Errorf("%w: maximum_output_length must be in [0, %d], got %d",
			ErrInvalid, c.MaximumSequenceLength, c.MaximumOutputLength)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size must be >= 0, got %d", ErrInvalid, c.BatchSize)
	}
	switch c.Tokenizer.Type {
	case TokenizerWordLevel, TokenizerHuggingFace, TokenizerTikToken:
	default:
		return fmt.Errorf("%w: unknown tokenizer type %q", ErrInvalid, c.Tokenizer.Type)
	}
	return nil
}
