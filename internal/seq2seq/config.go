// Package seq2seq implements the encoder-decoder Transformer used for translation.
//
// The Transformer owns the source and target embeddings, the encoder and
// decoder stacks and the output projection. It exposes two entry points:
//   - Forward: teacher-forced scoring that returns per-position logits
//   - Translate: greedy autoregressive decoding with batched early stop
//
// Weight tying between the embeddings and the output projection is selected
// once at construction by a TyingMode.
package seq2seq

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownTyingMode is returned when Config.Tying names no known mode.
	ErrUnknownTyingMode = errors.New("seq2seq: unknown weight tying mode")

	// ErrInvalidConfig is returned for dimensions or token ids that cannot form a model.
	ErrInvalidConfig = errors.New("seq2seq: invalid config")

	// ErrVocabMismatch is returned when a tying mode shares one table between
	// vocabularies of different sizes.
	ErrVocabMismatch = errors.New("seq2seq: tied tables need equal vocabulary sizes")

	// ErrShapeMismatch is returned when ids, validity indicators or masks disagree in shape.
	ErrShapeMismatch = errors.New("seq2seq: shape mismatch")

	// ErrSnapshotShape is returned when a loaded tensor has the wrong shape.
	ErrSnapshotShape = errors.New("seq2seq: snapshot tensor shape mismatch")

	// ErrSnapshotMissing is returned when a snapshot lacks a model parameter.
	ErrSnapshotMissing = errors.New("seq2seq: snapshot missing parameter")

	// ErrSnapshotUnexpected is returned when a snapshot holds a tensor the model does not have.
	ErrSnapshotUnexpected = errors.New("seq2seq: snapshot has unexpected tensor")
)

// TyingMode selects which embedding tables and output projection weight are
// one shared parameter.
type TyingMode string

// Weight tying modes.
const (
	// TieNone keeps source embedding, target embedding and output projection independent.
	TieNone TyingMode = "none"
	// TieAll shares one table between both embeddings and the output projection.
	TieAll TyingMode = "tie-all"
	// TieSourceTarget shares the source and target embeddings.
	TieSourceTarget TyingMode = "tie-source-target"
	// TieTargetOutput shares the target embedding and the output projection weight.
	TieTargetOutput TyingMode = "tie-target-output"
	// TieSourceOutput shares the source embedding and the output projection weight.
	TieSourceOutput TyingMode = "tie-source-output"
)

// TyingModes lists every valid mode.
var TyingModes = []TyingMode{TieNone, TieAll, TieSourceTarget, TieTargetOutput, TieSourceOutput}

// legacy enum names found in older YAML configs.
var tyingAliases = map[string]TyingMode{
	"NOTYING":     TieNone,
	"TYINGALL":    TieAll,
	"TYINGSRCTGT": TieSourceTarget,
	"TYINGTGTFFC": TieTargetOutput,
	"TYINGSRCFFC": TieSourceOutput,
}

// ParseTyingMode resolves a mode name. The empty string means TieNone.
func ParseTyingMode(s string) (TyingMode, error) {
	if s == "" {
		return TieNone, nil
	}
	for _, m := range TyingModes {
		if strings.EqualFold(s, string(m)) {
			return m, nil
		}
	}
	if m, ok := tyingAliases[strings.ToUpper(s)]; ok {
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTyingMode, s)
}

// String implements fmt.Stringer.
func (m TyingMode) String() string {
	return string(m)
}

// Config defines a Transformer.
type Config struct {
	SourceVocabSize int // Source vocabulary size
	TargetVocabSize int // Target vocabulary size
	ModelDim        int // d_model
	HeadCount       int // Number of attention heads
	KeyDim          int // Optional per-head key width; must equal ModelDim/HeadCount when set
	ValueDim        int // Optional per-head value width; must equal ModelDim/HeadCount when set
	EncoderBlocks   int // Number of encoder blocks
	DecoderBlocks   int // Number of decoder blocks
	FFNHiddenDim    int // Feed-forward hidden dimension
	DropoutRate     float32

	StartID   int32 // Token that seeds every generated sequence
	EndID     int32 // Token that terminates a sequence
	PadID     int32 // Padding token (zero embedding)
	UnknownID int32 // Out-of-vocabulary token

	MaxSeqLen        int       // Rows of the positional table
	Tying            TyingMode // Weight tying mode ("" = none)
	CaptureAttention bool      // Allow attention maps to be returned
	LayerNormEps     float32   // 0 = nn.DefaultLayerNormEps
	Seed             int64     // Seed for initialization and dropout
}

// DefaultConfig returns the base Transformer configuration for a shared vocabulary.
func DefaultConfig(vocabSize int) Config {
	return Config{
		SourceVocabSize: vocabSize,
		TargetVocabSize: vocabSize,
		ModelDim:        512,
		HeadCount:       8,
		EncoderBlocks:   6,
		DecoderBlocks:   6,
		FFNHiddenDim:    2048,
		DropoutRate:     0.1,
		StartID:         int32(vocabSize - 1),
		EndID:           1,
		PadID:           0,
		UnknownID:       2,
		MaxSeqLen:       1024,
		Tying:           TieNone,
	}
}

// HeadDim returns ModelDim / HeadCount, rounded down.
func (c Config) HeadDim() int {
	if c.HeadCount <= 0 {
		return 0
	}
	return c.ModelDim / c.HeadCount
}

// Validate checks the configuration. It never allocates parameters.
func (c Config) Validate() error {
	if _, err := ParseTyingMode(string(c.Tying)); err != nil {
		return err
	}

	switch {
	case c.SourceVocabSize <= 0 || c.TargetVocabSize <= 0:
		return fmt.Errorf("%w: vocabulary sizes must be positive, got source=%d target=%d",
			ErrInvalidConfig, c.SourceVocabSize, c.TargetVocabSize)
	case c.ModelDim <= 0:
		return fmt.Errorf("%w: model dimension must be positive, got %d", ErrInvalidConfig, c.ModelDim)
	case c.HeadCount <= 0 || c.HeadCount > c.ModelDim:
		return fmt.Errorf("%w: head count must be in [1, %d], got %d", ErrInvalidConfig, c.ModelDim, c.HeadCount)
	case c.KeyDim != 0 && c.KeyDim != c.HeadDim():
		return fmt.Errorf("%w: key dim %d must equal model_dim/heads = %d", ErrInvalidConfig, c.KeyDim, c.HeadDim())
	case c.ValueDim != 0 && c.ValueDim != c.HeadDim():
		return fmt.Errorf("%w: value dim %d must equal model_dim/heads = %d", ErrInvalidConfig, c.ValueDim, c.HeadDim())
	case c.EncoderBlocks < 0 || c.DecoderBlocks < 0:
		return fmt.Errorf("%w: block counts must be >= 0, got encoder=%d decoder=%d",
			ErrInvalidConfig, c.EncoderBlocks, c.DecoderBlocks)
	case c.FFNHiddenDim <= 0:
		return fmt.Errorf("%w: feed-forward hidden dimension must be positive, got %d", ErrInvalidConfig, c.FFNHiddenDim)
	case c.DropoutRate < 0 || c.DropoutRate >= 1:
		return fmt.Errorf("%w: dropout rate must be in [0, 1), got %v", ErrInvalidConfig, c.DropoutRate)
	case c.MaxSeqLen <= 0:
		return fmt.Errorf("%w: maximum sequence length must be positive, got %d", ErrInvalidConfig, c.MaxSeqLen)
	case c.LayerNormEps < 0:
		return fmt.Errorf("%w: layer norm epsilon must be >= 0, got %v", ErrInvalidConfig, c.LayerNormEps)
	}

	if c.PadID < 0 || int(c.PadID) >= c.SourceVocabSize || int(c.PadID) >= c.TargetVocabSize {
		return fmt.Errorf("%w: padding id %d outside a vocabulary", ErrInvalidConfig, c.PadID)
	}
	special := []struct {
		name string
		id   int32
	}{{"start", c.StartID}, {"end", c.EndID}, {"unknown", c.UnknownID}}
	for _, s := range special {
		if s.id < 0 || int(s.id) >= c.TargetVocabSize {
			return fmt.Errorf("%w: %s id %d outside target vocabulary [0, %d)", ErrInvalidConfig, s.name, s.id, c.TargetVocabSize)
		}
	}
	return nil
}
