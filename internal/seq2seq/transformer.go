package seq2seq

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/born-ml/lingua/internal/metrics"
	"github.com/born-ml/lingua/internal/nn"
	"github.com/born-ml/lingua/internal/tensor"
)

// ErrTokenOutOfRange is returned when an input id falls outside its vocabulary.
var ErrTokenOutOfRange = errors.New("seq2seq: token id out of vocabulary range")

// AttentionMaps holds post-softmax attention probabilities, one tensor per block.
type AttentionMaps struct {
	EncoderSelf  []*tensor.Tensor // [batch, heads, src_len, src_len]
	DecoderSelf  []*tensor.Tensor // [batch, heads, tgt_len, tgt_len]
	DecoderCross []*tensor.Tensor // [batch, heads, tgt_len, src_len]
}

// ForwardInput is one teacher-forced batch.
//
// Target holds the decoder input: the reference sequence starting with the
// start token, with its final end token removed.
type ForwardInput struct {
	Source      *tensor.IntTensor // [batch, src_len]
	SourceValid *tensor.IntTensor // [batch, src_len], 1 = token, 0 = padding
	Target      *tensor.IntTensor // [batch, tgt_len]
	TargetValid *tensor.IntTensor // [batch, tgt_len]
}

// ForwardOutput is the result of Forward.
type ForwardOutput struct {
	Logits    *tensor.Tensor // [batch, tgt_len, target_vocab], no activation
	Attention *AttentionMaps // nil unless capture was requested and enabled
}

// Transformer is an encoder-decoder Transformer.
//
// Inference calls (Forward in eval mode, Translate) only read parameters and
// may run concurrently. LoadStateDict and direct parameter writes must not
// overlap with them.
type Transformer struct {
	cfg  Config
	plan tyingPlan
	env  *nn.Env

	sourceEmbed *nn.Embedding
	targetEmbed *nn.Embedding
	sourcePE    *nn.SinusoidalPositionalEncoding
	targetPE    *nn.SinusoidalPositionalEncoding
	encoder     *nn.Encoder
	decoder     *nn.Decoder
	output      *nn.Linear

	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New builds a Transformer.
//
// The configuration, including the tying mode, is fully validated before any
// parameter is allocated.
func New(cfg Config, opts ...Option) (*Transformer, error) {
	mode, err := ParseTyingMode(string(cfg.Tying))
	if err != nil {
		return nil, err
	}
	cfg.Tying = mode
	plan, err := planFor(mode)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := plan.checkVocab(cfg.SourceVocabSize, cfg.TargetVocabSize); err != nil {
		return nil, err
	}

	t := &Transformer{
		cfg:  cfg,
		plan: plan,
		env:  nn.NewEnv(cfg.Seed),
		log:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	block := nn.BlockConfig{
		Dim:       cfg.ModelDim,
		NumHeads:  cfg.HeadCount,
		FFNHidden: cfg.FFNHiddenDim,
		Dropout:   cfg.DropoutRate,
		NormEps:   cfg.LayerNormEps,
	}
	// Stacks first: with a fixed seed they come out identical in every tying mode.
	t.encoder = nn.NewEncoder(t.env, "encoder", cfg.EncoderBlocks, block)
	t.decoder = nn.NewDecoder(t.env, "decoder", cfg.DecoderBlocks, block)

	w := plan.build(t.env, cfg)
	t.sourceEmbed, t.targetEmbed, t.output = w.sourceEmbed, w.targetEmbed, w.output

	t.sourcePE = nn.NewSinusoidalPositionalEncoding(t.env, cfg.MaxSeqLen, cfg.ModelDim, cfg.DropoutRate)
	t.targetPE = nn.NewSinusoidalPositionalEncoding(t.env, cfg.MaxSeqLen, cfg.ModelDim, cfg.DropoutRate)

	t.log.Debug().
		Str("tying", string(mode)).
		Int("parameters", t.NumParameters()).
		Int("tensors", len(t.Parameters())).
		Bool("output_bias", plan.outputBias()).
		Msg("built transformer")

	return t, nil
}

// Config returns the configuration the model was built with.
func (t *Transformer) Config() Config {
	return t.cfg
}

// TyingMode returns the resolved weight tying mode.
func (t *Transformer) TyingMode() TyingMode {
	return t.plan.mode
}

// SourceEmbedding returns the source embedding layer.
func (t *Transformer) SourceEmbedding() *nn.Embedding { return t.sourceEmbed }

// TargetEmbedding returns the target embedding layer.
func (t *Transformer) TargetEmbedding() *nn.Embedding { return t.targetEmbed }

// OutputProjection returns the final vocabulary projection.
func (t *Transformer) OutputProjection() *nn.Linear { return t.output }

// Encoder returns the encoder stack.
func (t *Transformer) Encoder() *nn.Encoder { return t.encoder }

// Decoder returns the decoder stack.
func (t *Transformer) Decoder() *nn.Decoder { return t.decoder }

// SetTraining switches dropout on or off for every layer.
func (t *Transformer) SetTraining(training bool) {
	t.env.SetTraining(training)
}

// Training reports whether dropout is active.
func (t *Transformer) Training() bool {
	return t.env.Training()
}

// Parameters returns every trainable parameter once, shared tables included once.
func (t *Transformer) Parameters() []*nn.Parameter {
	return nn.UniqueParameters(
		t.sourceEmbed.Parameters(),
		t.targetEmbed.Parameters(),
		t.encoder.Parameters(),
		t.decoder.Parameters(),
		t.output.Parameters(),
	)
}

// NumParameters returns the number of scalar parameters, shared tables counted once.
func (t *Transformer) NumParameters() int {
	n := 0
	for _, p := range t.Parameters() {
		n += p.NumElements()
	}
	return n
}

// Forward runs the teacher-forced pass and returns per-position logits.
func (t *Transformer) Forward(in ForwardInput, opts ...CallOption) (*ForwardOutput, error) {
	o := resolveCallOptions(opts)
	capture := o.capture && t.cfg.CaptureAttention

	if err := t.checkSequence("source", in.Source, in.SourceValid, t.cfg.SourceVocabSize); err != nil {
		return nil, err
	}
	if err := t.checkSequence("target", in.Target, in.TargetValid, t.cfg.TargetVocabSize); err != nil {
		return nil, err
	}
	if in.Source.Shape()[0] != in.Target.Shape()[0] {
		return nil, fmt.Errorf("%w: source batch %d != target batch %d",
			ErrShapeMismatch, in.Source.Shape()[0], in.Target.Shape()[0])
	}

	srcMask := nn.PaddingMask(in.SourceValid)
	tgtMask := nn.TargetMask(nn.PaddingMask(in.TargetValid))
	if err := checkMasks(srcMask, tgtMask, in.Source.Shape()[1], in.Target.Shape()[1]); err != nil {
		return nil, err
	}

	encOut, encMaps := t.encode(in.Source, srcMask, capture)
	decOut, selfMaps, crossMaps := t.decode(in.Target, encOut, srcMask, tgtMask, capture)

	out := &ForwardOutput{Logits: t.output.Forward(decOut)}
	if capture {
		out.Attention = &AttentionMaps{EncoderSelf: encMaps, DecoderSelf: selfMaps, DecoderCross: crossMaps}
	}
	t.metrics.RecordForward()
	return out, nil
}

// encode embeds, position-encodes and runs the encoder stack.
func (t *Transformer) encode(src *tensor.IntTensor, srcMask *tensor.BoolTensor, capture bool) (*tensor.Tensor, []*tensor.Tensor) {
	x := t.sourcePE.Forward(t.sourceEmbed.Forward(src))
	return t.encoder.Forward(x, srcMask, capture)
}

// decode embeds, position-encodes and runs the decoder stack against encOut.
func (t *Transformer) decode(
	tgt *tensor.IntTensor,
	encOut *tensor.Tensor,
	srcMask, tgtMask *tensor.BoolTensor,
	capture bool,
) (*tensor.Tensor, []*tensor.Tensor, []*tensor.Tensor) {
	x := t.targetPE.Forward(t.targetEmbed.Forward(tgt))
	return t.decoder.Forward(x, encOut, srcMask, tgtMask, capture)
}

// checkSequence validates one id batch and its validity indicator.
func (t *Transformer) checkSequence(name string, ids, valid *tensor.IntTensor, vocab int) error {
	if ids == nil || valid == nil {
		return fmt.Errorf("%w: %s ids and validity indicator are required", ErrShapeMismatch, name)
	}
	if len(ids.Shape()) != 2 {
		return fmt.Errorf("%w: %s ids must be [batch, seq], got %v", ErrShapeMismatch, name, ids.Shape())
	}
	if !ids.Shape().Equal(valid.Shape()) {
		return fmt.Errorf("%w: %s ids %v and validity %v differ", ErrShapeMismatch, name, ids.Shape(), valid.Shape())
	}
	if n := ids.Shape()[1]; n > t.cfg.MaxSeqLen {
		return fmt.Errorf("%w: %s length %d exceeds maximum %d", ErrShapeMismatch, name, n, t.cfg.MaxSeqLen)
	}
	for _, id := range ids.Data() {
		if id < 0 || int(id) >= vocab {
			return fmt.Errorf("%w: %s id %d not in [0, %d)", ErrTokenOutOfRange, name, id, vocab)
		}
	}
	return nil
}

// checkMasks enforces the mask/sequence length contract.
func checkMasks(srcMask, tgtMask *tensor.BoolTensor, srcLen, tgtLen int) error {
	if srcMask.Shape().Last() != srcLen {
		return fmt.Errorf("%w: source mask %v does not cover %d keys", ErrShapeMismatch, srcMask.Shape(), srcLen)
	}
	if tgtMask != nil {
		s := tgtMask.Shape()
		if len(s) < 2 || s[len(s)-1] != tgtLen || s[len(s)-2] != tgtLen {
			return fmt.Errorf("%w: target mask %v is not %dx%d", ErrShapeMismatch, s, tgtLen, tgtLen)
		}
	}
	return nil
}
