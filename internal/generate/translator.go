// Package generate runs batched greedy translation on top of a seq2seq model
// and a tokenizer.
package generate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/born-ml/lingua/internal/attnexport"
	"github.com/born-ml/lingua/internal/logger"
	"github.com/born-ml/lingua/internal/metrics"
	"github.com/born-ml/lingua/internal/seq2seq"
	"github.com/born-ml/lingua/internal/serialization"
	"github.com/born-ml/lingua/internal/tensor"
	"github.com/born-ml/lingua/internal/tokenizer"
)

// ErrTokenizerMismatch is returned when the tokenizer cannot feed the model.
var ErrTokenizerMismatch = errors.New("generate: tokenizer does not match model")

// Translation statuses recorded in metrics.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusCanceled = "canceled"
)

// Publisher receives the attention capture of each translated batch.
// attnexport.FlightServer implements it.
type Publisher interface {
	Publish(c attnexport.Capture) error
}

// Result is the outcome of Translator.Translate.
type Result struct {
	Texts        []string             // Decoded translation per input, specials dropped
	Tokens       [][]int32            // Generated ids per input, padded after the end token
	Steps        int                  // Longest decode over all batches
	EarlyStopped bool                 // Every batch stopped before the step limit
	Captures     []attnexport.Capture // One per batch, when attention was requested
}

// Translator turns texts into translations with a shared model.
//
// Translate calls may run concurrently; Reload waits for them and blocks new
// ones while parameters are replaced.
type Translator struct {
	mu    sync.RWMutex
	model *seq2seq.Transformer
	tok   tokenizer.Tokenizer

	maxLen    int
	batchSize int
	publisher Publisher
	log       zerolog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Translator.
type Option func(*Translator)

// WithMaxLength sets the default number of generated tokens per input.
func WithMaxLength(n int) Option {
	return func(tr *Translator) {
		tr.maxLen = n
	}
}

// WithBatchSize caps the number of texts decoded together. 0 decodes all at once.
func WithBatchSize(n int) Option {
	return func(tr *Translator) {
		tr.batchSize = n
	}
}

// WithPublisher sends every capture to p.
func WithPublisher(p Publisher) Option {
	return func(tr *Translator) {
		tr.publisher = p
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(tr *Translator) {
		tr.log = logger.Component(l, "translator")
	}
}

// WithMetrics sets the Prometheus collectors.
func WithMetrics(m *metrics.Metrics) Option {
	return func(tr *Translator) {
		tr.metrics = m
	}
}

// NewTranslator wraps a model and a tokenizer. The model is switched to
// evaluation mode.
//
// The tokenizer must fit inside both model vocabularies and agree with the
// model on the padding and end tokens.
func NewTranslator(model *seq2seq.Transformer, tok tokenizer.Tokenizer, opts ...Option) (*Translator, error) {
	cfg := model.Config()
	switch {
	case tok.VocabSize() > cfg.SourceVocabSize || tok.VocabSize() > cfg.TargetVocabSize:
		return nil, fmt.Errorf("%w: tokenizer has %d tokens, model vocabularies are %d and %d",
			ErrTokenizerMismatch, tok.VocabSize(), cfg.SourceVocabSize, cfg.TargetVocabSize)
	case tok.PadToken() != cfg.PadID:
		return nil, fmt.Errorf("%w: padding token %d, model expects %d", ErrTokenizerMismatch, tok.PadToken(), cfg.PadID)
	case tok.EosToken() >= 0 && tok.EosToken() != cfg.EndID:
		return nil, fmt.Errorf("%w: end token %d, model expects %d", ErrTokenizerMismatch, tok.EosToken(), cfg.EndID)
	}

	tr := &Translator{
		model:  model,
		tok:    tok,
		maxLen: cfg.MaxSeqLen,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	if tr.maxLen < 0 || tr.maxLen > cfg.MaxSeqLen {
		return nil, fmt.Errorf("generate: max length %d not in [0, %d]", tr.maxLen, cfg.MaxSeqLen)
	}
	model.SetTraining(false)
	return tr, nil
}

// Model returns the wrapped model.
func (tr *Translator) Model() *seq2seq.Transformer {
	return tr.model
}

// TranslateOption configures one Translate call.
type TranslateOption func(*translateOptions)

type translateOptions struct {
	maxLen    int
	attention bool
}

// MaxLength overrides the number of generated tokens for one call.
func MaxLength(n int) TranslateOption {
	return func(o *translateOptions) {
		o.maxLen = n
	}
}

// Attention requests attention captures. The model must have been built with
// capture enabled.
func Attention() TranslateOption {
	return func(o *translateOptions) {
		o.attention = true
	}
}

// Translate translates texts in batches.
//
// ctx is checked before each batch; a batch in progress always completes.
//
// Example:
//
//	res, err := tr.Translate(ctx, []string{"guten morgen"})
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Texts[0])
func (tr *Translator) Translate(ctx context.Context, texts []string, opts ...TranslateOption) (*Result, error) {
	o := translateOptions{maxLen: tr.maxLen}
	for _, opt := range opts {
		opt(&o)
	}

	tr.mu.RLock()
	defer tr.mu.RUnlock()

	res := &Result{
		Texts:        make([]string, 0, len(texts)),
		Tokens:       make([][]int32, 0, len(texts)),
		EarlyStopped: len(texts) > 0,
	}
	size := tr.batchSize
	if size <= 0 {
		size = max(len(texts), 1)
	}

	for lo := 0; lo < len(texts); lo += size {
		if err := ctx.Err(); err != nil {
			tr.metrics.RecordTranslation(StatusCanceled, 0)
			return nil, fmt.Errorf("generate: translate: %w", err)
		}
		hi := min(lo+size, len(texts))
		if err := tr.translateBatch(texts[lo:hi], o, res); err != nil {
			tr.metrics.RecordTranslation(StatusError, 0)
			return nil, err
		}
	}
	return res, nil
}

func (tr *Translator) translateBatch(texts []string, o translateOptions, res *Result) error {
	cfg := tr.model.Config()
	start := time.Now()

	src, valid, err := tokenizer.EncodeBatch(tr.tok, texts, cfg.MaxSeqLen)
	if err != nil {
		return fmt.Errorf("generate: tokenize: %w", err)
	}

	var callOpts []seq2seq.CallOption
	if o.attention {
		callOpts = append(callOpts, seq2seq.WithCapture())
	}
	gen, err := tr.model.Translate(src, valid, o.maxLen, callOpts...)
	if err != nil {
		return fmt.Errorf("generate: translate: %w", err)
	}

	decoded, err := tokenizer.DecodeBatch(tr.tok, tr.decodable(gen.Tokens))
	if err != nil {
		return fmt.Errorf("generate: detokenize: %w", err)
	}
	res.Texts = append(res.Texts, decoded...)
	res.Tokens = append(res.Tokens, gen.Tokens.Rows()...)
	res.Steps = max(res.Steps, gen.Steps)
	res.EarlyStopped = res.EarlyStopped && gen.EarlyStopped

	srcLen := 0
	if len(texts) > 0 {
		srcLen = src.Shape()[1]
	}
	for range texts {
		tr.metrics.RecordTranslation(StatusOK, srcLen)
	}

	if gen.Attention != nil {
		c := tr.capture(src, valid, gen)
		res.Captures = append(res.Captures, c)
		if tr.publisher != nil {
			if err := tr.publisher.Publish(c); err != nil {
				tr.log.Warn().Err(err).Msg("publish attention capture")
			}
		}
	}

	tr.log.Info().
		Int("texts", len(texts)).
		Int("source_len", srcLen).
		Int("steps", gen.Steps).
		Bool("early_stop", gen.EarlyStopped).
		Dur("elapsed", time.Since(start)).
		Msg("translated batch")
	return nil
}

// decodable replaces ids the tokenizer cannot decode, such as a model-only
// start token, with padding.
func (tr *Translator) decodable(ids *tensor.IntTensor) *tensor.IntTensor {
	out := ids.Clone()
	vocab := int32(tr.tok.VocabSize())
	pad := tr.model.Config().PadID
	data := out.Data()
	for i, id := range data {
		if id < 0 || id >= vocab {
			data[i] = pad
		}
	}
	return out
}

// capture labels the attention maps of the final decode step.
//
// The decoder saw the start token followed by every generated token except
// the last one.
func (tr *Translator) capture(src, srcValid *tensor.IntTensor, gen *seq2seq.Generation) attnexport.Capture {
	cfg := tr.model.Config()
	batch := src.Shape()[0]
	width := gen.Steps

	tgtValid := tensor.FullInt(0, batch, width)
	c := attnexport.Capture{
		Attention:    gen.Attention,
		SourceTokens: make([][]string, batch),
		TargetTokens: make([][]string, batch),
		SourceValid:  srcValid,
		TargetValid:  tgtValid,
	}
	for b := 0; b < batch; b++ {
		c.SourceTokens[b] = tr.labels(src.Row(b))

		ids := append([]int32{cfg.StartID}, gen.Tokens.Row(b)[:width-1]...)
		c.TargetTokens[b] = tr.labels(ids)
		for j, id := range ids {
			if j == 0 || id != cfg.PadID {
				tgtValid.Set(1, b, j)
			}
		}
	}
	return c
}

func (tr *Translator) labels(ids []int32) []string {
	out := tokenizer.Tokens(tr.tok, ids)
	for i, s := range out {
		if s == "" {
			out[i] = fmt.Sprintf("<%d>", ids[i])
		}
	}
	return out
}

// Reload replaces the model parameters with a SafeTensors snapshot.
// Nothing changes when the snapshot does not match the model.
func (tr *Translator) Reload(path string) error {
	state, meta, err := serialization.Load(path)
	if err != nil {
		tr.metrics.RecordSnapshotLoad(err)
		return fmt.Errorf("generate: reload: %w", err)
	}

	tr.mu.Lock()
	err = tr.model.LoadStateDict(state)
	tr.mu.Unlock()

	tr.metrics.RecordSnapshotLoad(err)
	if err != nil {
		return fmt.Errorf("generate: reload %s: %w", path, err)
	}
	tr.log.Info().Str("path", path).Int("tensors", len(state)).Str("tying", meta["tying"]).Msg("reloaded snapshot")
	return nil
}

// Snapshot writes the current parameters to path.
func (tr *Translator) Snapshot(path string) error {
	tr.mu.RLock()
	defer tr.mu.RUnlock()

	meta := map[string]string{"tying": string(tr.model.TyingMode())}
	if err := serialization.Save(path, tr.model.StateDict(), meta); err != nil {
		return fmt.Errorf("generate: snapshot: %w", err)
	}
	return nil
}
