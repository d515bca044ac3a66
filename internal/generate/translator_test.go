package generate

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/attnexport"
	"github.com/born-ml/lingua/internal/metrics"
	"github.com/born-ml/lingua/internal/seq2seq"
	"github.com/born-ml/lingua/internal/tensor"
	"github.com/born-ml/lingua/internal/tokenizer"
)

const (
	idEnd   = 1
	idHello = 5
	idStart = 8 // model-only, the tokenizer cannot decode it
)

func testTokenizer(t *testing.T) *tokenizer.WordLevel {
	t.Helper()
	tok, err := tokenizer.NewWordLevel(
		[]string{"<pad>", "</s>", "<unk>", "hallo", "welt", "hello", "world", "<s>"},
		tokenizer.DefaultSpecialNames(), true)
	require.NoError(t, err)
	return tok
}

func testModel(t *testing.T, capture bool) *seq2seq.Transformer {
	t.Helper()
	cfg := seq2seq.DefaultConfig(9)
	cfg.ModelDim = 8
	cfg.HeadCount = 2
	cfg.EncoderBlocks = 1
	cfg.DecoderBlocks = 1
	cfg.FFNHiddenDim = 16
	cfg.MaxSeqLen = 32
	cfg.CaptureAttention = capture
	cfg.Seed = 7
	m, err := seq2seq.New(cfg)
	require.NoError(t, err)
	return m
}

// forceToken makes every decode step emit id.
func forceToken(m *seq2seq.Transformer, id int) {
	w := m.OutputProjection().Weight().Tensor()
	w.CopyFrom(tensor.Zeros(w.Shape()...))
	b := m.OutputProjection().Bias().Tensor()
	b.CopyFrom(tensor.Zeros(b.Shape()...))
	b.Set(10, id)
}

type recordingPublisher struct {
	mu       sync.Mutex
	captures []attnexport.Capture
}

func (p *recordingPublisher) Publish(c attnexport.Capture) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captures = append(p.captures, c)
	return nil
}

func TestNewTranslatorMismatch(t *testing.T) {
	tok := testTokenizer(t)

	cfg := seq2seq.DefaultConfig(5)
	cfg.ModelDim = 8
	cfg.HeadCount = 2
	cfg.FFNHiddenDim = 8
	cfg.EncoderBlocks, cfg.DecoderBlocks = 1, 1
	small, err := seq2seq.New(cfg)
	require.NoError(t, err)

	_, err = NewTranslator(small, tok)
	assert.ErrorIs(t, err, ErrTokenizerMismatch)

	_, err = NewTranslator(testModel(t, false), tok, WithMaxLength(33))
	assert.Error(t, err)
}

func TestTranslate(t *testing.T) {
	m := testModel(t, false)
	forceToken(m, idHello)
	m.SetTraining(true)

	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(3))
	require.NoError(t, err)
	assert.False(t, m.Training(), "translator switches the model to eval mode")

	res, err := tr.Translate(context.Background(), []string{"Hallo Welt", "welt"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello hello hello", "hello hello hello"}, res.Texts)
	assert.Equal(t, [][]int32{{5, 5, 5}, {5, 5, 5}}, res.Tokens)
	assert.Equal(t, 3, res.Steps)
	assert.False(t, res.EarlyStopped)
	assert.Empty(t, res.Captures)

	res, err = tr.Translate(context.Background(), []string{"hallo"}, MaxLength(1))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Steps)
}

func TestTranslateEarlyStop(t *testing.T) {
	m := testModel(t, false)
	forceToken(m, idEnd)

	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(5))
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), []string{"hallo welt"})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Texts)
	assert.Equal(t, 1, res.Steps)
	assert.True(t, res.EarlyStopped)
}

func TestTranslateStartTokenIsNotDecoded(t *testing.T) {
	m := testModel(t, false)
	forceToken(m, idStart)

	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(2))
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), []string{"hallo"})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, res.Texts)
	assert.Equal(t, [][]int32{{idStart, idStart}}, res.Tokens)
}

func TestTranslateBatchesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := testModel(t, true)
	forceToken(m, idHello)
	pub := &recordingPublisher{}

	tr, err := NewTranslator(m, testTokenizer(t),
		WithMaxLength(2), WithBatchSize(2), WithMetrics(mt), WithPublisher(pub))
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), []string{"hallo", "welt", "hallo welt"}, Attention())
	require.NoError(t, err)
	assert.Len(t, res.Texts, 3)
	require.Len(t, res.Captures, 2)
	assert.Len(t, pub.captures, 2)
	assert.Equal(t, 3.0, testutil.ToFloat64(mt.Translations.WithLabelValues(StatusOK)))

	// Second batch holds only "hallo welt": hallo welt </s>.
	c := res.Captures[1]
	assert.Equal(t, [][]string{{"hallo", "welt", "</s>"}}, c.SourceTokens)
	assert.Equal(t, [][]string{{"<8>", "hello"}}, c.TargetTokens)
	assert.Equal(t, [][]int32{{1, 1}}, c.TargetValid.Rows())

	rows, err := attnexport.Rows(mustRecord(t, c))
	require.NoError(t, err)
	assert.NotEmpty(t, rows)
}

func mustRecord(t *testing.T, c attnexport.Capture) arrow.Record {
	t.Helper()
	rec, err := attnexport.BuildRecord(memory.NewGoAllocator(), c)
	require.NoError(t, err)
	t.Cleanup(rec.Release)
	return rec
}

func TestTranslateCapturesOnlyWhenEnabled(t *testing.T) {
	m := testModel(t, false)
	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(2))
	require.NoError(t, err)

	res, err := tr.Translate(context.Background(), []string{"hallo"}, Attention())
	require.NoError(t, err)
	assert.Empty(t, res.Captures)
}

func TestTranslateCanceled(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	tr, err := NewTranslator(testModel(t, false), testTokenizer(t), WithMetrics(mt))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = tr.Translate(ctx, []string{"hallo"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.Translations.WithLabelValues(StatusCanceled)))
}

func TestReload(t *testing.T) {
	reg := prometheus.NewRegistry()
	mt := metrics.New(reg)
	m := testModel(t, false)
	forceToken(m, idHello)

	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(2), WithMetrics(mt))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, tr.Snapshot(path))

	forceToken(m, idEnd)
	require.NoError(t, tr.Reload(path))

	res, err := tr.Translate(context.Background(), []string{"hallo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello hello"}, res.Texts)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.SnapshotLoads.WithLabelValues("ok")))

	err = tr.Reload(filepath.Join(t.TempDir(), "missing.safetensors"))
	assert.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(mt.SnapshotLoads.WithLabelValues("error")))
}

func TestReloadRejectsOtherShapes(t *testing.T) {
	other := testModel(t, false)
	cfg := other.Config()
	cfg.ModelDim = 16
	bigger, err := seq2seq.New(cfg)
	require.NoError(t, err)
	biggerTr, err := NewTranslator(bigger, testTokenizer(t))
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "bigger.safetensors")
	require.NoError(t, biggerTr.Snapshot(path))

	m := testModel(t, false)
	forceToken(m, idHello)
	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(1))
	require.NoError(t, err)

	err = tr.Reload(path)
	assert.ErrorIs(t, err, seq2seq.ErrSnapshotShape)

	res, err := tr.Translate(context.Background(), []string{"hallo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, res.Texts, "failed reload leaves parameters untouched")
}

func TestConcurrentTranslateAndReload(t *testing.T) {
	m := testModel(t, false)
	forceToken(m, idHello)
	tr, err := NewTranslator(m, testTokenizer(t), WithMaxLength(2))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.safetensors")
	require.NoError(t, tr.Snapshot(path))

	var wg sync.WaitGroup
	errs := make(chan error, 9)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := tr.Translate(context.Background(), []string{"hallo welt"})
			if err == nil && res.Texts[0] != "hello hello" {
				err = assert.AnError
			}
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- tr.Reload(path)
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
}
