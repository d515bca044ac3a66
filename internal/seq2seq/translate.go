package seq2seq

import (
	"fmt"
	"time"

	"github.com/born-ml/lingua/internal/nn"
	"github.com/born-ml/lingua/internal/tensor"
)

// Generation is the result of Translate.
type Generation struct {
	// Tokens holds the generated ids, [batch, steps], start token removed.
	// Every position after a row's first end token is PadID.
	Tokens *tensor.IntTensor

	// Steps is the number of decoding steps actually run.
	Steps int

	// EarlyStopped is true when every row produced an end token before maxLen.
	EarlyStopped bool

	// Attention holds the maps of the final decoding step, when captured.
	Attention *AttentionMaps
}

// Translate greedily decodes up to maxLen tokens per source row.
//
// The source is encoded once. Each step feeds the whole generated prefix to
// the decoder, takes the most probable token at the last position and
// appends it to every row. Rows that emitted EndID keep receiving tokens
// until the whole batch is finished; those tokens are replaced by PadID in
// the result.
//
// Parameters:
//   - src: source ids [batch, src_len]
//   - srcValid: 1 for real tokens, 0 for padding [batch, src_len]
//   - maxLen: maximum number of generated tokens, at most Config.MaxSeqLen
//
// Example:
//
//	gen, err := model.Translate(src, valid, 64)
//	if err != nil {
//	    return err
//	}
//	for _, row := range gen.Tokens.Rows() {
//	    fmt.Println(tok.Decode(row))
//	}
func (t *Transformer) Translate(src, srcValid *tensor.IntTensor, maxLen int, opts ...CallOption) (*Generation, error) {
	o := resolveCallOptions(opts)
	capture := o.capture && t.cfg.CaptureAttention

	if err := t.checkSequence("source", src, srcValid, t.cfg.SourceVocabSize); err != nil {
		return nil, err
	}
	if maxLen < 0 || maxLen > t.cfg.MaxSeqLen {
		return nil, fmt.Errorf("%w: max length %d not in [0, %d]", ErrShapeMismatch, maxLen, t.cfg.MaxSeqLen)
	}

	start := time.Now()
	batch := src.Shape()[0]
	if batch == 0 || maxLen == 0 {
		return &Generation{Tokens: tensor.FullInt(t.cfg.PadID, batch, 0)}, nil
	}

	srcMask := nn.PaddingMask(srcValid)
	encOut, encMaps := t.encode(src, srcMask, capture)

	buf := tensor.FullInt(t.cfg.StartID, batch, 1)
	done := make([]bool, batch)
	gen := &Generation{}

	for step := 0; step < maxLen; step++ {
		tgtMask := nn.TargetMask(nn.PaddingMaskFromIDs(buf, t.cfg.PadID))
		hidden, selfMaps, crossMaps := t.decode(buf, encOut, srcMask, tgtMask, capture)

		width := hidden.Shape()[1]
		last := hidden.SliceDim(1, width-1, width).Reshape(batch, t.cfg.ModelDim)
		logits := t.output.Forward(last)
		if logits.HasNonFinite() {
			t.metrics.RecordNonFinite()
			t.log.Warn().Int("step", step).Msg("non-finite logits during decoding")
		}
		next := logits.Softmax().ArgMax().Data()

		buf = buf.AppendColumn(next)
		gen.Steps++

		finished := true
		for i, id := range next {
			if id == t.cfg.EndID {
				done[i] = true
			}
			finished = finished && done[i]
		}

		if capture {
			gen.Attention = &AttentionMaps{EncoderSelf: encMaps, DecoderSelf: selfMaps, DecoderCross: crossMaps}
		}
		if finished {
			gen.EarlyStopped = gen.Steps < maxLen
			break
		}
	}

	gen.Tokens = buf.DropFirstColumn()
	generated := padAfterEnd(gen.Tokens, t.cfg.EndID, t.cfg.PadID)

	t.metrics.RecordDecode(gen.Steps, generated, gen.EarlyStopped, time.Since(start))
	t.log.Debug().
		Int("batch", batch).
		Int("steps", gen.Steps).
		Bool("early_stop", gen.EarlyStopped).
		Dur("elapsed", time.Since(start)).
		Msg("translated batch")

	return gen, nil
}

// padAfterEnd overwrites every token after the first endID of each row with
// padID, in place. Rows without endID are left untouched. It returns the
// number of tokens kept, end tokens included.
func padAfterEnd(tokens *tensor.IntTensor, endID, padID int32) int {
	kept := 0
	width := tokens.Shape()[1]
	data := tokens.Data()
	for r := 0; r < tokens.Shape()[0]; r++ {
		row := data[r*width : (r+1)*width]
		ended := false
		for i := range row {
			if ended {
				row[i] = padID
				continue
			}
			kept++
			if row[i] == endID {
				ended = true
			}
		}
	}
	return kept
}
