// Package attnexport turns captured attention maps into Apache Arrow records.
//
// Each record holds one row per (kind, layer, head, batch, query, key) cell:
//
//	kind         utf8     encoder_self | decoder_self | decoder_cross
//	layer        int32    block index
//	head         int32    attention head
//	batch        int32    row in the batch
//	query_pos    int32    query position
//	key_pos      int32    key position
//	query_token  utf8     token at query_pos
//	key_token    utf8     token at key_pos
//	weight       float32  post-softmax probability
//
// Padded query rows carry meaningless values and padded keys carry zero mass,
// so cells where either side is padding are not exported.
//
// Records are written as an Arrow IPC stream (WriteIPC) or published over
// Arrow Flight (FlightServer) for an out-of-process renderer.
package attnexport

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/born-ml/lingua/internal/seq2seq"
	"github.com/born-ml/lingua/internal/tensor"
)

// Attention kinds.
const (
	KindEncoderSelf  = "encoder_self"
	KindDecoderSelf  = "decoder_self"
	KindDecoderCross = "decoder_cross"
)

// Schema is the Arrow schema of every exported record.
var Schema = arrow.NewSchema([]arrow.Field{
	{Name: "kind", Type: arrow.BinaryTypes.String},
	{Name: "layer", Type: arrow.PrimitiveTypes.Int32},
	{Name: "head", Type: arrow.PrimitiveTypes.Int32},
	{Name: "batch", Type: arrow.PrimitiveTypes.Int32},
	{Name: "query_pos", Type: arrow.PrimitiveTypes.Int32},
	{Name: "key_pos", Type: arrow.PrimitiveTypes.Int32},
	{Name: "query_token", Type: arrow.BinaryTypes.String},
	{Name: "key_token", Type: arrow.BinaryTypes.String},
	{Name: "weight", Type: arrow.PrimitiveTypes.Float32},
}, nil)

// Capture is one set of attention maps with the tokens they attend over.
//
// Source* describe encoder positions, Target* the decoder input positions.
// Validity tensors are [batch, len] with 1 for real tokens.
type Capture struct {
	Attention    *seq2seq.AttentionMaps
	SourceTokens [][]string
	TargetTokens [][]string
	SourceValid  *tensor.IntTensor
	TargetValid  *tensor.IntTensor
}

// Row is one exported attention cell.
type Row struct {
	Kind       string
	Layer      int32
	Head       int32
	Batch      int32
	QueryPos   int32
	KeyPos     int32
	QueryToken string
	KeyToken   string
	Weight     float32
}

// side is the token labels and validity of one attention axis.
type side struct {
	tokens [][]string
	valid  *tensor.IntTensor
}

func (s side) token(b, pos int) string {
	if b < len(s.tokens) && pos < len(s.tokens[b]) {
		return s.tokens[b][pos]
	}
	return ""
}

func (s side) isValid(b, pos int) bool {
	if s.valid == nil {
		return true
	}
	return s.valid.At(b, pos) != 0
}

// BuildRecord flattens a capture into a single Arrow record.
// The caller must Release the returned record.
func BuildRecord(mem memory.Allocator, c Capture) (arrow.Record, error) {
	if c.Attention == nil {
		return nil, fmt.Errorf("attnexport: capture has no attention maps")
	}
	src := side{tokens: c.SourceTokens, valid: c.SourceValid}
	tgt := side{tokens: c.TargetTokens, valid: c.TargetValid}

	b := array.NewRecordBuilder(mem, Schema)
	defer b.Release()

	groups := []struct {
		kind       string
		maps       []*tensor.Tensor
		query, key side
	}{
		{KindEncoderSelf, c.Attention.EncoderSelf, src, src},
		{KindDecoderSelf, c.Attention.DecoderSelf, tgt, tgt},
		{KindDecoderCross, c.Attention.DecoderCross, tgt, src},
	}
	for _, g := range groups {
		for layer, m := range g.maps {
			if err := appendMap(b, g.kind, layer, m, g.query, g.key); err != nil {
				return nil, err
			}
		}
	}
	return b.NewRecord(), nil
}

// appendMap appends every valid cell of one [batch, heads, q, k] map.
func appendMap(b *array.RecordBuilder, kind string, layer int, m *tensor.Tensor, query, key side) error {
	shape := m.Shape()
	if len(shape) != 4 {
		return fmt.Errorf("attnexport: %s layer %d map must be 4D, got %v", kind, layer, shape)
	}
	for _, s := range []side{query, key} {
		if s.valid != nil && s.valid.Shape()[0] != shape[0] {
			return fmt.Errorf("attnexport: %s layer %d batch %d, validity has %d rows",
				kind, layer, shape[0], s.valid.Shape()[0])
		}
	}
	if query.valid != nil && query.valid.Shape()[1] != shape[2] {
		return fmt.Errorf("attnexport: %s layer %d has %d queries, validity covers %d",
			kind, layer, shape[2], query.valid.Shape()[1])
	}
	if key.valid != nil && key.valid.Shape()[1] != shape[3] {
		return fmt.Errorf("attnexport: %s layer %d has %d keys, validity covers %d",
			kind, layer, shape[3], key.valid.Shape()[1])
	}

	kinds := b.Field(0).(*array.StringBuilder)
	layers := b.Field(1).(*array.Int32Builder)
	heads := b.Field(2).(*array.Int32Builder)
	batches := b.Field(3).(*array.Int32Builder)
	queries := b.Field(4).(*array.Int32Builder)
	keys := b.Field(5).(*array.Int32Builder)
	queryTokens := b.Field(6).(*array.StringBuilder)
	keyTokens := b.Field(7).(*array.StringBuilder)
	weights := b.Field(8).(*array.Float32Builder)

	data := m.Data()
	nb, nh, nq, nk := shape[0], shape[1], shape[2], shape[3]
	for bi := 0; bi < nb; bi++ {
		for h := 0; h < nh; h++ {
			for q := 0; q < nq; q++ {
				if !query.isValid(bi, q) {
					continue
				}
				row := ((bi*nh+h)*nq + q) * nk
				for k := 0; k < nk; k++ {
					if !key.isValid(bi, k) {
						continue
					}
					kinds.Append(kind)
					layers.Append(int32(layer))
					heads.Append(int32(h))
					batches.Append(int32(bi))
					queries.Append(int32(q))
					keys.Append(int32(k))
					queryTokens.Append(query.token(bi, q))
					keyTokens.Append(key.token(bi, k))
					weights.Append(data[row+k])
				}
			}
		}
	}
	return nil
}

// Rows decodes a record built with Schema back into Go values.
func Rows(rec arrow.Record) ([]Row, error) {
	if !rec.Schema().Equal(Schema) {
		return nil, fmt.Errorf("attnexport: unexpected schema %s", rec.Schema())
	}
	kinds := rec.Column(0).(*array.String)
	layers := rec.Column(1).(*array.Int32)
	heads := rec.Column(2).(*array.Int32)
	batches := rec.Column(3).(*array.Int32)
	queries := rec.Column(4).(*array.Int32)
	keys := rec.Column(5).(*array.Int32)
	queryTokens := rec.Column(6).(*array.String)
	keyTokens := rec.Column(7).(*array.String)
	weights := rec.Column(8).(*array.Float32)

	rows := make([]Row, rec.NumRows())
	for i := range rows {
		rows[i] = Row{
			Kind:       kinds.Value(i),
			Layer:      layers.Value(i),
			Head:       heads.Value(i),
			Batch:      batches.Value(i),
			QueryPos:   queries.Value(i),
			KeyPos:     keys.Value(i),
			QueryToken: queryTokens.Value(i),
			KeyToken:   keyTokens.Value(i),
			Weight:     weights.Value(i),
		}
	}
	return rows, nil
}
