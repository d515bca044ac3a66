package attnexport

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/born-ml/lingua/internal/seq2seq"
	"github.com/born-ml/lingua/internal/tensor"
)

// testCapture has batch 1, 2 heads, 3 source positions (last padded) and
// 2 target positions, with one block in each stack.
func testCapture() Capture {
	enc := tensor.Zeros(1, 2, 3, 3)
	dec := tensor.Zeros(1, 2, 2, 2)
	cross := tensor.Zeros(1, 2, 2, 3)
	for i := range cross.Data() {
		cross.Data()[i] = float32(i)
	}
	return Capture{
		Attention: &seq2seq.AttentionMaps{
			EncoderSelf:  []*tensor.Tensor{enc},
			DecoderSelf:  []*tensor.Tensor{dec},
			DecoderCross: []*tensor.Tensor{cross},
		},
		SourceTokens: [][]string{{"guten", "tag", "<pad>"}},
		TargetTokens: [][]string{{"<s>", "good"}},
		SourceValid:  tensor.MustFromInts([]int32{1, 1, 0}, 1, 3),
		TargetValid:  tensor.MustFromInts([]int32{1, 1}, 1, 2),
	}
}

func TestBuildRecordSkipsPadding(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := BuildRecord(mem, testCapture())
	require.NoError(t, err)
	defer rec.Release()

	// encoder 2 heads * 2 valid queries * 2 valid keys = 8
	// decoder self 2 * 2 * 2 = 8, cross 2 * 2 * 2 = 8
	assert.Equal(t, int64(24), rec.NumRows())

	rows, err := Rows(rec)
	require.NoError(t, err)
	counts := map[string]int{}
	for _, r := range rows {
		counts[r.Kind]++
		assert.NotEqual(t, "<pad>", r.KeyToken)
		assert.NotEqual(t, "<pad>", r.QueryToken)
	}
	assert.Equal(t, map[string]int{KindEncoderSelf: 8, KindDecoderSelf: 8, KindDecoderCross: 8}, counts)

	// cross[0, 1, 1, 0] = ((0*2+1)*2+1)*3 + 0 = 9
	var found bool
	for _, r := range rows {
		if r.Kind == KindDecoderCross && r.Head == 1 && r.QueryPos == 1 && r.KeyPos == 0 {
			assert.Equal(t, float32(9), r.Weight)
			assert.Equal(t, "good", r.QueryToken)
			assert.Equal(t, "guten", r.KeyToken)
			found = true
		}
	}
	assert.True(t, found)
}

func TestBuildRecordErrors(t *testing.T) {
	mem := memory.NewGoAllocator()
	_, err := BuildRecord(mem, Capture{})
	assert.Error(t, err)

	c := testCapture()
	c.TargetValid = tensor.MustFromInts([]int32{1, 1, 1}, 1, 3)
	_, err = BuildRecord(mem, c)
	assert.ErrorContains(t, err, "queries")
}

func TestIPCRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	var buf bytes.Buffer
	require.NoError(t, WriteIPC(&buf, mem, testCapture()))

	rows, err := ReadIPC(&buf, mem)
	require.NoError(t, err)
	assert.Len(t, rows, 24)
	assert.Equal(t, KindEncoderSelf, rows[0].Kind)
}

func TestFlightServer(t *testing.T) {
	srv, err := NewFlightServer("127.0.0.1:0", zerolog.Nop())
	require.NoError(t, err)
	go func() {
		_ = srv.Serve()
	}()
	defer srv.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	addr := srv.Addr().String()

	_, err = FetchLatest(ctx, addr, memory.NewGoAllocator())
	require.Error(t, err)
	assert.Equal(t, codes.NotFound, status.Code(unwrapAll(err)))

	require.NoError(t, srv.Publish(testCapture()))
	rows, err := FetchLatest(ctx, addr, memory.NewGoAllocator())
	require.NoError(t, err)
	assert.Len(t, rows, 24)

	// A newer capture replaces the old one.
	c := testCapture()
	c.Attention.EncoderSelf = nil
	require.NoError(t, srv.Publish(c))
	rows, err = FetchLatest(ctx, addr, memory.NewGoAllocator())
	require.NoError(t, err)
	assert.Len(t, rows, 16)
}

// unwrapAll returns the innermost wrapped error.
func unwrapAll(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok || u.Unwrap() == nil {
			return err
		}
		err = u.Unwrap()
	}
}
