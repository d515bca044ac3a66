package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/lingua/internal/tensor"
)

func testState() map[string]*tensor.Tensor {
	return map[string]*tensor.Tensor{
		"encoder.blocks.0.norm1.gamma": tensor.MustFromSlice([]float32{1, 1, 1}, 3),
		"output_projection.weight":     tensor.MustFromSlice([]float32{1, 2, 3, 4, 5, 6}, 2, 3),
		"target_embedding.weight":      tensor.MustFromSlice([]float32{0, 0, -1.5, 2.25}, 2, 2),
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	state := testState()

	require.NoError(t, Save(path, state, map[string]string{"tying": "tie-all"}))

	loaded, meta, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tie-all", meta["tying"])
	assert.Len(t, meta[ChecksumKey], 64)
	require.Len(t, loaded, len(state))
	for name, want := range state {
		got := loaded[name]
		require.NotNil(t, got, name)
		assert.Equal(t, want.Shape(), got.Shape(), name)
		assert.Equal(t, want.Data(), got.Data(), name)
	}

	// No temporary files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriteLayout(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testState(), nil))

	raw := buf.Bytes()
	headerSize := binary.LittleEndian.Uint64(raw[:8])
	var header Header
	require.NoError(t, json.Unmarshal(raw[8:8+headerSize], &header))

	// Name order: encoder..., output..., target...
	assert.Equal(t, [2]int64{0, 12}, header.Tensors["encoder.blocks.0.norm1.gamma"].DataOffsets)
	assert.Equal(t, [2]int64{12, 36}, header.Tensors["output_projection.weight"].DataOffsets)
	assert.Equal(t, [2]int64{36, 52}, header.Tensors["target_embedding.weight"].DataOffsets)
	assert.Equal(t, DTypeF32, header.Tensors["target_embedding.weight"].DType)
	assert.Equal(t, int(8+headerSize+52), len(raw))
}

func TestReadRejectsCorruptData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, testState(), nil))
	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF

	_, _, err := Read(bytes.NewReader(raw), int64(len(raw)))
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

// encode builds a file from a hand-written header and data section.
func encode(t *testing.T, header map[string]any, data []byte) []byte {
	t.Helper()
	h, err := json.Marshal(header)
	require.NoError(t, err)
	out := binary.LittleEndian.AppendUint64(nil, uint64(len(h)))
	out = append(out, h...)
	return append(out, data...)
}

func TestReadValidation(t *testing.T) {
	tests := []struct {
		name   string
		header map[string]any
		data   int
		err    error
	}{
		{
			name:   "float16",
			header: map[string]any{"w": TensorInfo{DType: "F16", Shape: []int{2}, DataOffsets: [2]int64{0, 4}}},
			data:   4,
			err:    ErrUnsupportedDType,
		},
		{
			name:   "beyond data",
			header: map[string]any{"w": TensorInfo{DType: DTypeF32, Shape: []int{4}, DataOffsets: [2]int64{0, 16}}},
			data:   8,
			err:    ErrOutOfBounds,
		},
		{
			name:   "shape disagrees with offsets",
			header: map[string]any{"w": TensorInfo{DType: DTypeF32, Shape: []int{3}, DataOffsets: [2]int64{0, 8}}},
			data:   8,
			err:    ErrOutOfBounds,
		},
		{
			name: "overlap",
			header: map[string]any{
				"a": TensorInfo{DType: DTypeF32, Shape: []int{2}, DataOffsets: [2]int64{0, 8}},
				"b": TensorInfo{DType: DTypeF32, Shape: []int{2}, DataOffsets: [2]int64{4, 12}},
			},
			data: 12,
			err:  ErrOutOfBounds,
		},
		{
			name:   "path name",
			header: map[string]any{"../w": TensorInfo{DType: DTypeF32, Shape: []int{1}, DataOffsets: [2]int64{0, 4}}},
			data:   4,
			err:    ErrInvalidTensorName,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := encode(t, tt.header, make([]byte, tt.data))
			_, _, err := Read(bytes.NewReader(raw), int64(len(raw)))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestReadWithoutChecksum(t *testing.T) {
	data := binary.LittleEndian.AppendUint32(nil, 0x3f800000) // 1.0
	raw := encode(t, map[string]any{
		"w": TensorInfo{DType: DTypeF32, Shape: []int{1}, DataOffsets: [2]int64{0, 4}},
	}, data)

	state, meta, err := Read(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	assert.Empty(t, meta)
	assert.Equal(t, []float32{1}, state["w"].Data())
}

func TestReadHeaderTooLarge(t *testing.T) {
	raw := binary.LittleEndian.AppendUint64(nil, 1<<40)
	_, _, err := Read(bytes.NewReader(raw), int64(len(raw)))
	assert.ErrorIs(t, err, ErrHeaderTooLarge)
}

func TestValidateTensorName(t *testing.T) {
	assert.NoError(t, ValidateTensorName("decoder.blocks.3.cross_attn.wo.bias"))
	for _, name := range []string{"", MetadataKey, "a/b", `a\b`, "a..b", "a\x00"} {
		assert.ErrorIs(t, ValidateTensorName(name), ErrInvalidTensorName, name)
	}
}

func TestSaveRejectsBadName(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.safetensors")
	err := Save(path, map[string]*tensor.Tensor{"a/b": tensor.Zeros(1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidTensorName)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
