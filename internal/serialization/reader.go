package serialization

import (
	"bufio"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/born-ml/lingua/internal/tensor"
)

// Load reads a SafeTensors snapshot from path.
//
// It returns the tensors keyed by name and the string metadata. Non-F32
// tensors, malformed offsets and checksum mismatches are errors.
func Load(path string) (map[string]*tensor.Tensor, map[string]string, error) {
	//nolint:gosec // G304: snapshot path comes from configuration
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}
	return Read(bufio.NewReader(f), info.Size())
}

// Read decodes a SafeTensors stream of size bytes.
func Read(r io.Reader, size int64) (map[string]*tensor.Tensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize || int64(headerSize) > size-HeaderSizeBytes {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}

	dataSize := size - HeaderSizeBytes - int64(headerSize)
	if err := ValidateHeader(&header, dataSize); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	data := make([]byte, dataSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if want, ok := header.Metadata[ChecksumKey]; ok {
		sum := sha256.Sum256(data)
		if hex.EncodeToString(sum[:]) != want {
			return nil, nil, ErrChecksumMismatch
		}
	}

	state := make(map[string]*tensor.Tensor, len(header.Tensors))
	for name, ti := range header.Tensors {
		raw := data[ti.DataOffsets[0]:ti.DataOffsets[1]]
		values := make([]float32, len(raw)/float32Size)
		for i := range values {
			values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*float32Size:]))
		}
		t, err := tensor.FromSlice(values, ti.Shape...)
		if err != nil {
			return nil, nil, fmt.Errorf("tensor %s: %w", name, err)
		}
		state[name] = t
	}
	return state, header.Metadata, nil
}
