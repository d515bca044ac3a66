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
	"path/filepath"
	"sort"

	"github.com/born-ml/lingua/internal/tensor"
)

// Save writes a state dict to path in SafeTensors format.
//
// Tensors are written in name order. The file is written to a temporary
// sibling and renamed into place, so a failed save never leaves a truncated
// snapshot at path. metadata is copied; the checksum key is set by Save.
func Save(path string, state map[string]*tensor.Tensor, metadata map[string]string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName) // no-op after a successful rename
	}()

	if err := Write(tmp, state, metadata); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}
	return nil
}

// Write encodes a state dict as SafeTensors to w.
func Write(w io.Writer, state map[string]*tensor.Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(state))
	for name := range state {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		Metadata: make(map[string]string, len(metadata)+1),
		Tensors:  make(map[string]TensorInfo, len(names)),
	}
	for k, v := range metadata {
		header.Metadata[k] = v
	}

	var offset int64
	for _, name := range names {
		t := state[name]
		size := int64(t.NumElements() * float32Size)
		header.Tensors[name] = TensorInfo{
			DType:       DTypeF32,
			Shape:       append([]int(nil), t.Shape()...),
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	data := make([]byte, offset)
	pos := 0
	for _, name := range names {
		for _, v := range state[name].Data() {
			binary.LittleEndian.PutUint32(data[pos:], math.Float32bits(v))
			pos += float32Size
		}
	}
	sum := sha256.Sum256(data)
	header.Metadata[ChecksumKey] = hex.EncodeToString(sum[:])

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := bw.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return bw.Flush()
}
