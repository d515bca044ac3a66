package serialization

import (
	"encoding/json"
	"fmt"
)

// Format constants.
const (
	HeaderSizeBytes = 8              // Length prefix of the JSON header
	MetadataKey     = "__metadata__" // Reserved header key for string metadata
	ChecksumKey     = "sha256"       // Metadata key holding the data section checksum
	DTypeF32        = "F32"          // The only dtype this package handles
	float32Size     = 4
)

// TensorInfo describes one tensor in the header.
type TensorInfo struct {
	DType       string   `json:"dtype"`
	Shape       []int    `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"` // [start, end) relative to the data section
}

// Size returns the byte length of the tensor data.
func (i TensorInfo) Size() int64 {
	return i.DataOffsets[1] - i.DataOffsets[0]
}

// Header is the decoded JSON header.
type Header struct {
	Metadata map[string]string
	Tensors  map[string]TensorInfo
}

// MarshalJSON flattens the header into the SafeTensors layout.
func (h Header) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(h.Tensors)+1)
	if len(h.Metadata) > 0 {
		flat[MetadataKey] = h.Metadata
	}
	for name, info := range h.Tensors {
		flat[name] = info
	}
	return json.Marshal(flat)
}

// UnmarshalJSON splits the SafeTensors layout into metadata and tensors.
func (h *Header) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	h.Metadata = nil
	h.Tensors = make(map[string]TensorInfo, len(raw))
	for key, value := range raw {
		if key == MetadataKey {
			if err := json.Unmarshal(value, &h.Metadata); err != nil {
				return fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(value, &info); err != nil {
			return fmt.Errorf("failed to unmarshal tensor %s: %w", key, err)
		}
		h.Tensors[key] = info
	}
	return nil
}
