package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for resource protection.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidateTensorName rejects empty names, oversized names, path-like names and
// the reserved metadata key.
func ValidateTensorName(name string) error {
	switch {
	case name == "" || name == MetadataKey:
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "empty or reserved"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Kind:    ErrInvalidTensorName,
			Tensor:  name[:32] + "...",
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, "/\\\x00"):
		return &ValidationError{Kind: ErrInvalidTensorName, Tensor: name, Details: "contains a path separator or null byte"}
	}
	return nil
}

// ValidateHeader checks names, dtypes, shapes and data offsets against the
// size of the data section. Tensors must tile the data section without
// overlap.
func ValidateHeader(h *Header, dataSize int64) error {
	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Kind:    ErrTooManyTensors,
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	names := make([]string, 0, len(h.Tensors))
	for name, info := range h.Tensors {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		if info.DType != DTypeF32 {
			return &ValidationError{Kind: ErrUnsupportedDType, Tensor: name, Details: info.DType}
		}
		elems := int64(1)
		for _, d := range info.Shape {
			if d < 0 {
				return &ValidationError{Kind: ErrOutOfBounds, Tensor: name, Details: fmt.Sprintf("negative dimension in %v", info.Shape)}
			}
			elems *= int64(d)
		}
		start, end := info.DataOffsets[0], info.DataOffsets[1]
		if start < 0 || end < start || end > dataSize {
			return &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  name,
				Details: fmt.Sprintf("offsets [%d, %d) outside data section of %d bytes", start, end, dataSize),
			}
		}
		if info.Size() != elems*float32Size {
			return &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  name,
				Details: fmt.Sprintf("shape %v needs %d bytes, offsets give %d", info.Shape, elems*float32Size, info.Size()),
			}
		}
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		return h.Tensors[names[i]].DataOffsets[0] < h.Tensors[names[j]].DataOffsets[0]
	})
	for i := 0; i+1 < len(names); i++ {
		cur, next := h.Tensors[names[i]], h.Tensors[names[i+1]]
		if cur.DataOffsets[1] > next.DataOffsets[0] {
			return &ValidationError{
				Kind:    ErrOutOfBounds,
				Tensor:  names[i],
				Tensor2: names[i+1],
				Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
					cur.DataOffsets[0], cur.DataOffsets[1], next.DataOffsets[0], next.DataOffsets[1]),
			}
		}
	}
	return nil
}
