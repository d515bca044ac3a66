package nn

import (
	"fmt"

	"github.com/born-ml/lingua/internal/tensor"
)

// Attention masks are BoolTensors where true means "may attend". They are
// key-side: a mask never hides a query row, only the keys it may look at.

// PaddingMask builds a key padding mask from a 0/1 validity indicator.
//
// Input shape: [batch, seq] (1 = real token, 0 = padding)
// Output shape: [batch, 1, 1, seq]
func PaddingMask(valid *tensor.IntTensor) *tensor.BoolTensor {
	shape := require2D("PaddingMask", valid.Shape())
	return valid.NotEqual(0).Reshape(shape[0], 1, 1, shape[1])
}

// PaddingMaskFromIDs builds a key padding mask by comparing ids against padID.
//
// Input shape: [batch, seq]
// Output shape: [batch, 1, 1, seq]
func PaddingMaskFromIDs(ids *tensor.IntTensor, padID int32) *tensor.BoolTensor {
	shape := require2D("PaddingMaskFromIDs", ids.Shape())
	return ids.NotEqual(padID).Reshape(shape[0], 1, 1, shape[1])
}

// CausalMask builds a lower-triangular mask: query i may attend keys j <= i.
//
// Output shape: [1, 1, size, size]
func CausalMask(size int) *tensor.BoolTensor {
	m := tensor.FullBool(false, 1, 1, size, size)
	data := m.Data()
	for i := 0; i < size; i++ {
		for j := 0; j <= i; j++ {
			data[i*size+j] = true
		}
	}
	return m
}

// TargetMask combines a key padding mask with the causal mask.
//
// Input shape: [batch, 1, 1, seq]
// Output shape: [batch, 1, seq, seq]
func TargetMask(padding *tensor.BoolTensor) *tensor.BoolTensor {
	shape := padding.Shape()
	if len(shape) != 4 || shape[1] != 1 || shape[2] != 1 {
		panic(fmt.Sprintf("TargetMask: expected padding mask [batch, 1, 1, seq], got %v", shape))
	}
	return padding.And(CausalMask(shape[3]))
}

func require2D(op string, shape tensor.Shape) tensor.Shape {
	if len(shape) != 2 {
		panic(fmt.Sprintf("%s: expected [batch, seq], got %v", op, shape))
	}
	return shape
}
