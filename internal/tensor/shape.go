package tensor

import "fmt"

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate checks if the shape is valid (all dimensions >= 0).
//
// Zero-sized dimensions are allowed: an empty batch or an empty generated
// buffer are legitimate states.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// Last returns the size of the innermost dimension (1 for scalars).
func (s Shape) Last() int {
	if len(s) == 0 {
		return 1
	}
	return s[len(s)-1]
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// BroadcastShapes implements NumPy-style broadcasting rules.
//
// Rules:
// 1. Compare shapes element-wise from right to left
// 2. Dimensions are compatible if:
//   - They are equal, OR
//   - One of them is 1
//
// 3. Missing dimensions are treated as 1
//
// Returns the broadcasted shape, a flag indicating if broadcasting is needed, and an error if incompatible.
//
// Examples:
//
//	(3, 1) + (3, 5) → (3, 5), true, nil
//	(1, 5) + (3, 5) → (3, 5), true, nil
//	(3, 5) + (3, 5) → (3, 5), false, nil
//	(3, 4) + (3, 5) → nil, false, Error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	maxLen := max(len(a), len(b))
	result := make(Shape, maxLen)
	needsBroadcast := len(a) != len(b)

	for i := 0; i < maxLen; i++ {
		aIdx := len(a) - 1 - i
		bIdx := len(b) - 1 - i

		aDim := 1
		if aIdx >= 0 {
			aDim = a[aIdx]
		}

		bDim := 1
		if bIdx >= 0 {
			bDim = b[bIdx]
		}

		switch {
		case aDim == bDim:
			result[maxLen-1-i] = aDim
		case aDim == 1:
			result[maxLen-1-i] = bDim
			needsBroadcast = true
		case bDim == 1:
			result[maxLen-1-i] = aDim
			needsBroadcast = true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, maxLen-1-i, aDim, bDim)
		}
	}

	return result, needsBroadcast, nil
}

// broadcastStrides returns strides that walk src as if it had shape out.
// Broadcast dimensions get stride 0 so the same element is revisited.
func broadcastStrides(src, out Shape) []int {
	strides := make([]int, len(out))
	srcStrides := src.ComputeStrides()
	offset := len(out) - len(src)
	for i := range out {
		j := i - offset
		if j < 0 || src[j] == 1 {
			continue
		}
		strides[i] = srcStrides[j]
	}
	return strides
}

// forEachBroadcast visits every element of out together with the matching
// flat offsets into two broadcast operands.
func forEachBroadcast(out Shape, aStrides, bStrides []int, f func(o, ai, bi int)) {
	n := out.NumElements()
	if n == 0 {
		return
	}
	idx := make([]int, len(out))
	ai, bi := 0, 0
	for o := 0; o < n; o++ {
		f(o, ai, bi)
		for d := len(out) - 1; d >= 0; d-- {
			idx[d]++
			ai += aStrides[d]
			bi += bStrides[d]
			if idx[d] < out[d] {
				break
			}
			ai -= aStrides[d] * out[d]
			bi -= bStrides[d] * out[d]
			idx[d] = 0
		}
	}
}

// normalizeDim maps a negative dimension index onto [0, rank).
func normalizeDim(dim, rank int) int {
	if dim < 0 {
		dim += rank
	}
	if dim < 0 || dim >= rank {
		panic(fmt.Sprintf("tensor: dimension %d out of range for rank %d", dim, rank))
	}
	return dim
}
