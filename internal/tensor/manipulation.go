package tensor

import "fmt"

// resolveShape fills in a single -1 dimension so the element count is preserved.
func resolveShape(numElements int, shape []int) Shape {
	s := Shape(shape).Clone()
	infer := -1
	known := 1
	for i, d := range s {
		switch {
		case d == -1:
			if infer >= 0 {
				panic(fmt.Sprintf("tensor.Reshape: more than one -1 in %v", shape))
			}
			infer = i
		case d < 0:
			panic(fmt.Sprintf("tensor.Reshape: invalid dimension %d in %v", d, shape))
		default:
			known *= d
		}
	}
	if infer >= 0 {
		if known == 0 || numElements%known != 0 {
			panic(fmt.Sprintf("tensor.Reshape: cannot infer -1 for %d elements into %v", numElements, shape))
		}
		s[infer] = numElements / known
	}
	if s.NumElements() != numElements {
		panic(fmt.Sprintf("tensor.Reshape: cannot reshape %d elements into %v", numElements, shape))
	}
	return s
}

// Reshape returns a view with a new shape sharing t's storage.
// One dimension may be -1 and is then inferred.
func (t *Tensor) Reshape(shape ...int) *Tensor {
	return &Tensor{shape: resolveShape(len(t.data), shape), data: t.data}
}

// Transpose permutes the dimensions of t.
//
// With no arguments the last two dimensions are swapped. Otherwise axes must
// be a permutation of [0, rank).
func (t *Tensor) Transpose(axes ...int) *Tensor {
	rank := len(t.shape)
	if len(axes) == 0 {
		if rank < 2 {
			panic(fmt.Sprintf("tensor.Transpose: need rank >= 2, got shape %v", t.shape))
		}
		axes = make([]int, rank)
		for i := range axes {
			axes[i] = i
		}
		axes[rank-1], axes[rank-2] = axes[rank-2], axes[rank-1]
	}
	if len(axes) != rank {
		panic(fmt.Sprintf("tensor.Transpose: axes %v do not match rank %d", axes, rank))
	}

	seen := make([]bool, rank)
	outShape := make(Shape, rank)
	for i, a := range axes {
		if a < 0 || a >= rank || seen[a] {
			panic(fmt.Sprintf("tensor.Transpose: invalid permutation %v", axes))
		}
		seen[a] = true
		outShape[i] = t.shape[a]
	}

	// Walk the output in order, reading the source through permuted strides.
	srcStrides := t.shape.ComputeStrides()
	permuted := make([]int, rank)
	for i, a := range axes {
		permuted[i] = srcStrides[a]
	}
	out := &Tensor{shape: outShape, data: make([]float32, len(t.data))}
	forEachBroadcast(outShape, permuted, make([]int, rank), func(o, si, _ int) {
		out.data[o] = t.data[si]
	})
	return out
}

// SliceDim returns the elements with index in [start, end) along dim.
func (t *Tensor) SliceDim(dim, start, end int) *Tensor {
	dim = normalizeDim(dim, len(t.shape))
	if start < 0 || end > t.shape[dim] || start > end {
		panic(fmt.Sprintf("tensor.SliceDim: range [%d, %d) invalid for dimension %d of %v", start, end, dim, t.shape))
	}

	outer := 1
	for _, d := range t.shape[:dim] {
		outer *= d
	}
	inner := 1
	for _, d := range t.shape[dim+1:] {
		inner *= d
	}

	outShape := t.shape.Clone()
	outShape[dim] = end - start
	out := &Tensor{shape: outShape, data: make([]float32, outShape.NumElements())}
	width := (end - start) * inner
	for o := 0; o < outer; o++ {
		src := t.data[(o*t.shape[dim]+start)*inner:]
		copy(out.data[o*width:(o+1)*width], src[:width])
	}
	return out
}
