package tensor

import (
	"fmt"
	"math"

	"github.com/born-ml/lingua/internal/parallel"
)

// binaryOp applies f element-wise with NumPy broadcasting.
func binaryOp(name string, a, b *Tensor, f func(x, y float32) float32) *Tensor {
	if a.shape.Equal(b.shape) {
		out := &Tensor{shape: a.shape.Clone(), data: make([]float32, len(a.data))}
		for i := range out.data {
			out.data[i] = f(a.data[i], b.data[i])
		}
		return out
	}

	outShape, _, err := BroadcastShapes(a.shape, b.shape)
	if err != nil {
		panic(fmt.Sprintf("tensor.%s: %v", name, err))
	}
	out := &Tensor{shape: outShape, data: make([]float32, outShape.NumElements())}
	forEachBroadcast(outShape, broadcastStrides(a.shape, outShape), broadcastStrides(b.shape, outShape),
		func(o, ai, bi int) {
			out.data[o] = f(a.data[ai], b.data[bi])
		})
	return out
}

// Add returns t + other with broadcasting.
func (t *Tensor) Add(other *Tensor) *Tensor {
	return binaryOp("Add", t, other, func(x, y float32) float32 { return x + y })
}

// Sub returns t - other with broadcasting.
func (t *Tensor) Sub(other *Tensor) *Tensor {
	return binaryOp("Sub", t, other, func(x, y float32) float32 { return x - y })
}

// Mul returns the element-wise product t * other with broadcasting.
func (t *Tensor) Mul(other *Tensor) *Tensor {
	return binaryOp("Mul", t, other, func(x, y float32) float32 { return x * y })
}

// Div returns t / other with broadcasting.
func (t *Tensor) Div(other *Tensor) *Tensor {
	return binaryOp("Div", t, other, func(x, y float32) float32 { return x / y })
}

func (t *Tensor) mapValues(f func(float32) float32) *Tensor {
	out := &Tensor{shape: t.shape.Clone(), data: make([]float32, len(t.data))}
	for i, v := range t.data {
		out.data[i] = f(v)
	}
	return out
}

// AddScalar returns t + s.
func (t *Tensor) AddScalar(s float32) *Tensor {
	return t.mapValues(func(v float32) float32 { return v + s })
}

// MulScalar returns t * s.
func (t *Tensor) MulScalar(s float32) *Tensor {
	return t.mapValues(func(v float32) float32 { return v * s })
}

// ReLU returns max(0, t).
func (t *Tensor) ReLU() *Tensor {
	return t.mapValues(func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}

// Rsqrt returns 1/sqrt(t).
func (t *Tensor) Rsqrt() *Tensor {
	return t.mapValues(func(v float32) float32 {
		return float32(1 / math.Sqrt(float64(v)))
	})
}

// MeanDim averages over the last dimension.
// With keepDim the reduced dimension is kept with size 1.
func (t *Tensor) MeanDim(keepDim bool) *Tensor {
	if len(t.shape) == 0 {
		panic("tensor.MeanDim: scalar has no dimension to reduce")
	}
	n := t.shape.Last()
	rows := 0
	if n > 0 {
		rows = len(t.data) / n
	}

	outShape := t.shape[:len(t.shape)-1].Clone()
	if keepDim {
		outShape = append(outShape, 1)
	}
	out := &Tensor{shape: outShape, data: make([]float32, outShape.NumElements())}
	for r := 0; r < rows; r++ {
		var sum float32
		for _, v := range t.data[r*n : (r+1)*n] {
			sum += v
		}
		out.data[r] = sum / float32(n)
	}
	return out
}

// Softmax normalizes the last dimension into a probability distribution.
//
// A row whose entries are all -Inf has no defined distribution and comes out
// as NaN. Callers that mask must leave at least one entry per row unmasked.
func (t *Tensor) Softmax() *Tensor {
	if len(t.shape) == 0 {
		panic("tensor.Softmax: scalar input")
	}
	n := t.shape.Last()
	out := &Tensor{shape: t.shape.Clone(), data: make([]float32, len(t.data))}
	if n == 0 {
		return out
	}
	rows := len(t.data) / n

	parallel.For(rows, func(r int) {
		src := t.data[r*n : (r+1)*n]
		dst := out.data[r*n : (r+1)*n]

		maxVal := float32(math.Inf(-1))
		for _, v := range src {
			if v > maxVal {
				maxVal = v
			}
		}
		if math.IsInf(float64(maxVal), -1) {
			for i := range dst {
				dst[i] = float32(math.NaN())
			}
			return
		}

		var sum float64
		for i, v := range src {
			e := math.Exp(float64(v - maxVal))
			dst[i] = float32(e)
			sum += e
		}
		inv := float32(1 / sum)
		for i := range dst {
			dst[i] *= inv
		}
	}, parallel.DefaultConfig())
	return out
}

// MaskedFill returns a copy of t with value written wherever mask is true.
// The mask must broadcast to t's shape.
func (t *Tensor) MaskedFill(mask *BoolTensor, value float32) *Tensor {
	outShape, _, err := BroadcastShapes(t.shape, mask.shape)
	if err != nil || !outShape.Equal(t.shape) {
		panic(fmt.Sprintf("tensor.MaskedFill: mask %v does not broadcast to %v", mask.shape, t.shape))
	}
	out := t.Clone()
	forEachBroadcast(t.shape, t.shape.ComputeStrides(), broadcastStrides(mask.shape, t.shape),
		func(o, _, mi int) {
			if mask.data[mi] {
				out.data[o] = value
			}
		})
	return out
}

// ArgMax returns the index of the largest element along the last dimension.
// Ties resolve to the lowest index.
func (t *Tensor) ArgMax() *IntTensor {
	if len(t.shape) == 0 {
		panic("tensor.ArgMax: scalar input")
	}
	n := t.shape.Last()
	if n == 0 {
		panic("tensor.ArgMax: empty last dimension")
	}
	rows := len(t.data) / n
	out := &IntTensor{shape: t.shape[:len(t.shape)-1].Clone(), data: make([]int32, rows)}
	for r := 0; r < rows; r++ {
		row := t.data[r*n : (r+1)*n]
		best := 0
		for i := 1; i < n; i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		out.data[r] = int32(best)
	}
	return out
}
