package tensor

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/born-ml/lingua/internal/parallel"
)

// gemm computes c = a @ op(b) for row-major blocks.
// a is (m, k); b is (k, n), or (n, k) when transB is set; c is (m, n).
func gemm(a, b, c []float32, m, k, n int, transB bool) {
	if m == 0 || n == 0 {
		return
	}
	if k == 0 {
		for i := range c[:m*n] {
			c[i] = 0
		}
		return
	}

	tB := blas.NoTrans
	bRows, bCols := k, n
	if transB {
		tB = blas.Trans
		bRows, bCols = n, k
	}
	blas32.Gemm(blas.NoTrans, tB, 1,
		blas32.General{Rows: m, Cols: k, Stride: k, Data: a[:m*k]},
		blas32.General{Rows: bRows, Cols: bCols, Stride: bCols, Data: b[:k*n]},
		0,
		blas32.General{Rows: m, Cols: n, Stride: n, Data: c[:m*n]},
	)
}

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (t *Tensor) MatMul(other *Tensor) *Tensor {
	if len(t.shape) != 2 || len(other.shape) != 2 || t.shape[1] != other.shape[0] {
		panic(fmt.Sprintf("tensor.MatMul: incompatible shapes %v @ %v", t.shape, other.shape))
	}
	m, k, n := t.shape[0], t.shape[1], other.shape[1]
	out := Zeros(m, n)
	gemm(t.data, other.data, out.data, m, k, n, false)
	return out
}

// MatMulTransposed computes t @ other^T: (M, K) @ (N, K)^T -> (M, N).
// This is the layout of Linear weights (out_features, in_features).
func (t *Tensor) MatMulTransposed(other *Tensor) *Tensor {
	if len(t.shape) != 2 || len(other.shape) != 2 || t.shape[1] != other.shape[1] {
		panic(fmt.Sprintf("tensor.MatMulTransposed: incompatible shapes %v @ %v^T", t.shape, other.shape))
	}
	m, k, n := t.shape[0], t.shape[1], other.shape[0]
	out := Zeros(m, n)
	gemm(t.data, other.data, out.data, m, k, n, true)
	return out
}

// BatchMatMul multiplies matching matrices in two batches.
//
// Shapes: (..., M, K) @ (..., K, N) -> (..., M, N), with identical leading
// dimensions. Independent matrices are multiplied concurrently.
func (t *Tensor) BatchMatMul(other *Tensor) *Tensor {
	return batchMatMul(t, other, false)
}

// BatchMatMulTransposed computes t @ other^T per matrix:
// (..., M, K) @ (..., N, K)^T -> (..., M, N).
func (t *Tensor) BatchMatMulTransposed(other *Tensor) *Tensor {
	return batchMatMul(t, other, true)
}

func batchMatMul(a, b *Tensor, transB bool) *Tensor {
	ra, rb := len(a.shape), len(b.shape)
	if ra < 2 || ra != rb || !a.shape[:ra-2].Equal(b.shape[:rb-2]) {
		panic(fmt.Sprintf("tensor.BatchMatMul: incompatible batch shapes %v and %v", a.shape, b.shape))
	}

	m, k := a.shape[ra-2], a.shape[ra-1]
	var n int
	if transB {
		if b.shape[rb-1] != k {
			panic(fmt.Sprintf("tensor.BatchMatMul: inner dims differ %v @ %v^T", a.shape, b.shape))
		}
		n = b.shape[rb-2]
	} else {
		if b.shape[rb-2] != k {
			panic(fmt.Sprintf("tensor.BatchMatMul: inner dims differ %v @ %v", a.shape, b.shape))
		}
		n = b.shape[rb-1]
	}

	outShape := a.shape[:ra-2].Clone()
	outShape = append(outShape, m, n)
	out := &Tensor{shape: outShape, data: make([]float32, outShape.NumElements())}

	batch := a.shape[:ra-2].NumElements()
	parallel.For(batch, func(i int) {
		gemm(a.data[i*m*k:], b.data[i*k*n:], out.data[i*m*n:], m, k, n, transB)
	}, parallel.MatrixConfig())
	return out
}
