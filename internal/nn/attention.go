package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/lingua/internal/tensor"
)

// ScaledDotProductAttention computes attention with the scaled dot-product mechanism.
//
//	Attention(Q, K, V) = softmax(mask(QK^T / sqrt(d_k))) * V
//
// Where:
//   - Q (query): [batch, heads, seq_q, head_dim]
//   - K (key): [batch, heads, seq_k, head_dim]
//   - V (value): [batch, heads, seq_k, head_dim]
//   - mask: optional BoolTensor broadcastable to [batch, heads, seq_q, seq_k];
//     false entries are set to -Inf before the softmax
//   - dropout: optional dropout applied to the probabilities
//
// Returns:
//   - output: Attended values [batch, heads, seq_q, head_dim]
//   - weights: Post-softmax probabilities before dropout [batch, heads, seq_q, seq_k]
//
// A query row whose keys are all masked attends to nothing: its weights are
// zero instead of NaN.
func ScaledDotProductAttention(
	query, key, value *tensor.Tensor,
	mask *tensor.BoolTensor,
	dropout *Dropout,
) (*tensor.Tensor, *tensor.Tensor) {
	validateAttentionInputs(query, key, value)

	scale := float32(1.0 / math.Sqrt(float64(query.Shape()[3])))

	scores := query.BatchMatMulTransposed(key).MulScalar(scale)
	if mask != nil {
		scores = scores.MaskedFill(mask.Not(), float32(math.Inf(-1)))
	}

	weights := scores.Softmax()
	if mask != nil {
		zeroFullyMaskedRows(scores, weights)
	}

	probs := weights
	if dropout != nil {
		probs = dropout.Forward(weights)
	}

	return probs.BatchMatMul(value), weights
}

// zeroFullyMaskedRows zeroes the weights of rows whose scores are all -Inf.
func zeroFullyMaskedRows(scores, weights *tensor.Tensor) {
	n := scores.Shape().Last()
	if n == 0 {
		return
	}
	src, dst := scores.Data(), weights.Data()
	for r := 0; r < len(src)/n; r++ {
		masked := true
		for _, v := range src[r*n : (r+1)*n] {
			if !math.IsInf(float64(v), -1) {
				masked = false
				break
			}
		}
		if !masked {
			continue
		}
		for i := r * n; i < (r+1)*n; i++ {
			dst[i] = 0
		}
	}
}

// validateAttentionInputs validates the input tensors for attention.
func validateAttentionInputs(query, key, value *tensor.Tensor) {
	if query.Rank() != 4 || key.Rank() != 4 || value.Rank() != 4 {
		panic(fmt.Sprintf("ScaledDotProductAttention: inputs must be 4D [batch, heads, seq, head_dim], got %v, %v, %v",
			query.Shape(), key.Shape(), value.Shape()))
	}
	if query.Shape()[3] != key.Shape()[3] {
		panic(fmt.Sprintf("ScaledDotProductAttention: query and key head_dim differ: %v vs %v", query.Shape(), key.Shape()))
	}
	if key.Shape()[2] != value.Shape()[2] {
		panic(fmt.Sprintf("ScaledDotProductAttention: key and value seq_len differ: %v vs %v", key.Shape(), value.Shape()))
	}
}
