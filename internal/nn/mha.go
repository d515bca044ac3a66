package nn

import (
	"fmt"

	"github.com/born-ml/lingua/internal/tensor"
)

// MultiHeadAttention implements the multi-head attention mechanism.
//
// Architecture:
//
//	MHA(Q, K, V) = Dropout(Concat(head_1, ..., head_h) * W_O)
//	head_i = SDPA(Q*W_Q_i, K*W_K_i, V*W_V_i)
//
// The head dimension is EmbedDim / NumHeads, rounded down. The projections
// map EmbedDim to NumHeads*HeadDim and W_O maps it back to EmbedDim, so the
// layer is well formed even when NumHeads does not divide EmbedDim.
//
// Masks are key-side only: padded queries still produce (unused) outputs.
//
// Example:
//
//	mha := nn.NewMultiHeadAttention(env, "self_attn", 512, 8, 0.1)
//	output := mha.Forward(x, x, mask)       // Self-attention
//	output := mha.Forward(x, encOut, mask)  // Cross-attention
type MultiHeadAttention struct {
	WQ       *Linear // Query projection [heads*head_dim, embed_dim]
	WK       *Linear // Key projection [heads*head_dim, embed_dim]
	WV       *Linear // Value projection [heads*head_dim, embed_dim]
	WO       *Linear // Output projection [embed_dim, heads*head_dim]
	NumHeads int
	HeadDim  int
	EmbedDim int

	attnDropout *Dropout
	outDropout  *Dropout
}

// NewMultiHeadAttention creates a new multi-head attention module.
//
// Parameters:
//   - env: Source of randomness and train/eval switch
//   - name: Parameter name prefix
//   - embedDim: Model dimension
//   - numHeads: Number of attention heads (at most embedDim)
//   - dropoutRate: Dropout on attention probabilities and on the output
func NewMultiHeadAttention(env *Env, name string, embedDim, numHeads int, dropoutRate float32) *MultiHeadAttention {
	if numHeads <= 0 || embedDim < numHeads {
		panic(fmt.Sprintf("MultiHeadAttention: need 0 < num_heads (%d) <= embed_dim (%d)", numHeads, embedDim))
	}
	headDim := embedDim / numHeads
	inner := numHeads * headDim

	return &MultiHeadAttention{
		WQ:          NewLinear(env, name+".wq", embedDim, inner, true),
		WK:          NewLinear(env, name+".wk", embedDim, inner, true),
		WV:          NewLinear(env, name+".wv", embedDim, inner, true),
		WO:          NewLinear(env, name+".wo", inner, embedDim, true),
		NumHeads:    numHeads,
		HeadDim:     headDim,
		EmbedDim:    embedDim,
		attnDropout: NewDropout(env, dropoutRate),
		outDropout:  NewDropout(env, dropoutRate),
	}
}

// Forward computes multi-head attention.
//
// Args:
//   - query: [batch, seq_q, embed_dim]
//   - kv: [batch, seq_k, embed_dim], used for both keys and values
//   - mask: Optional mask broadcastable to [batch, heads, seq_q, seq_k]
//
// Returns output [batch, seq_q, embed_dim].
func (m *MultiHeadAttention) Forward(query, kv *tensor.Tensor, mask *tensor.BoolTensor) *tensor.Tensor {
	out, _ := m.ForwardWithWeights(query, kv, mask)
	return out
}

// ForwardWithWeights computes multi-head attention and returns attention weights.
//
// Returns:
//   - output: [batch, seq_q, embed_dim]
//   - weights: post-softmax, pre-dropout probabilities [batch, num_heads, seq_q, seq_k]
func (m *MultiHeadAttention) ForwardWithWeights(
	query, kv *tensor.Tensor,
	mask *tensor.BoolTensor,
) (*tensor.Tensor, *tensor.Tensor) {
	if query.Rank() != 3 || kv.Rank() != 3 || query.Dim(0) != kv.Dim(0) {
		panic(fmt.Sprintf("MultiHeadAttention: expected [batch, seq, dim] inputs with equal batch, got %v and %v",
			query.Shape(), kv.Shape()))
	}
	batch, seqQ, seqK := query.Dim(0), query.Dim(1), kv.Dim(1)

	q := m.splitHeads(m.WQ.Forward(query), batch, seqQ)
	k := m.splitHeads(m.WK.Forward(kv), batch, seqK)
	v := m.splitHeads(m.WV.Forward(kv), batch, seqK)

	attnOut, weights := ScaledDotProductAttention(q, k, v, mask, m.attnDropout)

	// [batch, heads, seq_q, head_dim] -> [batch, seq_q, heads*head_dim]
	merged := attnOut.Transpose(0, 2, 1, 3).Reshape(batch, seqQ, m.NumHeads*m.HeadDim)

	return m.outDropout.Forward(m.WO.Forward(merged)), weights
}

// splitHeads reshapes [batch, seq, heads*head_dim] to [batch, heads, seq, head_dim].
func (m *MultiHeadAttention) splitHeads(x *tensor.Tensor, batch, seq int) *tensor.Tensor {
	return x.Reshape(batch, seq, m.NumHeads, m.HeadDim).Transpose(0, 2, 1, 3)
}

// Parameters returns all trainable parameters.
func (m *MultiHeadAttention) Parameters() []*Parameter {
	params := make([]*Parameter, 0, 8)
	params = append(params, m.WQ.Parameters()...)
	params = append(params, m.WK.Parameters()...)
	params = append(params, m.WV.Parameters()...)
	params = append(params, m.WO.Parameters()...)
	return params
}
