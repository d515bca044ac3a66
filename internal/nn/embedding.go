package nn

import (
	"fmt"
	"math"

	"github.com/born-ml/lingua/internal/tensor"
)

// Embedding is a lookup table that maps token ids to dense vectors.
//
// Architecture:
//   - Weight: [NumEmbed, EmbedDim] learnable parameter
//   - Forward: ids [batch, seq] -> embeddings [batch, seq, EmbedDim] * sqrt(EmbedDim)
//
// The row of PaddingIdx is initialized to zero and a lookup of PaddingIdx
// always yields the zero vector, whatever the stored row holds.
//
// Example:
//
//	embed := nn.NewEmbedding(env, "source_embedding", 10000, 256, 0)
//	x := embed.Forward(ids) // [2, 5] -> [2, 5, 256]
type Embedding struct {
	Weight     *Parameter // Embedding weight matrix [NumEmbed, EmbedDim]
	NumEmbed   int        // Number of embeddings (vocabulary size)
	EmbedDim   int        // Embedding dimension (vector size)
	PaddingIdx int32      // Id whose embedding is the zero vector
	scale      float32
}

// NewEmbedding creates a new Embedding layer.
//
// Weights are drawn from N(0, EmbedDim^-1), so that after the sqrt(EmbedDim)
// scale the embeddings have unit variance.
//
// Parameters:
//   - env: Source of randomness for initialization
//   - name: Parameter name prefix ("<name>.weight")
//   - numEmbeddings: Size of the vocabulary
//   - embeddingDim: Dimension of each embedding vector
//   - paddingIdx: Id of the padding token
func NewEmbedding(env *Env, name string, numEmbeddings, embeddingDim int, paddingIdx int32) *Embedding {
	if numEmbeddings <= 0 || embeddingDim <= 0 {
		panic(fmt.Sprintf("Embedding: sizes must be positive, got vocab=%d dim=%d", numEmbeddings, embeddingDim))
	}
	if paddingIdx < 0 || int(paddingIdx) >= numEmbeddings {
		panic(fmt.Sprintf("Embedding: padding index %d out of range [0, %d)", paddingIdx, numEmbeddings))
	}

	std := float32(1 / math.Sqrt(float64(embeddingDim)))
	weight := Normal(env, std, numEmbeddings, embeddingDim)
	row := weight.Data()[int(paddingIdx)*embeddingDim : (int(paddingIdx)+1)*embeddingDim]
	for i := range row {
		row[i] = 0
	}

	return NewEmbeddingWithWeight(NewParameter(name+".weight", weight), paddingIdx)
}

// NewEmbeddingWithWeight creates an Embedding layer around an existing weight.
//
// The parameter is shared, not copied: two embeddings built from the same
// parameter alias one table.
func NewEmbeddingWithWeight(weight *Parameter, paddingIdx int32) *Embedding {
	shape := weight.Tensor().Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("embedding weight must be 2D, got shape %v", shape))
	}
	if paddingIdx < 0 || int(paddingIdx) >= shape[0] {
		panic(fmt.Sprintf("Embedding: padding index %d out of range [0, %d)", paddingIdx, shape[0]))
	}

	return &Embedding{
		Weight:     weight,
		NumEmbed:   shape[0],
		EmbedDim:   shape[1],
		PaddingIdx: paddingIdx,
		scale:      float32(math.Sqrt(float64(shape[1]))),
	}
}

// Forward performs the scaled embedding lookup.
//
// Parameters:
//   - ids: Token ids of any shape [...]
//
// Returns embeddings [..., EmbedDim].
//
// Panics if any id is out of bounds [0, NumEmbed).
func (e *Embedding) Forward(ids *tensor.IntTensor) *tensor.Tensor {
	outShape := ids.Shape().Clone()
	outShape = append(outShape, e.EmbedDim)
	out := tensor.Zeros(outShape...)

	table := e.Weight.Tensor().Data()
	dst := out.Data()
	d := e.EmbedDim
	for i, id := range ids.Data() {
		if id < 0 || int(id) >= e.NumEmbed {
			panic(fmt.Sprintf("Embedding.Forward: id %d out of range [0, %d)", id, e.NumEmbed))
		}
		if id == e.PaddingIdx {
			continue
		}
		row := table[int(id)*d : (int(id)+1)*d]
		for j, v := range row {
			dst[i*d+j] = v * e.scale
		}
	}
	return out
}

// Parameters returns the list of trainable parameters.
func (e *Embedding) Parameters() []*Parameter {
	return []*Parameter{e.Weight}
}
