package seq2seq

import (
	"fmt"

	"github.com/born-ml/lingua/internal/nn"
)

// tableRef names one of the three weight tables a tying plan wires.
type tableRef int

const (
	ownTable tableRef = iota // the layer gets its own parameter
	sourceTable
	targetTable
)

// tyingPlan is a TyingMode resolved into concrete wiring: which table each
// layer reads, and whether the output projection owns a bias.
type tyingPlan struct {
	mode       TyingMode
	sourceFrom tableRef // sourceTable or targetTable
	outputFrom tableRef // ownTable, sourceTable or targetTable
}

// planFor resolves mode once. The Transformer never branches on the mode again.
func planFor(mode TyingMode) (tyingPlan, error) {
	switch mode {
	case TieNone, "":
		return tyingPlan{mode: TieNone, sourceFrom: sourceTable, outputFrom: ownTable}, nil
	case TieAll:
		return tyingPlan{mode: mode, sourceFrom: targetTable, outputFrom: targetTable}, nil
	case TieSourceTarget:
		return tyingPlan{mode: mode, sourceFrom: targetTable, outputFrom: ownTable}, nil
	case TieTargetOutput:
		return tyingPlan{mode: mode, sourceFrom: sourceTable, outputFrom: targetTable}, nil
	case TieSourceOutput:
		return tyingPlan{mode: mode, sourceFrom: sourceTable, outputFrom: sourceTable}, nil
	default:
		return tyingPlan{}, fmt.Errorf("%w: %q", ErrUnknownTyingMode, mode)
	}
}

// outputBias reports whether the output projection carries a bias. A weight
// shared with an embedding table has no bias.
func (p tyingPlan) outputBias() bool {
	return p.outputFrom == ownTable
}

// checkVocab rejects plans that would share one table between vocabularies
// of different sizes.
func (p tyingPlan) checkVocab(srcVocab, tgtVocab int) error {
	shared := p.sourceFrom == targetTable || p.outputFrom == sourceTable
	if shared && srcVocab != tgtVocab {
		return fmt.Errorf("%w: mode %s with source=%d target=%d", ErrVocabMismatch, p.mode, srcVocab, tgtVocab)
	}
	return nil
}

// wiring is the set of layers built from a plan.
type wiring struct {
	sourceEmbed *nn.Embedding
	targetEmbed *nn.Embedding
	output      *nn.Linear
}

// build allocates the tables the plan needs and wires them.
//
// The target embedding is always built first so a fixed seed yields the same
// target table in every mode.
func (p tyingPlan) build(env *nn.Env, cfg Config) wiring {
	var w wiring
	w.targetEmbed = nn.NewEmbedding(env, "target_embedding", cfg.TargetVocabSize, cfg.ModelDim, cfg.PadID)

	switch p.sourceFrom {
	case targetTable:
		w.sourceEmbed = nn.NewEmbeddingWithWeight(w.targetEmbed.Weight, cfg.PadID)
	default:
		w.sourceEmbed = nn.NewEmbedding(env, "source_embedding", cfg.SourceVocabSize, cfg.ModelDim, cfg.PadID)
	}

	switch p.outputFrom {
	case targetTable:
		w.output = nn.NewLinearWithWeight(w.targetEmbed.Weight, nil)
	case sourceTable:
		w.output = nn.NewLinearWithWeight(w.sourceEmbed.Weight, nil)
	default:
		w.output = nn.NewLinear(env, "output_projection", cfg.ModelDim, cfg.TargetVocabSize, p.outputBias())
	}
	return w
}
