// Package tokenizer converts between text and the token ids the translation
// model consumes.
//
// Implementations:
//   - WordLevel: whitespace-split vocabulary lookup with unknown-token fallback,
//     loaded from a vocabulary file or a HuggingFace tokenizer.json
//   - TikToken: OpenAI BPE encodings (cl100k_base, p50k_base) via tiktoken-go
//
// EncodeBatch and DecodeBatch bridge tokenizers and the model's padded
// (batch, seq) id tensors.
//
// Example usage:
//
//	tok, err := tokenizer.LoadVocabFile("vocab.txt", tokenizer.DefaultSpecialNames())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ids, valid, err := tokenizer.EncodeBatch(tok, []string{"hello world", "good morning"}, 64)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	texts, err := tokenizer.DecodeBatch(tok, ids)
package tokenizer
