// Package serialization stores model parameter snapshots in SafeTensors format.
//
// SafeTensors is the HuggingFace tensor container:
//
//	Format Structure:
//	  [8 bytes: Header Size (uint64 LE)]
//	  [Header: JSON, tensor name -> {dtype, shape, data_offsets}, plus __metadata__]
//	  [Tensor data: raw little-endian bytes, tensors in name order]
//
// Only F32 tensors are written or accepted. The writer records a SHA-256
// checksum of the data section under the metadata key "sha256"; the reader
// verifies it when present.
//
// Example usage:
//
//	// Save a model
//	meta := map[string]string{"tying": string(model.TyingMode())}
//	if err := serialization.Save("model.safetensors", model.StateDict(), meta); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load a model
//	state, meta, err := serialization.Load("model.safetensors")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := model.LoadStateDict(state); err != nil {
//	    log.Fatal(err)
//	}
package serialization
