// Package serialization provides the .wvec checkpoint format for embedding
// layer state dicts.
//
// A state dict maps table names (e.g. "lut.W", "nsl.b.moment") to row-major
// float64 tables. The format is a fixed header followed by a JSON header and
// 64-byte aligned table data:
//
//	Format Structure:
//	  0x00 [4 bytes:  Magic "WVEC"]
//	  0x04 [4 bytes:  Version (uint32 LE)]
//	  0x08 [4 bytes:  Flags (uint32 LE)]
//	  0x0C [4 bytes:  Reserved]
//	  0x10 [8 bytes:  Header size (uint64 LE)]
//	  0x18 [8 bytes:  Data size (uint64 LE)]
//	  0x20 [32 bytes: SHA-256 of the data section]
//	  0x40 [Header: JSON metadata]
//	       [Table data: float64 LE, 64-byte aligned]
//
// Tables are written in name order, so the same state dict always produces
// the same data section and checksum.
//
// Example usage:
//
//	// Save
//	err := serialization.SaveFile("model.wvec", layer.StateDict(), serialization.Header{
//	    ModelType: "context-w2v",
//	})
//
//	// Load
//	state, header, err := serialization.LoadFile("model.wvec", serialization.ReaderOptions{})
//	if err != nil {
//	    return err
//	}
//	err = layer.LoadStateDict(state)
package serialization
