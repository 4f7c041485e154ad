// Package serialization provides the native .spn format for saving and
// loading circuits.
//
// The .spn format is a fixed binary header, a JSON description of the module
// graph and the parameter tensors:
//
//	Format Structure:
//	  [0x00-0x03: Magic "SPFL"]
//	  [0x04-0x07: Version (uint32 LE)]
//	  [0x08-0x0B: Flags (uint32 LE)]
//	  [0x0C-0x0F: Reserved]
//	  [0x10-0x17: Header Size (uint64 LE)]
//	  [0x18-0x1F: Data Size (uint64 LE)]
//	  [0x20-0x3F: SHA-256 of the data section]
//	  [Header: JSON metadata]
//	  [Tensor data: float64 LE, 64-byte aligned]
//
// Modules are stored children first, so every child id refers to an earlier
// entry and shared modules are stored once. Sum weights and leaf parameters
// live in the data section; conditional leaves keep only their scope and get
// their parameter function back through SetCondFunc or operation arguments.
//
// Example usage:
//
//	// Save a circuit
//	if err := serialization.Save("model.spn", root, map[string]string{"dataset": "iris"}); err != nil {
//	    log.Fatal(err)
//	}
//
//	// Load it on any backend
//	root, header, err := serialization.Load("model.spn", cpu.New())
package serialization
