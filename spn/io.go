// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package spn

import (
	"io"

	"github.com/born-ml/spflow/internal/serialization"
	"github.com/born-ml/spflow/tensor"
)

// FileHeader describes a stored circuit.
type FileHeader = serialization.Header

// Save writes the circuit rooted at m to path in .spn format.
// Shared sub-circuits are stored once.
//
// Example:
//
//	err := spn.Save("mixture.spn", root, map[string]string{"dataset": "iris"})
func Save(path string, m Module, metadata map[string]string) error {
	return serialization.Save(path, m, metadata)
}

// Load reads a circuit saved with Save onto backend.
//
// Conditional leaves are restored without parameter functions; supply them
// through ArgCondFunc or CondLeaf.SetCondFunc.
func Load(path string, backend tensor.Backend) (Module, *FileHeader, error) {
	return serialization.Load(path, backend)
}

// Write encodes the circuit rooted at m to w.
func Write(w io.Writer, m Module, metadata map[string]string) error {
	return serialization.Write(w, m, metadata)
}

// Read decodes a circuit written by Write.
func Read(r io.Reader, backend tensor.Backend) (Module, *FileHeader, error) {
	return serialization.Read(r, backend)
}
