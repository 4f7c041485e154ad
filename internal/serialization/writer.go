package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"time"

	"github.com/born-ml/spflow/internal/module"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Write encodes the circuit rooted at m in .spn format.
//
// Shared sub-circuits are stored once and reconnected on Read.
func Write(w io.Writer, m module.Module, metadata map[string]string) error {
	enc := newEncoder()
	root, err := enc.encode(m)
	if err != nil {
		return errors.WithMessage(err, "failed to encode circuit")
	}

	header := Header{
		FormatVersion: FormatVersion,
		SPFlowVersion: spflowVersion,
		CreatedAt:     time.Now().UTC(),
		Root:          root,
		Modules:       enc.modules,
		Tensors:       make([]TensorMeta, 0, len(enc.tensors)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	// Lay out tensors back to back.
	var currentOffset int64
	for _, t := range enc.tensors {
		size := int64(len(t.values) * bytesPerElement)
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   t.name,
			Shape:  t.shape,
			Offset: currentOffset,
			Size:   size,
		})
		currentOffset += size
	}

	data := make([]byte, 0, currentOffset)
	for _, t := range enc.tensors {
		for _, v := range t.values {
			data = binary.LittleEndian.AppendUint64(data, math.Float64bits(v))
		}
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	flags := uint32(0)
	if len(metadata) > 0 {
		flags |= FlagHasMetadata
	}
	if enc.hasCond {
		flags |= FlagHasCond
	}

	// 0x00 magic, 0x04 version, 0x08 flags, 0x0C reserved,
	// 0x10 header size, 0x18 data size, 0x20 checksum.
	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], FormatVersion)
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	checksum := ComputeChecksum(data)
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	currentPos := int64(FixedHeaderSize + len(headerJSON))
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment

	var buf bytes.Buffer
	buf.Grow(int(currentPos+padding) + len(data))
	buf.Write(fixed)
	buf.Write(headerJSON)
	buf.Write(make([]byte, padding))
	buf.Write(data)
	if _, err := w.Write(buf.Bytes()); err != nil {
		return errors.Wrap(err, "failed to write circuit")
	}
	klog.V(1).Infof("serialization: wrote %d modules, %d tensors (%d bytes of data)",
		len(header.Modules), len(header.Tensors), len(data))
	return nil
}

// Save writes the circuit rooted at m to path.
func Save(path string, m module.Module, metadata map[string]string) (err error) {
	//nolint:gosec // G304: path is chosen by the caller
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = errors.Wrap(cerr, "failed to close file")
		}
	}()
	return Write(file, m, metadata)
}
