package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"

	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// ReaderOptions configures Read.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// DefaultReaderOptions returns strict validation with checksum verification.
func DefaultReaderOptions() ReaderOptions {
	return ReaderOptions{ValidationLevel: ValidationStrict}
}

// Read decodes a .spn circuit, allocating its parameters on backend.
//
// Conditional leaves come back without a parameter function; callers must
// attach one (CondNode.SetCondFunc) or pass it per call before inference.
func Read(r io.Reader, backend tensor.Backend) (module.Module, *Header, error) {
	return ReadWithOptions(r, backend, DefaultReaderOptions())
}

// ReadWithOptions is Read with custom validation options.
func ReadWithOptions(r io.Reader, backend tensor.Backend, opts ReaderOptions) (module.Module, *Header, error) {
	fixed := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixed); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read fixed header")
	}
	if string(fixed[0:4]) != MagicBytes {
		return nil, nil, ErrInvalidMagic
	}
	if version := binary.LittleEndian.Uint32(fixed[4:8]); version != FormatVersion {
		return nil, nil, errors.Wrapf(ErrUnsupportedVersion, "got %d, expected %d", version, FormatVersion)
	}
	headerSize := binary.LittleEndian.Uint64(fixed[16:24])
	dataSize := binary.LittleEndian.Uint64(fixed[24:32])
	if headerSize > MaxHeaderSize {
		return nil, nil, ErrHeaderTooLarge
	}
	var stored [ChecksumSize]byte
	copy(stored[:], fixed[ChecksumOffset:ChecksumOffset+ChecksumSize])

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read header JSON")
	}
	header := &Header{}
	if err := json.Unmarshal(headerBytes, header); err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse header JSON")
	}

	//nolint:gosec // G115: headerSize is bounded by MaxHeaderSize
	currentPos := int64(FixedHeaderSize) + int64(headerSize)
	padding := (HeaderAlignment - (currentPos % HeaderAlignment)) % HeaderAlignment
	if _, err := io.CopyN(io.Discard, r, padding); err != nil {
		return nil, nil, errors.Wrap(err, "failed to skip padding")
	}

	var data bytes.Buffer
	//nolint:gosec // G115: dataSize is checked against the stream length by CopyN
	if _, err := io.CopyN(&data, r, int64(dataSize)); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read tensor data")
	}
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data.Bytes()), stored); err != nil {
			return nil, nil, err
		}
	}

	if err := ValidateHeader(header, int64(data.Len()), opts.ValidationLevel); err != nil {
		return nil, nil, errors.WithMessage(err, "validation failed")
	}

	tensors, err := readTensors(header.Tensors, data.Bytes())
	if err != nil {
		return nil, nil, err
	}
	root, err := decodeGraph(header, tensors, backend)
	if err != nil {
		return nil, nil, errors.WithMessage(err, "failed to decode circuit")
	}
	klog.V(1).Infof("serialization: read %d modules onto %s", len(header.Modules), backend.Name())
	return root, header, nil
}

func readTensors(metas []TensorMeta, data []byte) (map[string]*tensor.RawTensor, error) {
	tensors := make(map[string]*tensor.RawTensor, len(metas))
	for _, meta := range metas {
		if meta.Offset < 0 || meta.Size < 0 || meta.Offset > int64(len(data)) || meta.Size > int64(len(data))-meta.Offset {
			return nil, errors.Errorf("tensor %q out of bounds", meta.Name)
		}
		raw := data[meta.Offset : meta.Offset+meta.Size]
		values := make([]float64, len(raw)/bytesPerElement)
		for i := range values {
			values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*bytesPerElement:]))
		}
		t, err := tensor.FromSlice(values, tensor.Shape(meta.Shape))
		if err != nil {
			return nil, errors.WithMessagef(err, "tensor %q", meta.Name)
		}
		tensors[meta.Name] = t
	}
	return tensors, nil
}

// Load reads a circuit saved with Save.
func Load(path string, backend tensor.Backend) (module.Module, *Header, error) {
	//nolint:gosec // G304: path is chosen by the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open file")
	}
	defer func() { _ = file.Close() }()
	return Read(file, backend)
}
