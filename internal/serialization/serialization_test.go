package serialization_test

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/born-ml/spflow/internal/backend/cpu"
	"github.com/born-ml/spflow/internal/dispatch"
	"github.com/born-ml/spflow/internal/layer"
	"github.com/born-ml/spflow/internal/leaf"
	"github.com/born-ml/spflow/internal/module"
	"github.com/born-ml/spflow/internal/node"
	"github.com/born-ml/spflow/internal/serialization"
	"github.com/born-ml/spflow/internal/tensor"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var data = tensor.MustFromRows([][]float64{{0.5, 1.6}, {math.NaN(), -0.3}, {2, 0}})

func gaussian(t *testing.T, v int, mean, std float64) *leaf.Node {
	t.Helper()
	n, err := leaf.NewNode(cpu.New(), leaf.Gaussian{}, v, leaf.Params{"mean": mean, "std": std})
	require.NoError(t, err)
	return n
}

// mixture shares its x1 leaf between both components.
func mixture(t *testing.T) *node.SumNode {
	t.Helper()
	shared := gaussian(t, 1, 1, 0.5)
	p1, err := node.NewProductNode([]module.Module{gaussian(t, 0, -1, 1), shared})
	require.NoError(t, err)
	p2, err := node.NewProductNode([]module.Module{gaussian(t, 0, 2, 2), shared})
	require.NoError(t, err)
	s, err := node.NewSumNode([]module.Module{p1, p2}, []float64{0.3, 0.7})
	require.NoError(t, err)
	return s
}

func logLikelihood(t *testing.T, m module.Module) []float64 {
	t.Helper()
	ll, err := dispatch.LogLikelihood(dispatch.NewContext(), m, data, true)
	require.NoError(t, err)
	return ll.Data()
}

func encode(t *testing.T, m module.Module) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, serialization.Write(&buf, m, map[string]string{"name": "test"}))
	return buf.Bytes()
}

func TestSaveLoad(t *testing.T) {
	s := mixture(t)
	path := filepath.Join(t.TempDir(), "mixture.spn")
	require.NoError(t, serialization.Save(path, s, nil))

	loaded, header, err := serialization.Load(path, cpu.New())
	require.NoError(t, err)
	assert.Equal(t, serialization.FormatVersion, header.FormatVersion)
	assert.Equal(t, node.KindSum, loaded.Kind())
	assert.InDeltaSlice(t, logLikelihood(t, s), logLikelihood(t, loaded), 1e-12)

	// The shared leaf is stored once and reconnected.
	assert.Len(t, header.Modules, 6)
	children := loaded.Children()
	a, b := children[0].Children(), children[1].Children()
	assert.Same(t, a[1], b[1])
}

func TestWrite_Layout(t *testing.T) {
	buf := encode(t, mixture(t))
	assert.Equal(t, serialization.MagicBytes, string(buf[:4]))

	_, header, err := serialization.Read(bytes.NewReader(buf), cpu.New())
	require.NoError(t, err)
	assert.Equal(t, "test", header.Metadata["name"])
	assert.Equal(t, serialization.TypeSum, header.Modules[header.Root].Type)
	for _, m := range header.Modules {
		for _, c := range m.Children {
			assert.Less(t, c, m.ID)
		}
	}
	// Three leaves with [1, 2] parameters, one sum with [1, 2] weights.
	require.Len(t, header.Tensors, 4)
	assert.Zero(t, dataStart(len(buf), header)%serialization.HeaderAlignment)
}

// dataStart locates the data section from the end of the buffer.
func dataStart(n int, h *serialization.Header) int64 {
	var size int64
	for _, t := range h.Tensors {
		size += t.Size
	}
	return int64(n) - size
}

func TestSaveLoad_Layers(t *testing.T) {
	b := cpu.New()
	leaves, err := leaf.NewLayer(b, leaf.Gaussian{}, []int{0, 0}, []leaf.Params{
		{"mean": 0, "std": 1}, {"mean": 1, "std": 2},
	})
	require.NoError(t, err)
	other, err := leaf.NewLayer(b, leaf.Exponential{}, []int{0, 0}, []leaf.Params{{"rate": 1}, {"rate": 0.5}})
	require.NoError(t, err)
	sums, err := layer.NewSumLayer(2, []module.Module{leaves, other}, [][]float64{
		{0.1, 0.2, 0.3, 0.4}, {0.25, 0.25, 0.25, 0.25},
	})
	require.NoError(t, err)
	x0, err := leaf.NewLayer(b, leaf.Gaussian{}, []int{0}, []leaf.Params{{"mean": 1, "std": 1}})
	require.NoError(t, err)
	x1, err := leaf.NewLayer(b, leaf.Gaussian{}, []int{1}, []leaf.Params{{"mean": -1, "std": 1}})
	require.NoError(t, err)
	part, err := layer.NewPartitionLayer([][]module.Module{{x0}, {x1}})
	require.NoError(t, err)
	root, err := layer.NewSumLayer(1, []module.Module{part}, [][]float64{{1}})
	require.NoError(t, err)
	positive := tensor.MustFromRows([][]float64{{0.5, 1.6}, {math.NaN(), 0.3}})

	for _, m := range []module.Module{sums, root} {
		loaded, _, err := serialization.Read(bytes.NewReader(encode(t, m)), b)
		require.NoError(t, err)
		want, err := dispatch.LogLikelihood(dispatch.NewContext(), m, positive, true)
		require.NoError(t, err)
		got, err := dispatch.LogLikelihood(dispatch.NewContext(), loaded, positive, true)
		require.NoError(t, err)
		assert.Equal(t, want.Shape(), got.Shape())
		assert.InDeltaSlice(t, want.Data(), got.Data(), 1e-12)
	}
}

func TestSaveLoad_CondLeaf(t *testing.T) {
	c, err := leaf.NewCondNode(cpu.New(), leaf.Gaussian{}, 0, []int{1}, nil)
	require.NoError(t, err)

	buf := encode(t, c)
	loaded, header, err := serialization.Read(bytes.NewReader(buf), cpu.New())
	require.NoError(t, err)
	require.IsType(t, &leaf.CondNode{}, loaded)
	assert.Equal(t, []int{1}, loaded.ScopesOut()[0].Evidence())
	assert.Equal(t, serialization.TypeCondLeaf, header.Modules[0].Type)
	assert.Nil(t, loaded.(*leaf.CondNode).CondFunc())
}

func TestRead_Corruption(t *testing.T) {
	buf := encode(t, mixture(t))

	t.Run("checksum", func(t *testing.T) {
		bad := bytes.Clone(buf)
		bad[serialization.ChecksumOffset] ^= 0xff
		_, _, err := serialization.Read(bytes.NewReader(bad), cpu.New())
		assert.True(t, errors.Is(err, serialization.ErrChecksumMismatch))

		_, _, err = serialization.ReadWithOptions(bytes.NewReader(bad), cpu.New(),
			serialization.ReaderOptions{SkipChecksumValidation: true})
		assert.NoError(t, err)
	})

	t.Run("magic", func(t *testing.T) {
		bad := bytes.Clone(buf)
		bad[0] = 'X'
		_, _, err := serialization.Read(bytes.NewReader(bad), cpu.New())
		assert.True(t, errors.Is(err, serialization.ErrInvalidMagic))
	})

	t.Run("version", func(t *testing.T) {
		bad := bytes.Clone(buf)
		bad[4] = 9
		_, _, err := serialization.Read(bytes.NewReader(bad), cpu.New())
		assert.True(t, errors.Is(err, serialization.ErrUnsupportedVersion))
	})

	t.Run("data", func(t *testing.T) {
		bad := bytes.Clone(buf)
		bad[len(bad)-1] ^= 0xff
		_, _, err := serialization.Read(bytes.NewReader(bad), cpu.New())
		assert.True(t, errors.Is(err, serialization.ErrChecksumMismatch))
	})

	t.Run("truncated", func(t *testing.T) {
		_, _, err := serialization.Read(bytes.NewReader(buf[:len(buf)-8]), cpu.New())
		assert.Error(t, err)
	})

	t.Run("tensor bounds", func(t *testing.T) {
		_, header, err := serialization.Read(bytes.NewReader(buf), cpu.New())
		require.NoError(t, err)
		last := 0
		for i, meta := range header.Tensors {
			if meta.Offset > header.Tensors[last].Offset {
				last = i
			}
		}
		// Offset+Size wraps past math.MaxInt64.
		const size = math.MaxInt64 - 7
		header.Tensors[last].Size = size
		header.Tensors[last].Shape = []int{size / 8}
		bad := withHeader(t, buf, header)

		_, _, err = serialization.Read(bytes.NewReader(bad), cpu.New())
		var verr *serialization.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "out_of_bounds", verr.Type)

		_, _, err = serialization.ReadWithOptions(bytes.NewReader(bad), cpu.New(),
			serialization.ReaderOptions{ValidationLevel: serialization.ValidationNone})
		assert.ErrorContains(t, err, "out of bounds")
	})
}

// withHeader replaces the JSON header of an encoded circuit, keeping its
// tensor data and checksum.
func withHeader(t *testing.T, buf []byte, header *serialization.Header) []byte {
	t.Helper()
	align := func(n int) int {
		return (n + serialization.HeaderAlignment - 1) / serialization.HeaderAlignment * serialization.HeaderAlignment
	}
	oldSize := int(binary.LittleEndian.Uint64(buf[16:24]))
	tensorData := buf[align(serialization.FixedHeaderSize+oldSize):]

	js, err := json.Marshal(header)
	require.NoError(t, err)
	out := bytes.Clone(buf[:serialization.FixedHeaderSize])
	binary.LittleEndian.PutUint64(out[16:24], uint64(len(js)))
	out = append(out, js...)
	out = append(out, make([]byte, align(len(out))-len(out))...)
	return append(out, tensorData...)
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := serialization.Load(filepath.Join(t.TempDir(), "missing.spn"), cpu.New())
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestValidateModules(t *testing.T) {
	valid := func() *serialization.Header {
		return &serialization.Header{
			Root: 1,
			Modules: []serialization.ModuleMeta{
				{ID: 0, Type: serialization.TypeLeaf, Family: "Gaussian", Vars: []int{0}, Params: "modules.0.params"},
				{ID: 1, Type: serialization.TypeProduct, Children: []int{0}},
			},
			Tensors: []serialization.TensorMeta{{Name: "modules.0.params", Shape: []int{1, 2}, Size: 16}},
		}
	}
	require.NoError(t, serialization.ValidateModules(valid()))
	require.NoError(t, serialization.ValidateHeader(valid(), 16, serialization.ValidationStrict))

	tests := []struct {
		name   string
		mutate func(h *serialization.Header)
		kind   string
	}{
		{"dangling child", func(h *serialization.Header) { h.Modules[1].Children = []int{1} }, "dangling_child"},
		{"root", func(h *serialization.Header) { h.Root = 2 }, "invalid_root"},
		{"family", func(h *serialization.Header) { h.Modules[0].Family = "Zeta" }, "unknown_family"},
		{"tensor", func(h *serialization.Header) { h.Modules[0].Params = "modules.9.params" }, "missing_tensor"},
		{"id", func(h *serialization.Header) { h.Modules[1].ID = 5 }, "invalid_id"},
		{"type", func(h *serialization.Header) { h.Modules[1].Type = "mystery" }, "unknown_type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid()
			tt.mutate(h)
			var verr *serialization.ValidationError
			require.True(t, errors.As(serialization.ValidateModules(h), &verr))
			assert.Equal(t, tt.kind, verr.Type)
		})
	}
}

func TestValidateTensorOffsets(t *testing.T) {
	overlap := []serialization.TensorMeta{
		{Name: "a", Shape: []int{2}, Offset: 0, Size: 16},
		{Name: "b", Shape: []int{2}, Offset: 8, Size: 16},
	}
	var verr *serialization.ValidationError
	require.True(t, errors.As(serialization.ValidateTensorOffsets(overlap, 32), &verr))
	assert.Equal(t, "offset_overlap", verr.Type)

	outside := []serialization.TensorMeta{{Name: "a", Shape: []int{4}, Offset: 0, Size: 32}}
	require.True(t, errors.As(serialization.ValidateTensorOffsets(outside, 16), &verr))
	assert.Equal(t, "out_of_bounds", verr.Type)

	wrapping := []serialization.TensorMeta{{Name: "a", Shape: []int{(math.MaxInt64 - 7) / 8}, Offset: 16, Size: math.MaxInt64 - 7}}
	require.True(t, errors.As(serialization.ValidateTensorOffsets(wrapping, 64), &verr))
	assert.Equal(t, "out_of_bounds", verr.Type)

	huge := []serialization.TensorMeta{{Name: "a", Shape: []int{1 << 40, 1 << 40}, Offset: 0, Size: 0}}
	require.True(t, errors.As(serialization.ValidateTensorOffsets(huge, 64), &verr))
	assert.Equal(t, "size_mismatch", verr.Type)

	assert.Error(t, serialization.ValidateTensorName("../etc"))
	assert.NoError(t, serialization.ValidateTensorName("modules.3.weights"))
}
