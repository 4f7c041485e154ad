package tensor_test

import (
	"math"
	"testing"

	"github.com/born-ml/spflow/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      tensor.Shape
		want      tensor.Shape
		broadcast bool
		wantErr   bool
	}{
		{"equal", tensor.Shape{3, 5}, tensor.Shape{3, 5}, tensor.Shape{3, 5}, false, false},
		{"column", tensor.Shape{3, 1}, tensor.Shape{3, 5}, tensor.Shape{3, 5}, true, false},
		{"rank", tensor.Shape{5}, tensor.Shape{2, 3, 5}, tensor.Shape{2, 3, 5}, true, false},
		{"incompatible", tensor.Shape{3, 4}, tensor.Shape{3, 5}, nil, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := tensor.BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestShape_NormalizeDim(t *testing.T) {
	s := tensor.Shape{2, 3, 4}
	assert.Equal(t, 2, s.NormalizeDim(-1))
	assert.Equal(t, 0, s.NormalizeDim(0))
	assert.Panics(t, func() { s.NormalizeDim(3) })
}

func TestFromRows(t *testing.T) {
	raw, err := tensor.FromRows([][]float64{{0.5, 1.6}, {math.NaN(), 0.1}})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 2}, raw.Shape())
	assert.Equal(t, 2, raw.Rows())
	assert.Equal(t, 2, raw.Cols())
	assert.Equal(t, 1.6, raw.At(0, 1))
	assert.True(t, raw.HasNaN())

	_, err = tensor.FromRows([][]float64{{1, 2}, {3}})
	assert.Error(t, err)

	empty, err := tensor.FromRows(nil)
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{0, 0}, empty.Shape())
}

func TestRawTensor_CloneIsDeep(t *testing.T) {
	raw := tensor.MustFromRows([][]float64{{1, 2}})
	clone := raw.Clone()
	clone.Set(9, 0, 0)
	assert.Equal(t, 1.0, raw.At(0, 0))
	assert.Equal(t, 9.0, clone.At(0, 0))
}

func TestDataType_Round(t *testing.T) {
	assert.Equal(t, float64(float32(0.1)), tensor.Float32.Round(0.1))
	assert.Equal(t, 0.1, tensor.Float64.Round(0.1))
	assert.Equal(t, 1.0, tensor.Bool.Round(0.3))
	assert.Equal(t, 0.0, tensor.Bool.Round(0))

	v := tensor.Vector([]float64{0.1}, tensor.Float32)
	assert.Equal(t, float64(float32(0.1)), v.At(0))
	assert.Equal(t, tensor.Float32, v.Cast(tensor.Float32).DType())
}

func TestRawTensor_RowCol(t *testing.T) {
	m := tensor.Matrix([]float64{1, 2, 3, 4, 5, 6}, 2, 3, tensor.Float64)
	assert.Equal(t, []float64{4, 5, 6}, m.Row(1))
	assert.Equal(t, []float64{2, 5}, m.Col(1))
}
