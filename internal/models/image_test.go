package models

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewImage(t *testing.T) {
	geom := NewGeometry([3]int{2, 2, 1}, [3]float64{1, 1, 1})

	img, err := NewImage(geom, Int16, []float64{1.7, -2.9, 40000, 3})
	require.NoError(t, err)

	// Values are truncated and saturated to the pixel type
	assert.Equal(t, []float64{1, -2, math.MaxInt16, 3}, img.Values())
	assert.Equal(t, 4, img.Len())
	assert.Equal(t, 3.0, img.At(1, 1, 0))
}

func TestNewImageRejectsBadInput(t *testing.T) {
	geom := NewGeometry([3]int{2, 2, 1}, [3]float64{1, 1, 1})

	_, err := NewImage(geom, Float32, []float64{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidImage)

	bad := geom
	bad.Spacing[1] = 0
	_, err = NewImage(bad, Float32, make([]float64, 4))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = NewImage(geom, PixelType(42), make([]float64, 4))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestImageIsImmutable(t *testing.T) {
	geom := NewGeometry([3]int{2, 1, 1}, [3]float64{1, 1, 1})
	data := []float64{5, 6}

	img, err := NewImage(geom, Float64, data)
	require.NoError(t, err)

	data[0] = 100
	values := img.Values()
	values[1] = 100

	assert.Equal(t, 5.0, img.Value(0))
	assert.Equal(t, 6.0, img.Value(1))
}

func TestGeometryIndex(t *testing.T) {
	geom := NewGeometry([3]int{4, 3, 2}, [3]float64{1, 1, 1})

	assert.Equal(t, 24, geom.NumVoxels())
	assert.Equal(t, 0, geom.Index(0, 0, 0))
	assert.Equal(t, 1, geom.Index(1, 0, 0))
	assert.Equal(t, 4, geom.Index(0, 1, 0))
	assert.Equal(t, 12, geom.Index(0, 0, 1))
	assert.Equal(t, 23, geom.Index(3, 2, 1))
}

func TestGeometryPhysicalPoint(t *testing.T) {
	geom := NewGeometry([3]int{4, 3, 2}, [3]float64{0.5, 1, 2})
	geom.Origin = [3]float64{10, 20, 30}

	assert.Equal(t, [3]float64{10, 20, 30}, geom.PhysicalPoint(0, 0, 0))
	assert.Equal(t, [3]float64{11.5, 22, 32}, geom.PhysicalPoint(3, 2, 1))

	// Swap x and y axes
	geom.Direction = [9]float64{0, 1, 0, 1, 0, 0, 0, 0, 1}
	assert.Equal(t, [3]float64{12, 21.5, 32}, geom.PhysicalPoint(3, 2, 1))
}

func TestGeometryEqual(t *testing.T) {
	a := NewGeometry([3]int{4, 3, 2}, [3]float64{1, 1, 2})
	b := a

	assert.True(t, a.Equal(b))

	b.Origin[2] = 0.5
	assert.False(t, a.Equal(b))

	b = a
	b.Direction[0] = -1
	assert.False(t, a.Equal(b))
}

func TestWithGeometry(t *testing.T) {
	geom := NewGeometry([3]int{2, 1, 1}, [3]float64{1, 1, 1})
	img, err := NewImage(geom, UInt8, []float64{1, 2})
	require.NoError(t, err)

	moved := geom
	moved.Origin = [3]float64{10, 0, 0}
	out, err := img.WithGeometry(moved)
	require.NoError(t, err)
	assert.Equal(t, moved, out.Geometry)
	assert.Equal(t, img.Values(), out.Values())

	_, err = img.WithGeometry(NewGeometry([3]int{1, 1, 1}, [3]float64{1, 1, 1}))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestPixelTypeCast(t *testing.T) {
	tests := []struct {
		pixel PixelType
		in    float64
		want  float64
	}{
		{UInt8, -3, 0},
		{UInt8, 300, 255},
		{UInt8, 7.9, 7},
		{Int16, -7.9, -7},
		{UInt16, 70000, 65535},
		{Int32, math.NaN(), 0},
		{Float64, 0.1, 0.1},
		{Float32, 0.1, float64(float32(0.1))},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, tc.pixel.Cast(tc.in), "%s cast of %v", tc.pixel, tc.in)
	}
}

func TestPixelTypeString(t *testing.T) {
	assert.Equal(t, "float32", Float32.String())
	assert.Equal(t, "unknown", PixelType(-1).String())
	assert.True(t, Float64.IsFloat())
	assert.False(t, UInt16.IsFloat())
}
