package filtering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mialab/internal/models"
)

func ramp(i, j, k int) float64 {
	return float64(1 + i + 4*j + 12*k)
}

func TestSkullStrippingAllOnesMask(t *testing.T) {
	geom := testGeometry()
	img := createTestImage(t, geom, models.Int16, ramp)
	mask := createTestImage(t, geom, models.UInt8, constant(1))

	out, err := NewSkullStripping(nil).Execute(img, &SkullStrippingParams{Mask: mask})
	require.NoError(t, err)

	assert.True(t, img.Equal(out))
}

func TestSkullStrippingAllZerosMask(t *testing.T) {
	geom := testGeometry()
	img := createTestImage(t, geom, models.Float32, ramp)
	mask := createTestImage(t, geom, models.UInt8, constant(0))

	out, err := NewSkullStripping(nil).Execute(img, &SkullStrippingParams{Mask: mask})
	require.NoError(t, err)

	assert.Equal(t, geom, out.Geometry)
	assert.Equal(t, models.Float32, out.PixelType)
	for n := 0; n < out.Len(); n++ {
		assert.Equal(t, 0.0, out.Value(n))
	}
}

func TestSkullStrippingBinarizesMask(t *testing.T) {
	geom := testGeometry()
	img := createTestImage(t, geom, models.Float64, ramp)

	// Labels above 65535 or below 1 are outside the brain
	values := []float64{0, 1, 2, 255, 65535, 70000, -3, 0.5}
	mask := createTestImage(t, geom, models.Int32, func(i, j, k int) float64 {
		return values[geom.Index(i, j, k)%len(values)]
	})

	out, err := NewSkullStripping(nil).Execute(img, &SkullStrippingParams{Mask: mask})
	require.NoError(t, err)

	for n := 0; n < out.Len(); n++ {
		m := mask.Value(n)
		if m >= 1 && m <= 65535 {
			assert.Equal(t, img.Value(n), out.Value(n), "voxel %d should be kept", n)
		} else {
			assert.Equal(t, 0.0, out.Value(n), "voxel %d should be zeroed", n)
		}
	}
}

func TestSkullStrippingResamplesMask(t *testing.T) {
	geom := models.NewGeometry([3]int{4, 4, 4}, [3]float64{1, 1, 1})
	img := createTestImage(t, geom, models.Int16, ramp)

	// A coarse mask covering the lower half along x
	coarse := models.NewGeometry([3]int{2, 2, 2}, [3]float64{2, 2, 2})
	coarse.Origin = [3]float64{0.5, 0.5, 0.5}
	mask := createTestImage(t, coarse, models.UInt8, func(i, j, k int) float64 {
		if i == 0 {
			return 1
		}
		return 0
	})

	out, err := NewSkullStripping(nil).Execute(img, &SkullStrippingParams{Mask: mask})
	require.NoError(t, err)

	assert.Equal(t, img.Geometry, out.Geometry)
	assert.NotEqual(t, mask.Geometry, out.Geometry)

	for k := 0; k < 4; k++ {
		for j := 0; j < 4; j++ {
			assert.Equal(t, img.At(0, j, k), out.At(0, j, k))
			assert.Equal(t, img.At(1, j, k), out.At(1, j, k))
			assert.Equal(t, 0.0, out.At(2, j, k))
			assert.Equal(t, 0.0, out.At(3, j, k))
		}
	}
}

func TestSkullStrippingMaskResampleFailure(t *testing.T) {
	geom := testGeometry()
	img := createTestImage(t, geom, models.Float32, ramp)

	// Same voxel grid but a degenerate direction: resampling fails and the
	// original mask is applied voxel by voxel.
	broken := geom
	broken.Direction = [9]float64{1, 0, 0, 1, 0, 0, 0, 0, 1}
	mask := createTestImage(t, broken, models.UInt8, constant(1))

	logger, buf := captureLogger()
	out, err := NewSkullStripping(logger).Execute(img, &SkullStrippingParams{Mask: mask})
	require.NoError(t, err)

	assert.Equal(t, img.Values(), out.Values())
	assert.Equal(t, geom, out.Geometry)
	assert.Contains(t, buf.String(), "mask resampling failed")
}

func TestSkullStrippingUnusableMask(t *testing.T) {
	img := createTestImage(t, testGeometry(), models.Float32, ramp)

	broken := models.NewGeometry([3]int{2, 2, 2}, [3]float64{1, 1, 1})
	broken.Direction = [9]float64{0, 0, 0, 0, 1, 0, 0, 0, 1}
	mask := createTestImage(t, broken, models.UInt8, constant(1))

	_, err := NewSkullStripping(nil).Execute(img, &SkullStrippingParams{Mask: mask})
	assert.ErrorIs(t, err, ErrGeometryMismatch)
}

func TestSkullStrippingMissingMask(t *testing.T) {
	img := createTestImage(t, testGeometry(), models.Float32, ramp)
	f := NewSkullStripping(nil)

	for name, params := range map[string]Params{
		"nil params":   nil,
		"nil struct":   (*SkullStrippingParams)(nil),
		"nil mask":     &SkullStrippingParams{},
		"wrong params": &ImageRegistrationParams{},
	} {
		_, err := f.Execute(img, params)
		assert.ErrorIs(t, err, ErrInvalidParams, name)
	}
}
