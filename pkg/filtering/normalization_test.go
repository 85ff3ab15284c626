package filtering

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"mialab/internal/models"
)

func TestNormalizationStatistics(t *testing.T) {
	geom := testGeometry()
	img := createTestImage(t, geom, models.Int16, func(i, j, k int) float64 {
		if i == 0 {
			return 0
		}
		return float64(10*i + 3*j*j + 7*k)
	})

	out, err := NewImageNormalization(nil).Execute(img, nil)
	require.NoError(t, err)

	assert.Equal(t, models.Float32, out.PixelType)
	assert.Equal(t, img.Geometry, out.Geometry)

	var foreground []float64
	for n := 0; n < img.Len(); n++ {
		if img.Value(n) == 0 {
			assert.Equal(t, 0.0, out.Value(n), "background voxel %d changed", n)
			continue
		}
		foreground = append(foreground, out.Value(n))
	}

	mean, std := stat.PopMeanStdDev(foreground, nil)
	assert.InDelta(t, 0, mean, 1e-6)
	assert.InDelta(t, 1, std, 1e-6)
}

func TestNormalizationEmptyImage(t *testing.T) {
	img := createTestImage(t, testGeometry(), models.UInt8, constant(0))
	logger, buf := captureLogger()

	out, err := NewImageNormalization(logger).Execute(img, nil)
	require.NoError(t, err)

	assert.Same(t, img, out)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), "all zeros")
}

func TestNormalizationZeroVariance(t *testing.T) {
	img := createTestImage(t, testGeometry(), models.Float32, func(i, j, k int) float64 {
		if (i+j+k)%2 == 0 {
			return 0
		}
		return 42
	})
	logger, buf := captureLogger()

	out, err := NewImageNormalization(logger).Execute(img, nil)
	require.NoError(t, err)

	assert.True(t, img.Equal(out))
	assert.Contains(t, buf.String(), "standard deviation is zero")
}

func TestNormalizationNilImage(t *testing.T) {
	_, err := NewImageNormalization(nil).Execute(nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestNormalizationString(t *testing.T) {
	assert.Equal(t, "ImageNormalization:\n", NewImageNormalization(nil).String())
}
