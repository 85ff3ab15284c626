package filtering

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"mialab/internal/models"
	"mialab/pkg/logging"
)

// testGeometry is a small anisotropic grid placed away from the origin
func testGeometry() models.Geometry {
	g := models.NewGeometry([3]int{4, 3, 2}, [3]float64{1, 1, 2})
	g.Origin = [3]float64{-10, 5, 0}
	return g
}

// createTestImage fills a grid using pattern(i, j, k)
func createTestImage(t *testing.T, geom models.Geometry, pixel models.PixelType,
	pattern func(i, j, k int) float64) *models.Image {
	t.Helper()

	data := make([]float64, geom.NumVoxels())
	for k := 0; k < geom.Size[2]; k++ {
		for j := 0; j < geom.Size[1]; j++ {
			for i := 0; i < geom.Size[0]; i++ {
				data[geom.Index(i, j, k)] = pattern(i, j, k)
			}
		}
	}

	img, err := models.NewImage(geom, pixel, data)
	require.NoError(t, err)
	return img
}

func constant(v float64) func(i, j, k int) float64 {
	return func(int, int, int) float64 { return v }
}

// captureLogger returns a logger writing JSON records into the returned buffer
func captureLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return logging.New("debug", "json", &buf), &buf
}
