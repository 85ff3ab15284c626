package filtering

import (
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/stat"

	"mialab/internal/models"
	"mialab/pkg/logging"
)

// zeroStdTolerance is the absolute tolerance below which a standard deviation
// is treated as zero.
const zeroStdTolerance = 1e-8

// ImageNormalization applies a z-score normalization over the non-zero voxels
// of an image. Background voxels (exactly zero) stay zero.
type ImageNormalization struct {
	logger *slog.Logger
}

// NewImageNormalization creates a normalization filter. A nil logger discards warnings.
func NewImageNormalization(logger *slog.Logger) *ImageNormalization {
	return &ImageNormalization{logger: logging.OrDiscard(logger)}
}

// Execute normalizes img. Params are unused.
//
// An image without non-zero voxels, or whose non-zero voxels all share one
// value, is returned unchanged with a warning.
func (f *ImageNormalization) Execute(img *models.Image, _ Params) (*models.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidParams)
	}

	values := img.Values()
	foreground := make([]float64, 0, len(values))
	for _, v := range values {
		if v != 0 {
			foreground = append(foreground, v)
		}
	}

	if len(foreground) == 0 {
		f.logger.Warn("image appears empty (all zeros), returning unprocessed image")
		return img, nil
	}

	mean, std := stat.PopMeanStdDev(foreground, nil)
	if std == 0 || math.Abs(std) <= zeroStdTolerance {
		f.logger.Warn("standard deviation is zero, returning unprocessed image",
			slog.Float64("mean", mean))
		return img, nil
	}

	for i, v := range values {
		if v != 0 {
			values[i] = (v - mean) / std
		}
	}

	f.logger.Debug("normalized image",
		slog.Int("foreground_voxels", len(foreground)),
		slog.Float64("mean", mean),
		slog.Float64("std", std),
	)

	return models.NewImage(img.Geometry, models.Float32, values)
}

func (f *ImageNormalization) String() string {
	return "ImageNormalization:\n"
}
