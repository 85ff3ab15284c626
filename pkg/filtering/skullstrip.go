package filtering

import (
	"fmt"
	"log/slog"

	"mialab/internal/models"
	"mialab/pkg/logging"
	"mialab/pkg/resample"
	"mialab/pkg/transform"
)

// Mask values in [maskLower, maskUpper] are inside the brain.
const (
	maskLower = 1
	maskUpper = 65535
)

// SkullStrippingParams holds the brain mask used by SkullStripping
type SkullStrippingParams struct {
	// Mask is the brain mask; any value in [1, 65535] marks brain tissue
	Mask *models.Image
}

// SkullStripping zeroes every voxel outside a brain mask
type SkullStripping struct {
	logger *slog.Logger
}

// NewSkullStripping creates a skull-stripping filter. A nil logger discards warnings.
func NewSkullStripping(logger *slog.Logger) *SkullStripping {
	return &SkullStripping{logger: logging.OrDiscard(logger)}
}

// Execute masks img with the brain mask in params, which must be a
// *SkullStrippingParams with a non-nil Mask.
//
// A mask on a different grid is first resampled onto the image grid with
// nearest-neighbor interpolation. If that fails the original mask is used,
// which only succeeds when its voxel grid still matches the image.
func (f *SkullStripping) Execute(img *models.Image, params Params) (*models.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidParams)
	}
	p, ok := params.(*SkullStrippingParams)
	if !ok || p == nil || p.Mask == nil {
		return nil, fmt.Errorf("%w: skull stripping requires a brain mask", ErrInvalidParams)
	}

	mask := p.Mask
	if !mask.Geometry.Equal(img.Geometry) {
		resampled, err := resample.Resample(mask, img.Geometry, transform.Identity{},
			resample.NearestNeighbor, 0, mask.PixelType)
		if err != nil {
			f.logger.Warn("mask resampling failed, continuing with provided mask",
				slog.Any("error", err))
		} else {
			mask = resampled
		}
	}

	if mask.Size != img.Size {
		return nil, fmt.Errorf("%w: mask size %v does not match image size %v",
			ErrGeometryMismatch, mask.Size, img.Size)
	}

	out := make([]float64, img.Len())
	for i := range out {
		if binarize(mask.Value(i)) == 1 {
			out[i] = img.Value(i)
		}
	}

	return models.NewImage(img.Geometry, img.PixelType, out)
}

func (f *SkullStripping) String() string {
	return "SkullStripping:\n"
}

func binarize(v float64) int {
	if v >= maskLower && v <= maskUpper {
		return 1
	}
	return 0
}
