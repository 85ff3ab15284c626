package filtering

import (
	"fmt"
	"log/slog"

	"mialab/internal/models"
	"mialab/pkg/logging"
	"mialab/pkg/resample"
	"mialab/pkg/transform"
)

// ImageRegistrationParams holds the atlas and transform used by ImageRegistration
type ImageRegistrationParams struct {
	// Atlas defines the reference grid the image is moved into
	Atlas *models.Image

	// Transform maps atlas points to points of the image being registered
	Transform transform.Transform

	// IsGroundTruth marks label images, which are resampled with
	// nearest-neighbor interpolation and keep their pixel type
	IsGroundTruth bool
}

// ImageRegistration resamples an image into atlas space using a supplied transform
type ImageRegistration struct {
	logger *slog.Logger
}

// NewImageRegistration creates a registration filter. A nil logger discards warnings.
func NewImageRegistration(logger *slog.Logger) *ImageRegistration {
	return &ImageRegistration{logger: logging.OrDiscard(logger)}
}

// Execute registers img to the atlas in params, which must be a
// *ImageRegistrationParams with both Atlas and Transform set.
//
// If resampling fails the unregistered input is returned with a warning.
func (f *ImageRegistration) Execute(img *models.Image, params Params) (*models.Image, error) {
	if img == nil {
		return nil, fmt.Errorf("%w: nil image", ErrInvalidParams)
	}
	p, ok := params.(*ImageRegistrationParams)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: registration requires an atlas and a transform", ErrInvalidParams)
	}
	if p.Atlas == nil || p.Transform == nil {
		return nil, fmt.Errorf("%w: registration requires both an atlas and a transform", ErrInvalidParams)
	}

	interp := resample.Linear
	pixelType := models.Float32
	if p.IsGroundTruth {
		interp = resample.NearestNeighbor
		pixelType = img.PixelType
	}

	registered, err := resample.Resample(img, p.Atlas.Geometry, p.Transform, interp, 0, pixelType)
	if err != nil {
		f.logger.Warn("registration resampling failed, returning original image",
			slog.Bool("ground_truth", p.IsGroundTruth),
			slog.Any("error", err))
		return img, nil
	}

	if !registered.Geometry.Equal(p.Atlas.Geometry) {
		aligned, err := registered.WithGeometry(p.Atlas.Geometry)
		if err != nil {
			f.logger.Warn("could not copy atlas geometry onto registered image",
				slog.Any("error", err))
		} else {
			registered = aligned
		}
	}

	return registered, nil
}

func (f *ImageRegistration) String() string {
	return "ImageRegistration:\n"
}
