// Package filtering contains the image preprocessing filters applied to a
// subject before segmentation: intensity normalization, skull stripping and
// atlas registration.
//
// Every filter is a pure function of an image and its parameters. Missing
// parameters are fatal and reported as ErrInvalidParams; degraded inputs
// (an empty image, a mask that cannot be resampled, a failed registration)
// are logged as warnings and the filter falls back to a best-effort result.
package filtering

import (
	"errors"

	"mialab/internal/models"
)

var (
	// ErrInvalidParams is returned when a filter's required parameters are missing
	ErrInvalidParams = errors.New("invalid filter parameters")

	// ErrGeometryMismatch is returned when a mask cannot be aligned with its image
	ErrGeometryMismatch = errors.New("geometry mismatch")
)

// Params is the parameter bundle passed to a filter alongside the image.
// Filters that take no parameters accept nil.
type Params interface{}

// Filter is a single image preprocessing step
type Filter interface {
	// Execute applies the filter and returns a new image
	Execute(img *models.Image, params Params) (*models.Image, error)

	String() string
}
