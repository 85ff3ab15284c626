package models

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidImage is returned when an image cannot be constructed from the
// supplied geometry and voxel buffer.
var ErrInvalidImage = errors.New("invalid image")

// IdentityDirection is the direction cosine matrix of an axis-aligned image.
var IdentityDirection = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}

// Geometry describes how a voxel grid is placed in physical space
type Geometry struct {
	// Size is the number of voxels along x, y and z
	Size [3]int

	// Spacing is the physical voxel size in mm along each axis
	Spacing [3]float64

	// Origin is the physical position of the first voxel centre
	Origin [3]float64

	// Direction holds the direction cosines in row-major order
	Direction [9]float64
}

// NewGeometry creates an axis-aligned geometry with the given size and spacing
// and an origin at zero.
func NewGeometry(size [3]int, spacing [3]float64) Geometry {
	return Geometry{
		Size:      size,
		Spacing:   spacing,
		Direction: IdentityDirection,
	}
}

// Equal reports whether both geometries describe exactly the same grid.
func (g Geometry) Equal(other Geometry) bool {
	return g.Size == other.Size &&
		g.Spacing == other.Spacing &&
		g.Origin == other.Origin &&
		g.Direction == other.Direction
}

// NumVoxels returns the number of voxels in the grid.
func (g Geometry) NumVoxels() int {
	return g.Size[0] * g.Size[1] * g.Size[2]
}

// Index converts a voxel index into an offset in the voxel buffer.
// x varies fastest, then y, then z.
func (g Geometry) Index(i, j, k int) int {
	return k*g.Size[0]*g.Size[1] + j*g.Size[0] + i
}

// PhysicalPoint returns the physical position in mm of voxel (i, j, k).
func (g Geometry) PhysicalPoint(i, j, k int) [3]float64 {
	idx := [3]float64{float64(i), float64(j), float64(k)}
	var p [3]float64
	for r := 0; r < 3; r++ {
		p[r] = g.Origin[r]
		for c := 0; c < 3; c++ {
			p[r] += g.Direction[r*3+c] * g.Spacing[c] * idx[c]
		}
	}
	return p
}

// Validate checks that the geometry describes a usable grid.
func (g Geometry) Validate() error {
	for axis := 0; axis < 3; axis++ {
		if g.Size[axis] <= 0 {
			return fmt.Errorf("size along axis %d must be positive, got %d", axis, g.Size[axis])
		}
		if !(g.Spacing[axis] > 0) || math.IsInf(g.Spacing[axis], 0) {
			return fmt.Errorf("spacing along axis %d must be positive and finite, got %g", axis, g.Spacing[axis])
		}
		if math.IsNaN(g.Origin[axis]) || math.IsInf(g.Origin[axis], 0) {
			return fmt.Errorf("origin along axis %d is not finite", axis)
		}
	}
	for _, d := range g.Direction {
		if math.IsNaN(d) || math.IsInf(d, 0) {
			return fmt.Errorf("direction contains non-finite value")
		}
	}
	return nil
}

// Image is a dense scalar volume with physical geometry.
// Images are immutable: every operation that changes voxels returns a new Image.
type Image struct {
	Geometry

	// PixelType is the element type the voxel values are representable in
	PixelType PixelType

	data []float64
}

// NewImage creates an image from a voxel buffer in x-fastest order.
// The buffer is copied and every value is cast to the pixel type.
func NewImage(geometry Geometry, pixelType PixelType, data []float64) (*Image, error) {
	if err := geometry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if !pixelType.Valid() {
		return nil, fmt.Errorf("%w: unknown pixel type %d", ErrInvalidImage, pixelType)
	}
	if len(data) != geometry.NumVoxels() {
		return nil, fmt.Errorf("%w: buffer has %d voxels, geometry needs %d",
			ErrInvalidImage, len(data), geometry.NumVoxels())
	}

	buf := make([]float64, len(data))
	for i, v := range data {
		buf[i] = pixelType.Cast(v)
	}

	return &Image{Geometry: geometry, PixelType: pixelType, data: buf}, nil
}

// NewZeroImage creates an image filled with zeros.
func NewZeroImage(geometry Geometry, pixelType PixelType) (*Image, error) {
	return NewImage(geometry, pixelType, make([]float64, geometry.NumVoxels()))
}

// At returns the voxel value at index (i, j, k).
func (img *Image) At(i, j, k int) float64 {
	return img.data[img.Index(i, j, k)]
}

// Value returns the voxel value at a buffer offset.
func (img *Image) Value(offset int) float64 {
	return img.data[offset]
}

// Len returns the number of voxels.
func (img *Image) Len() int {
	return len(img.data)
}

// Values returns a copy of the voxel buffer.
func (img *Image) Values() []float64 {
	out := make([]float64, len(img.data))
	copy(out, img.data)
	return out
}

// WithGeometry returns a copy of the image placed on another grid with the
// same number of voxels per axis.
func (img *Image) WithGeometry(geometry Geometry) (*Image, error) {
	if geometry.Size != img.Size {
		return nil, fmt.Errorf("%w: cannot move %v voxels onto a %v grid",
			ErrInvalidImage, img.Size, geometry.Size)
	}
	return NewImage(geometry, img.PixelType, img.data)
}

// Equal reports whether two images share geometry, pixel type and voxels.
func (img *Image) Equal(other *Image) bool {
	if img == nil || other == nil {
		return img == other
	}
	if !img.Geometry.Equal(other.Geometry) || img.PixelType != other.PixelType {
		return false
	}
	for i, v := range img.data {
		if other.data[i] != v {
			return false
		}
	}
	return true
}
