// Package resample maps images onto new voxel grids.
//
// Resample walks every voxel of a reference grid, maps its physical position
// through a transform into the input image and interpolates the input there.
package resample

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"mialab/internal/models"
	"mialab/pkg/transform"
)

var (
	// ErrInvalidGeometry is returned when a grid cannot be used for resampling
	ErrInvalidGeometry = errors.New("invalid geometry")

	// ErrTransform is returned when the transform cannot map a point
	ErrTransform = errors.New("transform failed")
)

// Interpolator selects how values between voxel centres are computed
type Interpolator int

const (
	// NearestNeighbor copies the closest voxel, preserving label values
	NearestNeighbor Interpolator = iota

	// Linear blends the eight surrounding voxels
	Linear
)

func (i Interpolator) String() string {
	switch i {
	case NearestNeighbor:
		return "nearest"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// Resample maps img onto the reference grid. For each reference voxel the
// transform gives the matching input position; positions outside the input
// take defaultValue. Output voxels are cast to pixelType.
func Resample(img *models.Image, reference models.Geometry, tr transform.Transform,
	interp Interpolator, defaultValue float64, pixelType models.PixelType) (*models.Image, error) {

	if img == nil {
		return nil, fmt.Errorf("%w: nil input image", ErrInvalidGeometry)
	}
	if tr == nil {
		return nil, fmt.Errorf("%w: nil transform", ErrTransform)
	}
	if err := reference.Validate(); err != nil {
		return nil, fmt.Errorf("%w: reference grid: %v", ErrInvalidGeometry, err)
	}
	if err := img.Geometry.Validate(); err != nil {
		return nil, fmt.Errorf("%w: input grid: %v", ErrInvalidGeometry, err)
	}

	sample, err := sampler(img, interp)
	if err != nil {
		return nil, err
	}

	toPhysical := indexToPhysical(reference)
	toIndex, err := physicalToIndex(img.Geometry)
	if err != nil {
		return nil, err
	}

	out := make([]float64, reference.NumVoxels())
	idx := mat.NewVecDense(3, nil)
	var phys, cont mat.VecDense

	for k := 0; k < reference.Size[2]; k++ {
		for j := 0; j < reference.Size[1]; j++ {
			for i := 0; i < reference.Size[0]; i++ {
				idx.SetVec(0, float64(i))
				idx.SetVec(1, float64(j))
				idx.SetVec(2, float64(k))
				phys.MulVec(toPhysical, idx)

				p := transform.Point{
					phys.AtVec(0) + reference.Origin[0],
					phys.AtVec(1) + reference.Origin[1],
					phys.AtVec(2) + reference.Origin[2],
				}
				q, err := tr.TransformPoint(p)
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrTransform, err)
				}

				offset := mat.NewVecDense(3, []float64{
					q[0] - img.Origin[0],
					q[1] - img.Origin[1],
					q[2] - img.Origin[2],
				})
				cont.MulVec(toIndex, offset)

				c := [3]float64{cont.AtVec(0), cont.AtVec(1), cont.AtVec(2)}
				if !finite(c) {
					return nil, fmt.Errorf("%w: point %v maps to a non-finite position", ErrTransform, p)
				}

				v, inside := sample(c)
				if !inside {
					v = defaultValue
				}
				out[reference.Index(i, j, k)] = v
			}
		}
	}

	return models.NewImage(reference, pixelType, out)
}

// indexToPhysical returns D * diag(spacing).
func indexToPhysical(g models.Geometry) *mat.Dense {
	m := mat.NewDense(3, 3, nil)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			m.Set(r, c, g.Direction[r*3+c]*g.Spacing[c])
		}
	}
	return m
}

// physicalToIndex returns the inverse of D * diag(spacing).
func physicalToIndex(g models.Geometry) (*mat.Dense, error) {
	var inv mat.Dense
	if err := inv.Inverse(indexToPhysical(g)); err != nil {
		return nil, fmt.Errorf("%w: direction matrix is singular: %v", ErrInvalidGeometry, err)
	}
	return &inv, nil
}

type sampleFunc func(c [3]float64) (float64, bool)

func sampler(img *models.Image, interp Interpolator) (sampleFunc, error) {
	switch interp {
	case NearestNeighbor:
		return func(c [3]float64) (float64, bool) { return nearest(img, c) }, nil
	case Linear:
		return func(c [3]float64) (float64, bool) { return trilinear(img, c) }, nil
	default:
		return nil, fmt.Errorf("unsupported interpolator %d", interp)
	}
}

func nearest(img *models.Image, c [3]float64) (float64, bool) {
	var n [3]int
	for axis := 0; axis < 3; axis++ {
		n[axis] = int(math.Floor(c[axis] + 0.5))
		if n[axis] < 0 || n[axis] >= img.Size[axis] {
			return 0, false
		}
	}
	return img.At(n[0], n[1], n[2]), true
}

func trilinear(img *models.Image, c [3]float64) (float64, bool) {
	var lo, hi [3]int
	var frac [3]float64

	for axis := 0; axis < 3; axis++ {
		size := img.Size[axis]
		if c[axis] < -0.5 || c[axis] > float64(size)-0.5 {
			return 0, false
		}

		base := math.Floor(c[axis])
		frac[axis] = c[axis] - base
		lo[axis] = clamp(int(base), 0, size-1)
		hi[axis] = clamp(int(base)+1, 0, size-1)
	}

	var v float64
	for corner := 0; corner < 8; corner++ {
		w := 1.0
		var at [3]int
		for axis := 0; axis < 3; axis++ {
			if corner&(1<<axis) != 0 {
				at[axis] = hi[axis]
				w *= frac[axis]
			} else {
				at[axis] = lo[axis]
				w *= 1 - frac[axis]
			}
		}
		if w == 0 {
			continue
		}
		v += w * img.At(at[0], at[1], at[2])
	}
	return v, true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func finite(c [3]float64) bool {
	for _, v := range c {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
