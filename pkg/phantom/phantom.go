// Package phantom generates synthetic head phantoms for exercising the
// preprocessing pipeline without scanner data.
//
// A phantom consists of an ellipsoidal brain (white matter core surrounded by
// grey matter) inside a bright skull shell. The subject is displaced from
// the atlas by a rigid transform, which is returned so registration can undo it.
package phantom

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"mialab/internal/models"
	"mialab/pkg/transform"
)

// ErrInvalidParams is returned for phantom parameters that cannot produce a volume
var ErrInvalidParams = errors.New("invalid phantom parameters")

// Tissue labels used in the ground truth
const (
	LabelBackground  = 0
	LabelWhiteMatter = 1
	LabelGreyMatter  = 2
)

// Mean T1 intensities per tissue
const (
	intensityWhiteMatter = 110.0
	intensityGreyMatter  = 70.0
	intensitySkull       = 200.0
)

// Relative radii of the anatomy, as fractions of the brain radius
const (
	whiteMatterRadius = 0.6
	skullInnerRadius  = 1.05
	skullOuterRadius  = 1.25
)

// Params controls phantom generation
type Params struct {
	// ID is copied into the generated subject
	ID string

	// Size and Spacing define the atlas and subject grids
	Size    [3]int
	Spacing [3]float64

	// Offset is the subject displacement from the atlas in mm
	Offset transform.Point

	// RotationZ is the in-plane subject rotation in radians
	RotationZ float64

	// MaskFactor makes the brain mask grid this many times coarser
	MaskFactor int

	// NoiseSigma is the standard deviation of the additive tissue noise
	NoiseSigma float64

	// Seed makes the noise reproducible
	Seed uint64
}

// DefaultParams returns a small phantom suitable for quick runs.
func DefaultParams() Params {
	return Params{
		ID:         "phantom",
		Size:       [3]int{32, 32, 24},
		Spacing:    [3]float64{1, 1, 1.5},
		Offset:     transform.Point{2, -1.5, 1},
		RotationZ:  0.05,
		MaskFactor: 2,
		NoiseSigma: 4,
		Seed:       1,
	}
}

func (p Params) validate() error {
	for axis := 0; axis < 3; axis++ {
		if p.Size[axis] < 2 {
			return fmt.Errorf("%w: size along axis %d must be at least 2", ErrInvalidParams, axis)
		}
		if !(p.Spacing[axis] > 0) {
			return fmt.Errorf("%w: spacing along axis %d must be positive", ErrInvalidParams, axis)
		}
	}
	if p.MaskFactor < 1 {
		return fmt.Errorf("%w: mask factor must be at least 1", ErrInvalidParams)
	}
	if p.NoiseSigma < 0 {
		return fmt.Errorf("%w: noise sigma must not be negative", ErrInvalidParams)
	}
	return nil
}

// Generate builds a phantom subject together with its atlas.
func Generate(p Params) (models.Subject, error) {
	if err := p.validate(); err != nil {
		return models.Subject{}, err
	}

	atlasGeom := centeredGeometry(p.Size, p.Spacing)
	radii := brainRadii(atlasGeom)

	forward, err := transform.NewEuler3D(0, 0, p.RotationZ, p.Offset, transform.Point{})
	if err != nil {
		return models.Subject{}, err
	}
	inverse, err := inverseRigid(p.RotationZ, p.Offset)
	if err != nil {
		return models.Subject{}, err
	}

	atlas, err := render(atlasGeom, transform.Identity{}, radii, models.Float32, func(label int, skull bool) float64 {
		if skull {
			return 0
		}
		return meanIntensity(label)
	})
	if err != nil {
		return models.Subject{}, err
	}

	noise := distuv.Normal{Mu: 0, Sigma: p.NoiseSigma, Src: rand.NewSource(p.Seed)}
	t1, err := render(atlasGeom, inverse, radii, models.Int16, func(label int, skull bool) float64 {
		var v float64
		switch {
		case skull:
			v = intensitySkull
		case label != LabelBackground:
			v = meanIntensity(label)
		default:
			return 0
		}
		if p.NoiseSigma > 0 {
			v += noise.Rand()
		}
		return math.Max(1, v)
	})
	if err != nil {
		return models.Subject{}, err
	}

	truth, err := render(atlasGeom, inverse, radii, models.UInt8, func(label int, _ bool) float64 {
		return float64(label)
	})
	if err != nil {
		return models.Subject{}, err
	}

	maskGeom := coarsen(atlasGeom, p.MaskFactor)
	mask, err := render(maskGeom, inverse, radii, models.UInt8, func(label int, _ bool) float64 {
		if label != LabelBackground {
			return 1
		}
		return 0
	})
	if err != nil {
		return models.Subject{}, err
	}

	return models.Subject{
		ID:          p.ID,
		T1:          t1,
		BrainMask:   mask,
		GroundTruth: truth,
		Atlas:       atlas,
		Transform:   forward,
	}, nil
}

// centeredGeometry places the grid so that its centre is the physical origin.
func centeredGeometry(size [3]int, spacing [3]float64) models.Geometry {
	g := models.NewGeometry(size, spacing)
	for axis := 0; axis < 3; axis++ {
		g.Origin[axis] = -float64(size[axis]-1) * spacing[axis] / 2
	}
	return g
}

// coarsen returns a grid covering the same extent with factor-times larger voxels.
func coarsen(g models.Geometry, factor int) models.Geometry {
	if factor == 1 {
		return g
	}
	var size [3]int
	var spacing [3]float64
	for axis := 0; axis < 3; axis++ {
		size[axis] = (g.Size[axis] + factor - 1) / factor
		spacing[axis] = g.Spacing[axis] * float64(factor)
	}
	return centeredGeometry(size, spacing)
}

func brainRadii(g models.Geometry) [3]float64 {
	var r [3]float64
	for axis := 0; axis < 3; axis++ {
		r[axis] = 0.3 * float64(g.Size[axis]-1) * g.Spacing[axis]
	}
	return r
}

// inverseRigid undoes a rotation about z followed by a translation.
func inverseRigid(angle float64, offset transform.Point) (*transform.Affine, error) {
	back, err := transform.NewTranslation(transform.Point{-offset[0], -offset[1], -offset[2]})
	if err != nil {
		return nil, err
	}
	unrotate, err := transform.NewEuler3D(0, 0, -angle, transform.Point{}, transform.Point{})
	if err != nil {
		return nil, err
	}
	return transform.Compose(back, unrotate)
}

// classify returns the tissue label at an atlas point and whether it lies in the skull.
func classify(p transform.Point, radii [3]float64) (int, bool) {
	var d float64
	for axis := 0; axis < 3; axis++ {
		q := p[axis] / radii[axis]
		d += q * q
	}
	d = math.Sqrt(d)

	switch {
	case d <= whiteMatterRadius:
		return LabelWhiteMatter, false
	case d <= 1:
		return LabelGreyMatter, false
	case d >= skullInnerRadius && d <= skullOuterRadius:
		return LabelBackground, true
	default:
		return LabelBackground, false
	}
}

func meanIntensity(label int) float64 {
	switch label {
	case LabelWhiteMatter:
		return intensityWhiteMatter
	case LabelGreyMatter:
		return intensityGreyMatter
	default:
		return 0
	}
}

// render evaluates value at every voxel of g, mapping voxel positions into
// atlas space with toAtlas, and casts the result to pixel.
func render(g models.Geometry, toAtlas transform.Transform, radii [3]float64, pixel models.PixelType,
	value func(label int, skull bool) float64) (*models.Image, error) {

	data := make([]float64, g.NumVoxels())
	for k := 0; k < g.Size[2]; k++ {
		for j := 0; j < g.Size[1]; j++ {
			for i := 0; i < g.Size[0]; i++ {
				p, err := toAtlas.TransformPoint(g.PhysicalPoint(i, j, k))
				if err != nil {
					return nil, err
				}
				label, skull := classify(p, radii)
				data[g.Index(i, j, k)] = value(label, skull)
			}
		}
	}
	return models.NewImage(g, pixel, data)
}
