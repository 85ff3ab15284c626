// Package transform provides the geometric mappings used to move images
// between physical coordinate systems.
//
// A Transform maps a point of the output (fixed, atlas) space to the
// corresponding point of the input (moving, subject) space, which is the
// direction a resampler needs when it fills an output grid.
package transform

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidParameters is returned when a transform cannot be built from the
// supplied parameters.
var ErrInvalidParameters = errors.New("invalid transform parameters")

// Point is a physical position in mm
type Point [3]float64

// Transform maps output-space points to input-space points
type Transform interface {
	TransformPoint(p Point) (Point, error)
}

// Identity maps every point onto itself
type Identity struct{}

// TransformPoint returns p unchanged.
func (Identity) TransformPoint(p Point) (Point, error) {
	return p, nil
}

func (Identity) String() string {
	return "Identity"
}

// Affine is a linear map about a center followed by a translation:
//
//	T(p) = A(p - c) + c + t
type Affine struct {
	matrix      *mat.Dense
	translation Point
	center      Point
}

// NewAffine creates an affine transform from a row-major 3x3 matrix,
// a translation and a center of rotation.
func NewAffine(matrix [9]float64, translation, center Point) (*Affine, error) {
	for _, v := range matrix {
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: matrix contains non-finite value", ErrInvalidParameters)
		}
	}
	for axis := 0; axis < 3; axis++ {
		if !isFinite(translation[axis]) || !isFinite(center[axis]) {
			return nil, fmt.Errorf("%w: translation and center must be finite", ErrInvalidParameters)
		}
	}

	m := make([]float64, 9)
	copy(m, matrix[:])

	return &Affine{
		matrix:      mat.NewDense(3, 3, m),
		translation: translation,
		center:      center,
	}, nil
}

// NewTranslation creates a pure translation by offset.
func NewTranslation(offset Point) (*Affine, error) {
	return NewAffine([9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1}, offset, Point{})
}

// NewEuler3D creates a rigid transform rotating by angleX, angleY and angleZ
// radians about center (applied in x, y, z order) followed by translation.
func NewEuler3D(angleX, angleY, angleZ float64, translation, center Point) (*Affine, error) {
	cx, sx := math.Cos(angleX), math.Sin(angleX)
	cy, sy := math.Cos(angleY), math.Sin(angleY)
	cz, sz := math.Cos(angleZ), math.Sin(angleZ)

	rx := mat.NewDense(3, 3, []float64{1, 0, 0, 0, cx, -sx, 0, sx, cx})
	ry := mat.NewDense(3, 3, []float64{cy, 0, sy, 0, 1, 0, -sy, 0, cy})
	rz := mat.NewDense(3, 3, []float64{cz, -sz, 0, sz, cz, 0, 0, 0, 1})

	var rzy, r mat.Dense
	rzy.Mul(rz, ry)
	r.Mul(&rzy, rx)

	var m [9]float64
	copy(m[:], r.RawMatrix().Data)
	return NewAffine(m, translation, center)
}

// Matrix returns the linear part in row-major order.
func (a *Affine) Matrix() [9]float64 {
	var m [9]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			m[i*3+j] = a.matrix.At(i, j)
		}
	}
	return m
}

// Translation returns the translation component.
func (a *Affine) Translation() Point {
	return a.translation
}

// TransformPoint maps p through the affine transform.
func (a *Affine) TransformPoint(p Point) (Point, error) {
	if a == nil || a.matrix == nil {
		return Point{}, fmt.Errorf("%w: nil affine transform", ErrInvalidParameters)
	}
	d := mat.NewVecDense(3, []float64{
		p[0] - a.center[0],
		p[1] - a.center[1],
		p[2] - a.center[2],
	})

	var r mat.VecDense
	r.MulVec(a.matrix, d)

	var out Point
	for axis := 0; axis < 3; axis++ {
		out[axis] = r.AtVec(axis) + a.center[axis] + a.translation[axis]
	}
	return out, nil
}

// Compose returns the transform that applies a first and then b.
// The composite keeps a's center.
func Compose(a, b *Affine) (*Affine, error) {
	if a == nil || a.matrix == nil || b == nil || b.matrix == nil {
		return nil, fmt.Errorf("%w: nil affine transform", ErrInvalidParameters)
	}
	// b(a(p)) = Bm(Am(p-ca) + ca + ta - cb) + cb + tb
	var m mat.Dense
	m.Mul(b.matrix, a.matrix)

	shift := mat.NewVecDense(3, []float64{
		a.center[0] + a.translation[0] - b.center[0],
		a.center[1] + a.translation[1] - b.center[1],
		a.center[2] + a.translation[2] - b.center[2],
	})
	var bs mat.VecDense
	bs.MulVec(b.matrix, shift)

	var translation Point
	for axis := 0; axis < 3; axis++ {
		translation[axis] = bs.AtVec(axis) + b.center[axis] + b.translation[axis] - a.center[axis]
	}

	var raw [9]float64
	copy(raw[:], m.RawMatrix().Data)
	return NewAffine(raw, translation, a.center)
}

func (a *Affine) String() string {
	return fmt.Sprintf("Affine(matrix=%v, translation=%v, center=%v)",
		a.Matrix(), a.translation, a.center)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
