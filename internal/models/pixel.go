package models

import "math"

// PixelType is the element type of an image voxel
type PixelType int

const (
	UInt8 PixelType = iota
	Int16
	UInt16
	Int32
	Float32
	Float64
)

var pixelTypeNames = map[PixelType]string{
	UInt8:   "uint8",
	Int16:   "int16",
	UInt16:  "uint16",
	Int32:   "int32",
	Float32: "float32",
	Float64: "float64",
}

func (p PixelType) String() string {
	if name, ok := pixelTypeNames[p]; ok {
		return name
	}
	return "unknown"
}

// Valid reports whether p is one of the known pixel types.
func (p PixelType) Valid() bool {
	_, ok := pixelTypeNames[p]
	return ok
}

// IsFloat reports whether p is a floating-point type.
func (p PixelType) IsFloat() bool {
	return p == Float32 || p == Float64
}

// Range returns the smallest and largest representable values.
func (p PixelType) Range() (float64, float64) {
	switch p {
	case UInt8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case UInt16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// Cast converts v to a value representable in p. Integer types truncate
// toward zero and saturate at their range; NaN becomes zero.
func (p PixelType) Cast(v float64) float64 {
	switch p {
	case Float64:
		return v
	case Float32:
		return float64(float32(v))
	}

	if math.IsNaN(v) {
		return 0
	}
	lo, hi := p.Range()
	return math.Max(lo, math.Min(hi, math.Trunc(v)))
}
