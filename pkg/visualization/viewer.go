package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"mialab/internal/models"
)

// Viewer extracts 2D slices from a preprocessed volume for visual inspection.
// Intensities are windowed to the volume's own minimum and maximum so that
// normalized images with negative values remain visible.
type Viewer struct {
	// volume holds the 3D image
	volume *models.Image

	// window bounds used to map intensities onto 16-bit grey levels
	min float64
	max float64
}

// NewViewer creates a new slice viewer for img
func NewViewer(img *models.Image) *Viewer {
	lo, hi := math.Inf(1), math.Inf(-1)
	for n := 0; n < img.Len(); n++ {
		v := img.Value(n)
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	return &Viewer{volume: img, min: lo, max: hi}
}

// gray maps a voxel value onto the 16-bit window
func (v *Viewer) gray(value float64) color.Gray16 {
	if v.max <= v.min {
		return color.Gray16{Y: 0}
	}
	scaled := (value - v.min) / (v.max - v.min) * 65535
	return color.Gray16{Y: uint16(math.Max(0, math.Min(65535, math.Round(scaled))))}
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (image.Image, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	size := v.volume.Size
	var img *image.Gray16

	switch axis {
	case "x", "X":
		// YZ plane
		if position >= size[0] {
			return nil, fmt.Errorf("position %d exceeds width %d", position, size[0])
		}
		img = image.NewGray16(image.Rect(0, 0, size[2], size[1]))
		for y := 0; y < size[1]; y++ {
			for z := 0; z < size[2]; z++ {
				img.SetGray16(z, y, v.gray(v.volume.At(position, y, z)))
			}
		}

	case "y", "Y":
		// XZ plane
		if position >= size[1] {
			return nil, fmt.Errorf("position %d exceeds height %d", position, size[1])
		}
		img = image.NewGray16(image.Rect(0, 0, size[0], size[2]))
		for z := 0; z < size[2]; z++ {
			for x := 0; x < size[0]; x++ {
				img.SetGray16(x, z, v.gray(v.volume.At(x, position, z)))
			}
		}

	case "z", "Z":
		// XY plane
		if position >= size[2] {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, size[2])
		}
		img = image.NewGray16(image.Rect(0, 0, size[0], size[1]))
		for y := 0; y < size[1]; y++ {
			for x := 0; x < size[0]; x++ {
				img.SetGray16(x, y, v.gray(v.volume.At(x, y, position)))
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// SaveSlice saves an extracted slice as a PNG image
func (v *Viewer) SaveSlice(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Size[0]
	case "y", "Y":
		maxPos = v.volume.Size[1]
	case "z", "Z":
		maxPos = v.volume.Size[2]
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := v.SaveSlice(img, filename); err != nil {
			return err
		}
	}

	return nil
}
