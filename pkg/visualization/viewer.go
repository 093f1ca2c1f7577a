// Package visualization renders label images and binary masks to PNG
// previews for quality control. Each label value maps to a stable color,
// so the same region keeps its color across planes and runs.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"fishdecode/pkg/labelimage"
	"fishdecode/pkg/mask"
	"fishdecode/pkg/tensor"
)

// Renderer draws planes of a labelled raster as color images
type Renderer struct {
	// arr holds the labelled raster being rendered
	arr *tensor.Int32Image
}

// NewRenderer creates a renderer for the given label image
func NewRenderer(li *labelimage.LabelImage) *Renderer {
	return &Renderer{arr: li.Array()}
}

// NewMaskRenderer creates a renderer for a mask collection by first
// painting it into a label image.
func NewMaskRenderer(bmc *mask.BinaryMaskCollection) (*Renderer, error) {
	li, err := bmc.ToLabelImage()
	if err != nil {
		return nil, err
	}
	return NewRenderer(li), nil
}

// RenderPlane renders one z-plane of the raster as an RGBA image. For 2D
// data the only valid plane is 0. Background pixels are black; every
// label value keeps a stable color derived from its value.
func (r *Renderer) RenderPlane(plane int) (image.Image, error) {
	shape := r.arr.Shape
	depth := 1
	if len(shape) == 3 {
		depth = shape[0]
	}
	if plane < 0 || plane >= depth {
		return nil, fmt.Errorf("plane %d out of range; the raster has %d planes", plane, depth)
	}

	height := shape[len(shape)-2]
	width := shape[len(shape)-1]
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var label int32
			if len(shape) == 3 {
				label = r.arr.At(plane, y, x)
			} else {
				label = r.arr.At(y, x)
			}
			img.Set(x, y, labelColor(label))
		}
	}
	return img, nil
}

// SaveImage saves a rendered image as a PNG file
func (r *Renderer) SaveImage(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return png.Encode(file, img)
}

// SavePlaneSequence renders and saves every z-plane of the raster into
// the given directory
func (r *Renderer) SavePlaneSequence(outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	depth := 1
	if len(r.arr.Shape) == 3 {
		depth = r.arr.Shape[0]
	}

	for plane := 0; plane < depth; plane++ {
		img, err := r.RenderPlane(plane)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("plane_z_%03d.png", plane))
		if err := r.SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}

// labelColor maps a label value to a stable color. Background stays
// black; positive labels walk the hue circle by the golden angle so
// adjacent labels get visually distinct colors.
func labelColor(label int32) color.RGBA {
	if label <= 0 {
		return color.RGBA{A: 255}
	}

	const goldenAngle = 137.50776405003785
	hue := math.Mod(float64(label-1)*goldenAngle, 360)
	r, g, b := hsvToRGB(hue, 0.75, 0.95)
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

// hsvToRGB converts a hue (degrees), saturation, and value to 8-bit RGB
func hsvToRGB(h, s, v float64) (uint8, uint8, uint8) {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c

	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}

	return uint8((r + m) * 255), uint8((g + m) * 255), uint8((b + m) * 255)
}
