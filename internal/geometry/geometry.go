package geometry

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidDimensions = errors.New("invalid dimensions")

// Size is a width/height pair in pixels.
type Size struct {
	Width  int `yaml:"w"`
	Height int `yaml:"h"`
}

// Rect is a crop box. X1/Y1 are exclusive, so Dx/Dy equal the box size.
type Rect struct {
	X0 int `yaml:"x0"`
	Y0 int `yaml:"y0"`
	X1 int `yaml:"x1"`
	Y1 int `yaml:"y1"`
}

func (r Rect) Dx() int { return r.X1 - r.X0 }
func (r Rect) Dy() int { return r.Y1 - r.Y0 }

// Plan maps an arbitrary source size onto a target canvas: scale to
// fill, then a centered crop of exactly the canvas size. Plans are
// persisted inside the timeline artifact, hence the yaml tags.
type Plan struct {
	Scale float64 `yaml:"scale"`
	Crop  Rect    `yaml:"crop"`
}

// ScaledSize is the source size after applying the plan's scale factor,
// never smaller than the crop box (rounding must not leave the crop
// hanging outside the scaled image).
func (p Plan) ScaledSize(src Size) Size {
	w := int(math.Round(float64(src.Width) * p.Scale))
	h := int(math.Round(float64(src.Height) * p.Scale))
	if w < p.Crop.X1 {
		w = p.Crop.X1
	}
	if h < p.Crop.Y1 {
		h = p.Crop.Y1
	}
	return Size{Width: w, Height: h}
}

// ComputeFill computes the scale-to-fill plan from src to target. The
// scale is the larger of the two axis ratios, so the scaled image always
// covers the canvas; the excess on the longer axis is cropped
// symmetrically. Never letterboxes.
func ComputeFill(src, target Size) (Plan, error) {
	if src.Width <= 0 || src.Height <= 0 || target.Width <= 0 || target.Height <= 0 {
		return Plan{}, fmt.Errorf("%w: source %dx%d, target %dx%d",
			ErrInvalidDimensions, src.Width, src.Height, target.Width, target.Height)
	}

	scale := math.Max(
		float64(target.Width)/float64(src.Width),
		float64(target.Height)/float64(src.Height),
	)

	scaledW := int(math.Round(float64(src.Width) * scale))
	scaledH := int(math.Round(float64(src.Height) * scale))
	// Rounding may land one pixel short on the fill axis.
	if scaledW < target.Width {
		scaledW = target.Width
	}
	if scaledH < target.Height {
		scaledH = target.Height
	}

	x0 := (scaledW - target.Width) / 2
	y0 := (scaledH - target.Height) / 2

	return Plan{
		Scale: scale,
		Crop: Rect{
			X0: x0,
			Y0: y0,
			X1: x0 + target.Width,
			Y1: y0 + target.Height,
		},
	}, nil
}
