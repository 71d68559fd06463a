package composer

import (
	"image"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/ivlev/images2video/internal/geometry"
	"github.com/ivlev/images2video/internal/timeline"
)

// renderFrame applies the entry's stored geometry: scale to fill, then
// the centered crop, producing an exactly canvas-sized RGBA frame.
func renderFrame(img image.Image, entry timeline.Entry, canvas geometry.Size) *image.RGBA {
	src := geometry.Size{
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
	}
	scaled := entry.Geometry.ScaledSize(src)

	scaledImg := image.NewRGBA(image.Rect(0, 0, scaled.Width, scaled.Height))
	xdraw.CatmullRom.Scale(scaledImg, scaledImg.Bounds(), img, img.Bounds(), xdraw.Src, nil)

	crop := entry.Geometry.Crop
	frame := image.NewRGBA(image.Rect(0, 0, canvas.Width, canvas.Height))
	draw.Draw(frame, frame.Bounds(), scaledImg, image.Pt(crop.X0, crop.Y0), draw.Src)
	return frame
}

// frameCount converts an entry's interval to output frames by rounding
// the cumulative boundaries, so per-entry rounding never drifts the
// total: the frame counts always sum to round(total*fps).
func frameCount(entry timeline.Entry, fps int) int {
	start := int(math.Round(entry.Start * float64(fps)))
	end := int(math.Round(entry.End * float64(fps)))
	if end <= start {
		return 1
	}
	return end - start
}
