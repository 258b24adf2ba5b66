package recognizer

import (
	"image"
)

// Detector locates candidate face regions in a camera frame. Detection is a
// pluggable capability like matching; a cascade or DNN detector can replace
// the default without touching the loop.
type Detector interface {
	Detect(frame image.Image) []image.Rectangle
}

// VarianceDetector is the built-in detector. It inspects the luma variance of
// the centered square region of the frame: a live face produces textured,
// high-variance pixels there, while an empty scene or covered lens stays flat.
// It reports at most one region per frame.
type VarianceDetector struct {
	// MinVariance is the minimum luma variance (0-255 scale) for the center
	// region to count as a face.
	MinVariance float64
}

// DefaultMinVariance rejects flat frames (covered lens, blank wall) while
// keeping any textured subject.
const DefaultMinVariance = 80

func NewVarianceDetector() *VarianceDetector {
	return &VarianceDetector{MinVariance: DefaultMinVariance}
}

func (d *VarianceDetector) Detect(frame image.Image) []image.Rectangle {
	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil
	}

	// Centered square region covering the smaller frame dimension.
	side := bounds.Dx()
	if bounds.Dy() < side {
		side = bounds.Dy()
	}
	cx := bounds.Min.X + bounds.Dx()/2
	cy := bounds.Min.Y + bounds.Dy()/2
	region := image.Rect(cx-side/2, cy-side/2, cx+side/2, cy+side/2)

	if regionVariance(frame, region) < d.MinVariance {
		return nil
	}
	return []image.Rectangle{region}
}

// regionVariance computes the luma variance over a sparse grid of the region.
func regionVariance(frame image.Image, region image.Rectangle) float64 {
	const grid = 16
	stepX := region.Dx() / grid
	stepY := region.Dy() / grid
	if stepX == 0 {
		stepX = 1
	}
	if stepY == 0 {
		stepY = 1
	}

	var sum, sumSq float64
	var n int
	for y := region.Min.Y; y < region.Max.Y; y += stepY {
		for x := region.Min.X; x < region.Max.X; x += stepX {
			r, g, b, _ := frame.At(x, y).RGBA()
			luma := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			sum += luma
			sumSq += luma * luma
			n++
		}
	}
	if n == 0 {
		return 0
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// Crop extracts a face region from a frame.
func Crop(frame image.Image, region image.Rectangle) image.Image {
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	region = region.Intersect(frame.Bounds())
	if si, ok := frame.(subImager); ok {
		return si.SubImage(region)
	}

	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := range region.Dy() {
		for x := range region.Dx() {
			dst.Set(x, y, frame.At(region.Min.X+x, region.Min.Y+y))
		}
	}
	return dst
}
