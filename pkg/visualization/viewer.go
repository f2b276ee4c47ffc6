package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"roitrace/pkg/roi"
)

// Viewer renders frames of an image source, optionally with ROI masks
// painted over them.
type Viewer struct {
	// src is the pixel buffer frames are taken from
	src roi.Source

	// width and height of every frame
	width  int
	height int
}

// NewViewer creates a viewer over src
func NewViewer(src roi.Source) *Viewer {
	width, height := src.Dimensions()
	return &Viewer{
		src:    src,
		width:  width,
		height: height,
	}
}

// ExtractFrame returns frame t as a 16-bit grey image. Values are
// stretched so the frame's minimum maps to black and its maximum to white.
func (v *Viewer) ExtractFrame(t int) (*image.Gray16, error) {
	if t < 0 || t >= v.src.FrameCount() {
		return nil, fmt.Errorf("frame %d out of range [0, %d)", t, v.src.FrameCount())
	}

	frame := v.src.Sample(t)
	lo, hi := mat.Min(frame), mat.Max(frame)
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, v.width, v.height))
	for y := 0; y < v.height; y++ {
		for x := 0; x < v.width; x++ {
			n := (frame.At(y, x) - lo) * scale
			value := uint16(math.Max(0, math.Min(65535, n*65535)))
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img, nil
}

// DrawROIs copies base into an RGBA image and paints every ROI's mask in
// the ROI's pen colour.
func (v *Viewer) DrawROIs(base image.Image, rois []*roi.ROI) *image.RGBA {
	out := image.NewRGBA(base.Bounds())
	draw.Draw(out, out.Bounds(), base, base.Bounds().Min, draw.Src)

	for _, r := range rois {
		c := r.Color()
		m := r.Mask()
		for i := range m.XX {
			out.Set(m.XX[i], m.YY[i], c)
		}
	}
	return out
}

// SaveFrame saves an image as a JPEG
func (v *Viewer) SaveFrame(img image.Image, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	return jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
}

// SaveFrameSequence renders every frame with rois drawn over it into
// outputDir as frame_NNN.jpg.
func (v *Viewer) SaveFrameSequence(outputDir string, rois []*roi.ROI) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	for t := 0; t < v.src.FrameCount(); t++ {
		img, err := v.ExtractFrame(t)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("frame_%03d.jpg", t))
		if err := v.SaveFrame(v.DrawROIs(img, rois), filename); err != nil {
			return err
		}
	}

	return nil
}
