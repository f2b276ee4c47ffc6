package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Frame is a single image of a movie with metadata
type Frame struct {
	// Data holds the pixel values as a height x width matrix indexed At(y, x)
	Data *mat.Dense

	// Index is the position of this frame in the sequence
	Index int

	// Filename is the original filename of the frame, empty for generated data
	Filename string
}

// Stack is a time series of equally sized frames. A static 2D image is a
// stack of one frame.
type Stack struct {
	// Frames in acquisition order
	Frames []Frame

	// Width is the frame width in pixels
	Width int

	// Height is the frame height in pixels
	Height int
}

// NewStack builds a stack from frame matrices, all of which must share the
// dimensions of the first.
func NewStack(frames ...*mat.Dense) (*Stack, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("stack needs at least one frame")
	}
	rows, cols := frames[0].Dims()
	s := &Stack{Width: cols, Height: rows}
	for i, f := range frames {
		if r, c := f.Dims(); r != rows || c != cols {
			return nil, fmt.Errorf("frame %d is %dx%d, want %dx%d", i, c, r, cols, rows)
		}
		s.Frames = append(s.Frames, Frame{Data: f, Index: i})
	}
	return s, nil
}

// Uniform returns a stack of frameCount frames where every pixel of frame t
// equals value(t). It is mostly useful for tests and demos.
func Uniform(width, height, frameCount int, value func(t int) float64) *Stack {
	s := &Stack{Width: width, Height: height}
	for t := 0; t < frameCount; t++ {
		d := mat.NewDense(height, width, nil)
		v := value(t)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				d.Set(y, x, v)
			}
		}
		s.Frames = append(s.Frames, Frame{Data: d, Index: t})
	}
	return s
}

// Generate returns a stack whose pixel values come from fn(t, x, y).
func Generate(width, height, frameCount int, fn func(t, x, y int) float64) *Stack {
	s := &Stack{Width: width, Height: height}
	for t := 0; t < frameCount; t++ {
		d := mat.NewDense(height, width, nil)
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				d.Set(y, x, fn(t, x, y))
			}
		}
		s.Frames = append(s.Frames, Frame{Data: d, Index: t})
	}
	return s
}

// Dimensions returns the frame width and height.
func (s *Stack) Dimensions() (int, int) {
	return s.Width, s.Height
}

// FrameCount returns the number of frames.
func (s *Stack) FrameCount() int {
	return len(s.Frames)
}

// Sample returns frame t.
func (s *Stack) Sample(t int) mat.Matrix {
	return s.Frames[t].Data
}
