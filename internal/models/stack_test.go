package models

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestNewStack verifies dimension checks when building a stack from frames
func TestNewStack(t *testing.T) {
	a := mat.NewDense(3, 4, nil)
	b := mat.NewDense(3, 4, nil)

	s, err := NewStack(a, b)
	if err != nil {
		t.Fatalf("Failed to build stack: %v", err)
	}
	if w, h := s.Dimensions(); w != 4 || h != 3 {
		t.Errorf("Expected dimensions 4x3, got %dx%d", w, h)
	}
	if s.FrameCount() != 2 {
		t.Errorf("Expected 2 frames, got %d", s.FrameCount())
	}
	if s.Frames[1].Index != 1 {
		t.Errorf("Expected second frame index 1, got %d", s.Frames[1].Index)
	}

	if _, err := NewStack(a, mat.NewDense(4, 3, nil)); err == nil {
		t.Error("Expected error for mismatched frame dimensions, got nil")
	}
	if _, err := NewStack(); err == nil {
		t.Error("Expected error for empty stack, got nil")
	}
}

// TestGenerate verifies that pixel values are laid out as At(y, x)
func TestGenerate(t *testing.T) {
	s := Generate(5, 2, 3, func(t, x, y int) float64 {
		return float64(t*100 + y*10 + x)
	})

	if got := s.Sample(2).At(1, 4); got != 214 {
		t.Errorf("Expected pixel (4,1) of frame 2 to be 214, got %f", got)
	}

	u := Uniform(2, 2, 4, func(t int) float64 { return float64(t) / 2 })
	if got := u.Sample(3).At(1, 1); got != 1.5 {
		t.Errorf("Expected uniform frame 3 to be 1.5, got %f", got)
	}
}
