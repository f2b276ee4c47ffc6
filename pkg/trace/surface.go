package trace

import (
	"image/color"
	"sync"

	"gonum.org/v1/plot/plotter"
)

// Pane selects one of the two plots a trace display shows.
type Pane int

const (
	// PaneTrace is the main plot, updated continuously while an ROI is dragged.
	PaneTrace Pane = iota
	// PaneOverview is the whole-movie plot with the region selector, updated
	// only by full redraws.
	PaneOverview
)

// Surface receives the curves a Display renders. Implementations must be
// safe for concurrent use: partial redraws update the trace pane from the
// background worker.
type Surface interface {
	// SetCurve replaces the curve stored under key in pane.
	SetCurve(key string, pane Pane, pts plotter.XYs, c color.Color)
	// RemoveCurve drops key from every pane.
	RemoveCurve(key string)
	// Region returns the region selector bounds in frame units.
	Region() (lo, hi float64)
	// SetRegion moves the region selector.
	SetRegion(lo, hi float64)
	// Close releases the surface.
	Close()
}

// Curve is a snapshot of one plotted line.
type Curve struct {
	Key    string
	Pane   Pane
	Color  color.Color
	Points plotter.XYs
}

// MemorySurface is a Surface that keeps its curves in memory. The CLI
// renders them to an image once processing ends.
type MemorySurface struct {
	mu      sync.Mutex
	curves  map[Pane]map[string]Curve
	order   []string
	lo, hi  float64
	closed  bool
	updates map[Pane]int
}

// NewMemorySurface returns an empty surface.
func NewMemorySurface() *MemorySurface {
	return &MemorySurface{
		curves: map[Pane]map[string]Curve{
			PaneTrace:    {},
			PaneOverview: {},
		},
		updates: map[Pane]int{},
	}
}

// SetCurve stores a copy of pts under key.
func (s *MemorySurface) SetCurve(key string, pane Pane, pts plotter.XYs, c color.Color) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, ok := s.curves[PaneTrace][key]; !ok {
		if _, ok := s.curves[PaneOverview][key]; !ok {
			s.order = append(s.order, key)
		}
	}
	cp := make(plotter.XYs, len(pts))
	copy(cp, pts)
	s.curves[pane][key] = Curve{Key: key, Pane: pane, Color: c, Points: cp}
	s.updates[pane]++
}

// RemoveCurve drops key.
func (s *MemorySurface) RemoveCurve(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.curves[PaneTrace], key)
	delete(s.curves[PaneOverview], key)
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Region returns the region selector bounds.
func (s *MemorySurface) Region() (float64, float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lo, s.hi
}

// SetRegion moves the region selector.
func (s *MemorySurface) SetRegion(lo, hi float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lo, s.hi = lo, hi
}

// Close marks the surface closed; later curve updates are ignored.
func (s *MemorySurface) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Closed reports whether Close was called.
func (s *MemorySurface) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Curves returns the curves of pane in the order they were first plotted.
func (s *MemorySurface) Curves(pane Pane) []Curve {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Curve, 0, len(s.order))
	for _, k := range s.order {
		if c, ok := s.curves[pane][k]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Updates returns how many times a curve of pane was set.
func (s *MemorySurface) Updates(pane Pane) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updates[pane]
}

// xys converts a trace into plot points with the frame index on X.
func xys(trace []float64) plotter.XYs {
	pts := make(plotter.XYs, len(trace))
	for i, v := range trace {
		pts[i] = plotter.XY{X: float64(i), Y: v}
	}
	return pts
}
