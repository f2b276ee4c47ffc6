package roi

import (
	"image/color"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/kdtree"

	"roitrace/pkg/geometry"
	"roitrace/pkg/mask"
)

// Source is the pixel buffer a window displays.
type Source interface {
	// Dimensions returns the image width and height in pixels.
	Dimensions() (width, height int)

	// FrameCount returns the number of frames; 1 for a static image.
	FrameCount() int

	// Sample returns frame t as a height x width matrix indexed At(y, x).
	Sample(t int) mat.Matrix
}

// DefaultColor is the pen colour used when neither the ROI nor its window names one.
var DefaultColor color.Color = color.RGBA{R: 255, G: 255, A: 255}

// Window is the host an ROI is drawn against: an image source, the
// currently displayed frame and the ROIs placed on it. A Window is driven
// from the foreground goroutine only.
type Window struct {
	name    string
	src     Source
	color   color.Color
	current int
	rois    []*ROI
	log     logrus.FieldLogger
}

// WindowOption configures a Window.
type WindowOption func(*Window)

// WithPenColor sets the default pen colour for ROIs created on the window.
func WithPenColor(c color.Color) WindowOption {
	return func(w *Window) {
		if c != nil {
			w.color = c
		}
	}
}

// WithWindowLogger sets the logger used by the window and its ROIs.
func WithWindowLogger(l logrus.FieldLogger) WindowOption {
	return func(w *Window) {
		if l != nil {
			w.log = l
		}
	}
}

// NewWindow creates a window over src.
func NewWindow(name string, src Source, opts ...WindowOption) *Window {
	w := &Window{
		name:  name,
		src:   src,
		color: DefaultColor,
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.log = w.log.WithField("window", name)
	return w
}

// Name returns the window name.
func (w *Window) Name() string { return w.name }

// Source returns the underlying pixel buffer.
func (w *Window) Source() Source { return w.src }

// PenColor returns the default pen colour for new ROIs.
func (w *Window) PenColor() color.Color { return w.color }

// Dimensions returns the image width and height.
func (w *Window) Dimensions() (int, int) { return w.src.Dimensions() }

// Bounds returns the image extent as mask bounds.
func (w *Window) Bounds() mask.Bounds {
	width, height := w.src.Dimensions()
	return mask.Bounds{Width: width, Height: height}
}

// FrameCount returns the number of frames in the source.
func (w *Window) FrameCount() int { return w.src.FrameCount() }

// CurrentFrame returns the index of the displayed frame.
func (w *Window) CurrentFrame() int { return w.current }

// SetCurrentFrame changes the displayed frame, clamped to the valid range.
func (w *Window) SetCurrentFrame(t int) {
	w.current = max(0, min(t, w.src.FrameCount()-1))
}

// ROIs returns the live ROIs in creation order.
func (w *Window) ROIs() []*ROI {
	out := make([]*ROI, len(w.rois))
	copy(out, w.rois)
	return out
}

func (w *Window) add(r *ROI) {
	w.rois = append(w.rois, r)
}

func (w *Window) remove(r *ROI) {
	for i, other := range w.rois {
		if other == r {
			w.rois = append(w.rois[:i], w.rois[i+1:]...)
			return
		}
	}
}

// vertex is one ROI point placed in the picking tree.
type vertex struct {
	X, Y  float64
	roi   *ROI
	index int
}

// Compare implements the kdtree.Comparable interface
func (v vertex) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(vertex)
	switch d {
	case 0:
		return v.X - q.X
	case 1:
		return v.Y - q.Y
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (v vertex) Dims() int { return 2 }

// Distance returns the squared Euclidean distance between two vertices
func (v vertex) Distance(c kdtree.Comparable) float64 {
	q := c.(vertex)
	dx, dy := v.X-q.X, v.Y-q.Y
	return dx*dx + dy*dy
}

type vertices []vertex

func (p vertices) Index(i int) kdtree.Comparable         { return p[i] }
func (p vertices) Len() int                              { return len(p) }
func (p vertices) Slice(start, end int) kdtree.Interface { return p[start:end] }

func (p vertices) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(vertexPlane{vertices: p, Dim: d}, kdtree.MedianOfRandoms(vertexPlane{vertices: p, Dim: d}, 100))
}

// vertexPlane implements sort.Interface and kdtree.SortSlicer for vertices
type vertexPlane struct {
	vertices
	kdtree.Dim
}

func (p vertexPlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.vertices[i].X < p.vertices[j].X
	case 1:
		return p.vertices[i].Y < p.vertices[j].Y
	default:
		panic("illegal dimension")
	}
}

func (p vertexPlane) Slice(start, end int) kdtree.SortSlicer {
	return vertexPlane{vertices: p.vertices[start:end], Dim: p.Dim}
}

func (p vertexPlane) Swap(i, j int) {
	p.vertices[i], p.vertices[j] = p.vertices[j], p.vertices[i]
}

// NearestVertex finds the ROI point closest to p within maxDist, for
// picking an edit handle. It returns the ROI, the point index and whether
// anything was close enough.
func (w *Window) NearestVertex(p geometry.Point, maxDist float64) (*ROI, int, bool) {
	var pts vertices
	for _, r := range w.rois {
		for i, q := range r.handles() {
			pts = append(pts, vertex{X: q.X, Y: q.Y, roi: r, index: i})
		}
	}
	if len(pts) == 0 {
		return nil, 0, false
	}

	tree := kdtree.New(pts, false)
	hit, distSq := tree.Nearest(vertex{X: p.X, Y: p.Y})
	if hit == nil || distSq > maxDist*maxDist {
		return nil, 0, false
	}
	v := hit.(vertex)
	return v.roi, v.index, true
}
