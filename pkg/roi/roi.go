// Package roi models regions of interest drawn over an image or movie: their
// geometry, pixel masks and mean-intensity traces, change notifications and
// the link relation that keeps copies on different windows moving together.
//
// Geometry edits, linking and deletion happen on a single foreground
// goroutine. Mask and trace reads are also safe from one background
// goroutine, which is how partial trace redraws run during a drag.
package roi

import (
	"fmt"
	"image/color"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"roitrace/pkg/geometry"
	"roitrace/pkg/mask"
)

// EventType identifies an ROI notification.
type EventType int

const (
	// EventChanged fires on every geometry edit, including each step of a drag.
	EventChanged EventType = iota
	// EventChangeFinished fires once when an edit is definitive.
	EventChangeFinished
)

// EventListener is called with the ROI that changed.
type EventListener func(r *ROI)

type listener struct {
	key string
	fn  EventListener
}

// TraceTarget is the trace display an ROI is plotted on. Link propagation
// calls it directly because the peer's own notifications are silenced.
type TraceTarget interface {
	ROIChanged(r *ROI)
	ROIChangeFinished(r *ROI)
	RemoveROI(r *ROI)
}

// ROI is one region of interest on a window.
type ROI struct {
	id     string
	kind   Kind
	window *Window
	log    logrus.FieldLogger

	// mu guards geometry and the derived mask.
	mu        sync.Mutex
	points    []geometry.Point
	width     float64
	revision  uint64
	mask      mask.Mask
	maskValid bool
	polygon   mask.PolygonCache

	// Foreground-only state.
	color     color.Color
	peers     map[*ROI]struct{}
	listeners map[EventType][]listener
	silenced  int
	target    TraceTarget
	deleted   bool
	finishing bool
}

// Option configures a new ROI.
type Option func(*ROI)

// WithColor sets the pen colour.
func WithColor(c color.Color) Option {
	return func(r *ROI) {
		if c != nil {
			r.color = c
		}
	}
}

// WithWidth sets the perpendicular thickness of a MultiSegmentLine.
func WithWidth(w float64) Option {
	return func(r *ROI) {
		r.width = w
	}
}

// New creates an ROI of the given kind on window w and registers it there.
// It fails with an *InvalidGeometryError when the point count does not
// match the kind.
func New(kind Kind, points []geometry.Point, w *Window, opts ...Option) (*ROI, error) {
	if err := kind.validate(len(points)); err != nil {
		return nil, err
	}

	r := &ROI{
		id:        uuid.NewString(),
		kind:      kind,
		window:    w,
		points:    geometry.Clone(points),
		width:     1,
		color:     w.PenColor(),
		peers:     make(map[*ROI]struct{}),
		listeners: make(map[EventType][]listener),
	}
	for _, opt := range opts {
		opt(r)
	}
	if kind == MultiSegmentLine && r.width < 1 {
		return nil, fmt.Errorf("%w: width %g below 1", ErrInvalidGeometry, r.width)
	}
	r.log = w.log.WithFields(logrus.Fields{"roi": r.id, "kind": kind})

	w.add(r)
	r.Mask()
	r.log.Debug("roi created")
	return r, nil
}

// ID returns the ROI's unique identifier.
func (r *ROI) ID() string { return r.id }

// Kind returns the ROI's shape kind.
func (r *ROI) Kind() Kind { return r.kind }

// Window returns the host window.
func (r *ROI) Window() *Window { return r.window }

// Color returns the pen colour.
func (r *ROI) Color() color.Color { return r.color }

// SetColor changes the pen colour.
func (r *ROI) SetColor(c color.Color) {
	if c != nil {
		r.color = c
	}
}

// Deleted reports whether Delete has been called.
func (r *ROI) Deleted() bool { return r.deleted }

// Points returns a copy of the canonical point list.
func (r *ROI) Points() []geometry.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return geometry.Clone(r.points)
}

// Width returns the line thickness; meaningful for MultiSegmentLine only.
func (r *ROI) Width() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.width
}

// Revision counts geometry updates applied to the ROI.
func (r *ROI) Revision() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.revision
}

// handles returns the draggable points. A rectangle exposes its two
// opposite corners rather than [position, size].
func (r *ROI) handles() []geometry.Point {
	pts := r.Points()
	if r.kind == Rectangle {
		return []geometry.Point{pts[0], pts[0].Add(pts[1])}
	}
	return pts
}

// Mask returns the pixels covered by the ROI, clipped to the window. The
// result is shared with the cache and must not be modified.
func (r *ROI) Mask() mask.Mask {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.maskValid {
		r.mask = r.computeMask()
		r.maskValid = true
	}
	return r.mask
}

func (r *ROI) computeMask() mask.Mask {
	b := r.window.Bounds()
	switch r.kind {
	case Rectangle:
		return mask.Rectangle(r.points[0], r.points[1], b)
	case Line:
		return mask.Line(r.points[0], r.points[1], b)
	case Freehand:
		return r.polygon.Mask(r.points, b)
	case MultiSegmentLine:
		return mask.MultiSegment(r.points, r.width, b)
	}
	return mask.Mask{}
}

// Trace returns the mean pixel value under the mask for every frame.
func (r *ROI) Trace() []float64 {
	return r.TraceRange(0, r.window.FrameCount())
}

// TraceRange returns the trace for frames [start, end), clamped to the
// frame count. An empty mask yields zeros rather than NaN.
func (r *ROI) TraceRange(start, end int) []float64 {
	n := r.window.FrameCount()
	start = max(start, 0)
	end = min(end, n)
	if start >= end {
		return []float64{}
	}

	m := r.Mask()
	out := make([]float64, end-start)
	if m.Empty() {
		return out
	}

	src := r.window.Source()
	vals := make([]float64, m.Len())
	for t := start; t < end; t++ {
		frame := src.Sample(t)
		for i := range m.XX {
			vals[i] = frame.At(m.YY[i], m.XX[i])
		}
		out[t-start] = stat.Mean(vals, nil)
	}
	return out
}

// Contains reports whether p falls inside the ROI.
func (r *ROI) Contains(p geometry.Point) bool {
	pts := r.Points()
	switch r.kind {
	case Rectangle:
		return geometry.BoundingBox([]geometry.Point{pts[0], pts[0].Add(pts[1])}).Contains(p)
	case Freehand:
		return geometry.PointInPolygon(p, pts)
	default:
		x, y := p.Round()
		return r.Mask().Contains(x, y)
	}
}

// On registers fn for event under key. Listeners registered under the same
// key are removed together by Off.
func (r *ROI) On(event EventType, key string, fn EventListener) {
	if r.deleted {
		return
	}
	r.listeners[event] = append(r.listeners[event], listener{key: key, fn: fn})
}

// Off removes every listener registered under key and returns how many were removed.
func (r *ROI) Off(key string) int {
	removed := 0
	for event, ls := range r.listeners {
		kept := ls[:0]
		for _, l := range ls {
			if l.key == key {
				removed++
				continue
			}
			kept = append(kept, l)
		}
		r.listeners[event] = kept
	}
	return removed
}

func (r *ROI) emit(event EventType) {
	ls := append([]listener(nil), r.listeners[event]...)
	for _, l := range ls {
		l.fn(r)
	}
}

// TraceTarget returns the display the ROI is plotted on, if any.
func (r *ROI) TraceTarget() TraceTarget { return r.target }

// AttachTrace records the display the ROI is plotted on.
func (r *ROI) AttachTrace(t TraceTarget) {
	if !r.deleted {
		r.target = t
	}
}

// DetachTrace clears the display if it is t.
func (r *ROI) DetachTrace(t TraceTarget) {
	if r.target == t {
		r.target = nil
	}
}

// notify emits the change notifications for a completed edit and
// propagates it to linked peers. A silenced ROI is being updated by
// propagation and stays quiet.
func (r *ROI) notify(finish bool) {
	if r.silenced > 0 {
		return
	}
	r.finishing = finish
	defer func() { r.finishing = false }()
	r.emit(EventChanged)
	if finish {
		r.emit(EventChangeFinished)
	}
	propagate(r, finish)
}

// Finishing reports whether the notification being delivered belongs to a
// definitive edit, so EventChangeFinished follows straight after EventChanged.
func (r *ROI) Finishing() bool { return r.finishing }

// setPoints stores new geometry and invalidates the mask.
func (r *ROI) setPoints(pts []geometry.Point) {
	r.setGeometry(pts, r.Width())
}

// setGeometry stores points and, for a MultiSegmentLine, width as one
// update. The freehand polygon cache follows whole-pixel moves.
func (r *ROI) setGeometry(pts []geometry.Point, width float64) {
	r.mu.Lock()
	r.points = pts
	if r.kind == MultiSegmentLine {
		r.width = width
	}
	if r.kind == Freehand {
		r.polygon.Follow(pts)
	}
	r.maskValid = false
	r.revision++
	r.mu.Unlock()
}

// DrawFromPoints replaces the geometry. finish marks the end of an edit.
func (r *ROI) DrawFromPoints(points []geometry.Point, finish bool) error {
	if r.deleted {
		return ErrDeleted
	}
	if err := r.kind.validate(len(points)); err != nil {
		return err
	}
	r.setPoints(geometry.Clone(points))
	r.notify(finish)
	return nil
}

// Translate moves the ROI by delta. A rectangle moves its top-left corner
// and keeps its size.
func (r *ROI) Translate(delta geometry.Point, finish bool) {
	if r.deleted {
		return
	}
	pts := r.Points()
	if r.kind == Rectangle {
		pts[0] = pts[0].Add(delta)
	} else {
		pts = geometry.Translate(pts, delta)
	}
	r.setPoints(pts)
	r.notify(finish)
}

// Resize changes the ROI's extent. A rectangle takes size as its new size;
// other kinds are scaled about their bounding box's top-left corner so the
// box spans size.
func (r *ROI) Resize(size geometry.Point, finish bool) error {
	if r.deleted {
		return ErrDeleted
	}
	pts := r.Points()
	if r.kind == Rectangle {
		pts[1] = size
	} else {
		box := geometry.BoundingBox(pts)
		sx, sy := scaleFactor(size.X, box.Size.X), scaleFactor(size.Y, box.Size.Y)
		for i, p := range pts {
			d := p.Sub(box.Min)
			pts[i] = box.Min.Add(geometry.Pt(d.X*sx, d.Y*sy))
		}
	}
	r.setPoints(pts)
	r.notify(finish)
	return nil
}

func scaleFactor(want, have float64) float64 {
	if have == 0 || math.IsNaN(want) {
		return 1
	}
	return want / have
}

// MovePoint drags handle i to p. Rectangle handles are the top-left (0)
// and bottom-right (1) corners; the opposite corner stays put.
func (r *ROI) MovePoint(i int, p geometry.Point, finish bool) error {
	if r.deleted {
		return ErrDeleted
	}
	pts := r.Points()
	if i < 0 || i >= len(pts) {
		return fmt.Errorf("point index %d out of range for %s roi with %d points", i, r.kind, len(pts))
	}
	if r.kind == Rectangle {
		corner := pts[0].Add(pts[1])
		if i == 0 {
			pts[0], pts[1] = p, corner.Sub(p)
		} else {
			pts[1] = p.Sub(pts[0])
		}
	} else {
		pts[i] = p
	}
	r.setPoints(pts)
	r.notify(finish)
	return nil
}

// SetWidth changes the thickness of a MultiSegmentLine.
func (r *ROI) SetWidth(w float64, finish bool) error {
	if r.deleted {
		return ErrDeleted
	}
	if r.kind != MultiSegmentLine {
		return fmt.Errorf("%w: %s roi has no width", ErrInvalidGeometry, r.kind)
	}
	if w < 1 {
		return fmt.Errorf("%w: width %g below 1", ErrInvalidGeometry, w)
	}
	r.mu.Lock()
	r.width = w
	r.maskValid = false
	r.revision++
	r.mu.Unlock()
	r.notify(finish)
	return nil
}

// Finish signals the end of a drag without further geometry changes.
func (r *ROI) Finish() {
	if r.deleted || r.silenced > 0 {
		return
	}
	r.emit(EventChangeFinished)
	propagate(r, true)
}

// CopyTo pastes a copy of the ROI onto another window. With link set the
// copy and the original are linked.
func (r *ROI) CopyTo(w *Window, link bool) (*ROI, error) {
	if r.deleted {
		return nil, ErrDeleted
	}
	c, err := New(r.kind, r.Points(), w, WithColor(r.color), WithWidth(r.Width()))
	if err != nil {
		return nil, fmt.Errorf("copy roi to %s: %w", w.Name(), err)
	}
	if link {
		Link(r, c)
	}
	return c, nil
}

// Peers returns the linked ROIs ordered by ID.
func (r *ROI) Peers() []*ROI {
	out := make([]*ROI, 0, len(r.peers))
	for p := range r.peers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// IsLinked reports whether other is one of r's peers.
func (r *ROI) IsLinked(other *ROI) bool {
	_, ok := r.peers[other]
	return ok
}

// Link links r with other; see the package-level Link.
func (r *ROI) Link(other *ROI) { Link(r, other) }

// Unlink removes the link between r and other.
func (r *ROI) Unlink(other *ROI) { Unlink(r, other) }

// Delete unplots the ROI, unlinks it from every peer and removes it from
// its window. Calling Delete again does nothing.
func (r *ROI) Delete() {
	if r.deleted {
		return
	}
	r.deleted = true

	if t := r.target; t != nil {
		t.RemoveROI(r)
		r.target = nil
	}
	for p := range r.peers {
		delete(p.peers, r)
	}
	r.peers = make(map[*ROI]struct{})
	r.window.remove(r)
	r.listeners = make(map[EventType][]listener)
	r.log.Debug("roi deleted")
}
