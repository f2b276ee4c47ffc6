// Package trace plots ROI traces and keeps them current while ROIs are
// edited. A Display holds one curve per ROI; edits in progress refresh only
// the visible frames from a background worker, and a finished edit
// recomputes the whole trace on the caller's goroutine.
package trace

import (
	"encoding/csv"
	"errors"
	"fmt"
	"image/color"
	"io"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"roitrace/pkg/roi"
)

// DefaultRedrawInterval is the partial redraw cadence.
const DefaultRedrawInterval = 50 * time.Millisecond

// ErrClosed is returned when plotting onto a closed display.
var ErrClosed = errors.New("trace display closed")

type entry struct {
	roi      *roi.ROI
	key      string
	color    color.Color
	trace    []float64
	overview []float64
	dirty    bool
}

// Display is one trace view holding a curve per plotted ROI.
type Display struct {
	id       string
	surface  Surface
	interval time.Duration
	log      logrus.FieldLogger

	mu       sync.Mutex
	entries  map[*roi.ROI]*entry
	order    []*roi.ROI
	worker   *redrawWorker
	closed   bool
	onClose  []func(*Display)
	partials int
}

// Option configures a Display.
type Option func(*Display)

// WithSurface sets where curves are rendered. The default is a MemorySurface.
func WithSurface(s Surface) Option {
	return func(d *Display) {
		if s != nil {
			d.surface = s
		}
	}
}

// WithRedrawInterval sets the partial redraw cadence.
func WithRedrawInterval(interval time.Duration) Option {
	return func(d *Display) {
		if interval > 0 {
			d.interval = interval
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Display) {
		if l != nil {
			d.log = l
		}
	}
}

// OnClose registers fn to run when the display closes.
func OnClose(fn func(*Display)) Option {
	return func(d *Display) {
		d.onClose = append(d.onClose, fn)
	}
}

// NewDisplay creates an empty display.
func NewDisplay(opts ...Option) *Display {
	d := &Display{
		id:       uuid.NewString(),
		interval: DefaultRedrawInterval,
		log:      logrus.StandardLogger(),
		entries:  make(map[*roi.ROI]*entry),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.surface == nil {
		d.surface = NewMemorySurface()
	}
	d.log = d.log.WithField("display", d.id)
	d.log.Debug("trace display opened")
	return d
}

// Plot shows r's trace. An ROI that is already plotted stays on its
// display. Otherwise r is added to target, or to a new display built from
// opts when target is nil or closed. Which display counts as current is
// the caller's decision.
func Plot(r *roi.ROI, target *Display, opts ...Option) (*Display, error) {
	if d, ok := r.TraceTarget().(*Display); ok && !d.Closed() {
		return d, nil
	}
	if target == nil || target.Closed() {
		target = NewDisplay(opts...)
	}
	if err := target.AddROI(r); err != nil {
		return nil, err
	}
	return target, nil
}

// ID returns the display's identifier, also used as its listener key.
func (d *Display) ID() string { return d.id }

// Surface returns the rendering surface.
func (d *Display) Surface() Surface { return d.surface }

// AddROI plots r. The first ROI added sets the visible window to its whole
// trace. Adding an ROI that is already present does nothing; an ROI plotted
// on another display moves here.
func (d *Display) AddROI(r *roi.ROI) error {
	if r.Deleted() {
		return roi.ErrDeleted
	}
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	_, exists := d.entries[r]
	d.mu.Unlock()
	if exists {
		return nil
	}

	if other := r.TraceTarget(); other != nil && other != roi.TraceTarget(d) {
		other.RemoveROI(r)
	}

	tr := r.Trace()
	e := &entry{
		roi:      r,
		key:      r.ID(),
		color:    r.Color(),
		trace:    tr,
		overview: append([]float64(nil), tr...),
	}

	d.mu.Lock()
	d.entries[r] = e
	d.order = append(d.order, r)
	if len(d.order) == 1 {
		d.surface.SetRegion(0, float64(len(tr)-1))
	}
	d.surface.SetCurve(e.key, PaneTrace, xys(e.trace), e.color)
	d.surface.SetCurve(e.key, PaneOverview, xys(e.overview), e.color)
	d.mu.Unlock()

	r.On(roi.EventChanged, d.id, d.ROIChanged)
	r.On(roi.EventChangeFinished, d.id, d.ROIChangeFinished)
	r.AttachTrace(d)
	d.log.WithField("roi", r.ID()).Debug("roi plotted")
	return nil
}

// RemoveROI unplots r and drops its subscriptions. Removing the last ROI
// closes the display.
func (d *Display) RemoveROI(r *roi.ROI) {
	d.mu.Lock()
	e, ok := d.entries[r]
	if !ok {
		d.mu.Unlock()
		return
	}
	delete(d.entries, r)
	for i, o := range d.order {
		if o == r {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	d.surface.RemoveCurve(e.key)
	last := len(d.order) == 0
	d.mu.Unlock()

	r.Off(d.id)
	r.DetachTrace(d)
	d.log.WithField("roi", r.ID()).Debug("roi unplotted")

	if last {
		d.Close()
	}
}

// ROIChanged marks r's curve dirty and makes sure the partial redraw
// worker is running. A definitive edit only marks the curve, since
// ROIChangeFinished redraws it straight away.
func (d *Display) ROIChanged(r *roi.ROI) {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.entries[r]
	if !ok || d.closed {
		return
	}
	e.dirty = true
	if r.Finishing() {
		return
	}
	if d.worker == nil {
		d.worker = startWorker(d, d.interval)
		d.log.Debug("partial redraw started")
	}
}

// ROIChangeFinished stops the partial redraw worker, waiting for it to
// exit, then recomputes r's whole trace and refreshes both panes.
func (d *Display) ROIChangeFinished(r *roi.ROI) {
	d.stopWorker()

	d.mu.Lock()
	_, ok := d.entries[r]
	d.mu.Unlock()
	if !ok {
		return
	}

	tr := r.Trace()

	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[r]
	if !ok {
		return
	}
	e.trace = tr
	e.overview = append([]float64(nil), tr...)
	e.color = r.Color()
	e.dirty = false
	d.surface.SetCurve(e.key, PaneTrace, xys(e.trace), e.color)
	d.surface.SetCurve(e.key, PaneOverview, xys(e.overview), e.color)
}

func (d *Display) stopWorker() {
	d.mu.Lock()
	w := d.worker
	d.worker = nil
	d.mu.Unlock()

	if w != nil {
		w.stop()
		d.log.Debug("partial redraw stopped")
	}
}

// VisibleWindow returns the frames [start, end) under the region selector,
// widened to whole frames and clamped to the first curve's length.
func (d *Display) VisibleWindow() (start, end int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visibleWindowLocked()
}

func (d *Display) visibleWindowLocked() (int, int) {
	if len(d.order) == 0 {
		return 0, 0
	}
	n := len(d.entries[d.order[0]].trace)
	lo, hi := d.surface.Region()
	if hi < lo {
		lo, hi = hi, lo
	}
	start := clamp(int(math.Floor(lo)), 0, n)
	end := clamp(int(math.Ceil(hi))+1, 0, n)
	return start, end
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// redrawDirty runs one worker pass: every dirty curve gets the visible
// window recomputed and spliced into its trace. Curves removed in the
// meantime, or whose trace does not overlap the window, are skipped.
func (d *Display) redrawDirty(quit <-chan struct{}) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	var dirty []*entry
	for _, r := range d.order {
		if e := d.entries[r]; e.dirty {
			e.dirty = false
			dirty = append(dirty, e)
		}
	}
	start, end := d.visibleWindowLocked()
	d.mu.Unlock()

	for i, e := range dirty {
		if stopping(quit) {
			d.remark(dirty[i:])
			return
		}
		part, ok := d.partialTrace(e.roi, start, end)
		if !ok || len(part) == 0 {
			continue
		}

		d.mu.Lock()
		if d.entries[e.roi] == e && start+len(part) <= len(e.trace) {
			copy(e.trace[start:], part)
			d.partials++
			d.surface.SetCurve(e.key, PaneTrace, xys(e.trace), e.color)
		}
		d.mu.Unlock()
	}
}

// remark flags entries dirty again after an interrupted pass.
func (d *Display) remark(entries []*entry) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		if d.entries[e.roi] == e {
			e.dirty = true
		}
	}
}

func (d *Display) partialTrace(r *roi.ROI, start, end int) (part []float64, ok bool) {
	defer func() {
		if p := recover(); p != nil {
			d.log.WithFields(logrus.Fields{"roi": r.ID(), "panic": p}).Debug("partial redraw skipped")
			part, ok = nil, false
		}
	}()
	return r.TraceRange(start, end), true
}

// Close stops the worker, detaches every remaining ROI and closes the
// surface. It is safe to call more than once.
func (d *Display) Close() {
	d.stopWorker()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	remaining := d.order
	d.order = nil
	d.entries = make(map[*roi.ROI]*entry)
	callbacks := d.onClose
	d.mu.Unlock()

	for _, r := range remaining {
		r.Off(d.id)
		r.DetachTrace(d)
	}
	d.surface.Close()
	d.log.Debug("trace display closed")
	for _, fn := range callbacks {
		fn(d)
	}
}

// Closed reports whether the display has closed.
func (d *Display) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Redrawing reports whether the partial redraw worker is running.
func (d *Display) Redrawing() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.worker != nil
}

// PartialUpdates counts the window splices performed by the worker.
func (d *Display) PartialUpdates() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.partials
}

// ROIs returns the plotted ROIs in display order.
func (d *Display) ROIs() []*roi.ROI {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*roi.ROI(nil), d.order...)
}

// Len returns the number of plotted ROIs.
func (d *Display) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// Trace returns a copy of the main-pane data for r.
func (d *Display) Trace(r *roi.ROI) ([]float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[r]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), e.trace...), true
}

// Overview returns a copy of the overview-pane data for r.
func (d *Display) Overview(r *roi.ROI) ([]float64, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	e, ok := d.entries[r]
	if !ok {
		return nil, false
	}
	return append([]float64(nil), e.overview...), true
}

// WriteCSV writes the overview traces as CSV: a frame column followed by
// one column per ROI, headed by the ROI ID. Shorter traces leave their
// trailing cells empty.
func (d *Display) WriteCSV(w io.Writer) error {
	d.mu.Lock()
	header := []string{"frame"}
	cols := make([][]float64, 0, len(d.order))
	rows := 0
	for _, r := range d.order {
		e := d.entries[r]
		header = append(header, e.key)
		cols = append(cols, append([]float64(nil), e.overview...))
		rows = max(rows, len(e.overview))
	}
	d.mu.Unlock()

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	record := make([]string, len(header))
	for t := 0; t < rows; t++ {
		record[0] = strconv.Itoa(t)
		for i, col := range cols {
			record[i+1] = ""
			if t < len(col) {
				record[i+1] = strconv.FormatFloat(col[t], 'g', -1, 64)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", t, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
