package roi

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roitrace/internal/models"
	"roitrace/pkg/geometry"
)

func assertSymmetric(t *testing.T, rois []*ROI) {
	t.Helper()
	for _, x := range rois {
		for _, y := range rois {
			require.Equal(t, x.IsLinked(y), y.IsLinked(x), "link between %s and %s is one-sided", x.ID(), y.ID())
		}
		require.False(t, x.IsLinked(x), "roi linked to itself")
	}
}

func TestLinkIsTransitiveThroughTheGroup(t *testing.T) {
	w := newTestWindow(t, 10, 10, 1)
	a, _ := New(Rectangle, pts(0, 0, 2, 2), w)
	b, _ := New(Rectangle, pts(0, 0, 2, 2), w)
	c, _ := New(Rectangle, pts(0, 0, 2, 2), w)

	Link(a, b)
	Link(c, b)

	assert.True(t, c.IsLinked(a))
	assert.ElementsMatch(t, []*ROI{b, c}, a.Peers())
	assertSymmetric(t, []*ROI{a, b, c})

	Unlink(a, b)
	assert.False(t, a.IsLinked(b))
	assert.True(t, a.IsLinked(c), "removing one edge leaves the rest of the group")
	assert.True(t, b.IsLinked(c))
	assertSymmetric(t, []*ROI{a, b, c})
}

func TestLinkAcrossKindsIsIgnored(t *testing.T) {
	w := newTestWindow(t, 10, 10, 1)
	rect, _ := New(Rectangle, pts(0, 0, 2, 2), w)
	line, _ := New(Line, pts(0, 0, 2, 2), w)

	rect.Link(line)
	assert.Empty(t, rect.Peers())
	assert.Empty(t, line.Peers())

	rect.Link(rect)
	assert.Empty(t, rect.Peers())
}

func TestLinkSymmetryUnderRandomOperations(t *testing.T) {
	w := newTestWindow(t, 10, 10, 1)
	var rois []*ROI
	for i := 0; i < 8; i++ {
		kind := Rectangle
		if i%3 == 0 {
			kind = Line
		}
		r, err := New(kind, pts(0, 0, 2, 2), w)
		require.NoError(t, err)
		rois = append(rois, r)
	}

	rng := rand.New(rand.NewSource(42))
	for step := 0; step < 500; step++ {
		a, b := rois[rng.Intn(len(rois))], rois[rng.Intn(len(rois))]
		if rng.Intn(3) == 0 {
			Unlink(a, b)
		} else {
			Link(a, b)
		}
		assertSymmetric(t, rois)
	}
}

func TestPropagationTerminates(t *testing.T) {
	w1 := newTestWindow(t, 20, 20, 1)
	w2 := NewWindow("w2", models.Uniform(20, 20, 1, func(int) float64 { return 0 }))
	w3 := NewWindow("w3", models.Uniform(20, 20, 1, func(int) float64 { return 0 }))

	a, _ := New(Freehand, pts(1, 1, 5, 1, 3, 4), w1)
	b, _ := New(Freehand, pts(1, 1, 5, 1, 3, 4), w2)
	c, _ := New(Freehand, pts(1, 1, 5, 1, 3, 4), w3)
	Link(a, b)
	Link(b, c)

	target := newRecordingTarget()
	for _, r := range []*ROI{a, b, c} {
		r.AttachTrace(target)
	}
	changed := map[*ROI]int{}
	for _, r := range []*ROI{a, b, c} {
		r := r
		r.On(EventChanged, "count", func(*ROI) { changed[r]++ })
	}

	a.Translate(geometry.Pt(2, 3), false)

	assert.Equal(t, uint64(1), a.Revision())
	assert.Equal(t, uint64(1), b.Revision())
	assert.Equal(t, uint64(1), c.Revision())
	assert.Equal(t, a.Points(), b.Points())
	assert.Equal(t, a.Points(), c.Points())

	assert.Equal(t, 1, changed[a])
	assert.Zero(t, changed[b], "peers are silenced while propagating")
	assert.Zero(t, changed[c])
	assert.Equal(t, 1, target.changed[b])
	assert.Equal(t, 1, target.changed[c])
	assert.Zero(t, target.changed[a], "the source is not driven by its own propagation")
	assert.Empty(t, target.finished)

	a.Translate(geometry.Pt(1, 0), true)
	assert.Equal(t, 1, target.finished[b])
	assert.Equal(t, 1, target.finished[c])
	assert.Equal(t, uint64(2), a.Revision())
}

func TestLinkedTranslateThenUnlink(t *testing.T) {
	w1 := newTestWindow(t, 20, 20, 1)
	w2 := NewWindow("second", models.Uniform(20, 20, 1, func(int) float64 { return 0 }))

	a, _ := New(Rectangle, pts(2, 2, 3, 3), w1)
	b, _ := New(Rectangle, pts(2, 2, 3, 3), w2)
	a.Link(b)

	a.Translate(geometry.Pt(2, 1), true)
	assert.Equal(t, pts(4, 3, 3, 3), b.Points())

	a.Unlink(b)
	a.Translate(geometry.Pt(5, 5), true)
	assert.Equal(t, pts(4, 3, 3, 3), b.Points(), "no propagation after unlink")
	assert.Equal(t, pts(9, 8, 3, 3), a.Points())
}

func TestLinkedWidthChangePropagates(t *testing.T) {
	w1 := newTestWindow(t, 20, 20, 1)
	w2 := NewWindow("second", models.Uniform(20, 20, 1, func(int) float64 { return 0 }))

	a, err := New(MultiSegmentLine, pts(2, 10, 12, 10), w1)
	require.NoError(t, err)
	b, err := a.CopyTo(w2, true)
	require.NoError(t, err)
	target := newRecordingTarget()
	b.AttachTrace(target)

	require.NoError(t, a.SetWidth(5, true))
	assert.Equal(t, 5.0, b.Width())
	assert.Equal(t, a.Mask().Pixels(), b.Mask().Pixels())
	assert.Equal(t, 1, target.finished[b])

	// Later geometry edits keep the propagated width.
	a.Translate(geometry.Pt(0, 2), true)
	assert.Equal(t, 5.0, b.Width())
	assert.Equal(t, a.Mask().Len(), b.Mask().Len())
}

func TestFinishPropagatesWithoutGeometryChange(t *testing.T) {
	w := newTestWindow(t, 20, 20, 1)
	a, _ := New(Line, pts(0, 0, 4, 4), w)
	b, _ := New(Line, pts(0, 0, 4, 4), w)
	a.Link(b)

	target := newRecordingTarget()
	b.AttachTrace(target)

	a.Finish()
	assert.Equal(t, 1, target.finished[b])
}
