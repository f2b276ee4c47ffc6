package mask

import (
	"math"

	"roitrace/pkg/geometry"
)

// PolygonCache remembers the unclipped rasterization of a polygon together
// with the exact vertices it was filled from. When the polygon moves by a
// whole-pixel vector the cached pixels are shifted by that vector instead of
// running the scanline fill again; any other change refills.
//
// A PolygonCache is not safe for concurrent use.
type PolygonCache struct {
	vertices []geometry.Point
	pixels   Mask
	valid    bool

	// Fills counts full rasterizations; Hits counts cache reuses.
	Fills int
	Hits  int
}

// Mask returns the clipped polygon mask for vertices.
func (c *PolygonCache) Mask(vertices []geometry.Point, b Bounds) Mask {
	if len(vertices) < 3 {
		return Mask{}
	}

	if c.valid && (geometry.Equal(vertices, c.vertices) || c.shift(vertices)) {
		c.Hits++
	} else {
		c.vertices = geometry.Clone(vertices)
		c.pixels = scanPolygon(vertices, nil)
		c.valid = true
		c.Fills++
	}
	return c.pixels.Clip(b)
}

// Follow moves the cached pixels along with an edit of the polygon when the
// edit is a whole-pixel translation, and drops the cache otherwise. Calling
// it on every edit keeps a run of integral moves cached even when the mask
// is not read in between.
func (c *PolygonCache) Follow(vertices []geometry.Point) {
	if !c.valid || geometry.Equal(vertices, c.vertices) {
		return
	}
	if !c.shift(vertices) {
		c.Reset()
	}
}

// shift applies an integral translation from the cached vertices to
// vertices, reporting whether vertices are exactly such a translation.
func (c *PolygonCache) shift(vertices []geometry.Point) bool {
	if len(vertices) != len(c.vertices) || len(vertices) == 0 {
		return false
	}
	d := vertices[0].Sub(c.vertices[0])
	dx, dy := math.Round(d.X), math.Round(d.Y)
	if dx == 0 && dy == 0 {
		return false
	}
	if !geometry.Equal(geometry.Translate(c.vertices, geometry.Pt(dx, dy)), vertices) {
		return false
	}
	c.pixels = c.pixels.Offset(int(dx), int(dy))
	c.vertices = geometry.Clone(vertices)
	return true
}

// Reset discards the cached shape.
func (c *PolygonCache) Reset() {
	c.vertices = nil
	c.pixels = Mask{}
	c.valid = false
}
