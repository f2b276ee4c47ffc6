// Package mask rasterizes ROI geometry into integer pixel coordinate sets.
// Every function here is pure; results are clipped to the image bounds, with
// out-of-range pixels dropped rather than clamped.
package mask

import (
	"math"
	"sort"

	"roitrace/pkg/geometry"
)

// Bounds is the extent of the image a mask is clipped to.
type Bounds struct {
	Width  int
	Height int
}

// In reports whether pixel (x, y) lies inside the bounds.
func (b Bounds) In(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// Mask holds parallel pixel coordinate arrays. Entry i covers pixel (XX[i], YY[i]).
type Mask struct {
	XX []int
	YY []int
}

// Len returns the number of pixels in the mask.
func (m Mask) Len() int {
	return len(m.XX)
}

// Empty reports whether the mask covers no pixels.
func (m Mask) Empty() bool {
	return len(m.XX) == 0
}

func (m *Mask) add(x, y int) {
	m.XX = append(m.XX, x)
	m.YY = append(m.YY, y)
}

// Offset returns the mask shifted by (dx, dy) without clipping.
func (m Mask) Offset(dx, dy int) Mask {
	out := Mask{XX: make([]int, len(m.XX)), YY: make([]int, len(m.YY))}
	for i := range m.XX {
		out.XX[i] = m.XX[i] + dx
		out.YY[i] = m.YY[i] + dy
	}
	return out
}

// Clip drops every pixel outside b.
func (m Mask) Clip(b Bounds) Mask {
	out := Mask{XX: make([]int, 0, len(m.XX)), YY: make([]int, 0, len(m.YY))}
	for i := range m.XX {
		if b.In(m.XX[i], m.YY[i]) {
			out.add(m.XX[i], m.YY[i])
		}
	}
	return out
}

// Contains reports whether pixel (x, y) is covered.
func (m Mask) Contains(x, y int) bool {
	for i := range m.XX {
		if m.XX[i] == x && m.YY[i] == y {
			return true
		}
	}
	return false
}

// Pixel is one mask coordinate.
type Pixel struct{ X, Y int }

// Pixels returns the coordinates sorted by row then column.
func (m Mask) Pixels() []Pixel {
	px := make([]Pixel, len(m.XX))
	for i := range m.XX {
		px[i] = Pixel{m.XX[i], m.YY[i]}
	}
	sort.Slice(px, func(i, j int) bool {
		if px[i].Y != px[j].Y {
			return px[i].Y < px[j].Y
		}
		return px[i].X < px[j].X
	})
	return px
}

// Rectangle covers every integer point in [topLeft, topLeft+size). Both
// corners are rounded to the pixel grid; a negative size extends the box
// towards the origin, and a zero extent on either axis yields an empty mask.
func Rectangle(topLeft, size geometry.Point, b Bounds) Mask {
	x0, y0 := topLeft.Round()
	w, h := size.Round()
	if w < 0 {
		x0, w = x0+w, -w
	}
	if h < 0 {
		y0, h = y0+h, -h
	}

	xStart, xEnd := max(x0, 0), min(x0+w, b.Width)
	yStart, yEnd := max(y0, 0), min(y0+h, b.Height)

	var m Mask
	for x := xStart; x < xEnd; x++ {
		for y := yStart; y < yEnd; y++ {
			m.add(x, y)
		}
	}
	return m
}

// Line rasterizes the segment between the rounded endpoints with
// Bresenham's algorithm. Both endpoints are included, so p1 == p2 yields
// a single pixel.
func Line(p1, p2 geometry.Point, b Bounds) Mask {
	return bresenham(p1, p2).Clip(b)
}

func bresenham(p1, p2 geometry.Point) Mask {
	x0, y0 := p1.Round()
	x1, y1 := p2.Round()

	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}

	var m Mask
	err := dx + dy
	for {
		m.add(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
	return m
}

// Polygon fills a closed polygon with an even-odd scanline fill. A pixel
// (x, y) is covered when its integer coordinate falls inside the half-open
// span between two edge crossings on row y. Self-intersecting input is not
// rejected; it simply fills whatever the even-odd rule yields.
func Polygon(vertices []geometry.Point, b Bounds) Mask {
	return scanPolygon(vertices, &b)
}

// scanPolygon rasterizes vertices; with clip == nil the result is unclipped.
func scanPolygon(vertices []geometry.Point, clip *Bounds) Mask {
	var m Mask
	if len(vertices) < 3 {
		return m
	}

	box := geometry.BoundingBox(vertices)
	yStart := int(math.Ceil(box.Min.Y))
	yLimit := box.Max().Y
	if clip != nil {
		yStart = max(yStart, 0)
		yLimit = math.Min(yLimit, float64(clip.Height))
	}

	n := len(vertices)
	xs := make([]float64, 0, 8)
	for y := yStart; float64(y) < yLimit; y++ {
		fy := float64(y)
		xs = xs[:0]
		for i := 0; i < n; i++ {
			a, c := vertices[i], vertices[(i+1)%n]
			if (a.Y <= fy && fy < c.Y) || (c.Y <= fy && fy < a.Y) {
				xs = append(xs, a.X+(fy-a.Y)*(c.X-a.X)/(c.Y-a.Y))
			}
		}
		sort.Float64s(xs)

		for i := 0; i+1 < len(xs); i += 2 {
			xStart := int(math.Ceil(xs[i]))
			xEnd := int(math.Ceil(xs[i+1]))
			if clip != nil {
				xStart = max(xStart, 0)
				xEnd = min(xEnd, clip.Width)
			}
			for x := xStart; x < xEnd; x++ {
				m.add(x, y)
			}
		}
	}
	return m
}

// MultiSegment rasterizes the polyline through vertices. With width <= 1 the
// result is the concatenation of the per-segment line masks, so pixels at
// shared joints appear once per segment. With a wider line each segment
// covers the pixels whose perpendicular distance from it is at most width/2
// and whose projection falls on the segment; those sets are unioned.
func MultiSegment(vertices []geometry.Point, width float64, b Bounds) Mask {
	var m Mask
	if len(vertices) < 2 {
		return m
	}

	if width <= 1 {
		for i := 0; i+1 < len(vertices); i++ {
			seg := Line(vertices[i], vertices[i+1], b)
			m.XX = append(m.XX, seg.XX...)
			m.YY = append(m.YY, seg.YY...)
		}
		return m
	}

	seen := make(map[Pixel]struct{})
	half := width / 2
	for i := 0; i+1 < len(vertices); i++ {
		thickSegment(vertices[i], vertices[i+1], half, b, func(x, y int) {
			p := Pixel{x, y}
			if _, ok := seen[p]; ok {
				return
			}
			seen[p] = struct{}{}
			m.add(x, y)
		})
	}
	return m
}

func thickSegment(a, c geometry.Point, half float64, b Bounds, emit func(x, y int)) {
	length := a.Distance(c)
	var ux, uy float64
	if length > 0 {
		ux, uy = (c.X-a.X)/length, (c.Y-a.Y)/length
	}

	box := geometry.BoundingBox([]geometry.Point{a, c})
	xStart := max(int(math.Floor(box.Min.X-half)), 0)
	xEnd := min(int(math.Ceil(box.Max().X+half)), b.Width-1)
	yStart := max(int(math.Floor(box.Min.Y-half)), 0)
	yEnd := min(int(math.Ceil(box.Max().Y+half)), b.Height-1)

	for y := yStart; y <= yEnd; y++ {
		for x := xStart; x <= xEnd; x++ {
			dx, dy := float64(x)-a.X, float64(y)-a.Y
			if length == 0 {
				if math.Hypot(dx, dy) <= half {
					emit(x, y)
				}
				continue
			}
			along := dx*ux + dy*uy
			across := math.Abs(dx*uy - dy*ux)
			if along >= 0 && along <= length && across <= half {
				emit(x, y)
			}
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
