package roi

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"roitrace/pkg/geometry"
)

// Record is one ROI block of the text format: a kind header line, one
// "x y" line per point, and a blank terminating line.
type Record struct {
	Kind   Kind
	Points []geometry.Point
}

// Records returns the serialisable form of rois.
func Records(rois []*ROI) []Record {
	out := make([]Record, 0, len(rois))
	for _, r := range rois {
		if r.deleted {
			continue
		}
		out = append(out, Record{Kind: r.kind, Points: r.Points()})
	}
	return out
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteRecords writes records in the ROI text format.
func WriteRecords(w io.Writer, records []Record) error {
	bw := bufio.NewWriter(w)
	for _, rec := range records {
		fmt.Fprintf(bw, "%s\n", rec.Kind)
		for _, p := range rec.Points {
			fmt.Fprintf(bw, "%s %s\n", formatCoord(p.X), formatCoord(p.Y))
		}
		bw.WriteString("\n")
	}
	return bw.Flush()
}

// Encode writes rois in the ROI text format.
func Encode(w io.Writer, rois []*ROI) error {
	return WriteRecords(w, Records(rois))
}

// ReadRecords parses the ROI text format. Blank lines between blocks are
// tolerated and a final block may end at EOF without its blank line.
func ReadRecords(r io.Reader) ([]Record, error) {
	var (
		records []Record
		cur     *Record
		lineNo  int
	)
	flush := func() {
		if cur != nil {
			records = append(records, *cur)
			cur = nil
		}
	}

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			flush()
			continue
		}
		if cur == nil {
			kind, err := ParseKind(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", lineNo, err)
			}
			cur = &Record{Kind: kind}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("line %d: expected 2 coordinates, got %d", lineNo, len(fields))
		}
		x, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad x coordinate: %w", lineNo, err)
		}
		y, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad y coordinate: %w", lineNo, err)
		}
		cur.Points = append(cur.Points, geometry.Pt(x, y))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading roi text: %w", err)
	}
	flush()
	return records, nil
}

// Decode parses the ROI text format and creates every ROI on w. On a
// geometry error the ROIs created so far are deleted again.
func Decode(r io.Reader, w *Window, opts ...Option) ([]*ROI, error) {
	records, err := ReadRecords(r)
	if err != nil {
		return nil, err
	}

	rois := make([]*ROI, 0, len(records))
	for i, rec := range records {
		roi, err := New(rec.Kind, rec.Points, w, opts...)
		if err != nil {
			for _, created := range rois {
				created.Delete()
			}
			return nil, fmt.Errorf("roi %d: %w", i+1, err)
		}
		rois = append(rois, roi)
	}
	return rois, nil
}

// SaveFile writes rois to path, creating its directory if needed.
func SaveFile(path string, rois []*ROI) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating roi directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating roi file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, rois); err != nil {
		return fmt.Errorf("error writing roi file: %w", err)
	}
	return f.Close()
}

// LoadFile reads the ROIs in path onto w.
func LoadFile(path string, w *Window, opts ...Option) ([]*ROI, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening roi file: %w", err)
	}
	defer f.Close()

	rois, err := Decode(f, w, opts...)
	if err != nil {
		return nil, fmt.Errorf("error parsing %s: %w", path, err)
	}
	return rois, nil
}
