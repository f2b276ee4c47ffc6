package roi

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roitrace/pkg/geometry"
)

const sampleROIs = `rectangle
3 2
2 2

line
0 0
3 0

freehand
1 1
8 1
8 6
2 7

rect_line
1 1
5 1
5 9

`

func TestEncodeFormat(t *testing.T) {
	w := newTestWindow(t, 20, 20, 1)
	rect, _ := New(Rectangle, pts(3, 2, 2, 2), w)
	line, _ := New(Line, pts(0, 0, 3, 0), w)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, []*ROI{rect, line}))
	assert.Equal(t, "rectangle\n3 2\n2 2\n\nline\n0 0\n3 0\n\n", buf.String())
}

func TestRoundTrip(t *testing.T) {
	w := newTestWindow(t, 20, 20, 1)
	rois, err := Decode(strings.NewReader(sampleROIs), w)
	require.NoError(t, err)
	require.Len(t, rois, 4)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, rois))
	assert.Equal(t, sampleROIs, buf.String())

	w2 := newTestWindow(t, 20, 20, 1)
	again, err := Decode(&buf, w2)
	require.NoError(t, err)
	if diff := cmp.Diff(Records(rois), Records(again)); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripFractional(t *testing.T) {
	records := []Record{{Kind: Line, Points: []geometry.Point{{X: 0.25, Y: -3.5}, {X: 1e-3, Y: 12345.678}}}}

	var buf bytes.Buffer
	require.NoError(t, WriteRecords(&buf, records))
	got, err := ReadRecords(&buf)
	require.NoError(t, err)
	assert.Equal(t, records, got)
}

func TestReadRecordsTolerance(t *testing.T) {
	in := "\n\nline\n 1\t2 \n3 4\n\n\n\nrectangle\n0 0\n5 5"
	got, err := ReadRecords(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, Line, got[0].Kind)
	assert.Equal(t, pts(1, 2, 3, 4), got[0].Points)
	assert.Equal(t, pts(0, 0, 5, 5), got[1].Points)
}

func TestReadRecordsErrors(t *testing.T) {
	tests := map[string]string{
		"unknown kind":  "circle\n1 1\n\n",
		"too many cols": "line\n1 2 3\n\n",
		"bad number":    "line\n1 x\n\n",
	}
	for name, in := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadRecords(strings.NewReader(in))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "line ")
		})
	}
}

func TestDecodeRollsBackOnGeometryError(t *testing.T) {
	w := newTestWindow(t, 20, 20, 1)
	_, err := Decode(strings.NewReader("line\n0 0\n1 1\n\nfreehand\n0 0\n1 1\n\n"), w)
	require.ErrorIs(t, err, ErrInvalidGeometry)
	assert.Empty(t, w.ROIs())
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "rois.txt")

	w := newTestWindow(t, 20, 20, 1)
	rois, err := Decode(strings.NewReader(sampleROIs), w)
	require.NoError(t, err)
	require.NoError(t, SaveFile(path, rois))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, sampleROIs, string(raw))

	loaded, err := LoadFile(path, newTestWindow(t, 20, 20, 1))
	require.NoError(t, err)
	assert.Equal(t, Records(rois), Records(loaded))

	_, err = LoadFile(filepath.Join(dir, "missing.txt"), w)
	assert.Error(t, err)
}
