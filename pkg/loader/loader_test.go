package loader

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

func grey(width, height int, level uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func writeTIFF(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, tiff.Encode(f, img, nil))
}

func TestLoadDirOrdersByTrailingNumber(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "frame10.png"), grey(4, 3, 255))
	writePNG(t, filepath.Join(dir, "frame2.png"), grey(4, 3, 0))
	writeTIFF(t, filepath.Join(dir, "frame3.tif"), grey(4, 3, 51))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0644))

	log, hook := test.NewNullLogger()
	stack, err := LoadDir(dir, log)
	require.NoError(t, err)

	assert.Equal(t, 3, stack.FrameCount())
	w, h := stack.Dimensions()
	assert.Equal(t, 4, w)
	assert.Equal(t, 3, h)

	names := []string{stack.Frames[0].Filename, stack.Frames[1].Filename, stack.Frames[2].Filename}
	assert.Equal(t, []string{"frame2.png", "frame3.tif", "frame10.png"}, names)

	assert.InDelta(t, 0.0, stack.Sample(0).At(1, 1), 1e-9)
	assert.InDelta(t, 0.2, stack.Sample(1).At(2, 3), 1e-3)
	assert.InDelta(t, 1.0, stack.Sample(2).At(0, 0), 1e-9)

	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.InfoLevel, hook.LastEntry().Level)
	assert.Equal(t, 3, hook.LastEntry().Data["frames"])
}

func TestLoadDirErrors(t *testing.T) {
	empty := t.TempDir()
	_, err := LoadDir(empty, nil)
	assert.Error(t, err)

	_, err = LoadDir(filepath.Join(empty, "missing"), nil)
	assert.Error(t, err)

	mixed := t.TempDir()
	writePNG(t, filepath.Join(mixed, "a1.png"), grey(4, 4, 10))
	writePNG(t, filepath.Join(mixed, "a2.png"), grey(5, 4, 10))
	_, err = LoadDir(mixed, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a2.png")

	broken := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(broken, "x.png"), []byte("not a png"), 0644))
	_, err = LoadDir(broken, nil)
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "still.png")
	writePNG(t, path, grey(6, 2, 128))

	stack, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, stack.FrameCount())
	assert.Equal(t, "still.png", stack.Frames[0].Filename)
	assert.InDelta(t, 128.0/255.0, stack.Sample(0).At(1, 5), 1e-3)
}

func TestExtractNumber(t *testing.T) {
	tests := map[string]int{
		"img_007.png":     7,
		"scan12b.tif":     -1,
		"movie.jpeg":      -1,
		"dir/t2_0100.jpg": 100,
	}
	for name, want := range tests {
		assert.Equal(t, want, extractNumber(name), name)
	}
}

func TestIsImage(t *testing.T) {
	assert.True(t, IsImage("a.PNG"))
	assert.True(t, IsImage("a.tiff"))
	assert.False(t, IsImage("a.gif"))
	assert.False(t, IsImage("rois.txt"))
}
