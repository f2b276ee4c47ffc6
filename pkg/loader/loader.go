// Package loader reads image files into frame stacks. A directory of
// images becomes a movie ordered by the number in each filename; a single
// file becomes a one-frame stack.
package loader

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	_ "golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"roitrace/internal/models"
)

var extensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".tif":  true,
	".tiff": true,
}

// IsImage reports whether name has a supported image extension.
func IsImage(name string) bool {
	return extensions[strings.ToLower(filepath.Ext(name))]
}

// LoadDir loads every supported image in dir as one frame. Frames are
// ordered by the trailing number of their filename, then by name. All
// images must share the dimensions of the first.
func LoadDir(dir string, log logrus.FieldLogger) (*models.Stack, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && IsImage(e.Name()) {
			files = append(files, e.Name())
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}

	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})

	stack := &models.Stack{}
	for i, name := range files {
		data, err := LoadImage(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load image %s: %w", name, err)
		}
		rows, cols := data.Dims()
		if i == 0 {
			stack.Width, stack.Height = cols, rows
		} else if cols != stack.Width || rows != stack.Height {
			return nil, fmt.Errorf("image %s is %dx%d, want %dx%d", name, cols, rows, stack.Width, stack.Height)
		}
		stack.Frames = append(stack.Frames, models.Frame{Data: data, Index: i, Filename: name})
	}

	log.WithFields(logrus.Fields{
		"dir":    dir,
		"frames": len(stack.Frames),
		"width":  stack.Width,
		"height": stack.Height,
	}).Info("loaded image stack")
	return stack, nil
}

// LoadFile loads a single image as a one-frame stack.
func LoadFile(path string) (*models.Stack, error) {
	data, err := LoadImage(path)
	if err != nil {
		return nil, err
	}
	stack, err := models.NewStack(data)
	if err != nil {
		return nil, err
	}
	stack.Frames[0].Filename = filepath.Base(path)
	return stack, nil
}

// LoadImage decodes an image file into a grey matrix with values in [0, 1].
func LoadImage(path string) (*mat.Dense, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
	}
	return imageToDense(img), nil
}

// imageToDense converts an image to grey levels.
func imageToDense(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	out := mat.NewDense(height, width, nil)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			out.Set(y, x, float64(g.Y)/65535.0)
		}
	}
	return out
}

// extractNumber returns the number at the end of the file's base name, or
// -1 when there is none.
func extractNumber(filename string) int {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	end := len(base)
	start := end
	for start > 0 && base[start-1] >= '0' && base[start-1] <= '9' {
		start--
	}
	if start == end {
		return -1
	}
	num, err := strconv.Atoi(base[start:end])
	if err != nil {
		return -1
	}
	return num
}
