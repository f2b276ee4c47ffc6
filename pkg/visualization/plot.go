package visualization

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"roitrace/pkg/trace"
)

// SaveTracePlot renders curves as a line plot of mean intensity per frame.
// The image format follows the extension of path; width and height are in
// inches.
func SaveTracePlot(curves []trace.Curve, title, path string, width, height float64) error {
	if len(curves) == 0 {
		return fmt.Errorf("no traces to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Mean intensity"

	for _, c := range curves {
		if len(c.Points) == 0 {
			continue
		}
		line, err := plotter.NewLine(c.Points)
		if err != nil {
			return fmt.Errorf("trace %s: %w", c.Key, err)
		}
		if c.Color != nil {
			line.Color = c.Color
		}
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(shortKey(c.Key), line)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("error creating plot directory: %w", err)
	}
	if err := p.Save(vg.Length(width)*vg.Inch, vg.Length(height)*vg.Inch, path); err != nil {
		return fmt.Errorf("error saving plot: %w", err)
	}
	return nil
}

// shortKey trims an ROI ID to its first group for the legend.
func shortKey(key string) string {
	if len(key) > 8 {
		return key[:8]
	}
	return key
}
