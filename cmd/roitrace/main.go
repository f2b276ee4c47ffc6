package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"roitrace/internal/models"
	"roitrace/pkg/config"
	"roitrace/pkg/loader"
	"roitrace/pkg/roi"
	"roitrace/pkg/trace"
	"roitrace/pkg/visualization"
)

func main() {
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write a default configuration file to -config and exit")
	stackDir := flag.String("stack", "", "Directory of frames forming a movie")
	imagePath := flag.String("image", "", "Single image file (alternative to -stack)")
	roiPath := flag.String("rois", "", "ROI text file to trace")
	saveROIs := flag.String("save-rois", "", "Write the loaded ROIs back out in normalised form")
	csvPath := flag.String("csv", "", "Write traces as CSV")
	plotPath := flag.String("plot", "", "Write a trace plot image (format from extension)")
	overlayDir := flag.String("overlay", "", "Directory for frames with ROI masks drawn over them")
	frame := flag.Int("frame", -1, "Frame to render with -overlay (-1 renders every frame)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if (*stackDir == "") == (*imagePath == "") || *roiPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := initLogger(*debug || cfg.Output.Verbose)
	startTime := time.Now()

	stack, name, err := loadStack(*stackDir, *imagePath, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to load frames")
	}

	window := roi.NewWindow(name, stack,
		roi.WithPenColor(cfg.PenColor()),
		roi.WithWindowLogger(log),
	)

	rois, err := roi.LoadFile(*roiPath, window, roi.WithWidth(cfg.ROI.LineWidth))
	if err != nil {
		log.WithError(err).Fatal("Failed to load ROIs")
	}
	if len(rois) == 0 {
		log.WithField("file", *roiPath).Fatal("No ROIs to trace")
	}

	displays, err := plotAll(rois, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to plot traces")
	}
	defer func() {
		for _, d := range displays {
			d.Close()
		}
	}()

	if *saveROIs != "" {
		if err := roi.SaveFile(*saveROIs, rois); err != nil {
			log.WithError(err).Error("Failed to save ROIs")
		}
	}

	for i, d := range displays {
		if *csvPath != "" {
			if err := writeCSV(d, numbered(*csvPath, i, len(displays))); err != nil {
				log.WithError(err).Error("Failed to write CSV")
			}
		}
		if *plotPath != "" {
			curves := d.Surface().(*trace.MemorySurface).Curves(trace.PaneOverview)
			path := numbered(*plotPath, i, len(displays))
			if err := visualization.SaveTracePlot(curves, name, path, cfg.Output.PlotWidth, cfg.Output.PlotHeight); err != nil {
				log.WithError(err).Error("Failed to save trace plot")
			}
		}
	}

	if *overlayDir != "" {
		if err := writeOverlay(stack, rois, *overlayDir, *frame); err != nil {
			log.WithError(err).Error("Failed to write overlay")
		}
	}

	log.WithFields(logrus.Fields{
		"frames":   stack.FrameCount(),
		"rois":     len(rois),
		"displays": len(displays),
		"elapsed":  time.Since(startTime).String(),
	}).Info("Tracing completed")
}

func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}

func loadStack(dir, image string, log logrus.FieldLogger) (*models.Stack, string, error) {
	if dir != "" {
		s, err := loader.LoadDir(dir, log)
		return s, filepath.Base(filepath.Clean(dir)), err
	}
	s, err := loader.LoadFile(image)
	return s, filepath.Base(image), err
}

// plotAll plots every ROI into the current display, or into a display of
// its own when multiple trace windows are configured.
func plotAll(rois []*roi.ROI, cfg *config.Config, log logrus.FieldLogger) ([]*trace.Display, error) {
	var (
		current  *trace.Display
		displays []*trace.Display
	)
	opts := []trace.Option{
		trace.WithRedrawInterval(cfg.Trace.RedrawInterval),
		trace.WithLogger(log),
	}

	for _, r := range rois {
		target := current
		if cfg.Trace.MultipleTraceWindows {
			target = nil
		}
		d, err := trace.Plot(r, target, opts...)
		if err != nil {
			return displays, fmt.Errorf("plot roi %s: %w", r.ID(), err)
		}
		if d != current {
			displays = append(displays, d)
		}
		current = d
	}
	return displays, nil
}

func writeCSV(d *trace.Display, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := d.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeOverlay(stack *models.Stack, rois []*roi.ROI, dir string, frame int) error {
	viewer := visualization.NewViewer(stack)
	if frame < 0 {
		return viewer.SaveFrameSequence(dir, rois)
	}

	img, err := viewer.ExtractFrame(frame)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	return viewer.SaveFrame(viewer.DrawROIs(img, rois), filepath.Join(dir, fmt.Sprintf("frame_%03d.jpg", frame)))
}

// numbered inserts _N before the extension when more than one display
// writes to the same output path.
func numbered(path string, i, n int) string {
	if n <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), i+1, ext)
}
