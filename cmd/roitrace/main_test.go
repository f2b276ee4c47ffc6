package main

import (
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"roitrace/internal/models"
	"roitrace/pkg/config"
	"roitrace/pkg/geometry"
	"roitrace/pkg/roi"
)

func TestPlotAll(t *testing.T) {
	log, _ := test.NewNullLogger()
	stack := models.Uniform(8, 8, 4, func(t int) float64 { return float64(t) })
	w := roi.NewWindow("cli", stack, roi.WithWindowLogger(log))

	var rois []*roi.ROI
	for i := 0; i < 3; i++ {
		r, err := roi.New(roi.Line, []geometry.Point{geometry.Pt(0, float64(i)), geometry.Pt(5, float64(i))}, w)
		require.NoError(t, err)
		rois = append(rois, r)
	}

	cfg := config.DefaultConfig()
	displays, err := plotAll(rois, cfg, log)
	require.NoError(t, err)
	require.Len(t, displays, 1)
	assert.Equal(t, rois, displays[0].ROIs())
	displays[0].Close()

	cfg.Trace.MultipleTraceWindows = true
	displays, err = plotAll(rois, cfg, log)
	require.NoError(t, err)
	require.Len(t, displays, 3)
	for i, d := range displays {
		assert.Equal(t, []*roi.ROI{rois[i]}, d.ROIs())
		d.Close()
	}
}

func TestNumbered(t *testing.T) {
	assert.Equal(t, "out/trace.csv", numbered("out/trace.csv", 0, 1))
	assert.Equal(t, "out/trace_2.csv", numbered("out/trace.csv", 1, 3))
	assert.Equal(t, "plot_1", numbered("plot", 0, 2))
}
