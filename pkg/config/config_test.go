package config

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "trace:\n  redrawInterval: 20ms\n  multipleTraceWindows: true\nroi:\n  defaultColor: \"#00ff80\"\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 20*time.Millisecond, cfg.Trace.RedrawInterval)
	assert.True(t, cfg.Trace.MultipleTraceWindows)
	assert.Equal(t, 1.0, cfg.ROI.LineWidth, "unset keys keep their defaults")
	assert.Equal(t, color.RGBA{G: 255, B: 128, A: 255}, cfg.PenColor())
}

func TestLoadConfigErrors(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("trace: [oops"), 0644))
	_, err := LoadConfig(bad)
	assert.Error(t, err)

	colour := filepath.Join(dir, "colour.yaml")
	require.NoError(t, os.WriteFile(colour, []byte("roi:\n  defaultColor: red\n"), 0644))
	_, err = LoadConfig(colour)
	assert.ErrorContains(t, err, "defaultColor")
}

func TestValidateRepairsRanges(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ROI.LineWidth = 0
	cfg.Trace.RedrawInterval = -time.Second
	cfg.Output.PlotWidth = 0
	cfg.ROI.DefaultColor = ""

	require.NoError(t, cfg.Validate())
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("validate mismatch (-want +got):\n%s", diff)
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Output.Verbose = true
	cfg.Trace.RedrawInterval = 75 * time.Millisecond
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, CreateDefaultConfigFile(path))
	loaded, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), loaded)
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#1a2B3c")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 0x1a, G: 0x2b, B: 0x3c, A: 255}, c)

	c, err = ParseHexColor("ffffff")
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, c)

	for _, in := range []string{"", "#fff", "#gggggg", "#1234567"} {
		_, err := ParseHexColor(in)
		assert.Error(t, err, in)
	}
}
