package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festcal", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.Equal(t, 100.0, cfg.PixelsPerHour)

	// The default file is written with restrictive permissions.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLoadParsesFullConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
listen: "0.0.0.0:9000"
timezone: Europe/Copenhagen
pixels_per_hour: 80
day_start_time: "14:00"
day_end_time: "03:00"
scenes:
  - name: Main Stage
  - name: Bøgescenen
events:
  - title: Headliner
    start_time: "2026-07-10T21:00:00+02:00"
    scene_id: main stage
    risk_level: high
    remarks: Extra barriers
ics:
  - url: https://example.com/lineup.ics
    id: lineup
    scene_id: Main Stage
basic_auth:
  username: crew
  password: s3cret
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Listen)
	require.Equal(t, 80.0, cfg.PixelsPerHour)
	require.Equal(t, "14:00", cfg.DayStartTime)
	require.Equal(t, "03:00", cfg.DayEndTime)
	require.Len(t, cfg.Scenes, 2)
	require.Len(t, cfg.Events, 1)
	require.Equal(t, "Extra barriers", cfg.Events[0].Remarks)
	require.Len(t, cfg.ICS, 1)
	require.Equal(t, "Main Stage", cfg.ICS[0].SceneID)
	require.NotNil(t, cfg.BasicAuth)

	// Normalize fills what the file omitted.
	require.Equal(t, "15:04", cfg.TimeFormat)
	require.Equal(t, 1024, cfg.ViewportWidth)
	require.NotEmpty(t, cfg.RefreshCron)
}

func TestNormalizeDefaults(t *testing.T) {
	var cfg Config
	cfg.Normalize()

	require.Equal(t, "127.0.0.1:8080", cfg.Listen)
	require.Equal(t, "Europe/Copenhagen", cfg.Timezone)
	require.Equal(t, 100.0, cfg.PixelsPerHour)
	require.Equal(t, "/var/lib/festcal", cfg.DataDir)
	require.NotNil(t, cfg.Scenes)
	require.NotNil(t, cfg.Events)
	require.NotNil(t, cfg.ICS)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.Scenes = []SceneConfig{{Name: "Main Stage"}}
	cfg.Events = []EventConfig{{Title: "Headliner", StartTime: "2026-07-10T21:00:00Z", SceneID: "main-stage"}}
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.Scenes, loaded.Scenes)
	require.Equal(t, cfg.Events, loaded.Events)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	require.Error(t, err)
}
