package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/framegpu/gpucore/config"
	"github.com/framegpu/gpucore/device"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"
)

func runRoot(t *testing.T, args ...string) (string, error) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--log-level", "error"))

	err := root.Execute()
	return out.String(), err
}

func TestRunSimStats(t *testing.T) {
	out, err := runRoot(t, "run", "--frames", "3", "--stats")
	require.NoError(t, err)

	var stats struct {
		General struct {
			Adapter             string
			RequestedFenceValue float64
			CompletedFenceValue float64
		}
		Total struct {
			Heaps int
			Slots int
		}
		Heaps map[string]any
	}
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	require.Equal(t, "Simulated Adapter", stats.General.Adapter)
	require.Equal(t, float64(3), stats.General.RequestedFenceValue)
	require.Equal(t, float64(3), stats.General.CompletedFenceValue)
	require.Equal(t, 3, stats.Total.Heaps)
	require.Equal(t, 300, stats.Total.Slots)
	require.Len(t, stats.Heaps, 3)
}

func TestRunWithoutStats(t *testing.T) {
	out, err := runRoot(t, "run", "-n", "1")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestAdapters(t *testing.T) {
	out, err := runRoot(t, "adapters")
	require.NoError(t, err)
	require.Contains(t, out, "DESCRIPTION")
	require.Contains(t, out, "Simulated Adapter")
}

func TestUnknownBackend(t *testing.T) {
	_, err := runRoot(t, "run", "--backend", "metal")
	require.ErrorContains(t, err, `unknown backend "metal"`)
	require.Equal(t, 1, device.ExitCode(err))
}

func TestRunFromConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gpucore.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend = "sim"
frames = 2

[device]
minimum_feature_level = "12_0"

[[sim.adapters]]
description = "Old Adapter"
max_feature_level = "11_1"
`), 0o644))

	_, err := runRoot(t, "run", "--config", path)
	require.ErrorIs(t, err, device.ErrDeviceCreationFailed)
}

func TestRunHeadless(t *testing.T) {
	cfg := config.Default()
	cfg.Frames = 4
	logger := slog.New(slog.NewTextHandler(io.Discard))

	var out bytes.Buffer
	err := run(&out, cfg, logger, 0, false)
	require.NoError(t, err)

	cfg.Backend = config.BackendVulkan
	require.False(t, presents(cfg, 0))
	cfg.Backend = config.BackendD3D12
	require.False(t, presents(cfg, 0))
	require.True(t, presents(cfg, 0x1234))
}
