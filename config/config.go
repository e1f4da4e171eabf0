// Package config reads the TOML configuration of the gpucore command and turns it into the
// option structs of the library packages.
package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/framegpu/gpucore/device"
	"github.com/framegpu/gpucore/driver"
	"github.com/framegpu/gpucore/driver/sim"
	"github.com/framegpu/gpucore/swapchain"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/exp/slog"
)

const (
	BackendSim    = "sim"
	BackendVulkan = "vulkan"
	BackendD3D12  = "d3d12"
)

type Config struct {
	// Backend selects the driver: sim, vulkan or d3d12
	Backend string `toml:"backend"`
	// Frames is the number of frames the run command submits
	Frames int `toml:"frames"`

	Log       LogConfig       `toml:"log"`
	Device    DeviceConfig    `toml:"device"`
	Swapchain SwapchainConfig `toml:"swapchain"`
	Sim       SimConfig       `toml:"sim"`
}

type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `toml:"level"`
	// Format is text or json
	Format string `toml:"format"`
}

type DeviceConfig struct {
	MinimumFeatureLevel string   `toml:"minimum_feature_level"`
	HeapCapacity        int      `toml:"heap_capacity"`
	RTVHeapCapacity     int      `toml:"rtv_heap_capacity"`
	DSVHeapCapacity     int      `toml:"dsv_heap_capacity"`
	CSUHeapCapacity     int      `toml:"csu_heap_capacity"`
	PreferredVendors    []string `toml:"preferred_vendors"`
	// FenceWaitTimeout is a Go duration string; empty or "0" waits forever
	FenceWaitTimeout       string `toml:"fence_wait_timeout"`
	SpinWait               bool   `toml:"spin_wait"`
	ReclaimableDescriptors bool   `toml:"reclaimable_descriptors"`
	SynchronizedHeaps      bool   `toml:"synchronized_heaps"`
	// Validation turns on the native debug layer of the vulkan and d3d12 backends
	Validation bool `toml:"validation"`
}

type SwapchainConfig struct {
	Width       uint32     `toml:"width"`
	Height      uint32     `toml:"height"`
	BufferCount int        `toml:"buffer_count"`
	Immediate   bool       `toml:"immediate"`
	ClearColor  [4]float32 `toml:"clear_color"`
}

type SimAdapterConfig struct {
	Description     string `toml:"description"`
	VendorID        uint32 `toml:"vendor_id"`
	Software        bool   `toml:"software"`
	MaxFeatureLevel string `toml:"max_feature_level"`
}

type SimConfig struct {
	Adapters []SimAdapterConfig `toml:"adapters"`
}

// Default is the configuration used when no file is given
func Default() Config {
	return Config{
		Backend: BackendSim,
		Frames:  3,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Device: DeviceConfig{
			MinimumFeatureLevel: driver.FeatureLevel11_0.String(),
			HeapCapacity:        device.DefaultHeapCapacity,
		},
		Swapchain: SwapchainConfig{
			Width:       800,
			Height:      600,
			BufferCount: swapchain.DefaultBufferCount,
			ClearColor:  [4]float32{0, 0.2, 0.4, 1},
		},
	}
}

// Parse reads TOML over the defaults and validates the result. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()

	decoder := toml.NewDecoder(r)
	decoder.DisallowUnknownFields()
	err := decoder.Decode(&cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to parse configuration")
	}

	err = cfg.Validate()
	if err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Load parses the TOML file at path
func Load(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "failed to open configuration %s", path)
	}
	defer file.Close()

	cfg, err := Parse(file)
	if err != nil {
		return cfg, errors.Wrapf(err, "in %s", path)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Backend {
	case BackendSim, BackendVulkan, BackendD3D12:
	default:
		return errors.Newf("unknown backend %q: expected %s, %s or %s", c.Backend, BackendSim, BackendVulkan, BackendD3D12)
	}

	if c.Frames < 0 {
		return errors.Newf("frames cannot be negative, but %d was provided", c.Frames)
	}

	_, err := c.LogLevel()
	if err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return errors.Newf("unknown log format %q: expected text or json", c.Log.Format)
	}

	_, err = c.DeviceOptions()
	if err != nil {
		return err
	}

	if c.Swapchain.BufferCount < 0 {
		return errors.Newf("swapchain.buffer_count cannot be negative, but %d was provided", c.Swapchain.BufferCount)
	}

	_, err = c.SimOptions()
	return err
}

func (c Config) LogLevel() (slog.Level, error) {
	switch strings.ToLower(c.Log.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, errors.Newf("unknown log level %q", c.Log.Level)
}

// NewLogger builds the handler described by the log section, writing to w
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}

	options := slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.New(options.NewJSONHandler(w)), nil
	}
	return slog.New(options.NewTextHandler(w)), nil
}

func (c Config) DeviceOptions() (device.Options, error) {
	options := device.Options{
		HeapCapacity:     c.Device.HeapCapacity,
		RTVHeapCapacity:  c.Device.RTVHeapCapacity,
		DSVHeapCapacity:  c.Device.DSVHeapCapacity,
		CSUHeapCapacity:  c.Device.CSUHeapCapacity,
		PreferredVendors: c.Device.PreferredVendors,
	}

	if c.Device.MinimumFeatureLevel != "" {
		level, err := driver.ParseFeatureLevel(c.Device.MinimumFeatureLevel)
		if err != nil {
			return options, errors.Wrap(err, "device.minimum_feature_level")
		}
		options.MinimumFeatureLevel = level
	}

	if c.Device.FenceWaitTimeout != "" {
		timeout, err := time.ParseDuration(c.Device.FenceWaitTimeout)
		if err != nil {
			return options, errors.Wrap(err, "device.fence_wait_timeout")
		}
		options.FenceWaitTimeout = timeout
	}

	if c.Device.SpinWait {
		options.Flags |= device.CreateSpinWait
	}
	if c.Device.ReclaimableDescriptors {
		options.Flags |= device.CreateReclaimableDescriptors
	}
	if c.Device.SynchronizedHeaps {
		options.Flags |= device.CreateSynchronizedHeaps
	}

	err := options.Validate()
	if err != nil {
		return options, errors.Wrap(err, "device")
	}
	return options, nil
}

func (c Config) SwapchainDesc() swapchain.Desc {
	return swapchain.Desc{
		Width:       c.Swapchain.Width,
		Height:      c.Swapchain.Height,
		BufferCount: c.Swapchain.BufferCount,
		Immediate:   c.Swapchain.Immediate,
	}
}

// SimOptions describes the simulated adapters. An empty list uses sim.DefaultAdapter.
func (c Config) SimOptions() (sim.Options, error) {
	var options sim.Options
	for index, adapter := range c.Sim.Adapters {
		level := driver.FeatureLevel12_1
		if adapter.MaxFeatureLevel != "" {
			var err error
			level, err = driver.ParseFeatureLevel(adapter.MaxFeatureLevel)
			if err != nil {
				return options, errors.Wrapf(err, "sim.adapters[%d].max_feature_level", index)
			}
		}

		options.Adapters = append(options.Adapters, sim.AdapterConfig{
			Description:     adapter.Description,
			VendorID:        adapter.VendorID,
			Software:        adapter.Software,
			MaxFeatureLevel: level,
		})
	}
	return options, nil
}
