// Package config loads robotd configuration from a TOML file, with
// environment variable overrides for the settings that change between
// deployments.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPath is where the daemon looks for its config when
// ROBOTD_CONFIG is not set.
const DefaultPath = "robotd.toml"

// Camera holds the capture settings applied to every opened device.
type Camera struct {
	// Source selects the device: a numeric index ("1"), a device path
	// ("/dev/video0"), or "sim" for the built-in synthetic source.
	// Empty means the default device index.
	Source string `toml:"source"`

	Width  int `toml:"width"`
	Height int `toml:"height"`

	// VerifyNegotiation fails a grab when the driver silently clamps
	// the requested resolution.
	VerifyNegotiation bool `toml:"verify_negotiation"`

	// MedianKernel is the denoise aperture, odd and >= 3.
	MedianKernel int `toml:"median_kernel"`
}

// Server holds the daemon HTTP settings.
type Server struct {
	Listen string `toml:"listen"`
}

// Config is the full robotd configuration.
type Config struct {
	LogLevel string `toml:"log_level"`
	Camera   Camera `toml:"camera"`
	Server   Server `toml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Camera: Camera{
			Width:             1280,
			Height:            720,
			VerifyNegotiation: true,
			MedianKernel:      3,
		},
		Server: Server{
			Listen: ":10000",
		},
	}
}

// Load reads the config at path on top of the defaults and applies
// environment overrides. A missing file is not an error; a malformed
// one is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// defaults + env only
	case err != nil:
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Path returns the config file path from ROBOTD_CONFIG, or the default.
func Path() string {
	if p := os.Getenv("ROBOTD_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("ROBOTD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("ROBOTD_LISTEN"); v != "" {
		cfg.Server.Listen = v
	}
	if v := os.Getenv("ROBOTD_CAMERA"); v != "" {
		cfg.Camera.Source = v
	}
	if v := os.Getenv("ROBOTD_WIDTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Camera.Width = n
		}
	}
	if v := os.Getenv("ROBOTD_HEIGHT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Camera.Height = n
		}
	}
}
