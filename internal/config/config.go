// Package config provides configuration for the sctui client.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"
)

// Common errors.
var (
	ErrMissingClientID     = errors.New("client id is required")
	ErrMissingClientSecret = errors.New("client secret is required")
)

// Config holds all application configuration.
type Config struct {
	// OAuth application credentials
	ClientID     string
	ClientSecret string

	// TokenPath is where the bearer credential is persisted as JSON.
	TokenPath string

	// LogPath enables file logging when non-empty. The TUI owns the
	// terminal, so nothing is logged to stderr while running.
	LogPath string

	// Playback settings
	VolumeStep float64
	SeekStep   time.Duration

	// Download settings
	MaxBandwidth int64 // bytes per second, 0 = unlimited
}

// Playback and caching constants.
const (
	// PrefetchSegments is how far ahead of the audio clock the segment
	// pump is allowed to run.
	PrefetchSegments = 3

	// SegmentCacheCap bounds the per-track segment cache.
	SegmentCacheCap = 12

	// ManifestTTL is how long a fetched manifest stays usable for the
	// same track.
	ManifestTTL = 30 * time.Minute

	// Crossfade applied to the outgoing sink on a seek.
	CrossfadeDuration = 35 * time.Millisecond
	CrossfadeSteps    = 7

	// WaveBufferCap bounds the visualizer sample ring.
	WaveBufferCap = 2048

	DefaultVolumeStep = 0.1
	DefaultSeekStep   = 10 * time.Second
)

// New returns a Config populated from the environment with defaults
// applied. Missing credentials only become an error once Validate runs,
// so callers can still inspect paths.
func New() *Config {
	return &Config{
		ClientID:     os.Getenv("SOUNDCLOUD_CLIENT_ID"),
		ClientSecret: os.Getenv("SOUNDCLOUD_CLIENT_SECRET"),
		TokenPath:    defaultTokenPath(),
		LogPath:      os.Getenv("SCTUI_LOG"),
		VolumeStep:   DefaultVolumeStep,
		SeekStep:     DefaultSeekStep,
	}
}

// Validate checks that the configuration is usable and normalizes values.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return ErrMissingClientID
	}
	if c.ClientSecret == "" {
		return ErrMissingClientSecret
	}
	if c.VolumeStep <= 0 {
		c.VolumeStep = DefaultVolumeStep
	}
	if c.SeekStep <= 0 {
		c.SeekStep = DefaultSeekStep
	}
	return nil
}

func defaultTokenPath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "sctui", "token.json")
	}
	return "token.json"
}
