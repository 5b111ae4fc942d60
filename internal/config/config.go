// Package config loads the streaming core's JSON configuration file
// and fills in defaults. Grounded on Koodeyo-Media/shaka-streamer-go's
// use of github.com/creasty/defaults to fill struct fields via a
// `default:"..."` tag, generalised from that repo's YAML pipeline
// config to this spec's JSON file (spec.md §6).
package config

import (
	"encoding/json"
	"os"

	"github.com/creasty/defaults"

	"github.com/eleven-am/goshl/internal/domain"
)

const (
	envVar      = "MEDIASTREAM_CONFIG"
	defaultPath = "./mediastream.config.json"
)

// HLSCacheConfig is the `hlsCache.*` block of the config file.
type HLSCacheConfig struct {
	Path            string `json:"path" default:"./data/hls-cache"`
	MaxSizeGB       int    `json:"maxSizeGB" default:"50"`
	SegmentTTLHours int    `json:"segmentTTLHours" default:"24"`
	SegmentDuration int    `json:"segmentDuration" default:"6"`
}

// TranscodingConfig is the `transcoding.*` block, mirroring
// domain.TranscodingSettings field-for-field so it can be converted
// directly (spec.md §3). EnableHardwareAccel is a *bool rather than
// bool: creasty/defaults applies a tag's default whenever a field
// holds its zero value, which would silently flip an explicit
// `"enableHardwareAccel": false` back to true; a pointer lets "unset"
// and "set false" be told apart.
type TranscodingConfig struct {
	Bitrate1080p        int    `json:"bitrate1080p" default:"8000"`
	Bitrate720p         int    `json:"bitrate720p" default:"5000"`
	Bitrate480p         int    `json:"bitrate480p" default:"2500"`
	Bitrate360p         int    `json:"bitrate360p" default:"1000"`
	PrefetchSegments    int    `json:"prefetchSegments" default:"2"`
	EnableHardwareAccel *bool  `json:"enableHardwareAccel" default:"true"`
	Preset              string `json:"preset" default:"veryfast"`
	EnableLowLatency    bool   `json:"enableLowLatency" default:"false"`
	ThreadCount         int    `json:"threadCount" default:"0"`
}

// Config is the fully resolved configuration for one process.
type Config struct {
	HLSCache    HLSCacheConfig    `json:"hlsCache"`
	Transcoding TranscodingConfig `json:"transcoding"`
}

// Load reads the file named by MEDIASTREAM_CONFIG, or
// ./mediastream.config.json when that variable is unset; if the chosen
// file does not exist, built-in defaults apply. Fields absent from the
// file are defaulted via creasty/defaults.
func Load() (*Config, error) {
	path := os.Getenv(envVar)
	if path == "" {
		path = defaultPath
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	case os.IsNotExist(err):
		// no config file at all; proceed with zero-value struct, which
		// defaults.Set below fills in entirely.
	default:
		return nil, err
	}

	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// TranscodingSettings converts the file-shaped TranscodingConfig into
// the domain type the core operates on. It is used as the
// settingscache fallback: the value served before the catalogue has
// ever answered a GetTranscodingSettings call successfully (spec.md
// §4.5).
func (c *Config) TranscodingSettings() domain.TranscodingSettings {
	t := c.Transcoding
	hwAccel := true
	if t.EnableHardwareAccel != nil {
		hwAccel = *t.EnableHardwareAccel
	}
	return domain.TranscodingSettings{
		Bitrate1080p:        t.Bitrate1080p,
		Bitrate720p:         t.Bitrate720p,
		Bitrate480p:         t.Bitrate480p,
		Bitrate360p:         t.Bitrate360p,
		SegmentDurationSec:  c.HLSCache.SegmentDuration,
		PrefetchSegments:    t.PrefetchSegments,
		EnableHardwareAccel: hwAccel,
		Preset:              t.Preset,
		EnableLowLatency:    t.EnableLowLatency,
		ThreadCount:         t.ThreadCount,
	}
}
