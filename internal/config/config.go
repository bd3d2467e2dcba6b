// Package config loads the player configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mesh-engine/internal/types"
)

// Player is the demo player's configuration file.
type Player struct {
	// Backend selects the audio device backend: "sdl" or "portaudio".
	Backend string `yaml:"backend"`
	// SampleRate in frames per second.
	SampleRate int `yaml:"sample_rate"`
	// BlockFrames is the device block size.
	BlockFrames int `yaml:"block_frames"`
	// CommandCapacity sizes the UI command ring.
	CommandCapacity int `yaml:"command_capacity"`
	// ScratchInterpolation is "linear" or "cubic".
	ScratchInterpolation string `yaml:"scratch_interpolation"`
	// SlicerBufferBars is a slicer window length in bars, validated to
	// [1, 32]. The players do not pass it to the engine; decks start at a
	// fixed 4 bars until a SetSlicerBufferBars command changes a stem.
	SlicerBufferBars int `yaml:"slicer_buffer_bars"`
	// LogLevel is "debug", "info", "warn", or "error".
	LogLevel string `yaml:"log_level"`
}

// Default returns the configuration used when no file is present.
func Default() Player {
	return Player{
		Backend:              "sdl",
		SampleRate:           types.DefaultSampleRate,
		BlockFrames:          256,
		CommandCapacity:      256,
		ScratchInterpolation: "linear",
		SlicerBufferBars:     4,
		LogLevel:             "info",
	}
}

// Load reads a YAML config, filling unset fields from the defaults. A
// missing file is not an error; the defaults are returned.
func Load(path string) (Player, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (p *Player) validate() error {
	switch p.Backend {
	case "sdl", "portaudio":
	default:
		return fmt.Errorf("unknown backend %q", p.Backend)
	}
	if p.SampleRate < 8000 || p.SampleRate > 384000 {
		return fmt.Errorf("sample_rate %d out of range", p.SampleRate)
	}
	if p.BlockFrames < 16 || p.BlockFrames > types.MaxBlockFrames {
		return fmt.Errorf("block_frames %d out of range", p.BlockFrames)
	}
	if p.SlicerBufferBars < 1 || p.SlicerBufferBars > 32 {
		return fmt.Errorf("slicer_buffer_bars %d out of range", p.SlicerBufferBars)
	}
	switch p.ScratchInterpolation {
	case "linear", "cubic":
	default:
		return fmt.Errorf("unknown scratch_interpolation %q", p.ScratchInterpolation)
	}
	return nil
}

// ScratchCubic reports whether cubic scratch interpolation is selected.
func (p *Player) ScratchCubic() bool {
	return p.ScratchInterpolation == "cubic"
}
