// Package audio hosts the device backends that drive the engine's Process
// loop. The engine itself never touches a device; a backend owns the device
// thread (or callback) and calls Process once per hardware block.
//
// Two backends are provided: SDL2 (queue-based device loop) and PortAudio
// (callback). Both emit the master bus; the cue bus is rendered every block
// and available to hosts that route a second output.
package audio

import (
	"fmt"

	"mesh-engine/internal/engine"
	"mesh-engine/internal/types"
)

// Backend drives an engine against an audio device.
type Backend interface {
	// Start opens the device and begins calling engine.Process.
	Start() error
	// Stop halts the device and releases it.
	Stop()
}

// NewBackend constructs a backend by name ("sdl" or "portaudio").
func NewBackend(name string, eng *engine.Engine, blockFrames int) (Backend, error) {
	if blockFrames <= 0 || blockFrames > types.MaxBlockFrames {
		return nil, fmt.Errorf("bad block size %d", blockFrames)
	}
	switch name {
	case "sdl":
		return newSDLBackend(eng, blockFrames), nil
	case "portaudio":
		return newPortAudioBackend(eng, blockFrames), nil
	default:
		return nil, fmt.Errorf("unknown audio backend %q", name)
	}
}
