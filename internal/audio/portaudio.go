package audio

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"mesh-engine/internal/engine"
	"mesh-engine/internal/types"
)

// portAudioBackend drives the engine from PortAudio's callback; the
// callback thread is the engine's device thread.
type portAudioBackend struct {
	eng         *engine.Engine
	blockFrames int

	stream *portaudio.Stream
	master types.StereoBuffer
	cue    types.StereoBuffer
}

func newPortAudioBackend(eng *engine.Engine, blockFrames int) *portAudioBackend {
	return &portAudioBackend{
		eng:         eng,
		blockFrames: blockFrames,
		master:      types.NewStereoBuffer(blockFrames),
		cue:         types.NewStereoBuffer(blockFrames),
	}
}

func (b *portAudioBackend) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("portaudio init: %w", err)
	}

	stream, err := portaudio.OpenDefaultStream(
		0, 2, float64(b.eng.SampleRate()), b.blockFrames, b.callback)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("portaudio open: %w", err)
	}
	b.stream = stream

	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("portaudio start: %w", err)
	}
	return nil
}

// callback renders one hardware block. out is interleaved stereo.
func (b *portAudioBackend) callback(out []float32) {
	frames := len(out) / 2
	if frames > b.blockFrames {
		frames = b.blockFrames
	}

	b.eng.Process(b.master, b.cue, frames)

	for i := 0; i < frames; i++ {
		out[i*2] = b.master[i].Left
		out[i*2+1] = b.master[i].Right
	}
	for i := frames * 2; i < len(out); i++ {
		out[i] = 0
	}
}

func (b *portAudioBackend) Stop() {
	if b.stream != nil {
		b.stream.Stop()
		b.stream.Close()
	}
	portaudio.Terminate()
}
