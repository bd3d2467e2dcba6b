package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"mesh-engine/internal/engine"
	"mesh-engine/internal/types"
)

// sdlBackend feeds an SDL audio device from a queue-filling loop: whenever
// the device's queued audio drops below two blocks, it renders another
// block from the engine and queues it. The loop goroutine is the "device
// thread" of the engine's threading model.
type sdlBackend struct {
	eng         *engine.Engine
	blockFrames int

	dev    sdl.AudioDeviceID
	master types.StereoBuffer
	cue    types.StereoBuffer
	bytes  []byte

	stop chan struct{}
	done chan struct{}
}

func newSDLBackend(eng *engine.Engine, blockFrames int) *sdlBackend {
	return &sdlBackend{
		eng:         eng,
		blockFrames: blockFrames,
		master:      types.NewStereoBuffer(blockFrames),
		cue:         types.NewStereoBuffer(blockFrames),
		bytes:       make([]byte, blockFrames*8), // 2 channels x float32
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

func (b *sdlBackend) Start() error {
	if err := sdl.Init(sdl.INIT_AUDIO); err != nil {
		return fmt.Errorf("sdl init: %w", err)
	}

	want := sdl.AudioSpec{
		Freq:     int32(b.eng.SampleRate()),
		Format:   sdl.AUDIO_F32SYS,
		Channels: 2,
		Samples:  uint16(b.blockFrames),
	}
	var have sdl.AudioSpec
	dev, err := sdl.OpenAudioDevice("", false, &want, &have, 0)
	if err != nil {
		return fmt.Errorf("sdl open audio: %w", err)
	}
	b.dev = dev

	sdl.PauseAudioDevice(dev, false)
	go b.loop()
	return nil
}

// loop keeps roughly two blocks queued on the device.
func (b *sdlBackend) loop() {
	defer close(b.done)
	lowWater := uint32(len(b.bytes) * 2)

	for {
		select {
		case <-b.stop:
			return
		default:
		}

		if sdl.GetQueuedAudioSize(b.dev) >= lowWater {
			time.Sleep(time.Millisecond)
			continue
		}

		b.eng.Process(b.master, b.cue, b.blockFrames)

		for i := 0; i < b.blockFrames; i++ {
			binary.LittleEndian.PutUint32(b.bytes[i*8:], math.Float32bits(b.master[i].Left))
			binary.LittleEndian.PutUint32(b.bytes[i*8+4:], math.Float32bits(b.master[i].Right))
		}
		if err := sdl.QueueAudio(b.dev, b.bytes); err != nil {
			return
		}
	}
}

func (b *sdlBackend) Stop() {
	close(b.stop)
	<-b.done
	sdl.CloseAudioDevice(b.dev)
	sdl.QuitSubSystem(sdl.INIT_AUDIO)
}
