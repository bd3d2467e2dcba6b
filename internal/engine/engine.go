// Package engine is the top level of the audio core. The engine owns the
// four decks, the mixer, the safety clipper, the latency compensator, and
// the command/state surfaces; the device thread drives it with one Process
// call per audio block.
//
// Real-time discipline inside Process: no allocation, no blocking locks, no
// system calls, and every loop bounded by the caller's frame count. Deck
// processing fans out across a fixed pool of four workers (one per deck)
// that exists before the first block arrives.
package engine

import (
	"fmt"
	"sync/atomic"
	"time"

	charmlog "github.com/charmbracelet/log"

	"mesh-engine/internal/clipper"
	"mesh-engine/internal/command"
	"mesh-engine/internal/deck"
	"mesh-engine/internal/latency"
	"mesh-engine/internal/mixer"
	"mesh-engine/internal/reclaim"
	"mesh-engine/internal/rtlog"
	"mesh-engine/internal/state"
	"mesh-engine/internal/tempo"
	"mesh-engine/internal/types"
)

// Config carries engine construction parameters.
type Config struct {
	// SampleRate in frames per second. Defaults to types.DefaultSampleRate.
	SampleRate int
	// MaxBlockFrames is the largest block Process accepts. Defaults to
	// types.MaxBlockFrames.
	MaxBlockFrames int
	// CommandCapacity is the command ring size. Defaults to 256.
	CommandCapacity int
	// ScratchCubic selects 4-point scratch interpolation.
	ScratchCubic bool
	// Logger receives the audio thread's diagnostics via the rtlog drain.
	// Nil disables logging.
	Logger *charmlog.Logger
}

// Engine is the audio core. One instance per process; owned by the audio
// thread after Start-of-processing, except for the explicitly thread-safe
// surfaces (CommandSender, the atomics, ClipIndicator).
type Engine struct {
	sampleRate int
	maxBlock   int

	decks [types.NumDecks]*deck.Deck

	deckAtomics   [types.NumDecks]state.DeckAtomics
	slicerAtomics [types.NumDecks][types.NumStems]state.SlicerAtomics
	linkedAtomics [types.NumDecks]state.LinkedStemAtomics

	comp *latency.Compensator
	mix  *mixer.Mixer
	clip *clipper.Clipper
	sync *tempo.Coordinator

	sender   *command.Sender
	consumer *command.Consumer
	applyFn  func(command.Command)

	rtLog *rtlog.Ring

	// Preallocated block buffers.
	deckBufs  [types.NumDecks]types.StereoBuffer
	masterBuf types.StereoBuffer
	cueBuf    types.StereoBuffer

	// Worker pool: one goroutine per deck, signalled with the block's
	// frame count and joined through done.
	start [types.NumDecks]chan int
	done  chan struct{}
	quit  chan struct{}
}

// New constructs the engine and everything it owns. The reclaimer and the
// worker pool are both live before New returns, so the audio thread never
// pays a lazy-init cost.
func New(cfg Config) (*Engine, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = types.DefaultSampleRate
	}
	if cfg.SampleRate < 8000 || cfg.SampleRate > 384000 {
		return nil, fmt.Errorf("unsupported sample rate %d", cfg.SampleRate)
	}
	if cfg.MaxBlockFrames == 0 {
		cfg.MaxBlockFrames = types.MaxBlockFrames
	}
	if cfg.MaxBlockFrames < 16 || cfg.MaxBlockFrames > types.MaxBlockFrames {
		return nil, fmt.Errorf("unsupported max block size %d", cfg.MaxBlockFrames)
	}
	if cfg.CommandCapacity == 0 {
		cfg.CommandCapacity = 256
	}

	// Large-buffer reclamation must exist before any track handle is
	// dropped on the audio thread.
	reclaim.Warmup()

	e := &Engine{
		sampleRate: cfg.SampleRate,
		maxBlock:   cfg.MaxBlockFrames,
		mix:        mixer.New(cfg.SampleRate),
		clip:       clipper.New(cfg.SampleRate),
		sync:       tempo.New(),
		masterBuf:  types.NewStereoBuffer(cfg.MaxBlockFrames),
		cueBuf:     types.NewStereoBuffer(cfg.MaxBlockFrames),
		done:       make(chan struct{}, types.NumDecks),
		quit:       make(chan struct{}),
	}

	e.rtLog = rtlog.NewRing(1024)
	if cfg.Logger != nil {
		e.rtLog.Start(cfg.Logger, 50*time.Millisecond)
	}

	e.comp = latency.New(types.MaxLatencySamples, e.rtLog)
	e.sender, e.consumer = command.NewChannel(cfg.CommandCapacity)
	e.applyFn = e.apply

	for i := 0; i < types.NumDecks; i++ {
		e.decks[i] = deck.New(deck.Config{
			Index:        i,
			SampleRate:   cfg.SampleRate,
			ScratchCubic: cfg.ScratchCubic,
			Log:          e.rtLog,
		})
		e.deckBufs[i] = types.NewStereoBuffer(cfg.MaxBlockFrames)
		e.start[i] = make(chan int)

		// Seed the compensator with each path's fixed stretcher latency so
		// the global-max invariant holds from the first block.
		for s := types.Stem(0); s < types.NumStems; s++ {
			e.comp.SetStemLatency(i, s, e.decks[i].StemLatency(s))
		}
	}

	for i := 0; i < types.NumDecks; i++ {
		go e.deckWorker(i)
	}

	return e, nil
}

// deckWorker renders one deck per block. The pool is permanent: workers
// block on their start channel between blocks and exit only on Close.
func (e *Engine) deckWorker(i int) {
	d := e.decks[i]
	for {
		select {
		case frames := <-e.start[i]:
			d.Process(e.deckBufs[i], frames, e.comp)
			e.done <- struct{}{}
		case <-e.quit:
			return
		}
	}
}

// Close stops the worker pool and the log drain. The engine must not be
// processed afterwards.
func (e *Engine) Close() {
	close(e.quit)
	e.rtLog.Stop()
}

// CommandSender returns the UI-side command handle. Exactly one goroutine
// may use it.
func (e *Engine) CommandSender() *command.Sender {
	return e.sender
}

// AtomicsForDeck returns the read-only state cells for one deck.
// Out-of-range indices clamp to deck 0.
func (e *Engine) AtomicsForDeck(i int) (*state.DeckAtomics, *[types.NumStems]state.SlicerAtomics, *state.LinkedStemAtomics) {
	if i < 0 || i >= types.NumDecks {
		i = 0
	}
	return &e.deckAtomics[i], &e.slicerAtomics[i], &e.linkedAtomics[i]
}

// ClipIndicator returns the master clip flag; the UI reads and clears it.
func (e *Engine) ClipIndicator() *atomic.Bool {
	return e.clip.Indicator()
}

// Sync returns the tempo coordinator (atomic reads are UI-safe).
func (e *Engine) Sync() *tempo.Coordinator {
	return e.sync
}

// SampleRate returns the engine rate.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// Process renders one audio block: drain commands, render the decks in
// parallel, mix, clip, write the outputs, publish state. Called by the
// device thread once per block. frames == 0 is a no-op that touches
// nothing, not even the atomics.
func (e *Engine) Process(master, cue types.StereoBuffer, frames int) {
	if frames <= 0 {
		return
	}
	if frames > e.maxBlock {
		frames = e.maxBlock
	}
	if frames > len(master) {
		frames = len(master)
	}
	if frames > len(cue) {
		frames = len(cue)
	}

	// 1. Apply every command pending at block start.
	e.consumer.Drain(e.applyFn)

	// 2. Render all four decks in parallel.
	for i := 0; i < types.NumDecks; i++ {
		e.start[i] <- frames
	}
	for i := 0; i < types.NumDecks; i++ {
		<-e.done
	}

	// 3. Mixer pass into the buses.
	mbuf := e.masterBuf[:frames]
	cbuf := e.cueBuf[:frames]
	mbuf.FillSilence()
	cbuf.FillSilence()
	for i := 0; i < types.NumDecks; i++ {
		e.mix.MixChannel(i, e.deckBufs[i][:frames], mbuf, cbuf)
	}

	// 4. Safety clipper on master only.
	e.clip.Process(mbuf)

	// 5. Write the caller's outputs.
	copy(master[:frames], mbuf)
	copy(cue[:frames], cbuf)

	// 6. Publish state.
	for i := 0; i < types.NumDecks; i++ {
		e.decks[i].Publish(&e.deckAtomics[i], &e.slicerAtomics[i], &e.linkedAtomics[i])
	}
}
