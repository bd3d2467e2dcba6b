// meshplay is the headless demo player: it loads stem tracks into the
// engine, starts an audio backend, and plays. It is the smallest host that
// exercises the full core.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"mesh-engine/internal/audio"
	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/command"
	"mesh-engine/internal/config"
	"mesh-engine/internal/engine"
	"mesh-engine/internal/music"
	"mesh-engine/internal/stems"
	"mesh-engine/internal/trackio"
)

func main() {
	configPath := pflag.String("config", "", "Path to player config YAML")
	backendName := pflag.String("backend", "", "Audio backend: sdl or portaudio (overrides config)")
	stemDir := pflag.String("stems", "", "Stem directory for deck 0 (vocals/drums/bass/other.wav)")
	stemDir2 := pflag.String("stems2", "", "Stem directory for deck 1")
	bpm := pflag.Float64("bpm", 120, "Track BPM for deck 0")
	bpm2 := pflag.Float64("bpm2", 120, "Track BPM for deck 1")
	key := pflag.String("key", "", "Musical key of deck 0 (e.g. Am)")
	key2 := pflag.String("key2", "", "Musical key of deck 1")
	globalBPM := pflag.Float64("global-bpm", 0, "Global tempo (default: deck 0 BPM)")
	duration := pflag.Duration("duration", 0, "Stop after this long (0 = run until interrupted)")
	pflag.Parse()

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "meshplay"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("config", "err", err)
	}
	if *backendName != "" {
		cfg.Backend = *backendName
	}
	switch cfg.LogLevel {
	case "debug":
		logger.SetLevel(charmlog.DebugLevel)
	case "warn":
		logger.SetLevel(charmlog.WarnLevel)
	case "error":
		logger.SetLevel(charmlog.ErrorLevel)
	}

	eng, err := engine.New(engine.Config{
		SampleRate:      cfg.SampleRate,
		MaxBlockFrames:  cfg.BlockFrames,
		CommandCapacity: cfg.CommandCapacity,
		ScratchCubic:    cfg.ScratchCubic(),
		Logger:          logger,
	})
	if err != nil {
		logger.Fatal("engine", "err", err)
	}
	defer eng.Close()

	warnKeyClash(logger, *key, *key2)

	sender := eng.CommandSender()
	load := func(deckIdx int, dir string, trackBPM float64) {
		var sb *stems.StemBuffers
		if dir == "" {
			logger.Info("no stem directory, synthesizing test material", "deck", deckIdx)
			sb = trackio.TestTrack(trackBPM, 30, cfg.SampleRate)
		} else {
			sb, err = trackio.LoadStemDir(dir, cfg.SampleRate)
			if err != nil {
				logger.Fatal("load stems", "deck", deckIdx, "err", err)
			}
		}
		grid := beatgrid.Generate(trackBPM, 0, sb.TotalFrames, cfg.SampleRate)
		sender.Send(command.Command{
			Type:  command.LoadTrack,
			Deck:  deckIdx,
			Stems: stems.Track(sb),
			Grid:  grid,
			BPM:   trackBPM,
		})
		logger.Info("track loaded", "deck", deckIdx, "frames", sb.TotalFrames, "bpm", trackBPM)
	}

	load(0, *stemDir, *bpm)
	if *stemDir2 != "" {
		load(1, *stemDir2, *bpm2)
	}

	if *globalBPM > 0 {
		sender.Send(command.Command{Type: command.SetGlobalBPM, Value: *globalBPM})
	} else {
		sender.Send(command.Command{Type: command.SetGlobalBPM, Value: *bpm})
	}

	backend, err := audio.NewBackend(cfg.Backend, eng, cfg.BlockFrames)
	if err != nil {
		logger.Fatal("backend", "err", err)
	}
	if err := backend.Start(); err != nil {
		logger.Fatal("backend start", "err", err)
	}
	defer backend.Stop()

	sender.Send(command.Command{Type: command.Play, Deck: 0})
	if *stemDir2 != "" {
		sender.Send(command.Command{Type: command.Play, Deck: 1})
	}
	logger.Info("playing", "backend", cfg.Backend, "rate", cfg.SampleRate, "block", cfg.BlockFrames)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	var timeout <-chan time.Time
	if *duration > 0 {
		timeout = time.After(*duration)
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	da, _, _ := eng.AtomicsForDeck(0)

	for {
		select {
		case <-ticker.C:
			pos := da.Position.Load()
			fmt.Printf("\rdeck 0: %-10v %10d / %d frames  clip=%v   ",
				da.State(), pos, da.TotalFrames.Load(), eng.ClipIndicator().Swap(false))
		case <-sig:
			fmt.Println()
			logger.Info("interrupted, shutting down")
			return
		case <-timeout:
			fmt.Println()
			logger.Info("duration elapsed, shutting down")
			return
		}
	}
}

// warnKeyClash logs when the two decks' keys are harmonically incompatible.
func warnKeyClash(logger *charmlog.Logger, a, b string) {
	if a == "" || b == "" {
		return
	}
	ka, okA := music.Parse(a)
	kb, okB := music.Parse(b)
	if !okA || !okB {
		logger.Warn("unparseable key", "key", a, "key2", b)
		return
	}
	if !music.Compatible(ka, kb) {
		logger.Warn("keys are not harmonically compatible",
			"deck0", ka.CamelotString(), "deck1", kb.CamelotString(),
			"transpose", music.SemitonesToMatch(kb, ka))
	}
}
