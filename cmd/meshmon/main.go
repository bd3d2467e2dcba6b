// meshmon is the control/monitor UI: a small fyne app playing the role of
// the engine's "UI thread" collaborator. It reads the published atomics to
// render deck state and sends every mutation through the command ring;
// it never touches engine internals.
package main

import (
	"fmt"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"mesh-engine/internal/audio"
	"mesh-engine/internal/beatgrid"
	"mesh-engine/internal/command"
	"mesh-engine/internal/config"
	"mesh-engine/internal/engine"
	"mesh-engine/internal/stems"
	"mesh-engine/internal/trackio"
	"mesh-engine/internal/types"
)

func main() {
	configPath := pflag.String("config", "", "Path to player config YAML")
	backendName := pflag.String("backend", "", "Audio backend: sdl or portaudio (overrides config)")
	bpm := pflag.Float64("bpm", 124, "BPM of the synthesized demo tracks")
	pflag.Parse()

	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{Prefix: "meshmon"})

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("config", "err", err)
	}
	if *backendName != "" {
		cfg.Backend = *backendName
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

	sender := eng.CommandSender()

	// Two synthesized demo tracks so the monitor is usable without files.
	for deckIdx := 0; deckIdx < 2; deckIdx++ {
		sb := trackio.TestTrack(*bpm, 60, cfg.SampleRate)
		sender.Send(command.Command{
			Type:  command.LoadTrack,
			Deck:  deckIdx,
			Stems: stems.Track(sb),
			Grid:  beatgrid.Generate(*bpm, 0, sb.TotalFrames, cfg.SampleRate),
			BPM:   *bpm,
		})
	}

	backend, err := audio.NewBackend(cfg.Backend, eng, cfg.BlockFrames)
	if err != nil {
		logger.Fatal("backend", "err", err)
	}
	if err := backend.Start(); err != nil {
		logger.Fatal("backend start", "err", err)
	}
	defer backend.Stop()

	a := app.New()
	w := a.NewWindow("mesh monitor")

	clipLabel := widget.NewLabel("clip: –")
	deckRows := make([]*fyne.Container, 2)
	deckLabels := make([]*widget.Label, 2)

	for i := 0; i < 2; i++ {
		deckIdx := i
		deckLabels[i] = widget.NewLabel("stopped")

		play := widget.NewButton("Play", func() {
			sender.Send(command.Command{Type: command.Play, Deck: deckIdx})
		})
		pause := widget.NewButton("Pause", func() {
			sender.Send(command.Command{Type: command.Pause, Deck: deckIdx})
		})
		cue := widget.NewButton("Cue", func() {
			sender.Send(command.Command{Type: command.CuePress, Deck: deckIdx})
		})
		loop := widget.NewButton("Loop", func() {
			sender.Send(command.Command{Type: command.ToggleLoop, Deck: deckIdx})
		})
		pfl := widget.NewCheck("PFL", func(on bool) {
			sender.Send(command.Command{
				Type: command.SetMixerParam, Mixer: command.MixerCuePFL,
				Deck: deckIdx, Flag: on,
			})
		})

		volume := widget.NewSlider(0, 1)
		volume.Step = 0.01
		volume.Value = 1
		volume.OnChanged = func(v float64) {
			sender.Send(command.Command{
				Type: command.SetMixerParam, Mixer: command.MixerVolume,
				Deck: deckIdx, Value: v,
			})
		}

		deckRows[i] = container.NewVBox(
			widget.NewLabel(fmt.Sprintf("Deck %d", deckIdx)),
			deckLabels[i],
			container.NewHBox(play, pause, cue, loop, pfl),
			volume,
		)
	}

	crossfader := widget.NewSlider(0, 1)
	crossfader.Step = 0.01
	crossfader.Value = 0.5
	crossfader.OnChanged = func(v float64) {
		sender.Send(command.Command{
			Type: command.SetMixerParam, Mixer: command.MixerCrossfader,
			Value: v*2 - 1,
		})
	}

	w.SetContent(container.NewVBox(
		deckRows[0],
		deckRows[1],
		widget.NewLabel("Crossfader"),
		crossfader,
		clipLabel,
	))

	// Poll the atomics and refresh the labels on the UI thread.
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				fyne.Do(func() {
					for i := 0; i < 2; i++ {
						da, _, _ := eng.AtomicsForDeck(i)
						pos := da.Position.Load()
						total := da.TotalFrames.Load()
						secs := float64(pos) / float64(cfg.SampleRate)
						deckLabels[i].SetText(fmt.Sprintf("%-10s %8.2fs  %d/%d",
							types.PlayState(da.PlayState.Load()), secs, pos, total))
					}
					if eng.ClipIndicator().Swap(false) {
						clipLabel.SetText("clip: CLIP")
					} else {
						clipLabel.SetText("clip: –")
					}
				})
			}
		}
	}()

	w.SetOnClosed(func() { close(stop) })
	w.Resize(fyne.NewSize(480, 420))
	w.ShowAndRun()
}
