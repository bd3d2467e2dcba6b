package engine

import (
	"mesh-engine/internal/command"
	"mesh-engine/internal/rtlog"
	"mesh-engine/internal/tempo"
	"mesh-engine/internal/types"
)

// apply executes one command on the audio thread. Out-of-range deck or stem
// indices are ignored; payloads that replace large data release their
// predecessors here, where the reclaimer makes the drop cheap.
func (e *Engine) apply(cmd command.Command) {
	if cmd.Deck < 0 || cmd.Deck >= types.NumDecks {
		return
	}
	d := e.decks[cmd.Deck]

	switch cmd.Type {
	case command.LoadTrack:
		if sb := cmd.Stems.Get(); sb != nil && sb.SampleRate != e.sampleRate {
			e.rtLog.Push(rtlog.LevelWarn, "track sample rate differs from engine rate",
				int64(sb.SampleRate), int64(e.sampleRate))
		}
		d.LoadTrack(cmd.Stems, cmd.Grid, cmd.BPM, cmd.TrackGain)
		d.SetRatio(e.sync.RatioFor(cmd.BPM))
		e.comp.ClearDeck(cmd.Deck)
		e.refreshDeckLatencies(cmd.Deck)

	case command.Play:
		e.phaseSync(cmd.Deck)
		d.Play()

	case command.Pause:
		d.Pause()

	case command.Seek:
		d.Seek(cmd.Frame)

	case command.ScratchStart:
		d.ScratchStart()
	case command.ScratchMove:
		d.ScratchMove(cmd.Frame)
	case command.ScratchEnd:
		d.ScratchEnd()

	case command.SetCuePoint:
		d.SetCuePoint()
	case command.CuePress:
		d.CuePress()
	case command.CueRelease:
		d.CueRelease()
	case command.HotCuePress:
		e.phaseSync(cmd.Deck)
		d.HotCuePress(cmd.Slot)
	case command.HotCueRelease:
		d.HotCueRelease(cmd.Slot)
	case command.SetDropMarker:
		d.SetDropMarker(cmd.Frame)

	case command.ToggleLoop:
		d.ToggleLoop()
	case command.AdjustLoopLength:
		d.AdjustLoopLength(cmd.Delta)
	case command.BeatJump:
		d.BeatJump(cmd.Beats)
	case command.StoreLoop:
		d.StoreLoop(cmd.Slot)
	case command.RecallLoop:
		d.RecallLoop(cmd.Slot)

	case command.SetSlicerSequence:
		d.SetSlicerSequence(cmd.Stem, cmd.Seq)
	case command.EnableSlicer:
		d.EnableSlicer(cmd.Stem, cmd.Flag)
	case command.SetSlicerBufferBars:
		d.SetSlicerBufferBars(cmd.Stem, cmd.Beats)

	case command.LinkStem:
		if linked := cmd.Stems.Get(); linked != nil && linked.SampleRate != e.sampleRate {
			e.rtLog.Push(rtlog.LevelWarn, "linked stem sample rate differs from engine rate",
				int64(linked.SampleRate), int64(e.sampleRate))
			cmd.Stems.Release()
			return
		}
		d.LinkStem(cmd.Stem, cmd.Stems, cmd.DropMarker)
	case command.UnlinkStem:
		d.UnlinkStem(cmd.Stem)
	case command.ToggleLinkedActive:
		d.ToggleLinkedActive(cmd.Stem)

	case command.SetEffectChain:
		d.SetChain(cmd.Stem, cmd.Chain)
		e.refreshStemLatency(cmd.Deck, cmd.Stem)
	case command.InsertEffect:
		if cmd.Effect != nil {
			d.Chain(cmd.Stem).Insert(cmd.EffectIdx, cmd.Effect)
			e.refreshStemLatency(cmd.Deck, cmd.Stem)
		}
	case command.RemoveEffect:
		d.Chain(cmd.Stem).Remove(cmd.EffectIdx)
		e.refreshStemLatency(cmd.Deck, cmd.Stem)
	case command.MoveEffect:
		d.Chain(cmd.Stem).Move(cmd.EffectIdx, cmd.Slot)
	case command.SetEffectParam:
		d.Chain(cmd.Stem).SetParam(cmd.EffectIdx, cmd.ParamIdx, float32(cmd.Value))
	case command.SetEffectBypass:
		d.Chain(cmd.Stem).SetBypass(cmd.EffectIdx, cmd.Flag)
		e.refreshStemLatency(cmd.Deck, cmd.Stem)

	case command.SetGlobalBPM:
		e.sync.SetGlobalBPM(cmd.Value)
		for _, dd := range e.decks {
			if dd.TrackBPM() > 0 {
				dd.SetRatio(e.sync.RatioFor(dd.TrackBPM()))
			}
		}
	case command.SetMasterDeck:
		e.sync.SetMasterDeck(cmd.Deck)
	case command.SetSyncEnabled:
		e.sync.SetEnabled(cmd.Flag)

	case command.SetMixerParam:
		e.applyMixerParam(cmd)
	}
}

func (e *Engine) applyMixerParam(cmd command.Command) {
	switch cmd.Mixer {
	case command.MixerVolume:
		e.mix.SetVolume(cmd.Deck, cmd.Value)
	case command.MixerFilter:
		e.mix.SetFilter(cmd.Deck, cmd.Value)
	case command.MixerEQLow:
		e.mix.SetEQ(cmd.Deck, 0, cmd.Value)
	case command.MixerEQMid:
		e.mix.SetEQ(cmd.Deck, 1, cmd.Value)
	case command.MixerEQHigh:
		e.mix.SetEQ(cmd.Deck, 2, cmd.Value)
	case command.MixerCuePFL:
		e.mix.SetCuePFL(cmd.Deck, cmd.Flag)
	case command.MixerCrossfader:
		e.mix.SetCrossfader(cmd.Value)
	}
}

// phaseSync aligns a non-master deck's playhead to the master's beat phase
// before a transport-start command, when sync is on.
func (e *Engine) phaseSync(deckIdx int) {
	if !e.sync.Enabled() {
		return
	}
	masterIdx := e.sync.MasterDeck()
	if masterIdx == deckIdx || masterIdx < 0 || masterIdx >= types.NumDecks {
		return
	}
	master := e.decks[masterIdx]
	slave := e.decks[deckIdx]
	if master.State() != types.StatePlaying || master.Grid().Empty() || slave.Grid().Empty() {
		return
	}
	aligned := tempo.AlignPhase(
		slave.Grid(), uint64(slave.Playhead()),
		master.Grid(), uint64(master.Playhead()),
		e.sampleRate,
	)
	slave.Seek(aligned)
}

// refreshStemLatency pushes one stem path's total latency (stretcher plus
// chain) into the compensator.
func (e *Engine) refreshStemLatency(deckIdx int, stem types.Stem) {
	if stem < 0 || stem >= types.NumStems {
		return
	}
	e.comp.SetStemLatency(deckIdx, stem, e.decks[deckIdx].StemLatency(stem))
}

// refreshDeckLatencies refreshes all four stems of one deck.
func (e *Engine) refreshDeckLatencies(deckIdx int) {
	for s := types.Stem(0); s < types.NumStems; s++ {
		e.refreshStemLatency(deckIdx, s)
	}
}
