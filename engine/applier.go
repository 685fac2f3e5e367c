package engine

import "math"

// drainAndApply is the first action of every audio callback: drain the
// edit queue and apply each command to the store/tracker/atomics. It
// runs entirely on the audio thread (T2); it is the only code that
// mutates the store outside of construction.
func (e *Engine) drainAndApply(slots *OutputSlots) {
	for {
		cmd, ok := e.queue.pop()
		if !ok {
			return
		}
		e.apply(cmd, slots)
	}
}

func (e *Engine) apply(cmd Command, slots *OutputSlots) {
	switch cmd.kind {
	case cmdAddEvent:
		if err := e.store.addEvent(cmd.sequenceIndex, cmd.event); err != nil {
			e.reportDiagnostic(err)
		}

	case cmdDeleteEvent:
		_, _ = e.store.deleteEvent(cmd.sequenceIndex, cmd.beatTime, cmd.pitch, cmd.channel)

	case cmdClearSequence:
		_ = e.store.clearSequence(cmd.sequenceIndex)

	case cmdSetSequenceLength:
		_ = e.store.setLength(cmd.sequenceIndex, cmd.length)

	case cmdSetStepDivision:
		_ = e.store.setStepDivision(cmd.sequenceIndex, cmd.ratio)

	case cmdSetSwing:
		v := cmd.swing
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		e.swingBits.Store(math.Float32bits(v))

	case cmdSetMute:
		if validSequenceIndex(cmd.sequenceIndex) {
			e.store.mute[cmd.sequenceIndex] = cmd.on
		}

	case cmdSetSolo:
		if validSequenceIndex(cmd.sequenceIndex) {
			e.store.solo[cmd.sequenceIndex] = cmd.on
		}

	case cmdSetMIDIClockOn:
		wasOn := e.midiClockOn.Load()
		e.midiClockOn.Store(cmd.on)
		if cmd.on && !wasOn {
			e.sched.sendClockStart = true
		}
		if wasOn && !cmd.on {
			e.sched.clockStopPending = true
		}

	case cmdStopAll:
		e.applyStopAll(slots)
	}
}

// applyStopAll forces an immediate note-off, at sample offset 0 of the
// current buffer, for every note the tracker holds, clears the
// tracker, and — if the clock was running — stops it.
func (e *Engine) applyStopAll(slots *OutputSlots) {
	e.stopScratch = e.stopScratch[:0]
	stopped := e.tracker.stopAll(e.stopScratch)
	for _, n := range stopped {
		e.emitNoteOff(uint64(e.lastNow), n.Pitch, n.Channel, n.Destination, slots)
	}
	if e.midiClockOn.Load() {
		e.midiClockOn.Store(false)
		e.sched.clockStopPending = true
	}
}
