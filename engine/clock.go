package engine

// tickClock emits the MIDI real-time clock stream for subtick k onto
// ClockDestination. It never displaces a note packet: clock bytes are
// always routed to their own reserved column.
func (e *Engine) tickClock(now int64, beatPosition, sampleTimePerSubtick float64, k, segment int64, midiClockOn bool, slots *OutputSlots) {
	if e.sched.clockStopPending {
		e.emitClockByte(StatusClockStop, now, beatPosition, sampleTimePerSubtick, k, slots)
		e.sched.clockStopPending = false
		e.sched.sendClockStart = true
	}

	if !midiClockOn {
		return
	}

	if e.sched.sendClockStart {
		e.emitClockByte(StatusClockStart, now, beatPosition, sampleTimePerSubtick, k, slots)
		e.sched.sendClockStart = false
	}

	const clockInterval = PPQ / 24
	if k%clockInterval == 0 {
		e.emitClockByte(StatusClockTick, now, beatPosition, sampleTimePerSubtick, k, slots)
	}
}

func (e *Engine) emitClockByte(status byte, now int64, beatPosition, sampleTimePerSubtick float64, k int64, slots *OutputSlots) {
	offset := roundToSamples(float64(k)-beatPosition*PPQ, sampleTimePerSubtick)
	if offset < 0 {
		offset = 0
	}
	col := slots.firstFreeColumn(ClockDestination)
	if col == -1 {
		return
	}
	slots[col][ClockDestination] = Packet{
		Length:    1,
		Timestamp: uint64(now + offset),
		Data:      [3]byte{status, 0, 0},
	}
}
