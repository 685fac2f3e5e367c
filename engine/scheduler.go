package engine

import "math"

// BeatEvent is delivered on the engine's beat-notification channel
// once per subtick where segment==0 (the start of a beat). Delivery is
// non-blocking: a full channel simply drops the notification rather
// than stalling the audio thread.
type BeatEvent struct {
	Beat          float64
	SequenceIndex int
}

// schedulerState holds the audio-thread-owned state that must persist
// across buffer boundaries: the ratchet chain and clock transport
// flags. It is touched only on the audio thread, by renderTimeline and
// by the edit applier (which arms the clock flags).
type schedulerState struct {
	prevChanceDidPlay bool
	sendClockStart    bool
	clockStopPending  bool // set by the applier when a disable/stopAll edge occurs this buffer
}

// renderTimeline is the scheduler's entry point: it walks the subtick
// lattice covering this buffer, releases due playing notes, evaluates
// and emits gated events, and interleaves the MIDI clock. It never
// allocates (the engine's scratch slices are preallocated by NewEngine)
// and never blocks. It adds to slots without clearing them, so packets
// the edit applier wrote earlier in the same buffer are kept.
func (e *Engine) renderTimeline(now int64, settings Settings, beatPosition float64, slots *OutputSlots) {
	sampleTimePerSubtick := settings.SampleRate * 60.0 / (settings.Tempo * PPQ)
	beatsPerBuffer := float64(settings.FrameCount) * settings.Tempo / (60.0 * settings.SampleRate)

	kStart := int64(math.Ceil(beatPosition * PPQ))
	kEnd := int64(math.Ceil((beatPosition + beatsPerBuffer) * PPQ))

	swing := e.Swing()
	midiClockOn := e.midiClockOn.Load()

	for k := kStart; k < kEnd; k++ {
		currentBeat := float64(k) / PPQ
		e.releaseDue(now, beatPosition, sampleTimePerSubtick, currentBeat, slots)

		segment := k % PPQ

		if segment == 0 {
			e.notifyBeat(currentBeat, 0)
		}

		for s := 0; s < SequenceCount; s++ {
			if e.store.mute[s] {
				continue
			}
			soloBlocked := e.store.anySoloed() && !e.store.solo[s]
			if soloBlocked {
				continue
			}

			seq := &e.store.sequences[s]
			lenSub := seq.lengthSubticks()
			if lenSub <= 0 {
				continue
			}
			localSubtick := k % lenSub
			if localSubtick < 0 {
				localSubtick += lenSub
			}
			for _, idx := range seq.candidatesAt(localSubtick) {
				ev := &seq.Events[idx]
				if !ev.Queued {
					continue
				}
				e.evaluateAndEmit(now, beatPosition, sampleTimePerSubtick, k, segment, swing, ev, slots)
			}
		}

		e.tickClock(now, beatPosition, sampleTimePerSubtick, k, segment, midiClockOn, slots)
	}
}

// evaluateAndEmit runs the skip and probability gates on a candidate
// event (the active gate is applied by the caller, renderTimeline) and,
// if it fires, emits the corresponding MIDI packet(s) and updates the
// playing-note tracker.
func (e *Engine) evaluateAndEmit(now int64, beatPosition, sampleTimePerSubtick float64, k, segment int64, swing float32, ev *MIDIEvent, slots *OutputSlots) {
	// Gate 2: skip pattern. skip_count always advances once a
	// candidate reaches this stage, regardless of the active gate
	// already having been checked by the caller.
	skipFires := ev.SkipCount == 0
	ev.SkipCount = (ev.SkipCount + 1) % (ev.Skip + 1)
	if !skipFires {
		return
	}

	// Gate 3: probability / ratchet inheritance.
	var fires bool
	if ev.IsRatchet {
		fires = e.sched.prevChanceDidPlay
	} else {
		fires = e.rollChance(ev.Chance)
	}
	e.sched.prevChanceDidPlay = fires
	if !fires {
		return
	}

	sampleOffset := roundToSamples(float64(k)-beatPosition*PPQ, sampleTimePerSubtick)
	if swingDelaySubticks(segment) {
		sampleOffset += roundToSamples(float64(swing)*(PPQ/8), sampleTimePerSubtick)
	}
	sampleOffset += roundToSamples(float64(ev.Offset), sampleTimePerSubtick)
	if sampleOffset < 0 {
		sampleOffset = 0
	}
	timestamp := uint64(now + sampleOffset)

	isNoteOn := ev.Status == StatusNoteOn && ev.Data2 != 0

	if isNoteOn {
		if existing := e.tracker.find(ev.Data1, ev.Channel, ev.Destination); existing != -1 {
			e.emitNoteOff(timestamp-1, ev.Data1, ev.Channel, ev.Destination, slots)
			e.tracker.remove(existing)
		}
	}

	e.emit(ev.Status, ev.Channel, ev.Data1, ev.Data2, ev.Destination, timestamp, slots)

	if isNoteOn {
		// Release beats are absolute (non-wrapping) so that scheduling
		// stays correct when the release crosses the sequence's loop
		// boundary.
		release := PlayingNote{
			BeatTime:    float64(k)/PPQ + ev.Duration,
			Pitch:       ev.Data1,
			Channel:     ev.Channel,
			Destination: ev.Destination,
			Sequence:    ev.SequenceIndex,
		}
		if evicted, didEvict := e.tracker.append(release); didEvict {
			e.emitNoteOff(timestamp, evicted.Pitch, evicted.Channel, evicted.Destination, slots)
			e.reportDiagnostic(ErrNoteCapacityExhausted)
		}
	}
}

// releaseDue emits a note-off for every playing note whose release
// beat has been crossed by currentBeat and removes it from the tracker.
func (e *Engine) releaseDue(now int64, beatPosition, sampleTimePerSubtick, currentBeat float64, slots *OutputSlots) {
	e.dueScratch = e.dueScratch[:0]
	due := e.tracker.dueAt(currentBeat, e.dueScratch)
	for _, i := range due {
		n := &e.tracker.notes[i]
		releaseSubtick := n.BeatTime * PPQ
		offset := roundToSamples(releaseSubtick-beatPosition*PPQ, sampleTimePerSubtick)
		if offset < 0 {
			offset = 0
		}
		e.emitNoteOff(uint64(now+offset), n.Pitch, n.Channel, n.Destination, slots)
		n.Stopped = true
		e.tracker.remove(i)
	}
}

// emit writes one MIDI packet into the first free time column for
// destination dest. Channel-voice statuses get the channel nibble
// ORed in; if dest is not a sequence column (0 to ClockDestination-1)
// or no column is free, the packet is silently dropped (the engine
// degrades gracefully rather than blocking or erroring).
func (e *Engine) emit(status byte, channel, data1, data2 uint8, dest int, timestamp uint64, slots *OutputSlots) {
	if dest < 0 || dest >= ClockDestination {
		return
	}
	col := slots.firstFreeColumn(dest)
	if col == -1 {
		return
	}
	slots[col][dest] = Packet{
		Length:    3,
		Timestamp: timestamp,
		Data:      [3]byte{status | channel, data1, data2},
	}
}

func (e *Engine) emitNoteOff(timestamp uint64, pitch, channel uint8, dest int, slots *OutputSlots) {
	e.emit(StatusNoteOff, channel, pitch, 0, dest, timestamp, slots)
}

// rollChance draws a uniform integer in [0,100) and reports whether it
// is less than chance (a chance of 100 always fires, 0 never does).
func (e *Engine) rollChance(chance int) bool {
	return e.rng.Intn(100) < chance
}

// swingDelaySubticks reports whether the subtick at this beat segment
// receives the swing delay, per the literal formula in the swing design.
func swingDelaySubticks(segment int64) bool {
	const bucket = PPQ / 4
	const half = PPQ / 8
	return segment%bucket >= half
}

func roundToSamples(subticks float64, sampleTimePerSubtick float64) int64 {
	return int64(math.Round(subticks * sampleTimePerSubtick))
}
