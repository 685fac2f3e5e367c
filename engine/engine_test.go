package engine

import "testing"

// fixedRand always returns v mod n; with v=0, rollChance(c) fires
// whenever c > 0.
type fixedRand struct{ v int }

func (f fixedRand) Intn(n int) int { return f.v % n }

func driveBuffers(e *Engine, settings Settings, buffers int) []OutputSlots {
	beatsPerBuffer := float64(settings.FrameCount) * settings.Tempo / (60.0 * settings.SampleRate)
	out := make([]OutputSlots, buffers)
	var now int64
	var beatPosition float64
	for i := 0; i < buffers; i++ {
		out[i] = e.RenderTimeline(now, settings, beatPosition)
		now += int64(settings.FrameCount)
		beatPosition += beatsPerBuffer
	}
	return out
}

func settings120() Settings {
	return Settings{Tempo: 120, SampleRate: 48000, FrameCount: 512}
}

func firstPacket(slots OutputSlots, dest int) (Packet, bool) {
	for p := 0; p < MIDIPacketSize; p++ {
		if slots[p][dest].Length > 0 {
			return slots[p][dest], true
		}
	}
	return Packet{}, false
}

// Scenario 1: single step at beat 0.
func TestScenarioSingleStepAtBeatZero(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0}))
	_ = e.SetSequenceLength(0, 1.0)
	if err := e.AddEvent(0, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 60, Data2: 100, Duration: 0.25, Chance: 100}); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	bufs := driveBuffers(e, settings120(), 20)

	pkt, ok := firstPacket(bufs[0], 0)
	if !ok {
		t.Fatal("expected a note-on in the first buffer")
	}
	if pkt.Data[0] != StatusNoteOn || pkt.Data[1] != 60 || pkt.Data[2] != 100 {
		t.Fatalf("packet = %+v, want note-on 60/100", pkt)
	}
	if pkt.Timestamp != 0 {
		t.Fatalf("note-on timestamp = %d, want 0", pkt.Timestamp)
	}

	var sawNoteOff bool
	for _, b := range bufs[1:] {
		for p := 0; p < MIDIPacketSize; p++ {
			d := b[p][0]
			if d.Length > 0 && d.Data[0] == StatusNoteOff && d.Data[1] == 60 {
				sawNoteOff = true
			}
		}
	}
	if !sawNoteOff {
		t.Fatal("expected a note-off for the beat-0.25 release")
	}
}

// Scenario 2: probability zero never fires.
func TestScenarioProbabilityZero(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0}))
	_ = e.AddEvent(0, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 60, Data2: 100, Duration: 0.25, Chance: 0})

	bufs := driveBuffers(e, settings120(), 20)
	for i, b := range bufs {
		if _, ok := firstPacket(b, 0); ok {
			t.Fatalf("buffer %d: emitted a packet with chance=0", i)
		}
	}
}

// Scenario 3: skip=1 fires on even traversals only.
func TestScenarioSkipAlternates(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0}))
	_ = e.SetSequenceLength(0, 0.25)
	_ = e.AddEvent(0, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 60, Data2: 100, Chance: 100, Skip: 1})

	bufs := driveBuffers(e, settings120(), 400)

	// One traversal is 24 subticks = 6000 samples at 250 samples per
	// subtick; 400 buffers cover subticks [0,820), traversals 0..34.
	var fireCount int
	for _, b := range bufs {
		for p := 0; p < MIDIPacketSize; p++ {
			d := b[p][0]
			if d.Length > 0 && d.Data[0] == StatusNoteOn {
				if traversal := d.Timestamp / 6000; traversal%2 != 0 {
					t.Fatalf("skip=1 event fired on odd traversal %d", traversal)
				}
				fireCount++
			}
		}
	}
	if fireCount != 18 {
		t.Fatalf("skip=1 event fired %d times over 35 traversals, want 18", fireCount)
	}
}

// Scenario 4: ratchet inherits the preceding candidate's outcome,
// ignoring its own chance.
func TestScenarioRatchetInheritance(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0})) // Intn(100) == 0 < 100: always fires
	_ = e.AddEvent(0, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 60, Data2: 100, Duration: 0.05, Chance: 100})
	_ = e.AddEvent(0, MIDIEvent{BeatTime: 0.125, Status: StatusNoteOn, Data1: 61, Data2: 100, Duration: 0.05, Chance: 0, IsRatchet: true})

	bufs := driveBuffers(e, settings120(), 20)

	var saw61 bool
	for _, b := range bufs {
		for p := 0; p < MIDIPacketSize; p++ {
			d := b[p][0]
			if d.Length > 0 && d.Data[0] == StatusNoteOn && d.Data[1] == 61 {
				saw61 = true
			}
		}
	}
	if !saw61 {
		t.Fatal("ratchet event with chance=0 did not fire though its predecessor fired")
	}
}

// Scenario 5: solo on one sequence suppresses an unmuted sibling.
func TestScenarioMuteVsSoloPrecedence(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0}))
	_ = e.AddEvent(0, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 60, Data2: 100, Duration: 0.1, Chance: 100})
	_ = e.AddEvent(1, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 62, Data2: 100, Duration: 0.1, Chance: 100, Destination: 1})
	_ = e.SetSolo(1, true)

	bufs := driveBuffers(e, settings120(), 5)

	var saw60, saw62 bool
	for _, b := range bufs {
		for p := 0; p < MIDIPacketSize; p++ {
			if b[p][0].Length > 0 && b[p][0].Data[1] == 60 {
				saw60 = true
			}
			if b[p][1].Length > 0 && b[p][1].Data[1] == 62 {
				saw62 = true
			}
		}
	}
	if saw60 {
		t.Fatal("sequence 0 emitted while sequence 1 is soloed")
	}
	if !saw62 {
		t.Fatal("soloed sequence 1 did not emit")
	}
}

// Scenario 6: clock cadence over a 2-second render at 120 BPM.
func TestScenarioClockCadence(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0}))
	if err := e.SetMIDIClockOn(true); err != nil {
		t.Fatalf("SetMIDIClockOn: %v", err)
	}

	settings := settings120()
	buffersFor2s := int(2 * settings.SampleRate / float64(settings.FrameCount))
	beatsPerBuffer := float64(settings.FrameCount) * settings.Tempo / (60.0 * settings.SampleRate)

	var starts, ticks, stops int
	var now int64
	var beatPosition float64
	for i := 0; i < buffersFor2s; i++ {
		b := e.RenderTimeline(now, settings, beatPosition)
		now += int64(settings.FrameCount)
		beatPosition += beatsPerBuffer
		for p := 0; p < MIDIPacketSize; p++ {
			d := b[p][ClockDestination]
			if d.Length == 0 {
				continue
			}
			switch d.Data[0] {
			case StatusClockStart:
				starts++
			case StatusClockTick:
				ticks++
			case StatusClockStop:
				stops++
			}
		}
		if i == buffersFor2s/2 {
			_ = e.SetMIDIClockOn(false)
		}
	}

	if starts != 1 {
		t.Fatalf("start bytes = %d, want 1", starts)
	}
	if stops != 1 {
		t.Fatalf("stop bytes = %d, want 1", stops)
	}
	if ticks == 0 {
		t.Fatal("no clock ticks observed")
	}
}

func TestStopAllForcesNoteOffAndClockStop(t *testing.T) {
	e := NewEngine(WithRandSource(fixedRand{0}))
	_ = e.AddEvent(0, MIDIEvent{BeatTime: 0, Status: StatusNoteOn, Data1: 60, Data2: 100, Duration: 4, Chance: 100})
	_ = e.SetMIDIClockOn(true)

	settings := settings120()
	_ = e.RenderTimeline(0, settings, 0) // starts the note and the clock

	_ = e.StopAll()
	slots := e.RenderTimeline(int64(settings.FrameCount), settings, settings.Tempo/60.0/settings.SampleRate*float64(settings.FrameCount))

	var sawOff, sawClockStop bool
	for p := 0; p < MIDIPacketSize; p++ {
		if slots[p][0].Length > 0 && slots[p][0].Data[0] == StatusNoteOff && slots[p][0].Data[1] == 60 {
			sawOff = true
		}
		if slots[p][ClockDestination].Length > 0 && slots[p][ClockDestination].Data[0] == StatusClockStop {
			sawClockStop = true
		}
	}
	if !sawOff {
		t.Fatal("StopAll did not force a note-off")
	}
	if !sawClockStop {
		t.Fatal("StopAll with clock running did not emit a clock stop")
	}
}
