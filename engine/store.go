package engine

import "math"

// store is the fixed-capacity sequence table plus the per-sequence
// mute/solo state. Exclusively owned and mutated by the audio thread
// via the Edit Applier; never mutated by control-thread code (Snapshot
// only reads it, without synchronization).
type store struct {
	sequences [SequenceCount]Sequence
	mute      [SequenceCount]bool
	solo      [SequenceCount]bool
}

// newStore creates a store with every sequence at a one-bar default
// (4 beats, ratio 1.0) and no mutes/solos.
func newStore() *store {
	s := &store{}
	for i := range s.sequences {
		s.sequences[i].Length = 4.0
		s.sequences[i].PlaybackRatio = 1.0
	}
	return s
}

func validSequenceIndex(i int) bool { return i >= 0 && i < SequenceCount }

// anySoloed reports whether any sequence in the store is currently soloed.
func (s *store) anySoloed() bool {
	for _, on := range s.solo {
		if on {
			return true
		}
	}
	return false
}

// addEvent appends ev to sequence seqIdx if capacity allows. Returns
// ErrEventCapacityExhausted (to be reported via the diagnostic channel,
// never returned across the realtime boundary) if the table is full.
func (s *store) addEvent(seqIdx int, ev MIDIEvent) error {
	if !validSequenceIndex(seqIdx) {
		return ErrSequenceIndexOutOfRange
	}
	if !validData7(ev.Data1) || !validData7(ev.Data2) {
		return ErrInvalidMIDIData
	}
	seq := &s.sequences[seqIdx]
	if seq.EventCount >= MaxEvents {
		return ErrEventCapacityExhausted
	}
	ev.SequenceIndex = seqIdx
	ev.Queued = true
	seq.Events[seq.EventCount] = ev
	seq.EventCount++
	seq.rebuildIndex()
	return nil
}

// deleteEvent tombstones (queued=false) the first event in sequence
// seqIdx matching (beatTime, pitch, channel). Reports whether a match
// was found; a miss is not an error (idempotent delete).
func (s *store) deleteEvent(seqIdx int, beatTime float64, pitch, channel uint8) (bool, error) {
	if !validSequenceIndex(seqIdx) {
		return false, ErrSequenceIndexOutOfRange
	}
	seq := &s.sequences[seqIdx]
	for i := 0; i < seq.EventCount; i++ {
		e := &seq.Events[i]
		if !e.Queued {
			continue
		}
		if e.BeatTime == beatTime && e.Data1 == pitch && e.Channel == channel {
			e.Queued = false
			seq.rebuildIndex()
			return true, nil
		}
	}
	return false, nil
}

// clearSequence zeroes event_count and tombstones every entry.
func (s *store) clearSequence(seqIdx int) error {
	if !validSequenceIndex(seqIdx) {
		return ErrSequenceIndexOutOfRange
	}
	seq := &s.sequences[seqIdx]
	for i := 0; i < seq.EventCount; i++ {
		seq.Events[i].Queued = false
	}
	seq.EventCount = 0
	seq.rebuildIndex()
	return nil
}

// setLength sets length without touching events; events whose
// beat_time now exceeds length simply never fire again (no pruning).
func (s *store) setLength(seqIdx int, length float64) error {
	if !validSequenceIndex(seqIdx) {
		return ErrSequenceIndexOutOfRange
	}
	if length <= 0 {
		return nil
	}
	seq := &s.sequences[seqIdx]
	seq.Length = length
	seq.rebuildIndex()
	return nil
}

// setStepDivision sets the playback ratio; matching evaluates
// effective_beat = event.beat_time / ratio.
func (s *store) setStepDivision(seqIdx int, ratio float64) error {
	if !validSequenceIndex(seqIdx) {
		return ErrSequenceIndexOutOfRange
	}
	if ratio <= 0 {
		return nil
	}
	seq := &s.sequences[seqIdx]
	seq.PlaybackRatio = ratio
	seq.rebuildIndex()
	return nil
}

// lengthSubticks returns the sequence's length projected onto the
// subtick lattice, rounded to the nearest integer subtick.
func (seq *Sequence) lengthSubticks() int64 {
	return int64(math.Round(seq.Length * PPQ))
}

// rebuildIndex recomputes the local-subtick -> event-slot index into
// the sequence's preallocated entry arrays. Runs only on the Edit
// Applier's structural commands (AddEvent/DeleteEvent/ClearSequence/
// SetSequenceLength/SetStepDivision); the scheduler's hot path only
// reads the result, so nothing here or there touches the allocator.
func (seq *Sequence) rebuildIndex() {
	seq.indexCount = 0
	lenSub := seq.lengthSubticks()
	if lenSub <= 0 {
		return
	}
	for i := 0; i < seq.EventCount; i++ {
		e := &seq.Events[i]
		if !e.Queued {
			continue
		}
		sub := int64(math.Round(e.BeatTime * PPQ / seq.PlaybackRatio))
		if sub >= lenSub {
			// Past the current length: dormant until the length grows.
			continue
		}
		sub %= lenSub
		if sub < 0 {
			sub += lenSub
		}
		// Stable insertion: same-subtick entries stay in slot order,
		// which the ratchet chain depends on.
		j := seq.indexCount
		for j > 0 && seq.indexSubticks[j-1] > sub {
			seq.indexSubticks[j] = seq.indexSubticks[j-1]
			seq.indexSlots[j] = seq.indexSlots[j-1]
			j--
		}
		seq.indexSubticks[j] = sub
		seq.indexSlots[j] = i
		seq.indexCount++
	}
}

// candidatesAt returns the event slots whose projection equals
// localSubtick, in slot order: a binary search for the first matching
// entry, then a view into the preallocated slot array. Read-only and
// allocation-free, safe for the scheduler's per-subtick loop.
func (seq *Sequence) candidatesAt(localSubtick int64) []int {
	lo, hi := 0, seq.indexCount
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if seq.indexSubticks[mid] < localSubtick {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	end := lo
	for end < seq.indexCount && seq.indexSubticks[end] == localSubtick {
		end++
	}
	if lo == end {
		return nil
	}
	return seq.indexSlots[lo:end]
}
