package engine

import (
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// randSource is the probability-gate dependency: anything with an
// Intn(n) returning a value in [0,n) works, which keeps rollChance
// testable without wiring math/rand into every test.
type randSource interface {
	Intn(n int) int
}

type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rnd.IntN(n)
}

// Engine is the full renderTimeline core: the edit queue, the
// sequence store, the playing-note tracker and the scheduler/clock
// state that must survive across buffers. One Engine drives one
// audio-callback stream; RenderTimeline is the only method the host's
// callback thread (T2) calls on the hot path.
type Engine struct {
	queue   *editQueue
	store   *store
	tracker *tracker
	sched   schedulerState

	swingBits   atomic.Uint32 // float32 bits, default 0
	midiClockOn atomic.Bool

	rng randSource

	dueScratch  []int
	stopScratch []PlayingNote

	lastNow int64

	editMu sync.Mutex // serializes concurrent producers of edit commands

	diagnostics chan error // optional; non-blocking send, never read by T2
	beats       chan BeatEvent
}

// Option configures a newly constructed Engine.
type Option func(*Engine)

// WithEditQueueCapacity overrides the default edit-queue ring size.
// Rounded up to the next power of two.
func WithEditQueueCapacity(n int) Option {
	return func(e *Engine) { e.queue = newEditQueue(n) }
}

// WithDiagnostics attaches a channel that receives non-fatal realtime
// diagnostics (event-capacity exhaustion, note eviction). Sends never
// block: a full or nil channel just drops the diagnostic.
func WithDiagnostics(ch chan error) Option {
	return func(e *Engine) { e.diagnostics = ch }
}

// WithBeatNotifications attaches a channel that receives a BeatEvent
// at the start of every beat. Sends never block.
func WithBeatNotifications(ch chan BeatEvent) Option {
	return func(e *Engine) { e.beats = ch }
}

// WithRandSource overrides the probability-gate random source, for
// deterministic tests.
func WithRandSource(r randSource) Option {
	return func(e *Engine) { e.rng = r }
}

const defaultEditQueueCapacity = 256

// NewEngine constructs an Engine with every sequence at its default
// length and ratio, swing at 0, MIDI clock off, and preallocated
// scratch buffers sized to NoteCapacity so the realtime path never
// grows them after this call returns.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		queue:       newEditQueue(defaultEditQueueCapacity),
		store:       newStore(),
		tracker:     &tracker{},
		rng:         &lockedRand{rnd: rand.New(rand.NewPCG(1, 2))},
		dueScratch:  make([]int, 0, NoteCapacity),
		stopScratch: make([]PlayingNote, 0, NoteCapacity),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Swing returns the current swing amount in [0,1].
func (e *Engine) Swing() float32 {
	return math.Float32frombits(e.swingBits.Load())
}

// MIDIClockOn reports whether the MIDI real-time clock is enabled.
func (e *Engine) MIDIClockOn() bool { return e.midiClockOn.Load() }

// reportDiagnostic forwards a non-fatal error to the diagnostics
// channel if one was configured. Never blocks: a full channel drops
// the diagnostic rather than stall the audio thread.
func (e *Engine) reportDiagnostic(err error) {
	if e.diagnostics == nil {
		return
	}
	select {
	case e.diagnostics <- err:
	default:
	}
}

func (e *Engine) notifyBeat(beat float64, seqIndex int) {
	if e.beats == nil {
		return
	}
	select {
	case e.beats <- BeatEvent{Beat: beat, SequenceIndex: seqIndex}:
	default:
	}
}

// RenderTimeline is the audio callback's single entry point: it drains
// and applies any pending edits, then walks the subtick lattice
// covering this buffer and returns the populated output slots. now is
// the host's running sample clock at the start of this buffer;
// beatPosition is the transport's beat position at the same instant.
func (e *Engine) RenderTimeline(now int64, settings Settings, beatPosition float64) OutputSlots {
	var slots OutputSlots
	slots.clear()
	e.lastNow = now
	e.drainAndApply(&slots)
	e.renderTimeline(now, settings, beatPosition, &slots)
	return slots
}

// --- Edit-queue-facing API. Called from the control thread (T1); each
// method builds a Command and pushes it onto the lock-free ring. These
// never touch the store or tracker directly. ---

func (e *Engine) AddEvent(seqIdx int, ev MIDIEvent) error {
	return e.push(Command{kind: cmdAddEvent, sequenceIndex: seqIdx, event: ev})
}

func (e *Engine) DeleteEvent(seqIdx int, beatTime float64, pitch, channel uint8) error {
	return e.push(Command{kind: cmdDeleteEvent, sequenceIndex: seqIdx, beatTime: beatTime, pitch: pitch, channel: channel})
}

func (e *Engine) ClearSequence(seqIdx int) error {
	return e.push(Command{kind: cmdClearSequence, sequenceIndex: seqIdx})
}

func (e *Engine) SetSequenceLength(seqIdx int, beats float64) error {
	return e.push(Command{kind: cmdSetSequenceLength, sequenceIndex: seqIdx, length: beats})
}

func (e *Engine) SetStepDivision(seqIdx int, ratio float64) error {
	return e.push(Command{kind: cmdSetStepDivision, sequenceIndex: seqIdx, ratio: ratio})
}

func (e *Engine) SetSwing(amount float32) error {
	return e.push(Command{kind: cmdSetSwing, swing: amount})
}

func (e *Engine) SetMute(seqIdx int, on bool) error {
	return e.push(Command{kind: cmdSetMute, sequenceIndex: seqIdx, on: on})
}

func (e *Engine) SetSolo(seqIdx int, on bool) error {
	return e.push(Command{kind: cmdSetSolo, sequenceIndex: seqIdx, on: on})
}

func (e *Engine) SetMIDIClockOn(on bool) error {
	return e.push(Command{kind: cmdSetMIDIClockOn, on: on})
}

func (e *Engine) StopAll() error {
	return e.push(Command{kind: cmdStopAll})
}

func (e *Engine) push(cmd Command) error {
	e.editMu.Lock()
	defer e.editMu.Unlock()
	return e.queue.push(cmd)
}

// SequenceSnapshot is a read-only copy of one kit's programmed steps,
// for display purposes only.
type SequenceSnapshot struct {
	Length        float64
	PlaybackRatio float64
	Muted         bool
	Soloed        bool
	Events        []MIDIEvent
}

// Snapshot copies out the current state of sequence seqIdx. It reads
// the store without synchronization: the audio thread may be applying
// an edit concurrently, so a snapshot can occasionally show a
// partially-applied edit. That is acceptable for a command-line
// status display; nothing on the realtime path calls this.
func (e *Engine) Snapshot(seqIdx int) (SequenceSnapshot, error) {
	if !validSequenceIndex(seqIdx) {
		return SequenceSnapshot{}, ErrSequenceIndexOutOfRange
	}
	seq := &e.store.sequences[seqIdx]
	snap := SequenceSnapshot{
		Length:        seq.Length,
		PlaybackRatio: seq.PlaybackRatio,
		Muted:         e.store.mute[seqIdx],
		Soloed:        e.store.solo[seqIdx],
	}
	for i := 0; i < seq.EventCount; i++ {
		if seq.Events[i].Queued {
			snap.Events = append(snap.Events, seq.Events[i])
		}
	}
	return snap, nil
}
