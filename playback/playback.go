// Package playback drives an engine.Engine the way a real audio host
// would: a ticker standing in for the audio callback thread, calling
// RenderTimeline once per simulated buffer and forwarding the result
// through a midi.Router.
package playback

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iltempo/groovecore/engine"
	"github.com/iltempo/groovecore/midi"
)

// defaultFrameCount mirrors a typical audio-callback buffer size at
// defaultSampleRate; the host doesn't need real audio I/O to exercise
// the realtime scheduler, just a steady tick at this cadence.
const (
	defaultFrameCount = 512
	defaultSampleRate = 48000
)

// Engine runs the callback loop in a goroutine, holding the running
// sample clock and beat position that would otherwise live in the
// host's audio thread.
type Engine struct {
	eng    *engine.Engine
	router *midi.Router

	tempo atomic.Uint64 // math.Float64bits(bpm)

	stopChan    chan struct{}
	stoppedChan chan struct{}

	verboseMu sync.RWMutex
	verbose   bool
}

// New creates a playback engine over eng, forwarding every rendered
// buffer to router. tempo is the initial transport tempo in BPM.
func New(eng *engine.Engine, router *midi.Router, tempo float64) *Engine {
	e := &Engine{
		eng:         eng,
		router:      router,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
	e.SetTempo(tempo)
	return e
}

// SetTempo changes the transport tempo driving future buffers.
func (e *Engine) SetTempo(bpm float64) {
	e.tempo.Store(math.Float64bits(bpm))
}

// Tempo returns the current transport tempo in BPM.
func (e *Engine) Tempo() float64 {
	return math.Float64frombits(e.tempo.Load())
}

// SetVerbose enables or disables per-buffer diagnostic printing.
func (e *Engine) SetVerbose(verbose bool) {
	e.verboseMu.Lock()
	defer e.verboseMu.Unlock()
	e.verbose = verbose
}

// IsVerbose reports whether verbose mode is enabled.
func (e *Engine) IsVerbose() bool {
	e.verboseMu.RLock()
	defer e.verboseMu.RUnlock()
	return e.verbose
}

// Start begins the callback loop in a goroutine.
func (e *Engine) Start() {
	go e.callbackLoop()
}

// Stop halts the callback loop and waits for it to exit.
func (e *Engine) Stop() {
	close(e.stopChan)
	<-e.stoppedChan
}

// callbackLoop stands in for the host's realtime audio thread: it
// fires on a fixed wall-clock period sized to defaultFrameCount
// samples at defaultSampleRate, calls RenderTimeline once per tick,
// and flushes the resulting packets through the router.
func (e *Engine) callbackLoop() {
	defer close(e.stoppedChan)

	var now int64
	var beatPosition float64

	bufferDuration := time.Duration(float64(defaultFrameCount) / defaultSampleRate * float64(time.Second))
	ticker := time.NewTicker(bufferDuration)
	defer ticker.Stop()

	for {
		select {
		case <-e.stopChan:
			return
		case <-ticker.C:
			settings := engine.Settings{
				Tempo:      e.Tempo(),
				SampleRate: defaultSampleRate,
				FrameCount: defaultFrameCount,
			}

			slots := e.eng.RenderTimeline(now, settings, beatPosition)

			if err := e.router.Flush(slots); err != nil && e.IsVerbose() {
				fmt.Printf("midi flush error: %v\n", err)
			}

			beatsPerBuffer := float64(defaultFrameCount) / defaultSampleRate * settings.Tempo / 60.0
			beatPosition += beatsPerBuffer
			now += int64(defaultFrameCount)
		}
	}
}
