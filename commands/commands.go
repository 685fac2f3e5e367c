package commands

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/iltempo/groovecore/engine"
	"github.com/iltempo/groovecore/sequence"
)

// kitNames maps the fixed drum+harmony kit to sequence indices, per
// the seven-slot layout (bd, sd, hh, pc, bass, chords, lead).
var kitNames = [engine.SequenceCount]string{"bd", "sd", "hh", "pc", "bass", "chords", "lead"}

func kitIndex(name string) (int, error) {
	name = strings.ToLower(name)
	for i, n := range kitNames {
		if n == name {
			return i, nil
		}
	}
	if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < engine.SequenceCount {
		return i, nil
	}
	return 0, fmt.Errorf("unknown kit %q (want bd/sd/hh/pc/bass/chords/lead or 0-%d)", name, engine.SequenceCount-1)
}

// VerboseController allows controlling verbose output.
type VerboseController interface {
	SetVerbose(bool)
	IsVerbose() bool
}

// Handler processes user commands against a running Engine.
type Handler struct {
	eng               *engine.Engine
	verboseController VerboseController
}

// New creates a new command handler targeting eng.
func New(eng *engine.Engine, verboseController VerboseController) *Handler {
	return &Handler{
		eng:               eng,
		verboseController: verboseController,
	}
}

// ProcessCommand parses and executes a single command string.
func (h *Handler) ProcessCommand(cmdLine string) error {
	cmdLine = strings.TrimSpace(cmdLine)
	if cmdLine == "" {
		return h.handleShow(nil)
	}

	parts := strings.Fields(cmdLine)
	if len(parts) == 0 {
		return nil
	}

	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "add":
		return h.handleAdd(parts)
	case "delete":
		return h.handleDelete(parts)
	case "clear":
		return h.handleClear(parts)
	case "length":
		return h.handleLength(parts)
	case "step":
		return h.handleStep(parts)
	case "cc":
		return h.handleCC(parts)
	case "swing":
		return h.handleSwing(parts)
	case "mute":
		return h.handleMute(parts)
	case "solo":
		return h.handleSolo(parts)
	case "clockon":
		return h.handleClockOn(parts)
	case "clockoff":
		return h.handleClockOff(parts)
	case "stop":
		return h.handleStop(parts)
	case "show":
		return h.handleShow(parts)
	case "verbose":
		return h.handleVerbose(parts)
	case "help":
		return h.handleHelp(parts)
	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// handleAdd: add <kit> <beat> <note> [duration] [chance] [skip]
func (h *Handler) handleAdd(parts []string) error {
	if len(parts) < 4 || len(parts) > 7 {
		return fmt.Errorf("usage: add <kit> <beat> <note> [duration] [chance] [skip] (e.g., 'add bd 0 C1')")
	}

	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	beat, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Errorf("invalid beat time: %s", parts[2])
	}

	note, err := sequence.NoteNameToMIDI(parts[3])
	if err != nil {
		return err
	}

	duration := 0.25
	if len(parts) >= 5 {
		duration, err = strconv.ParseFloat(parts[4], 64)
		if err != nil {
			return fmt.Errorf("invalid duration: %s", parts[4])
		}
	}

	chance := 100
	if len(parts) >= 6 {
		chance, err = strconv.Atoi(parts[5])
		if err != nil {
			return fmt.Errorf("invalid chance: %s", parts[5])
		}
	}

	skip := 0
	if len(parts) >= 7 {
		skip, err = strconv.Atoi(parts[6])
		if err != nil || skip < 0 {
			return fmt.Errorf("invalid skip: %s", parts[6])
		}
	}

	ev := engine.MIDIEvent{
		BeatTime:    beat,
		Status:      engine.StatusNoteOn,
		Data1:       note,
		Data2:       100,
		Duration:    duration,
		Chance:      chance,
		Skip:        skip,
		Destination: seqIdx,
	}

	if err := h.eng.AddEvent(seqIdx, ev); err != nil {
		return err
	}

	fmt.Printf("Added %s at beat %g on %s (duration %g, chance %d%%)\n", parts[3], beat, kitNames[seqIdx], duration, chance)
	return nil
}

// handleDelete: delete <kit> <beat> <note>
func (h *Handler) handleDelete(parts []string) error {
	if len(parts) != 4 {
		return fmt.Errorf("usage: delete <kit> <beat> <note>")
	}

	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	beat, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Errorf("invalid beat time: %s", parts[2])
	}

	note, err := sequence.NoteNameToMIDI(parts[3])
	if err != nil {
		return err
	}

	if err := h.eng.DeleteEvent(seqIdx, beat, note, 0); err != nil {
		return err
	}

	fmt.Printf("Deleted %s at beat %g on %s\n", parts[3], beat, kitNames[seqIdx])
	return nil
}

// handleClear: clear <kit>
func (h *Handler) handleClear(parts []string) error {
	if len(parts) != 2 {
		return fmt.Errorf("usage: clear <kit>")
	}

	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	if err := h.eng.ClearSequence(seqIdx); err != nil {
		return err
	}

	fmt.Printf("Cleared %s\n", kitNames[seqIdx])
	return nil
}

// handleLength: length <kit> <beats>
func (h *Handler) handleLength(parts []string) error {
	if len(parts) != 3 {
		return fmt.Errorf("usage: length <kit> <beats>")
	}

	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	beats, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Errorf("invalid length: %s", parts[2])
	}

	if err := h.eng.SetSequenceLength(seqIdx, beats); err != nil {
		return err
	}

	fmt.Printf("Set %s length to %g beats\n", kitNames[seqIdx], beats)
	return nil
}

// handleStep: step <kit> <ratio>
func (h *Handler) handleStep(parts []string) error {
	if len(parts) != 3 {
		return fmt.Errorf("usage: step <kit> <ratio> (e.g., 'step hh 2' for double-time)")
	}

	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	ratio, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Errorf("invalid ratio: %s", parts[2])
	}

	if err := h.eng.SetStepDivision(seqIdx, ratio); err != nil {
		return err
	}

	fmt.Printf("Set %s playback ratio to %g\n", kitNames[seqIdx], ratio)
	return nil
}

// handleSwing: swing <amount>  (0.0-1.0)
func (h *Handler) handleSwing(parts []string) error {
	if len(parts) != 2 {
		return fmt.Errorf("usage: swing <amount> (0.0-1.0)")
	}

	amount, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return fmt.Errorf("invalid swing amount: %s", parts[1])
	}

	if err := h.eng.SetSwing(float32(amount)); err != nil {
		return err
	}

	fmt.Printf("Set swing to %g\n", amount)
	return nil
}

// handleMute: mute <kit> [on|off]
func (h *Handler) handleMute(parts []string) error {
	seqIdx, on, err := h.parseToggle(parts, "mute")
	if err != nil {
		return err
	}
	if err := h.eng.SetMute(seqIdx, on); err != nil {
		return err
	}
	fmt.Printf("%s mute %s\n", kitNames[seqIdx], onOff(on))
	return nil
}

// handleSolo: solo <kit> [on|off]
func (h *Handler) handleSolo(parts []string) error {
	seqIdx, on, err := h.parseToggle(parts, "solo")
	if err != nil {
		return err
	}
	if err := h.eng.SetSolo(seqIdx, on); err != nil {
		return err
	}
	fmt.Printf("%s solo %s\n", kitNames[seqIdx], onOff(on))
	return nil
}

func (h *Handler) parseToggle(parts []string, name string) (int, bool, error) {
	if len(parts) < 2 || len(parts) > 3 {
		return 0, false, fmt.Errorf("usage: %s <kit> [on|off]", name)
	}
	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return 0, false, err
	}
	if len(parts) == 2 {
		return seqIdx, true, nil
	}
	switch strings.ToLower(parts[2]) {
	case "on":
		return seqIdx, true, nil
	case "off":
		return seqIdx, false, nil
	default:
		return 0, false, fmt.Errorf("usage: %s <kit> [on|off]", name)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

// handleClockOn: clockon
func (h *Handler) handleClockOn(parts []string) error {
	if len(parts) != 1 {
		return fmt.Errorf("usage: clockon")
	}
	if err := h.eng.SetMIDIClockOn(true); err != nil {
		return err
	}
	fmt.Println("MIDI clock enabled")
	return nil
}

// handleClockOff: clockoff
func (h *Handler) handleClockOff(parts []string) error {
	if len(parts) != 1 {
		return fmt.Errorf("usage: clockoff")
	}
	if err := h.eng.SetMIDIClockOn(false); err != nil {
		return err
	}
	fmt.Println("MIDI clock disabled")
	return nil
}

// handleStop: stop
func (h *Handler) handleStop(parts []string) error {
	if len(parts) != 1 {
		return fmt.Errorf("usage: stop")
	}
	if err := h.eng.StopAll(); err != nil {
		return err
	}
	fmt.Println("Stopping all sounding notes")
	return nil
}

// handleShow: show [kit]
func (h *Handler) handleShow(parts []string) error {
	if len(parts) == 0 || len(parts) == 1 {
		fmt.Printf("Swing: %g  MIDI clock: %s\n", h.eng.Swing(), onOff(h.eng.MIDIClockOn()))
		for i, name := range kitNames {
			fmt.Printf("  %-6s (%d)\n", name, i)
		}
		return nil
	}
	if len(parts) != 2 {
		return fmt.Errorf("usage: show [kit]")
	}
	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	snap, err := h.eng.Snapshot(seqIdx)
	if err != nil {
		return err
	}

	fmt.Printf("%s: length=%g ratio=%g mute=%s solo=%s\n", kitNames[seqIdx], snap.Length, snap.PlaybackRatio, onOff(snap.Muted), onOff(snap.Soloed))
	if len(snap.Events) == 0 {
		fmt.Println("  (empty)")
		return nil
	}
	for _, ev := range snap.Events {
		switch ev.Status {
		case engine.StatusCC:
			fmt.Printf("  beat %-6g CC#%d=%d\n", ev.BeatTime, ev.Data1, ev.Data2)
		default:
			fmt.Printf("  beat %-6g %s dur=%g chance=%d%%\n", ev.BeatTime, sequence.MIDIToNoteName(ev.Data1), ev.Duration, ev.Chance)
		}
	}
	return nil
}

// handleVerbose: verbose [on|off]
func (h *Handler) handleVerbose(parts []string) error {
	if len(parts) == 1 {
		currentState := h.verboseController.IsVerbose()
		h.verboseController.SetVerbose(!currentState)
		fmt.Printf("Verbose mode %s\n", onOff(!currentState))
		return nil
	}

	if len(parts) != 2 {
		return fmt.Errorf("usage: verbose [on|off]")
	}

	switch strings.ToLower(parts[1]) {
	case "on":
		h.verboseController.SetVerbose(true)
		fmt.Println("Verbose mode enabled")
	case "off":
		h.verboseController.SetVerbose(false)
		fmt.Println("Verbose mode disabled")
	default:
		return fmt.Errorf("usage: verbose [on|off]")
	}

	return nil
}

// handleHelp: help
func (h *Handler) handleHelp(parts []string) error {
	helpText := `Available commands:
  add <kit> <beat> <note> [dur] [chance]  Add a step (e.g., 'add bd 0 C1')
  delete <kit> <beat> <note>              Remove a step
  clear <kit>                             Clear all steps on a kit
  length <kit> <beats>                    Set a kit's loop length in beats
  step <kit> <ratio>                      Set a kit's playback ratio
  cc <kit> <beat> <cc#> <value>           Add a CC automation step
  swing <amount>                          Set swing amount (0.0-1.0)
  mute <kit> [on|off]                     Mute/unmute a kit
  solo <kit> [on|off]                     Solo/unsolo a kit
  clockon / clockoff                      Enable/disable the MIDI clock
  stop                                    Force-stop all sounding notes
  show [kit]                              Show engine or kit state
  verbose [on|off]                        Toggle verbose output
  help                                    Show this help message
  quit                                    Exit the program
  <enter>                                 Show engine state (same as 'show')

Kits: bd sd hh pc bass chords lead (sequence indices 0-6).
Notes can be specified as: C4, D#5, Bb3, etc.`

	fmt.Println(helpText)
	return nil
}

// ReadLoop reads commands from input until "quit" or EOF.
func (h *Handler) ReadLoop(reader io.Reader) error {
	scanner := bufio.NewScanner(reader)

	fmt.Print("> ")
	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(strings.ToLower(line)) == "quit" {
			return nil
		}

		if err := h.ProcessCommand(line); err != nil {
			fmt.Printf("Error: %v\n", err)
		}

		fmt.Print("> ")
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading input: %w", err)
	}

	return nil
}
