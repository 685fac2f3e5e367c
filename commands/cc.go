package commands

import (
	"fmt"
	"strconv"

	"github.com/iltempo/groovecore/engine"
	"github.com/iltempo/groovecore/sequence"
)

// handleCC: cc <kit> <beat> <cc-number> <value>
// Adds a CC automation step to a kit's sequence.
func (h *Handler) handleCC(parts []string) error {
	if len(parts) != 5 {
		return fmt.Errorf("usage: cc <kit> <beat> <cc-number> <value>")
	}

	seqIdx, err := kitIndex(parts[1])
	if err != nil {
		return err
	}

	beat, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return fmt.Errorf("invalid beat time: %s", parts[2])
	}

	ccNumber, err := strconv.Atoi(parts[3])
	if err != nil {
		return fmt.Errorf("invalid CC number: %s (must be 0-127)", parts[3])
	}

	value, err := strconv.Atoi(parts[4])
	if err != nil {
		return fmt.Errorf("invalid CC value: %s (must be 0-127)", parts[4])
	}

	if err := sequence.ValidateCC(ccNumber, value); err != nil {
		return err
	}

	ev := engine.MIDIEvent{
		BeatTime:    beat,
		Status:      engine.StatusCC,
		Data1:       uint8(ccNumber),
		Data2:       uint8(value),
		Chance:      100,
		Destination: seqIdx,
	}

	if err := h.eng.AddEvent(seqIdx, ev); err != nil {
		return err
	}

	fmt.Printf("Added CC#%d=%d at beat %g on %s\n", ccNumber, value, beat, kitNames[seqIdx])
	return nil
}
