// Package sequence converts between MIDI note numbers and the
// note-name notation (e.g. "C4", "F#3", "Bb2") used by the command
// vocabulary's add/delete commands.
package sequence

import "fmt"

// MIDIToNoteName converts a MIDI note number to name (e.g., 60 -> "C4").
func MIDIToNoteName(note uint8) string {
	noteNames := []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	octave := int(note/12) - 1
	noteName := noteNames[note%12]
	return fmt.Sprintf("%s%d", noteName, octave)
}

// NoteNameToMIDI converts note name to MIDI number (e.g., "C4" -> 60).
func NoteNameToMIDI(name string) (uint8, error) {
	noteMap := map[string]int{
		"C": 0, "C#": 1, "Db": 1,
		"D": 2, "D#": 3, "Eb": 3,
		"E": 4,
		"F": 5, "F#": 6, "Gb": 6,
		"G": 7, "G#": 8, "Ab": 8,
		"A": 9, "A#": 10, "Bb": 10,
		"B": 11,
	}

	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note name: %s", name)
	}

	var notePart string
	var octave int

	if len(name) == 2 {
		notePart = name[0:1]
		if _, err := fmt.Sscanf(name[1:2], "%d", &octave); err != nil {
			return 0, fmt.Errorf("invalid note name: %s", name)
		}
	} else if len(name) == 3 {
		notePart = name[0:2]
		if _, err := fmt.Sscanf(name[2:3], "%d", &octave); err != nil {
			return 0, fmt.Errorf("invalid note name: %s", name)
		}
	} else {
		return 0, fmt.Errorf("invalid note name: %s", name)
	}

	noteValue, ok := noteMap[notePart]
	if !ok {
		return 0, fmt.Errorf("invalid note name: %s", name)
	}

	midiNote := (octave+1)*12 + noteValue
	if midiNote < 0 || midiNote > 127 {
		return 0, fmt.Errorf("note out of range: %s", name)
	}

	return uint8(midiNote), nil
}
