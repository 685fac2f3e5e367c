// Package midi wraps gomidi/v2 output ports and forwards the packets
// produced by a groovecore engine.RenderTimeline call to real MIDI
// hardware or software instruments.
package midi

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // auto-register RtMIDI driver

	"github.com/iltempo/groovecore/engine"
)

// Output represents a MIDI output connection.
type Output struct {
	port drivers.Out
	send func(msg midi.Message) error
}

// ListPorts returns a list of available MIDI output port names.
func ListPorts() ([]string, error) {
	ports := midi.GetOutPorts()
	names := make([]string, len(ports))
	for i, port := range ports {
		names[i] = port.String()
	}
	return names, nil
}

// Open opens a MIDI output port by index.
func Open(portIndex int) (*Output, error) {
	port, err := midi.OutPort(portIndex)
	if err != nil {
		return nil, fmt.Errorf("failed to get MIDI port %d: %w", portIndex, err)
	}

	send, err := midi.SendTo(port)
	if err != nil {
		return nil, fmt.Errorf("failed to create sender: %w", err)
	}

	return &Output{
		port: port,
		send: send,
	}, nil
}

// Close closes the MIDI output port.
func (o *Output) Close() error {
	return o.port.Close()
}

// NoteOn sends a MIDI Note On message.
// note: MIDI note number (0-127, where C4=60)
// velocity: note velocity (0-127)
// channel: MIDI channel (0-15, where 0 = channel 1)
func (o *Output) NoteOn(channel, note, velocity uint8) error {
	return o.send(midi.NoteOn(channel, note, velocity))
}

// NoteOff sends a MIDI Note Off message.
func (o *Output) NoteOff(channel, note uint8) error {
	return o.send(midi.NoteOff(channel, note))
}

// ControlChange sends a MIDI CC message.
func (o *Output) ControlChange(channel, controller, value uint8) error {
	return o.send(midi.ControlChange(channel, controller, value))
}

// PitchBend sends a MIDI pitch-bend message. relative is in [-8192,8191].
func (o *Output) PitchBend(channel uint8, relative int16) error {
	return o.send(midi.Pitchbend(channel, relative))
}

// ProgramChange sends a MIDI program-change message.
func (o *Output) ProgramChange(channel, program uint8) error {
	return o.send(midi.ProgramChange(channel, program))
}

// Raw sends the raw status/data1/data2 bytes of a real-time or
// system-common message (clock tick/start/stop) that gomidi does not
// expose a typed constructor for.
func (o *Output) Raw(status, data1, data2 byte, length uint8) error {
	switch length {
	case 1:
		return o.send(midi.Message{status})
	case 2:
		return o.send(midi.Message{status, data1})
	default:
		return o.send(midi.Message{status, data1, data2})
	}
}

// SendPacket forwards one engine.Packet verbatim, dispatching on its
// status byte. A zero-length packet (an empty output slot) is a no-op.
func (o *Output) SendPacket(p engine.Packet) error {
	if p.Length == 0 {
		return nil
	}
	status := p.Data[0] & 0xF0
	channel := p.Data[0] & 0x0F

	switch {
	case status == engine.StatusNoteOn:
		return o.NoteOn(channel, p.Data[1], p.Data[2])
	case status == engine.StatusNoteOff:
		return o.NoteOff(channel, p.Data[1])
	case status == engine.StatusCC:
		return o.ControlChange(channel, p.Data[1], p.Data[2])
	case status == engine.StatusProgramChange:
		return o.ProgramChange(channel, p.Data[1])
	case status == engine.StatusPitchBend:
		raw := int16(p.Data[1]) | int16(p.Data[2])<<7
		return o.PitchBend(channel, raw-8192)
	default:
		return o.Raw(p.Data[0], p.Data[1], p.Data[2], p.Length)
	}
}

// Router fans an engine's per-destination columns out to up to
// engine.Destinations independently opened Outputs, so each sequence
// (and the clock generator) can target its own port/instrument.
type Router struct {
	outputs [engine.Destinations]*Output
}

// NewRouter creates an empty Router; bind destinations with Bind.
func NewRouter() *Router { return &Router{} }

// Bind assigns an Output to a destination column.
func (r *Router) Bind(destination int, out *Output) {
	if destination < 0 || destination >= engine.Destinations {
		return
	}
	r.outputs[destination] = out
}

// Flush walks one buffer's OutputSlots in time-column order (the order
// the engine wrote them) per destination and forwards every non-empty
// packet to its bound Output, if any, immediately; packet timestamps
// are not used. Unbound destinations are silently skipped.
func (r *Router) Flush(slots engine.OutputSlots) error {
	for d := 0; d < engine.Destinations; d++ {
		out := r.outputs[d]
		if out == nil {
			continue
		}
		for p := 0; p < engine.MIDIPacketSize; p++ {
			pkt := slots[p][d]
			if pkt.Length == 0 {
				continue
			}
			if err := out.SendPacket(pkt); err != nil {
				return fmt.Errorf("midi: send to destination %d: %w", d, err)
			}
		}
	}
	return nil
}
