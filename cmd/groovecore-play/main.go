// Command groovecore-play is a demo host: it opens a MIDI output port,
// drives a groovecore engine through a simulated audio callback, and
// lets the user edit sequences from a REPL or a script file.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/mattn/go-isatty"

	"github.com/iltempo/groovecore/commands"
	"github.com/iltempo/groovecore/engine"
	"github.com/iltempo/groovecore/midi"
	"github.com/iltempo/groovecore/playback"
)

// isTerminal returns true if stdin is a terminal (TTY)
func isTerminal() bool {
	return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
}

// processBatchInput reads and executes commands from reader.
// Returns (success, shouldExit) where success indicates no errors occurred
// and shouldExit indicates if an explicit exit command was found; lines
// after an exit command are not processed.
func processBatchInput(reader io.Reader, handler *commands.Handler) (bool, bool) {
	scanner := bufio.NewScanner(reader)
	hadErrors := false
	shouldExit := false

	for scanner.Scan() {
		line := scanner.Text()
		line = strings.TrimSpace(line)

		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "#") {
			fmt.Println(line)
			continue
		}

		if strings.ToLower(line) == "exit" || strings.ToLower(line) == "quit" {
			shouldExit = true
			break
		}

		fmt.Println(">", line)

		if err := handler.ProcessCommand(line); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			hadErrors = true
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		return false, shouldExit
	}

	return !hadErrors, shouldExit
}

func main() {
	scriptFile := flag.String("script", "", "execute commands from file")
	portIndexFlag := flag.Int("port", -1, "MIDI output port index (prompts if unset and multiple ports exist)")
	tempo := flag.Float64("tempo", 120, "transport tempo in BPM")
	flag.Float64Var(tempo, "bpm", 120, "alias of -tempo")
	midiClockOn := flag.Bool("midi-clock", false, "start with the MIDI real-time clock enabled")
	flag.Parse()

	ports, err := midi.ListPorts()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing MIDI ports: %v\n", err)
		os.Exit(1)
	}

	if len(ports) == 0 {
		fmt.Fprintf(os.Stderr, "No MIDI output ports found\n")
		os.Exit(1)
	}

	fmt.Println("Available MIDI ports:")
	for i, port := range ports {
		fmt.Printf("  %d: %s\n", i, port)
	}

	var portIndex int
	inBatchMode := *scriptFile != "" || !isTerminal()

	switch {
	case *portIndexFlag >= 0:
		portIndex = *portIndexFlag
		if portIndex >= len(ports) {
			fmt.Fprintf(os.Stderr, "Invalid -port %d: only %d port(s) available\n", portIndex, len(ports))
			os.Exit(1)
		}
		fmt.Printf("\nUsing port %d: %s\n\n", portIndex, ports[portIndex])
	case len(ports) == 1 || inBatchMode:
		portIndex = 0
		fmt.Printf("\nUsing port %d: %s\n\n", portIndex, ports[portIndex])
	default:
		fmt.Print("\n")
		rl, err := readline.New(fmt.Sprintf("Select MIDI port (0-%d): ", len(ports)-1))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating readline: %v\n", err)
			os.Exit(1)
		}
		defer rl.Close()

		input, err := rl.Readline()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
			os.Exit(1)
		}

		input = strings.TrimSpace(input)
		portIndex, err = strconv.Atoi(input)
		if err != nil || portIndex < 0 || portIndex >= len(ports) {
			fmt.Fprintf(os.Stderr, "Invalid port selection: %s\n", input)
			os.Exit(1)
		}

		fmt.Printf("Using port %d: %s\n\n", portIndex, ports[portIndex])
	}

	midiOut, err := midi.Open(portIndex)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening MIDI port: %v\n", err)
		os.Exit(1)
	}
	defer midiOut.Close()

	// Route every sequence column and the clock column to the same
	// opened port; a host with independently addressable instruments
	// would bind distinct Outputs per destination instead.
	router := midi.NewRouter()
	for d := 0; d < engine.Destinations; d++ {
		router.Bind(d, midiOut)
	}

	eng := engine.NewEngine()
	if *midiClockOn {
		if err := eng.SetMIDIClockOn(true); err != nil {
			fmt.Fprintf(os.Stderr, "Error enabling MIDI clock: %v\n", err)
		}
	}

	host := playback.New(eng, router, *tempo)
	host.Start()
	defer host.Stop()

	cleanup := func() {
		host.Stop()
		midiOut.Close()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nShutting down gracefully...")
		cleanup()
		os.Exit(0)
	}()

	fmt.Println("Playback started! Type 'help' for commands, 'quit' to exit.")
	fmt.Println()

	cmdHandler := commands.New(eng, host)

	if *scriptFile != "" {
		f, err := os.Open(*scriptFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening script file: %v\n", err)
			os.Exit(2)
		}
		defer f.Close()

		success, shouldExit := processBatchInput(f, cmdHandler)

		if shouldExit {
			cleanup()
			if success {
				os.Exit(0)
			}
			os.Exit(1)
		}
		fmt.Println("\nScript completed. Playback continues. Press Ctrl+C to exit.")
		select {}
	}

	if isTerminal() {
		err = cmdHandler.ReadLoop(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading commands: %v\n", err)
			os.Exit(1)
		}
	} else {
		success, shouldExit := processBatchInput(os.Stdin, cmdHandler)

		if shouldExit {
			cleanup()
			if success {
				os.Exit(0)
			}
			os.Exit(1)
		}

		fmt.Println("\nBatch commands completed. Playback continues. Press Ctrl+C to exit.")
		select {}
	}

	fmt.Println("Goodbye!")
}
