// Package assistant translates natural-language groove requests into
// the command vocabulary's edit commands using Claude's chat
// completion API.
package assistant

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/iltempo/groovecore/engine"
)

const commandSystemPromptTemplate = `You are a musical assistant for groovecore, a realtime MIDI step sequencer. Your job is to translate user requests into groovecore commands.

Available commands:
- add <kit> <beat> <note> [duration] [chance]: Add a step (e.g., "add bd 0 C1", "add hh 0.5 F#2 0.1 80")
- delete <kit> <beat> <note>: Remove a step
- clear <kit>: Clear all steps on a kit
- length <kit> <beats>: Set a kit's loop length in beats
- step <kit> <ratio>: Set a kit's playback ratio (e.g., "step hh 2" for double-time)
- cc <kit> <beat> <cc#> <value>: Add a CC automation step
- swing <amount>: Set swing amount, 0.0-1.0 (0=straight, 0.5=heavy swing)
- mute <kit> [on|off]: Mute/unmute a kit
- solo <kit> [on|off]: Solo/unsolo a kit
- clockon / clockoff: Enable/disable the MIDI clock
- stop: Force-stop all sounding notes
- show [kit]: Show engine or kit state

Kits (sequence slots): bd sd hh pc bass chords lead

Parameter limits (IMPORTANT: values are plain numbers, no %% symbols):
- beat: nonnegative beat position (fractional beats allowed, e.g., 0.25, 1.5)
- note: C0-C8 (e.g., C3, D#4, Bb2)
- duration: beats the note sustains (e.g., 0.25 for a sixteenth note)
- chance: 0-100 (probability of firing, 100=always)
- CC numbers/values: 0-127

Current engine state will be provided. Respond ONLY with the commands to execute, one per line, no explanations. Be concise and musical.

Examples:
User: "add a kick on the downbeat"
You: add bd 0 C1

User: "give the hats some swing and make them double-time"
You: step hh 2
swing 0.5

User: "thin out the hi-hats"
You: add hh 0 F#2 0.1 60
`

const chatSystemPromptTemplate = `You are a musical assistant for groovecore, a realtime MIDI step sequencer. You help users understand their sequences, suggest ideas, answer questions, and discuss music theory.

Available commands in groovecore:
- add <kit> <beat> <note> [duration] [chance]: Add a step
- delete <kit> <beat> <note>: Remove a step
- clear <kit>: Clear all steps on a kit
- length <kit> <beats>: Set a kit's loop length
- step <kit> <ratio>: Set a kit's playback ratio
- cc <kit> <beat> <cc#> <value>: Add a CC automation step
- swing <amount>: Set swing amount, 0.0-1.0
- mute/solo <kit> [on|off]
- clockon/clockoff: MIDI clock on/off
- stop: Force-stop all sounding notes
- show [kit]: Display engine or kit state

Kits: bd sd hh pc bass chords lead

Current engine state will be provided. Respond conversationally and helpfully.`

const sessionSystemPromptTemplate = `You are a musical assistant in an interactive session with a user working on a groove in groovecore.

Available commands:
- add <kit> <beat> <note> [duration] [chance]
- delete <kit> <beat> <note>
- clear <kit>
- length <kit> <beats>
- step <kit> <ratio>
- cc <kit> <beat> <cc#> <value>
- swing <amount> (0.0-1.0)
- mute/solo <kit> [on|off]
- clockon/clockoff
- stop
- show [kit]

Kits: bd sd hh pc bass chords lead

Your role in this interactive session:
1. Have natural conversations about the groove
2. Answer questions and explain music theory
3. When the user asks you to modify the sequence, respond with commands to execute
4. Be conversational, explain what you're doing
5. Ask for clarification when needed

When outputting commands to execute, use this EXACT format:
[EXECUTE]
command1
command2
[/EXECUTE]

Current engine state will be provided with each message.`

// Client wraps the Claude API client.
type Client struct {
	client              anthropic.Client
	conversationHistory []anthropic.MessageParam
}

// New creates a new assistant client.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &Client{
		client: client,
	}, nil
}

// NewFromEnv creates a new assistant client using the ANTHROPIC_API_KEY
// environment variable.
func NewFromEnv() (*Client, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	return New(apiKey)
}

// DescribeState renders a compact, human-readable summary of the
// engine's sequences for inclusion in a prompt.
func DescribeState(eng *engine.Engine) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Swing: %g  MIDI clock: %v\n", eng.Swing(), eng.MIDIClockOn())
	for i := 0; i < engine.SequenceCount; i++ {
		snap, err := eng.Snapshot(i)
		if err != nil {
			continue
		}
		fmt.Fprintf(&sb, "kit %d: length=%g ratio=%g mute=%v solo=%v steps=%d\n",
			i, snap.Length, snap.PlaybackRatio, snap.Muted, snap.Soloed, len(snap.Events))
	}
	return sb.String()
}

// GenerateCommands asks Claude to generate commands based on a user request.
func (c *Client) GenerateCommands(ctx context.Context, userRequest string, eng *engine.Engine) ([]string, error) {
	userMessage := fmt.Sprintf("Current state:\n%s\nUser request: %s", DescribeState(eng), userRequest)

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude3_5HaikuLatest,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: commandSystemPromptTemplate},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	return extractLines(responseText(message)), nil
}

// Chat asks Claude a question about the groove and returns a
// conversational response, maintaining history for follow-ups.
func (c *Client) Chat(ctx context.Context, question string, eng *engine.Engine) (string, error) {
	userMessage := fmt.Sprintf("Current state:\n%s\n%s", DescribeState(eng), question)

	c.conversationHistory = append(c.conversationHistory,
		anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude3_5HaikuLatest,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: chatSystemPromptTemplate},
		},
		Messages: c.conversationHistory,
	})
	if err != nil {
		return "", fmt.Errorf("claude API error: %w", err)
	}

	reply := responseText(message)
	c.conversationHistory = append(c.conversationHistory,
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply)))

	return strings.TrimSpace(reply), nil
}

// ClearHistory clears the conversation history.
func (c *Client) ClearHistory() {
	c.conversationHistory = nil
}

// SessionResponse contains the assistant's response and any commands to execute.
type SessionResponse struct {
	Message  string
	Commands []string
}

// Session has an interactive conversation with the assistant,
// maintaining history. Returns the response message and any commands
// to execute.
func (c *Client) Session(ctx context.Context, userInput string, eng *engine.Engine) (*SessionResponse, error) {
	userMessage := fmt.Sprintf("Current state:\n%s\n%s", DescribeState(eng), userInput)

	c.conversationHistory = append(c.conversationHistory,
		anthropic.NewUserMessage(anthropic.NewTextBlock(userMessage)))

	message, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.ModelClaude3_5HaikuLatest,
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: sessionSystemPromptTemplate},
		},
		Messages: c.conversationHistory,
	})
	if err != nil {
		return nil, fmt.Errorf("claude API error: %w", err)
	}

	reply := responseText(message)
	c.conversationHistory = append(c.conversationHistory,
		anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply)))

	return &SessionResponse{
		Message:  reply,
		Commands: extractCommands(reply),
	}, nil
}

func responseText(message *anthropic.Message) string {
	var text string
	for _, block := range message.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			text += b.Text
		}
	}
	return text
}

func extractLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "#") {
			lines = append(lines, line)
		}
	}
	return lines
}

// extractCommands extracts commands from [EXECUTE]...[/EXECUTE] blocks.
func extractCommands(text string) []string {
	const executeStart = "[EXECUTE]"
	const executeEnd = "[/EXECUTE]"

	var commands []string

	startIdx := strings.Index(text, executeStart)
	if startIdx == -1 {
		return commands
	}

	endIdx := strings.Index(text[startIdx:], executeEnd)
	if endIdx == -1 {
		return commands
	}

	commandBlock := text[startIdx+len(executeStart) : startIdx+endIdx]
	return extractLines(commandBlock)
}
