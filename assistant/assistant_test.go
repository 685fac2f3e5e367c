package assistant

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
)

func TestExtractCommands(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "single command",
			text: "Sure, adding a kick.\n[EXECUTE]\nadd bd 0 C1\n[/EXECUTE]\nDone.",
			want: []string{"add bd 0 C1"},
		},
		{
			name: "multiple commands",
			text: "[EXECUTE]\nadd bd 0 C1\nadd sd 2 D2\n[/EXECUTE]",
			want: []string{"add bd 0 C1", "add sd 2 D2"},
		},
		{
			name: "no execute block",
			text: "Let's talk about swing feel instead.",
			want: nil,
		},
		{
			name: "unterminated block",
			text: "[EXECUTE]\nadd bd 0 C1\n",
			want: nil,
		},
		{
			name: "blank lines ignored",
			text: "[EXECUTE]\n\nadd bd 0 C1\n\n[/EXECUTE]",
			want: []string{"add bd 0 C1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractCommands(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("extractCommands(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("extractCommands(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestClearHistory(t *testing.T) {
	c := &Client{}
	c.conversationHistory = append(c.conversationHistory, anthropic.MessageParam{})
	c.ClearHistory()
	if c.conversationHistory != nil {
		t.Errorf("ClearHistory did not reset history: %v", c.conversationHistory)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	if _, err := NewFromEnv(); err == nil {
		t.Error("NewFromEnv() with no key set should return an error")
	}

	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	c, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv() unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("NewFromEnv() returned nil client")
	}
}

func TestNew(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should return an error")
	}
	c, err := New("test-key")
	if err != nil {
		t.Fatalf("New(\"test-key\") unexpected error: %v", err)
	}
	if c == nil {
		t.Fatal("New returned nil client")
	}
}
