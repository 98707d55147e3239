package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"pagebridge/pkg/conversation"
	"pagebridge/pkg/ui/preview"

	"github.com/stretchr/testify/require"
)

type scriptedConversation struct {
	calls   []string
	replies map[string]conversation.Result
}

func (c *scriptedConversation) Forward(_ context.Context, senderID string, text string) conversation.Result {
	c.calls = append(c.calls, senderID+":"+text)
	return c.replies[text]
}

func TestIsExitCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{input: "exit", want: true},
		{input: " quit ", want: true},
		{input: ":q", want: true},
		{input: "EXIT", want: true},
		{input: "hello", want: false},
		{input: "quit now", want: false},
	}

	for _, tt := range tests {
		if got := isExitCommand(tt.input); got != tt.want {
			t.Fatalf("isExitCommand(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolvePrompt(t *testing.T) {
	original := promptText
	t.Cleanup(func() {
		promptText = original
	})

	promptText = " from-flag "
	if got := resolvePrompt([]string{"from", "args"}); got != "from-flag" {
		t.Fatalf("resolvePrompt with flag = %q, want %q", got, "from-flag")
	}

	promptText = ""
	if got := resolvePrompt([]string{"hello", "world"}); got != "hello world" {
		t.Fatalf("resolvePrompt with args = %q, want %q", got, "hello world")
	}

	if got := resolvePrompt(nil); got != "" {
		t.Fatalf("resolvePrompt without input = %q, want empty", got)
	}
}

func TestSimulatorPlainTurn(t *testing.T) {
	conv := &scriptedConversation{replies: map[string]conversation.Result{
		"hi": {Texts: []string{"Hello!"}},
		"menu": {Payloads: []map[string]any{{
			"contentType": "selector",
			"prompt":      "Pick one",
			"choices":     []any{map[string]any{"title": "Pizza", "value": "ORDER_PIZZA"}},
		}}},
	}}

	var out bytes.Buffer
	sim := &simulator{conv: conv, sender: "tester", out: &out, renderer: preview.NewRenderer(), plain: true}

	sim.turn(context.Background(), "hi")
	sim.turn(context.Background(), "menu")
	sim.turn(context.Background(), "unknown")

	require.Equal(t, "Hello!\nPick one\n  [1] Pizza (ORDER_PIZZA)\n(no reply)\n", out.String())
	require.Equal(t, []string{"tester:hi", "tester:menu", "tester:unknown"}, conv.calls)
}

func TestSimulatorInteractiveStopsOnExit(t *testing.T) {
	conv := &scriptedConversation{replies: map[string]conversation.Result{
		"hi": {Texts: []string{"Hello!"}},
	}}

	var out bytes.Buffer
	sim := &simulator{conv: conv, sender: "tester", out: &out, renderer: preview.NewRenderer(), plain: true}

	err := sim.interactive(context.Background(), strings.NewReader("hi\n\n quit \nnever\n"))
	require.NoError(t, err)
	require.Equal(t, []string{"tester:hi"}, conv.calls)
	require.Contains(t, out.String(), "Hello!")
}
