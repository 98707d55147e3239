package preview

import (
	"strings"
	"testing"

	"pagebridge/pkg/messenger"

	"github.com/stretchr/testify/require"
)

func TestPlain(t *testing.T) {
	require.Equal(t, "(no reply)", Plain(nil))

	text := messenger.NewTextPayload("U1", "Hello!")
	require.Equal(t, "Hello!", Plain(&text))

	buttons := messenger.NewButtonPayload("U1", "Pick one", []messenger.Button{
		{Type: messenger.ButtonPostback, Title: "Pizza", Payload: "ORDER_PIZZA"},
		{Type: messenger.ButtonPostback, Title: "Burger", Payload: "ORDER_BURGER"},
	})
	require.Equal(t, "Pick one\n  [1] Pizza (ORDER_PIZZA)\n  [2] Burger (ORDER_BURGER)", Plain(&buttons))
}

func TestRendererIncludesContent(t *testing.T) {
	r := NewRenderer()

	require.Contains(t, r.Reply(nil), "no reply")

	text := messenger.NewTextPayload("U1", "Hello!")
	require.Contains(t, r.Reply(&text), "Hello!")

	buttons := messenger.NewButtonPayload("U1", "Pick one", []messenger.Button{
		{Type: messenger.ButtonPostback, Title: "Pizza", Payload: "ORDER_PIZZA"},
	})
	out := r.Reply(&buttons)
	for _, want := range []string{"Pick one", "Pizza", "ORDER_PIZZA", "U1"} {
		require.True(t, strings.Contains(out, want), "rendered reply missing %q:\n%s", want, out)
	}

	require.Contains(t, r.Inbound("U1", "hi"), "hi")
}
