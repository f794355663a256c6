package relay

import (
	"testing"

	"github.com/stretchr/testify/require"

	"neochat/domain"
)

func TestDirectives(t *testing.T) {
	c := newTestCoordinator(t)
	bob := &recordSink{}
	pa, _, err := c.Join(domain.TransportStream, "10.0.0.1", "Alice", &recordSink{})
	require.NoError(t, err)
	_, _, err = c.Join(domain.TransportStream, "10.0.0.2", "Bob", bob)
	require.NoError(t, err)

	logBefore := c.LogSize()
	bobBefore := len(bob.Lines())

	tests := []struct {
		input string
		want  string
	}{
		{"/help", "/savelog"},
		{"/online", "Online users (2): Alice, Bob"},
		{"/ping", "Pong! Server is up"},
		{"/stats", "total messages"},
		{"/HELP", "/savelog"}, // directives are case insensitive
		{"/frobnicate", "Unknown command: /frobnicate"},
	}
	for _, tt := range tests {
		reply, err := c.Chat(pa.ID, tt.input)
		require.NoError(t, err, tt.input)
		require.Contains(t, reply, tt.want, tt.input)
		require.Contains(t, reply, "[system ", tt.input)
	}

	// directives are consumed: nothing sequenced, nothing broadcast
	require.Equal(t, logBefore, c.LogSize())
	require.Len(t, bob.Lines(), bobBefore)
}

func TestDirective_SavelogTruncates(t *testing.T) {
	c := newTestCoordinator(t)
	pa, _, err := c.Join(domain.TransportStream, "10.0.0.1", "Alice", &recordSink{})
	require.NoError(t, err)
	require.Equal(t, 1, c.LogSize()) // join notice

	reply, err := c.Chat(pa.ID, "/savelog")
	require.NoError(t, err)
	require.Contains(t, reply, "Log saved to ")
	require.Contains(t, reply, "chat_log_")
	require.Equal(t, 0, c.LogSize())
}
