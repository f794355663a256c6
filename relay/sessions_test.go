package relay

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"neochat/domain"
	"neochat/errors"
)

func TestJoinSession(t *testing.T) {
	c := newTestCoordinator(t)

	s, welcome, err := c.JoinSession("10.0.0.1", "Poller")
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, s.ID)
	require.Contains(t, welcome, "Welcome to NeoChat! Online users: 1")

	active := c.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, domain.TransportPoll, active[0].Kind)

	// sessions share the registry with push participants
	_, _, err = c.JoinSession("10.0.0.2", "Poller")
	require.ErrorIs(t, err, errors.ErrDuplicateName)
	_, _, err = c.Join(domain.TransportStream, "10.0.0.1", "Other", &recordSink{})
	require.ErrorIs(t, err, errors.ErrDuplicateOrigin)
}

func TestSessionChat_UnknownSession(t *testing.T) {
	c := newTestCoordinator(t)
	_, err := c.SessionChat(uuid.New(), "hello")
	require.ErrorIs(t, err, errors.ErrUnknownSession)
}

func TestSessionMessages_AdvancesCursor(t *testing.T) {
	c := newTestCoordinator(t)
	s, _, err := c.JoinSession("10.0.0.1", "Poller")
	require.NoError(t, err) // seq 1: join notice

	_, err = c.SessionChat(s.ID, "first")
	require.NoError(t, err) // seq 2

	msgs, err := c.SessionMessages(s.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, uint64(1), msgs[0].Sequence)
	require.Equal(t, "Poller: first", msgs[1].Author+": "+msgs[1].Body)

	c.mu.Lock()
	cursor := c.sessions[s.ID].ReadCursor
	c.mu.Unlock()
	require.Equal(t, uint64(2), cursor)

	msgs, err = c.SessionMessages(s.ID, 2)
	require.NoError(t, err)
	require.Empty(t, msgs)
}

func TestSessionLeave(t *testing.T) {
	c := newTestCoordinator(t)
	watcher := &recordSink{}
	_, _, err := c.Join(domain.TransportStream, "10.0.0.1", "Watcher", watcher)
	require.NoError(t, err)
	s, _, err := c.JoinSession("10.0.0.2", "Poller")
	require.NoError(t, err)

	require.NoError(t, c.SessionLeave(s.ID))
	require.ErrorIs(t, c.SessionLeave(s.ID), errors.ErrUnknownSession)

	require.Len(t, c.ListActive(), 1)
	lines := watcher.Lines()
	require.Contains(t, lines[len(lines)-1], "Poller left the chat")
}

func TestEvictIdle(t *testing.T) {
	c := newTestCoordinator(t)
	watcher := &recordSink{}
	_, _, err := c.Join(domain.TransportStream, "10.0.0.1", "Watcher", watcher)
	require.NoError(t, err)
	stale, _, err := c.JoinSession("10.0.0.2", "Ghost")
	require.NoError(t, err)
	fresh, _, err := c.JoinSession("10.0.0.3", "Busy")
	require.NoError(t, err)

	c.mu.Lock()
	c.sessions[stale.ID].LastActive = time.Now().Add(-10 * time.Minute)
	c.mu.Unlock()

	evicted := c.EvictIdle(5 * time.Minute)
	require.Equal(t, []string{"Ghost"}, evicted)

	names := []string{}
	for _, p := range c.ListActive() {
		names = append(names, p.Name)
	}
	require.Equal(t, []string{"Watcher", "Busy"}, names)

	lines := watcher.Lines()
	require.Contains(t, lines[len(lines)-1], "Ghost timed out and left the chat")

	// the surviving session keeps working
	require.NoError(t, c.Touch(fresh.ID))
	require.ErrorIs(t, c.Touch(stale.ID), errors.ErrUnknownSession)
	require.Empty(t, c.EvictIdle(5*time.Minute))
}
