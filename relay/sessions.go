package relay

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"neochat/domain"
	"neochat/errors"
)

// JoinSession registers a polling participant and its session in one
// atomic step. Polling participants have no push sink: they read the
// log through their session cursor instead.
func (c *Coordinator) JoinSession(origin, name string) (domain.Session, string, error) {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, "required,max=32"); err != nil {
		return domain.Session{}, "", fmt.Errorf("%w: %q", errors.ErrInvalidName, name)
	}

	c.mu.Lock()
	p, welcome, targets, err := c.joinLocked(domain.TransportPoll, origin, name, nil)
	if err != nil {
		c.mu.Unlock()
		return domain.Session{}, "", err
	}
	s := &domain.Session{
		ID:          uuid.New(),
		Participant: p.ID,
		Name:        name,
		LastActive:  time.Now(),
	}
	c.sessions[s.ID] = s
	out := *s
	c.mu.Unlock()

	c.deliver(targets)
	return out, welcome, nil
}

// Touch refreshes a session's liveness timestamp.
func (c *Coordinator) Touch(sessionID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return errors.ErrUnknownSession
	}
	s.LastActive = time.Now()
	return nil
}

// SessionChat is the polling counterpart of Chat. Every accepted
// request refreshes the session.
func (c *Coordinator) SessionChat(sessionID uuid.UUID, text string) (string, error) {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return "", errors.ErrUnknownSession
	}
	s.LastActive = time.Now()
	pid, name := s.Participant, s.Name
	c.mu.Unlock()

	return c.chatFrom(pid, name, text)
}

// SessionMessages refreshes the session, advances its read cursor and
// returns every message sequenced after since.
func (c *Coordinator) SessionMessages(sessionID uuid.UUID, since uint64) ([]domain.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[sessionID]
	if !ok {
		return nil, errors.ErrUnknownSession
	}
	s.LastActive = time.Now()

	msgs := c.sinceLocked(since)
	if n := len(msgs); n > 0 && msgs[n-1].Sequence > s.ReadCursor {
		s.ReadCursor = msgs[n-1].Sequence
	}
	return msgs, nil
}

// SessionLeave terminates a session explicitly, emitting the same
// leave notice as a push disconnect.
func (c *Coordinator) SessionLeave(sessionID uuid.UUID) error {
	c.mu.Lock()
	s, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return errors.ErrUnknownSession
	}
	delete(c.sessions, sessionID)
	targets := c.leaveLocked(s.Participant, s.Name+" left the chat")
	c.mu.Unlock()

	c.deliver(targets)
	return nil
}

// EvictIdle removes every session whose last activity is older than
// the threshold, routing each through the normal leave path. It
// returns the evicted display names.
func (c *Coordinator) EvictIdle(olderThan time.Duration) []string {
	c.mu.Lock()
	now := time.Now()
	var evicted []string
	var targets []delivery
	for id, s := range c.sessions {
		if now.Sub(s.LastActive) > olderThan {
			delete(c.sessions, id)
			targets = append(targets, c.leaveLocked(s.Participant, s.Name+" timed out and left the chat")...)
			evicted = append(evicted, s.Name)
		}
	}
	c.mu.Unlock()

	c.deliver(targets)
	return evicted
}
