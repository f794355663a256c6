// Package relay is the transport-agnostic core of the chat system.
// The Coordinator owns the identity registry, the polling session
// store and the in-memory message log as one consistency domain: every
// mutation happens under a single mutex, and connection I/O always
// happens after the mutex is released.
package relay

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"neochat/contract"
	"neochat/domain"
	"neochat/errors"
)

var validate = validator.New()

// Options tunes relay behavior. Zero values fall back to defaults.
type Options struct {
	// CaseSensitiveNames controls display-name uniqueness matching.
	CaseSensitiveNames bool
	// MaxContentLength bounds a single chat message body. Defaults to 2000.
	MaxContentLength int
}

type entry struct {
	p    domain.Participant
	sink contract.Deliverer // nil for polling participants
}

// delivery is one pending outbound line, captured under the lock and
// performed after release.
type delivery struct {
	name string
	line string
	sink contract.Deliverer
}

type Coordinator struct {
	mu    sync.Mutex
	log   *slog.Logger
	store contract.ISnapshotStore
	opts  Options

	participants map[uuid.UUID]*entry
	byOrigin     map[string]uuid.UUID
	byName       map[string]uuid.UUID
	sessions     map[uuid.UUID]*domain.Session

	messages  []domain.Message
	seq       uint64
	total     uint64
	startedAt time.Time
}

func New(log *slog.Logger, store contract.ISnapshotStore, opts Options) *Coordinator {
	if opts.MaxContentLength <= 0 {
		opts.MaxContentLength = 2000
	}
	return &Coordinator{
		log:          log,
		store:        store,
		opts:         opts,
		participants: make(map[uuid.UUID]*entry),
		byOrigin:     make(map[string]uuid.UUID),
		byName:       make(map[string]uuid.UUID),
		sessions:     make(map[uuid.UUID]*domain.Session),
		startedAt:    time.Now(),
	}
}

func (c *Coordinator) nameKey(name string) string {
	if c.opts.CaseSensitiveNames {
		return name
	}
	return strings.ToLower(name)
}

// Join registers a push participant (stream or frame transport).
// Both uniqueness checks run atomically; a rejection leaves the
// registry untouched. On success the join notice goes to everyone
// else and the returned welcome line goes to the joiner alone.
func (c *Coordinator) Join(kind domain.TransportKind, origin, name string, sink contract.Deliverer) (domain.Participant, string, error) {
	name = strings.TrimSpace(name)
	if err := validate.Var(name, "required,max=32"); err != nil {
		return domain.Participant{}, "", fmt.Errorf("%w: %q", errors.ErrInvalidName, name)
	}

	c.mu.Lock()
	p, welcome, targets, err := c.joinLocked(kind, origin, name, sink)
	c.mu.Unlock()
	if err != nil {
		return domain.Participant{}, "", err
	}
	c.deliver(targets)
	return p, welcome, nil
}

func (c *Coordinator) joinLocked(kind domain.TransportKind, origin, name string, sink contract.Deliverer) (domain.Participant, string, []delivery, error) {
	if _, ok := c.byOrigin[origin]; ok {
		return domain.Participant{}, "", nil, errors.ErrDuplicateOrigin
	}
	key := c.nameKey(name)
	if _, ok := c.byName[key]; ok {
		return domain.Participant{}, "", nil, errors.ErrDuplicateName
	}

	p := domain.Participant{
		ID:       uuid.New(),
		Kind:     kind,
		Origin:   origin,
		Name:     name,
		JoinedAt: time.Now(),
	}
	c.participants[p.ID] = &entry{p: p, sink: sink}
	c.byOrigin[origin] = p.ID
	c.byName[key] = p.ID

	targets := c.appendLocked(domain.KindSystem, "", name+" joined the chat", p.ID)
	welcome := renderPrivate(fmt.Sprintf("Welcome to NeoChat! Online users: %d", len(c.participants)))

	c.log.Info("Participant joined", "name", name, "origin", origin, "transport", kind, "online", len(c.participants))
	return p, welcome, targets, nil
}

// Leave removes a participant and broadcasts the leave notice.
// Removing an unknown id is a no-op.
func (c *Coordinator) Leave(id uuid.UUID) {
	c.mu.Lock()
	var targets []delivery
	if e, ok := c.participants[id]; ok {
		targets = c.leaveLocked(id, e.p.Name+" left the chat")
	}
	c.mu.Unlock()
	c.deliver(targets)
}

func (c *Coordinator) leaveLocked(id uuid.UUID, notice string) []delivery {
	e, ok := c.participants[id]
	if !ok {
		return nil
	}
	delete(c.participants, id)
	delete(c.byOrigin, e.p.Origin)
	delete(c.byName, c.nameKey(e.p.Name))
	for sid, s := range c.sessions {
		if s.Participant == id {
			delete(c.sessions, sid)
		}
	}
	c.log.Info("Participant left", "name", e.p.Name, "origin", e.p.Origin, "online", len(c.participants))
	return c.appendLocked(domain.KindSystem, "", notice, uuid.Nil)
}

// Chat processes one line of input from a push participant: either a
// directive (answered privately, never broadcast) or a chat message
// fanned out to everyone else. The returned reply, when non-empty, is
// for the sender only.
func (c *Coordinator) Chat(id uuid.UUID, text string) (string, error) {
	c.mu.Lock()
	e, ok := c.participants[id]
	if !ok {
		c.mu.Unlock()
		return "", errors.ErrUnknownSender
	}
	name := e.p.Name
	c.mu.Unlock()

	return c.chatFrom(id, name, text)
}

func (c *Coordinator) chatFrom(id uuid.UUID, name, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", nil
	}
	if strings.HasPrefix(text, "/") {
		return c.handleDirective(name, text), nil
	}
	if len(text) > c.opts.MaxContentLength {
		return renderPrivate(fmt.Sprintf("Message too long (max %d characters)", c.opts.MaxContentLength)), nil
	}

	c.mu.Lock()
	if _, ok := c.participants[id]; !ok {
		c.mu.Unlock()
		return "", errors.ErrUnknownSender
	}
	targets := c.appendLocked(domain.KindChat, name, text, id)
	c.mu.Unlock()

	c.deliver(targets)
	c.log.Debug("Chat message relayed", "from", name, "recipients", len(targets))
	return "", nil
}

// ServerBroadcast relays operator console input as a chat message
// authored by "Server". Nobody is excluded.
func (c *Coordinator) ServerBroadcast(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	c.mu.Lock()
	targets := c.appendLocked(domain.KindChat, "Server", text, uuid.Nil)
	c.mu.Unlock()
	c.deliver(targets)
}

// SystemBroadcast relays a system notice to every participant.
func (c *Coordinator) SystemBroadcast(body string) {
	c.mu.Lock()
	targets := c.appendLocked(domain.KindSystem, "", body, uuid.Nil)
	c.mu.Unlock()
	c.deliver(targets)
}

// appendLocked sequences and stores a message, then snapshots the
// recipient set. Actual sends happen outside the lock via deliver.
func (c *Coordinator) appendLocked(kind domain.Kind, author, body string, exclude uuid.UUID) []delivery {
	c.seq++
	c.total++
	m := domain.Message{
		ID:       uuid.New(),
		Sequence: c.seq,
		Kind:     kind,
		Author:   author,
		Body:     body,
		At:       time.Now(),
	}
	c.messages = append(c.messages, m)

	line := m.Render()
	targets := make([]delivery, 0, len(c.participants))
	for id, e := range c.participants {
		if id == exclude || e.sink == nil {
			continue
		}
		targets = append(targets, delivery{name: e.p.Name, line: line, sink: e.sink})
	}
	return targets
}

// deliver performs the captured sends. A failed recipient is logged
// and skipped; it stays registered until its own transport reports
// the disconnect.
func (c *Coordinator) deliver(targets []delivery) {
	for _, t := range targets {
		if err := t.sink.Deliver(t.line); err != nil {
			c.log.Warn("Delivery failed", "to", t.name, "error", err)
		}
	}
}

// LookupByOrigin reports the participant currently holding an origin.
func (c *Coordinator) LookupByOrigin(origin string) (domain.Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byOrigin[origin]; ok {
		return c.participants[id].p, true
	}
	return domain.Participant{}, false
}

// LookupByName reports the participant currently holding a display
// name, honoring the configured case sensitivity.
func (c *Coordinator) LookupByName(name string) (domain.Participant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.byName[c.nameKey(name)]; ok {
		return c.participants[id].p, true
	}
	return domain.Participant{}, false
}

// ListActive returns an ordered copy of the registry, isolated from
// concurrent mutation.
func (c *Coordinator) ListActive() []domain.Participant {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.listActiveLocked()
}

func (c *Coordinator) listActiveLocked() []domain.Participant {
	active := make([]domain.Participant, 0, len(c.participants))
	for _, e := range c.participants {
		active = append(active, e.p)
	}
	sort.Slice(active, func(i, j int) bool {
		if !active[i].JoinedAt.Equal(active[j].JoinedAt) {
			return active[i].JoinedAt.Before(active[j].JoinedAt)
		}
		return active[i].Name < active[j].Name
	})
	return active
}

func (c *Coordinator) Stats() domain.ServerStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return domain.ServerStats{
		StartedAt:     c.startedAt,
		TotalMessages: c.total,
		Online:        len(c.participants),
	}
}

// LogSize reports how many messages are currently buffered in memory.
func (c *Coordinator) LogSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.messages)
}

// MessagesSince returns a copy of every buffered message with a
// sequence number strictly greater than since.
func (c *Coordinator) MessagesSince(since uint64) []domain.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sinceLocked(since)
}

func (c *Coordinator) sinceLocked(since uint64) []domain.Message {
	i := sort.Search(len(c.messages), func(i int) bool {
		return c.messages[i].Sequence > since
	})
	out := make([]domain.Message, len(c.messages)-i)
	copy(out, c.messages[i:])
	return out
}

// Snapshot captures the log, participants and counters, writes one
// timestamped artifact, and truncates the log only if the write
// succeeded. The whole cycle runs inside the critical section so no
// message can land between capture and truncation.
func (c *Coordinator) Snapshot() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := c.captureLocked()
	path, err := c.store.Write(snap)
	if err != nil {
		c.log.Error("Snapshot write failed, keeping log in memory", "error", err)
		return "", err
	}
	c.messages = nil
	c.log.Info("Snapshot saved", "path", path, "messages", snap.TotalMessages, "online", snap.CurrentOnlineUsers)
	return path, nil
}

func (c *Coordinator) captureLocked() domain.Snapshot {
	now := time.Now()
	sessions := lo.MapToSlice(c.sessions, func(_ uuid.UUID, s *domain.Session) domain.SessionInfo {
		return domain.SessionInfo{
			SessionID:  s.ID.String(),
			Username:   s.Name,
			LastActive: s.LastActive.Format(domain.TimeLayout),
		}
	})
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionID < sessions[j].SessionID })

	return domain.Snapshot{
		SaveTime:           now.Format(domain.TimeLayout),
		ServerStartTime:    c.startedAt.Format(domain.TimeLayout),
		TotalMessages:      len(c.messages),
		MessageCount:       c.total,
		CurrentOnlineUsers: len(c.participants),
		OnlineUsers: lo.Map(c.listActiveLocked(), func(p domain.Participant, _ int) domain.OnlineUser {
			return domain.OnlineUser{Username: p.Name, Descriptor: p.Descriptor()}
		}),
		Messages: lo.Map(c.messages, func(m domain.Message, _ int) domain.ArchivedMessage {
			return domain.ArchivedMessage{
				Type:     m.Kind,
				Time:     m.At.Format(domain.TimeLayout),
				Username: m.Author,
				Message:  m.Body,
				Sequence: m.Sequence,
			}
		}),
		SessionInfo: sessions,
	}
}

// renderPrivate formats a point-to-point system line. Private replies
// are never sequenced and never enter the message log.
func renderPrivate(body string) string {
	return domain.Message{Kind: domain.KindSystem, Body: body, At: time.Now()}.Render()
}
