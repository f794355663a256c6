// Package domain contains core concepts of the chat relay.
// Messages are immutable once sequenced; rendering rules live here so
// every transport delivers the exact same text.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TimeLayout is the wall-clock format used in snapshot artifacts.
const TimeLayout = "2006-01-02 15:04:05"

type Kind string

const (
	KindChat   Kind = "message"
	KindSystem Kind = "system"
)

// Message represents one sequenced chat or system event.
// Sequence is assigned by the relay, is strictly increasing for the
// lifetime of the process and is never reused after log eviction.
type Message struct {
	ID       uuid.UUID
	Sequence uint64
	Kind     Kind
	Author   string // empty for system messages
	Body     string
	At       time.Time
}

// Render produces the line delivered to participants.
// Chat:   [HH:MM:SS] name: body
// System: [system HH:MM:SS] body
func (m Message) Render() string {
	ts := m.At.Format("15:04:05")
	if m.Kind == KindSystem {
		return fmt.Sprintf("[system %s] %s", ts, m.Body)
	}
	return fmt.Sprintf("[%s] %s: %s", ts, m.Author, m.Body)
}
