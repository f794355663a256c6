package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type TransportKind string

const (
	TransportStream TransportKind = "stream"
	TransportPoll   TransportKind = "poll"
	TransportFrame  TransportKind = "frame"
)

// Participant is one identified member of the chat room.
// The registry owns the entry; the transport adapter that created it
// owns the underlying connection and is the only writer to it.
type Participant struct {
	ID       uuid.UUID
	Kind     TransportKind
	Origin   string
	Name     string
	JoinedAt time.Time
}

// Descriptor identifies the participant's connection in operator
// output and snapshot artifacts.
func (p Participant) Descriptor() string {
	return fmt.Sprintf("%s/%s", p.Kind, p.Origin)
}
