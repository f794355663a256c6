package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session is the polling transport's substitute for a persistent
// connection: liveness metadata plus a read cursor. LastActive only
// moves forward while the session is alive.
type Session struct {
	ID          uuid.UUID
	Participant uuid.UUID
	Name        string
	LastActive  time.Time
	ReadCursor  uint64
}
