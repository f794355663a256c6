//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"
	"time"

	"neochat/domain"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Deliverer pushes one rendered line to a single participant's
// connection. Implementations must not block: a slow or dead peer
// fails its own delivery without stalling the caller.
type Deliverer interface {
	Deliver(text string) error
}

// ISnapshotStore persists one snapshot artifact per eviction cycle
// and returns the location it was written to.
type ISnapshotStore interface {
	Write(s domain.Snapshot) (string, error)
}

// IRelay is the slice of the relay consumed by maintenance workers
// and the operator console.
type IRelay interface {
	Stats() domain.ServerStats
	ListActive() []domain.Participant
	LogSize() int
	Snapshot() (string, error)
	EvictIdle(olderThan time.Duration) []string
	ServerBroadcast(text string)
	SystemBroadcast(body string)
}
