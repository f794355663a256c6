package workers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingWorker struct {
	runs    atomic.Int32
	outcome func(run int32, ctx context.Context) error
}

func (w *countingWorker) Run(ctx context.Context) error {
	return w.outcome(w.runs.Add(1), ctx)
}

func TestSupervisor_RestartsCrashedWorker(t *testing.T) {
	done := make(chan struct{})
	w := &countingWorker{outcome: func(run int32, ctx context.Context) error {
		if run < 3 {
			return fmt.Errorf("crash %d", run)
		}
		close(done)
		<-ctx.Done()
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSupervisor(slog.New(slog.DiscardHandler), time.Millisecond)
	s.Add(w)

	finished := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(finished)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not restarted")
	}
	require.EqualValues(t, 3, w.runs.Load())

	cancel()
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not stop")
	}
}

func TestSupervisor_RecoversPanic(t *testing.T) {
	done := make(chan struct{})
	w := &countingWorker{outcome: func(run int32, ctx context.Context) error {
		if run == 1 {
			panic("boom")
		}
		close(done)
		<-ctx.Done()
		return nil
	}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := NewSupervisor(slog.New(slog.DiscardHandler), time.Millisecond)
	s.Add(w)
	go s.Run(ctx)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not restarted after panic")
	}
}

func TestSupervisor_FinishedWorkerIsNotRestarted(t *testing.T) {
	w := &countingWorker{outcome: func(int32, context.Context) error { return nil }}

	s := NewSupervisor(slog.New(slog.DiscardHandler), time.Millisecond)
	s.Add(w)

	finished := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("supervisor did not return after worker finished")
	}
	require.EqualValues(t, 1, w.runs.Load())
}

func TestSupervisor_StopCancelsWorkers(t *testing.T) {
	started := make(chan struct{})
	w := &countingWorker{outcome: func(_ int32, ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return nil
	}}

	s := NewSupervisor(slog.New(slog.DiscardHandler), time.Millisecond)
	s.Add(w)

	finished := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(finished)
	}()

	<-started
	s.Stop()

	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not shut the supervisor down")
	}
}
