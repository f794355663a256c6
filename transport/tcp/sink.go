package tcp

import (
	"fmt"
	"net"
	"sync"
	"time"

	"neochat/errors"
)

const writeTimeout = 10 * time.Second

// connSink serializes outbound lines for one connection through a
// bounded channel and a single writer goroutine, so a slow peer drops
// its own deliveries instead of stalling the relay.
type connSink struct {
	conn net.Conn
	ch   chan string
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newConnSink(conn net.Conn, buffer int) *connSink {
	s := &connSink{conn: conn, ch: make(chan string, buffer)}
	s.wg.Add(1)
	go s.writePump()
	return s
}

func (s *connSink) writePump() {
	defer s.wg.Done()
	for line := range s.ch {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if _, err := fmt.Fprintf(s.conn, "%s\n", line); err != nil {
			// the read loop notices the broken connection and leaves
			s.conn.Close()
		}
	}
}

func (s *connSink) Deliver(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrSinkClosed
	}
	select {
	case s.ch <- text:
		return nil
	default:
		return errors.ErrSendBufferFull
	}
}

// close flushes queued lines and stops the writer.
func (s *connSink) close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.ch)
	s.mu.Unlock()
	s.wg.Wait()
}
