package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"neochat/errors"
)

const writeTimeout = 10 * time.Second

// frameSink funnels outbound lines through one writer goroutine;
// gorilla connections allow a single concurrent writer.
type frameSink struct {
	conn *websocket.Conn
	ch   chan string
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newFrameSink(conn *websocket.Conn, buffer int) *frameSink {
	s := &frameSink{conn: conn, ch: make(chan string, buffer)}
	s.wg.Add(1)
	go s.writePump()
	return s
}

func (s *frameSink) writePump() {
	defer s.wg.Done()
	for line := range s.ch {
		_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := s.conn.WriteMessage(websocket.TextMessage, []byte(line)); err != nil {
			s.conn.Close()
		}
	}
}

func (s *frameSink) Deliver(text string) error {
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

func (s *frameSink) close() {
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
