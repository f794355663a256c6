// Package ws is the frame-protocol transport: text frames over a
// WebSocket connection. The first frame is the display name, every
// later frame chat text or a directive; delivery uses the same
// rendered lines as the other transports.
package ws

import (
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"neochat/domain"
	"neochat/relay"
)

type Server struct {
	log             *slog.Logger
	relay           *relay.Coordinator
	addr            string
	identifyTimeout time.Duration
	sendBuffer      int
	upgrader        websocket.Upgrader

	mu      sync.Mutex
	conns   map[*websocket.Conn]struct{}
	ready   chan struct{}
	once    sync.Once
	boundTo string
}

func NewServer(log *slog.Logger, r *relay.Coordinator, addr string, identifyTimeout time.Duration, sendBuffer int) *Server {
	return &Server{
		log:             log,
		relay:           r,
		addr:            addr,
		identifyTimeout: identifyTimeout,
		sendBuffer:      sendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// browser clients connect from any page
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(map[*websocket.Conn]struct{}),
		ready: make(chan struct{}),
	}
}

// Addr blocks until the listener is bound and returns its address.
func (s *Server) Addr() string {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.boundTo = ln.Addr().String()
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })
	s.log.Info("Frame transport listening", "addr", ln.Addr().String())

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)
	srv := &http.Server{Handler: mux}

	go func() {
		<-ctx.Done()
		srv.Close()
		s.closeAll()
	}()

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// plain HTTP probes end up here; the upgrader already
		// answered them with an error status
		s.log.Debug("Rejected non-websocket request", "from", r.RemoteAddr)
		return
	}
	s.track(conn)
	defer func() {
		s.untrack(conn)
		conn.Close()
	}()

	origin, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		origin = r.RemoteAddr
	}

	_ = conn.SetReadDeadline(time.Now().Add(s.identifyTimeout))
	_, data, err := conn.ReadMessage()
	if err != nil {
		s.log.Warn("Identify handshake failed, closing", "from", r.RemoteAddr)
		return
	}
	name := strings.TrimSpace(string(data))

	sink := newFrameSink(conn, s.sendBuffer)
	defer sink.close()

	p, welcome, err := s.relay.Join(domain.TransportFrame, origin, name, sink)
	if err != nil {
		_ = sink.Deliver("cannot join: " + err.Error())
		return
	}
	defer s.relay.Leave(p.ID)
	_ = sink.Deliver(welcome)

	_ = conn.SetReadDeadline(time.Time{})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		reply, err := s.relay.Chat(p.ID, strings.TrimSpace(string(data)))
		if err != nil {
			return
		}
		if reply != "" {
			_ = sink.Deliver(reply)
		}
	}
}

func (s *Server) track(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
}
