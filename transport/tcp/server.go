// Package tcp is the stream transport: newline-delimited text over a
// raw socket. The first line a connection sends is its display name;
// every later line is chat text or a directive.
package tcp

import (
	"bufio"
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"

	"neochat/domain"
	"neochat/relay"
)

type Server struct {
	log             *slog.Logger
	relay           *relay.Coordinator
	addr            string
	identifyTimeout time.Duration
	sendBuffer      int

	mu       sync.Mutex
	conns    map[net.Conn]struct{}
	ready    chan struct{}
	once     sync.Once
	boundTo  string
	listener net.Listener
}

func NewServer(log *slog.Logger, r *relay.Coordinator, addr string, identifyTimeout time.Duration, sendBuffer int) *Server {
	return &Server{
		log:             log,
		relay:           r,
		addr:            addr,
		identifyTimeout: identifyTimeout,
		sendBuffer:      sendBuffer,
		conns:           make(map[net.Conn]struct{}),
		ready:           make(chan struct{}),
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
	s.listener = ln
	s.boundTo = ln.Addr().String()
	s.mu.Unlock()
	s.once.Do(func() { close(s.ready) })
	s.log.Info("Stream transport listening", "addr", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
		s.closeAll()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || stderrors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		s.track(conn)
		go s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	defer func() {
		s.untrack(conn)
		conn.Close()
	}()

	remote := conn.RemoteAddr().String()
	origin, _, err := net.SplitHostPort(remote)
	if err != nil {
		origin = remote
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)

	// Identify handshake: first real line is the display name. A
	// connection that stays silent past the deadline is dropped
	// without ever touching the registry.
	_ = conn.SetReadDeadline(time.Now().Add(s.identifyTimeout))
	var name string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if looksLikeProbe(line) {
			s.log.Debug("Discarding protocol probe during identify", "from", remote)
			drainRequestHead(scanner)
			continue
		}
		name = line
		break
	}
	if name == "" {
		s.log.Warn("Identify handshake failed, closing", "from", remote)
		return
	}

	sink := newConnSink(conn, s.sendBuffer)
	defer sink.close()

	p, welcome, err := s.relay.Join(domain.TransportStream, origin, name, sink)
	if err != nil {
		_ = sink.Deliver("cannot join: " + err.Error())
		return
	}
	defer s.relay.Leave(p.ID)
	_ = sink.Deliver(welcome)

	_ = conn.SetReadDeadline(time.Time{})
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if looksLikeProbe(line) {
			s.log.Debug("Discarding protocol probe", "from", remote)
			drainRequestHead(scanner)
			continue
		}
		reply, err := s.relay.Chat(p.ID, line)
		if err != nil {
			return
		}
		if reply != "" {
			_ = sink.Deliver(reply)
		}
	}
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
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
