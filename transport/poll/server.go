// Package poll is the request/response transport: participants hold a
// session instead of a connection and fetch messages by sequence
// cursor. Every endpoint answers with permissive cross-origin headers
// so browser pages can talk to it directly.
package poll

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"neochat/domain"
	"neochat/errors"
	"neochat/relay"
)

type Server struct {
	log   *slog.Logger
	relay *relay.Coordinator
	addr  string

	mu      sync.Mutex
	ready   chan struct{}
	once    sync.Once
	boundTo string
}

func NewServer(log *slog.Logger, r *relay.Coordinator, addr string) *Server {
	return &Server{log: log, relay: r, addr: addr, ready: make(chan struct{})}
}

// Addr blocks until the listener is bound and returns its address.
func (s *Server) Addr() string {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.boundTo
}

// Handler builds the polling API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(cors)
	r.Get("/", s.handleIndex)
	r.Post("/join", s.handleJoin)
	r.Post("/message", s.handleMessage)
	r.Get("/messages", s.handleMessages)
	r.Post("/leave", s.handleLeave)
	return r
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
	s.log.Info("Polling transport listening", "addr", ln.Addr().String())

	srv := &http.Server{Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	return nil
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type joinRequest struct {
	Username string `json:"username"`
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "NeoChat",
		"endpoints": []string{
			"POST /join?username=NAME",
			"POST /message {session_id, message}",
			"GET /messages?since=SEQ&session_id=ID",
			"POST /leave {session_id}",
		},
	})
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		var req joinRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		username = req.Username
	}

	sess, welcome, err := s.relay.JoinSession(clientOrigin(r), username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":      true,
		"session_id":   sess.ID.String(),
		"username":     sess.Name,
		"online_count": s.relay.Stats().Online,
		"welcome":      welcome,
	})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" || req.Message == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing session_id or message", Code: "bad-request"})
		return
	}
	sid, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, errors.ErrUnknownSession)
		return
	}

	reply, err := s.relay.SessionChat(sid, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := map[string]any{"success": true}
	if reply != "" {
		resp["reply"] = reply
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseUint(r.URL.Query().Get("since"), 10, 64)

	var msgs []domain.Message
	if raw := r.URL.Query().Get("session_id"); raw != "" {
		sid, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, errors.ErrUnknownSession)
			return
		}
		msgs, err = s.relay.SessionMessages(sid, since)
		if err != nil {
			writeError(w, err)
			return
		}
	} else {
		msgs = s.relay.MessagesSince(since)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"messages": lo.Map(msgs, func(m domain.Message, _ int) domain.ArchivedMessage {
			return domain.ArchivedMessage{
				Type:     m.Kind,
				Time:     m.At.Format(domain.TimeLayout),
				Username: m.Author,
				Message:  m.Body,
				Sequence: m.Sequence,
			}
		}),
		"total": s.relay.LogSize(),
	})
}

func (s *Server) handleLeave(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "missing session_id", Code: "bad-request"})
		return
	}
	sid, err := uuid.Parse(req.SessionID)
	if err != nil {
		writeError(w, errors.ErrUnknownSession)
		return
	}
	if err := s.relay.SessionLeave(sid); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// clientOrigin strips the ephemeral port: polling requests from one
// machine share an origin even though every request uses a new socket.
func clientOrigin(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var status int
	var code string
	switch {
	case stderrors.Is(err, errors.ErrDuplicateName):
		status, code = http.StatusConflict, "duplicate-name"
	case stderrors.Is(err, errors.ErrDuplicateOrigin):
		status, code = http.StatusConflict, "duplicate-origin"
	case stderrors.Is(err, errors.ErrUnknownSession):
		status, code = http.StatusUnauthorized, "unknown-session"
	case stderrors.Is(err, errors.ErrInvalidName):
		status, code = http.StatusBadRequest, "invalid-name"
	default:
		status, code = http.StatusInternalServerError, "internal"
	}
	writeJSON(w, status, errorBody{Error: strings.TrimSpace(err.Error()), Code: code})
}
