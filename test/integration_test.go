package test

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"

	"neochat/relay"
	"neochat/relay/workers"
	"neochat/repositories"
	"neochat/transport/poll"
	"neochat/transport/tcp"
	"neochat/transport/ws"
)

func Test_Scenario(t *testing.T) {
	req := require.New(t)
	cfg, err := LoadConfig()
	req.NoError(err)

	log := logs.GetLoggerFromLevel(slog.LevelError)
	store, err := repositories.NewSnapshotStore(t.TempDir(), log)
	req.NoError(err)
	coord := relay.New(log, store, relay.Options{CaseSensitiveNames: true, MaxContentLength: 2000})

	tcpServer := tcp.NewServer(log, coord, "127.0.0.1:0", 5*time.Second, 64)
	wsServer := ws.NewServer(log, coord, "127.0.0.1:0", 5*time.Second, 64)
	pollServer := poll.NewServer(log, coord, "127.0.0.1:0")

	ctx, cancel := context.WithCancel(context.Background())
	supervisor := workers.NewSupervisor(log, cfg.RestartInterval)
	supervisor.Add(
		tcpServer,
		wsServer,
		pollServer,
		workers.NewSnapshotWorker(log, coord, time.Hour),
		workers.NewReaperWorker(log, coord, 50*time.Millisecond, time.Hour),
	)
	stopped := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-stopped:
		case <-time.After(cfg.WaitTimeout):
			t.Error("supervisor did not stop")
		}
	})

	// 1. A stream participant joins and is welcomed
	conn, err := net.Dial("tcp", tcpServer.Addr())
	req.NoError(err)
	defer conn.Close()
	reader := bufio.NewReader(conn)
	fmt.Fprintln(conn, "Alice")
	req.Contains(readLine(t, cfg, conn, reader), "Welcome to NeoChat! Online users: 1")

	// 2. The same host cannot join twice, even over another transport
	wsConn, _, err := websocket.DefaultDialer.Dial("ws://"+wsServer.Addr()+"/", nil)
	req.NoError(err)
	req.NoError(wsConn.WriteMessage(websocket.TextMessage, []byte("Bob")))
	req.NoError(wsConn.SetReadDeadline(time.Now().Add(cfg.WaitTimeout)))
	_, frame, err := wsConn.ReadMessage()
	req.NoError(err)
	req.Contains(string(frame), "cannot join: ")
	wsConn.Close()

	pollURL := "http://" + pollServer.Addr()
	resp, err := http.Post(pollURL+"/join?username=Carol", "application/json", nil)
	req.NoError(err)
	req.Equal(http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// 3. Directives answer privately over the wire
	fmt.Fprintln(conn, "/stats")
	req.Contains(readLine(t, cfg, conn, reader), "total messages")

	// 4. Anyone can read the log anonymously through the polling API
	resp, err = http.Get(pollURL + "/messages?since=0")
	req.NoError(err)
	var body struct {
		Messages []struct {
			Message  string `json:"message"`
			Sequence uint64 `json:"sequence"`
		} `json:"messages"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&body))
	resp.Body.Close()
	req.NotEmpty(body.Messages)
	req.Equal("Alice joined the chat", body.Messages[0].Message)
	req.Equal(uint64(1), body.Messages[0].Sequence)

	// 5. Disconnecting frees both identity slots
	conn.Close()
	req.Eventually(func() bool {
		return len(coord.ListActive()) == 0
	}, cfg.WaitTimeout, cfg.PollInterval)

	// 6. The freed origin can join again over polling
	resp, err = http.Post(pollURL+"/join?username=Alice", "application/json", nil)
	req.NoError(err)
	req.Equal(http.StatusOK, resp.StatusCode)
	var joined struct {
		SessionID string `json:"session_id"`
		Welcome   string `json:"welcome"`
	}
	req.NoError(json.NewDecoder(resp.Body).Decode(&joined))
	resp.Body.Close()
	req.Contains(joined.Welcome, "Welcome to NeoChat! Online users: 1")

	// 7. A snapshot cycle truncates the log but keeps the participant
	path, err := coord.Snapshot()
	req.NoError(err)
	req.NotEmpty(path)
	req.Equal(0, coord.LogSize())
	req.Len(coord.ListActive(), 1)
}

func readLine(t *testing.T, cfg Config, conn net.Conn, r *bufio.Reader) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(cfg.WaitTimeout)))
	line, err := r.ReadString('\n')
	require.NoError(t, err)
	return line
}
