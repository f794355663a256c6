package poll

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"neochat/relay"
	"neochat/repositories"
)

func newTestAPI(t *testing.T) (*httptest.Server, *relay.Coordinator) {
	t.Helper()
	log := slog.New(slog.DiscardHandler)
	store, err := repositories.NewSnapshotStore(t.TempDir(), log)
	require.NoError(t, err)
	coord := relay.New(log, store, relay.Options{CaseSensitiveNames: true})

	api := httptest.NewServer(NewServer(log, coord, "").Handler())
	t.Cleanup(api.Close)
	return api, coord
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func join(t *testing.T, api *httptest.Server, username string) (string, *http.Response) {
	t.Helper()
	resp, err := http.Post(api.URL+"/join?username="+username, "application/json", nil)
	require.NoError(t, err)
	if resp.StatusCode != http.StatusOK {
		return "", resp
	}
	body := decode(t, resp)
	return body["session_id"].(string), resp
}

func TestJoin(t *testing.T) {
	api, coord := newTestAPI(t)

	resp, err := http.Post(api.URL+"/join?username=Alice", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Alice", body["username"])
	require.Equal(t, float64(1), body["online_count"])
	require.Contains(t, body["welcome"], "Welcome to NeoChat! Online users: 1")
	require.NotEmpty(t, body["session_id"])

	require.Len(t, coord.ListActive(), 1)
}

func TestJoin_UsernameFromBody(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Post(api.URL+"/join", "application/json", strings.NewReader(`{"username":"Bodie"}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Bodie", decode(t, resp)["username"])
}

func TestJoin_InvalidName(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Post(api.URL+"/join", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "invalid-name", decode(t, resp)["code"])
}

func TestJoin_DuplicateOrigin(t *testing.T) {
	api, _ := newTestAPI(t)

	_, resp := join(t, api, "Alice")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// a second join from the same client host is refused
	_, resp = join(t, api, "Bob")
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "duplicate-origin", decode(t, resp)["code"])
}

func TestMessageAndMessages(t *testing.T) {
	api, _ := newTestAPI(t)
	sid, _ := join(t, api, "Alice")

	payload := fmt.Sprintf(`{"session_id":%q,"message":"hello room"}`, sid)
	resp, err := http.Post(api.URL+"/message", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, decode(t, resp)["success"])

	resp, err = http.Get(api.URL + "/messages?since=0&session_id=" + sid)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decode(t, resp)
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2) // join notice + chat message
	first := msgs[0].(map[string]any)
	second := msgs[1].(map[string]any)
	require.Equal(t, "system", first["type"])
	require.Equal(t, float64(1), first["sequence"])
	require.Equal(t, "Alice", second["username"])
	require.Equal(t, "hello room", second["message"])
	require.Equal(t, float64(2), second["sequence"])
	require.Equal(t, float64(2), body["total"])

	// cursor-style fetch: only what came after the given sequence
	resp, err = http.Get(api.URL + "/messages?since=1&session_id=" + sid)
	require.NoError(t, err)
	body = decode(t, resp)
	require.Len(t, body["messages"].([]any), 1)
}

func TestMessage_DirectiveReply(t *testing.T) {
	api, _ := newTestAPI(t)
	sid, _ := join(t, api, "Alice")

	payload := fmt.Sprintf(`{"session_id":%q,"message":"/ping"}`, sid)
	resp, err := http.Post(api.URL+"/message", "application/json", strings.NewReader(payload))
	require.NoError(t, err)

	body := decode(t, resp)
	require.Contains(t, body["reply"], "Pong! Server is up")
}

func TestMessage_UnknownSession(t *testing.T) {
	api, _ := newTestAPI(t)

	payload := `{"session_id":"3f0a4bfc-8a5d-4a83-93c2-56bb1a1f2a10","message":"hi"}`
	resp, err := http.Post(api.URL+"/message", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "unknown-session", decode(t, resp)["code"])
}

func TestMessage_MissingFields(t *testing.T) {
	api, _ := newTestAPI(t)

	resp, err := http.Post(api.URL+"/message", "application/json", strings.NewReader(`{}`))
	require.NoError(t, err)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "bad-request", decode(t, resp)["code"])
}

func TestLeave(t *testing.T) {
	api, coord := newTestAPI(t)
	sid, _ := join(t, api, "Alice")

	payload := fmt.Sprintf(`{"session_id":%q}`, sid)
	resp, err := http.Post(api.URL+"/leave", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, coord.ListActive())

	// the session is gone afterwards
	resp, err = http.Post(api.URL+"/leave", "application/json", strings.NewReader(payload))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCORS(t *testing.T) {
	api, _ := newTestAPI(t)

	req, err := http.NewRequest(http.MethodOptions, api.URL+"/join", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(api.URL + "/")
	require.NoError(t, err)
	require.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "NeoChat", decode(t, resp)["name"])
}
