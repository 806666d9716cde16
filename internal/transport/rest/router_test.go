package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
	"github.com/harikrishna-au/codetogetherfull/internal/repository"
	"github.com/harikrishna-au/codetogetherfull/internal/service"
	"github.com/harikrishna-au/codetogetherfull/internal/transport/ws"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store := repository.NewMemoryStore()
	queues := service.NewQueueService()
	sessions := service.NewSessionService(store, nil)
	rooms := service.NewRoomService(store, nil, 0, 0)
	auth := service.NewAuthService("test-secret", nil)
	match := service.NewMatchService(queues, sessions, rooms, service.NewStaticContentStore(5))

	hub := ws.NewHub()
	match.SetBroadcaster(hub)
	gateway := ws.NewHandler(hub, auth, sessions, rooms, match, time.Second)

	router := NewRouter(&Container{
		Auth:     auth,
		Sessions: sessions,
		Rooms:    rooms,
		Match:    match,
		Queues:   queues,
		Gateway:  gateway,
		AdminKey: "admin-key",
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func login(t *testing.T, server *httptest.Server, userID string) model.LoginResponse {
	t.Helper()

	body, _ := json.Marshal(model.LoginRequest{UserID: userID, UserData: &model.UserData{Name: userID}})
	resp, err := http.Post(server.URL+"/v1/auth/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out model.LoginResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	require.NotEmpty(t, out.Token)
	require.NotEmpty(t, out.SessionID)
	return out
}

func doAuthed(t *testing.T, server *httptest.Server, method, path, token string, body []byte) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

func TestHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLoginAndMe(t *testing.T) {
	server := newTestServer(t)
	creds := login(t, server, "alice")

	resp := doAuthed(t, server, http.MethodGet, "/v1/auth/me", creds.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var session model.Session
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	assert.Equal(t, creds.SessionID, session.ID)
	assert.Equal(t, "alice", session.UserID)
	assert.Equal(t, model.SessionUnassigned, session.State)
}

func TestAuthedEndpointsRejectBadTokens(t *testing.T) {
	server := newTestServer(t)

	resp := doAuthed(t, server, http.MethodGet, "/v1/auth/me", "garbage", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/auth/me", nil)
	require.NoError(t, err)
	bare, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer bare.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, bare.StatusCode)
}

func TestQueueJoinThroughREST(t *testing.T) {
	server := newTestServer(t)
	alice := login(t, server, "alice")
	bob := login(t, server, "bob")

	body, _ := json.Marshal(map[string]string{"difficulty": "easy"})
	resp := doAuthed(t, server, http.MethodPost, "/v1/queue/join", alice.Token, body)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var joined struct {
		Success  bool                 `json:"success"`
		Matched  bool                 `json:"matched"`
		Position *model.QueuePosition `json:"position"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&joined))
	assert.True(t, joined.Success)
	assert.False(t, joined.Matched)
	require.NotNil(t, joined.Position)
	assert.Equal(t, 1, joined.Position.Position)

	// second joiner pairs immediately
	resp2 := doAuthed(t, server, http.MethodPost, "/v1/queue/join", bob.Token, body)
	defer resp2.Body.Close()
	require.Equal(t, http.StatusOK, resp2.StatusCode)
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&joined))
	assert.True(t, joined.Matched)
	assert.Nil(t, joined.Position)

	counts, err := http.Get(server.URL + "/v1/queue/counts")
	require.NoError(t, err)
	defer counts.Body.Close()
	var stats model.QueueStats
	require.NoError(t, json.NewDecoder(counts.Body).Decode(&stats))
	assert.Equal(t, 0, stats.TotalUsers)
}

func TestQueueJoinRejectsBadDifficulty(t *testing.T) {
	server := newTestServer(t)
	creds := login(t, server, "alice")

	body, _ := json.Marshal(map[string]string{"difficulty": "brutal"})
	resp := doAuthed(t, server, http.MethodPost, "/v1/queue/join", creds.Token, body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogoutDestroysSession(t *testing.T) {
	server := newTestServer(t)
	creds := login(t, server, "alice")

	resp := doAuthed(t, server, http.MethodPost, "/v1/auth/logout", creds.Token, nil)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	me := doAuthed(t, server, http.MethodGet, "/v1/auth/me", creds.Token, nil)
	defer me.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, me.StatusCode)
}

func TestAdminSurfaceIsKeyGated(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/v1/admin/queue/stats")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	req, err := http.NewRequest(http.MethodGet, server.URL+"/v1/admin/queue/stats", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Key", "admin-key")
	keyed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer keyed.Body.Close()
	assert.Equal(t, http.StatusOK, keyed.StatusCode)
}

func TestAdminClearQueue(t *testing.T) {
	server := newTestServer(t)
	creds := login(t, server, "alice")

	body, _ := json.Marshal(map[string]string{"difficulty": "hard"})
	join := doAuthed(t, server, http.MethodPost, "/v1/queue/join", creds.Token, body)
	join.Body.Close()

	req, err := http.NewRequest(http.MethodPost, server.URL+"/v1/admin/queue/clear/hard", nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Key", "admin-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Cleared int `json:"cleared"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Cleared)

	// the evicted session rolled back to unassigned
	me := doAuthed(t, server, http.MethodGet, "/v1/auth/me", creds.Token, nil)
	defer me.Body.Close()
	var session model.Session
	require.NoError(t, json.NewDecoder(me.Body).Decode(&session))
	assert.Equal(t, model.SessionUnassigned, session.State)
}
