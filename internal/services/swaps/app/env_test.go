package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/skillswap/internal/services/swaps/domain"
	"github.com/louisbranch/skillswap/internal/services/swaps/identity"
	"github.com/louisbranch/skillswap/internal/services/swaps/notify"
	"github.com/louisbranch/skillswap/internal/services/swaps/realtime"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage"
	"github.com/louisbranch/skillswap/internal/services/swaps/storage/sqlstore"
	"golang.org/x/net/websocket"
)

const testSecret = "test-access-token-secret"

// testEnv serves the full handler over a temp SQLite store seeded with
// alice (guitar), bob (painting), carol (banned) and root (admin).
type testEnv struct {
	store      *sqlstore.Store
	sessions   *realtime.Registry
	dispatcher *notify.Dispatcher
	issuer     *identity.Issuer
	server     *httptest.Server

	// stopSessions closes every open session loop, as server shutdown does.
	stopSessions func()
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	ctx := context.Background()
	store, err := sqlstore.OpenSQLite(ctx, filepath.Join(t.TempDir(), "swaps.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	seedTestStore(t, store)

	cfg := identity.Config{Secret: []byte(testSecret)}
	issuer, err := identity.NewIssuer(cfg)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	verifier, err := identity.NewVerifier(cfg, store)
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	sessions := realtime.NewRegistry()
	dispatcher := notify.NewDispatcher(sessions, nil)
	done := make(chan struct{})
	srv := httptest.NewServer(newHandler(handlerDeps{
		workflow:   domain.NewWorkflow(store, dispatcher, nil, nil),
		ratings:    domain.NewRatingGate(store, dispatcher, nil, nil),
		sessions:   sessions,
		dispatcher: dispatcher,
		verifier:   verifier,
		done:       done,
	}))

	env := &testEnv{
		store:      store,
		sessions:   sessions,
		dispatcher: dispatcher,
		issuer:     issuer,
		server:     srv,
	}
	var stopOnce sync.Once
	env.stopSessions = func() {
		stopOnce.Do(func() { close(done) })
	}
	t.Cleanup(func() {
		env.stopSessions()
		srv.Close()
		dispatcher.Wait()
		_ = store.Close()
	})
	return env
}

func seedTestStore(t *testing.T, store *sqlstore.Store) {
	t.Helper()

	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	users := []storage.UserRecord{
		{ID: "alice", Name: "Alice", Email: "alice@example.com", CreatedAt: now},
		{ID: "bob", Name: "Bob", Email: "bob@example.com", CreatedAt: now},
		{ID: "carol", Name: "Carol", Email: "carol@example.com", IsBanned: true, CreatedAt: now},
		{ID: "root", Name: "Root", Email: "root@example.com", IsAdmin: true, CreatedAt: now},
	}
	for _, user := range users {
		if err := store.PutUser(ctx, user); err != nil {
			t.Fatalf("put user %s: %v", user.ID, err)
		}
	}
	skills := []storage.SkillRecord{
		{ID: "guitar", Name: "Guitar", Description: "Chords and strumming"},
		{ID: "painting", Name: "Painting", Description: "Watercolor basics"},
	}
	for _, skill := range skills {
		if err := store.PutSkill(ctx, skill); err != nil {
			t.Fatalf("put skill %s: %v", skill.ID, err)
		}
	}
	if err := store.PutOfferedSkill(ctx, "alice", "guitar"); err != nil {
		t.Fatalf("offer guitar: %v", err)
	}
	if err := store.PutOfferedSkill(ctx, "bob", "painting"); err != nil {
		t.Fatalf("offer painting: %v", err)
	}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := e.issuer.Issue(userID)
	if err != nil {
		t.Fatalf("issue token for %s: %v", userID, err)
	}
	return token
}

// do sends a JSON request as userID (no auth when userID is empty) and
// returns the status and body.
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, e.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, data
}

func (e *testEnv) createSwap(t *testing.T) domain.SwapView {
	t.Helper()
	status, body := e.do(t, http.MethodPost, "/api/swaps", "alice", map[string]string{
		"responder_id":     "bob",
		"offered_skill_id": "guitar",
		"wanted_skill_id":  "painting",
		"message":          "Guitar for painting?",
	})
	if status != http.StatusCreated {
		t.Fatalf("create swap status = %d, want %d (%s)", status, http.StatusCreated, body)
	}
	var view domain.SwapView
	decodeBody(t, body, &view)
	return view
}

func decodeBody(t *testing.T, body []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(body, target); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var payload errorBody
	decodeBody(t, body, &payload)
	return payload.Error.Code
}

func wsURL(httpURL string, path string) string {
	return "ws" + strings.TrimPrefix(httpURL, "http") + path
}

// dialSession opens a session for userID and waits for a pong so the
// connection is registered before the test continues.
func (e *testEnv) dialSession(t *testing.T, userID string) *websocket.Conn {
	t.Helper()

	conn, err := websocket.Dial(wsURL(e.server.URL, "/ws/"+userID+"?token="+e.token(t, userID)), "", e.server.URL)
	if err != nil {
		t.Fatalf("dial websocket for %s: %v", userID, err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	if err := websocket.Message.Send(conn, `{"type":"ping"}`); err != nil {
		t.Fatalf("send ping: %v", err)
	}
	if msg := readMessage(t, conn); msg.Type != frameTypePong {
		t.Fatalf("first message type = %q, want pong", msg.Type)
	}
	return conn
}

type testMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readMessage(t *testing.T, conn *websocket.Conn) testMessage {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("set read deadline: %v", err)
	}
	var raw []byte
	if err := websocket.Message.Receive(conn, &raw); err != nil {
		t.Fatalf("receive message: %v", err)
	}
	var msg testMessage
	decodeBody(t, raw, &msg)
	return msg
}
