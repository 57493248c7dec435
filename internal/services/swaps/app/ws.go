package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	apperrors "github.com/louisbranch/skillswap/internal/platform/errors"
	"github.com/louisbranch/skillswap/internal/platform/timeouts"
	"github.com/louisbranch/skillswap/internal/services/swaps/identity"
	"github.com/louisbranch/skillswap/internal/services/swaps/realtime"
	"golang.org/x/net/websocket"
)

// maxDecodeErrorsPerConn closes a session after this many consecutive
// unreadable frames.
const maxDecodeErrorsPerConn = 3

const (
	frameTypePing = "ping"
	frameTypePong = "pong"
)

var pongPayload = []byte(`{"type":"pong"}`)

type wsFrame struct {
	Type string `json:"type"`
}

// wsPeer is the registry handle for one WebSocket. Writes from the
// dispatcher and the heartbeat loop are serialized.
type wsPeer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

var _ realtime.Conn = (*wsPeer)(nil)

func newWSPeer(conn *websocket.Conn) *wsPeer {
	return &wsPeer{conn: conn}
}

// Send writes payload as one text frame within the write deadline.
func (p *wsPeer) Send(payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.conn.SetWriteDeadline(time.Now().Add(timeouts.WebSocketWrite)); err != nil {
		return err
	}
	return websocket.Message.Send(p.conn, string(payload))
}

// serveWS admits a session only when the presented token resolves to the
// user named in the path. Refusals happen before the upgrade so nothing is
// registered.
func (h *handler) serveWS(w http.ResponseWriter, r *http.Request) {
	caller, err := h.admitSession(r)
	if err != nil {
		log.Printf("swaps: websocket refused: path=%q remote=%s err=%v", r.URL.Path, r.RemoteAddr, err)
		writeError(w, r, err)
		return
	}

	websocket.Handler(func(conn *websocket.Conn) {
		h.handleWSConn(conn, caller.UserID)
	}).ServeHTTP(w, r)
}

// admitSession resolves the handshake token and requires it to belong to the
// user named in the path.
func (h *handler) admitSession(r *http.Request) (identity.Identity, error) {
	caller, err := h.verifier.Resolve(r.Context(), wsAccessToken(r))
	if err != nil {
		return identity.Identity{}, err
	}
	requestedID := strings.TrimSpace(r.PathValue("user_id"))
	if caller.UserID != requestedID {
		return identity.Identity{}, apperrors.WithMetadata(apperrors.CodeSessionUserMismatch, "token does not match requested user", map[string]string{
			"requested_user_id": requestedID,
		})
	}
	return caller, nil
}

// wsAccessToken reads the token query parameter, then the cookie, then the
// bearer header. Browsers cannot set headers on a WebSocket handshake.
func wsAccessToken(r *http.Request) string {
	if token := strings.TrimSpace(r.URL.Query().Get("token")); token != "" {
		return token
	}
	if token := cookieToken(r); token != "" {
		return token
	}
	return bearerToken(r)
}

func (h *handler) handleWSConn(conn *websocket.Conn, userID string) {
	peer := newWSPeer(conn)
	h.sessions.Register(userID, peer)
	log.Printf("swaps: session opened for user %s", userID)

	exited := make(chan struct{})
	defer func() {
		close(exited)
		h.sessions.Unregister(userID, peer)
		_ = conn.Close()
		log.Printf("swaps: session closed for user %s", userID)
	}()
	go func() {
		select {
		case <-h.done:
			_ = conn.Close()
		case <-exited:
		}
	}()

	decodeErrors := 0
	for {
		var raw []byte
		if err := websocket.Message.Receive(conn, &raw); err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("swaps: session read for user %s: %v", userID, err)
			}
			return
		}

		var frame wsFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			decodeErrors++
			if decodeErrors >= maxDecodeErrorsPerConn {
				log.Printf("swaps: closing session for user %s after %d invalid frames", userID, decodeErrors)
				return
			}
			continue
		}
		decodeErrors = 0

		if frame.Type == frameTypePing {
			if err := peer.Send(pongPayload); err != nil {
				return
			}
		}
	}
}
