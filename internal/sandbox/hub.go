package sandbox

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/net/websocket"

	"github.com/frahmantamala/taskdesk/internal/push"
	"github.com/frahmantamala/taskdesk/internal/transport"
	"github.com/frahmantamala/taskdesk/internal/transport/middleware"
)

var errJoinRequired = errors.New("first frame must join the verified identity")

type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.Message.Send(c.ws, string(data))
}

// Hub keeps push connections keyed by the identity that joined them.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*conn]struct{}
	verifier middleware.TokenVerifier
	logger   *slog.Logger
}

func NewHub(verifier middleware.TokenVerifier, logger *slog.Logger) *Hub {
	return &Hub{
		clients:  make(map[string]map[*conn]struct{}),
		verifier: verifier,
		logger:   logger,
	}
}

// Handler upgrades authenticated requests. The Bearer token must be valid.
func (h *Hub) Handler() http.Handler {
	return websocket.Server{
		Handshake: h.handshake,
		Handler:   h.serve,
	}
}

func (h *Hub) handshake(config *websocket.Config, r *http.Request) error {
	if _, err := h.verifier.Verify(transport.ExtractTokenFromHeader(r)); err != nil {
		h.logger.Debug("push handshake rejected", "error", err)
		return err
	}
	return nil
}

func (h *Hub) serve(ws *websocket.Conn) {
	defer ws.Close()

	claims, err := h.verifier.Verify(transport.ExtractTokenFromHeader(ws.Request()))
	if err != nil {
		return
	}

	var join push.Envelope
	if err := websocket.JSON.Receive(ws, &join); err != nil {
		return
	}
	var joinedID string
	if join.Event != push.EventJoin || json.Unmarshal(join.Data, &joinedID) != nil || joinedID != claims.UserID {
		h.logger.Warn("push join rejected", "identity_id", claims.UserID, "error", errJoinRequired)
		return
	}

	c := &conn{ws: ws}
	h.register(joinedID, c)
	defer h.unregister(joinedID, c)
	h.logger.Debug("push client joined", "identity_id", joinedID)

	// Client frames after join are ignored; reading detects the close.
	for {
		var frame push.Envelope
		if err := websocket.JSON.Receive(ws, &frame); err != nil {
			return
		}
	}
}

func (h *Hub) register(id string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[id]
	if !ok {
		set = make(map[*conn]struct{})
		h.clients[id] = set
	}
	set[c] = struct{}{}
}

func (h *Hub) unregister(id string, c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[id], c)
	if len(h.clients[id]) == 0 {
		delete(h.clients, id)
	}
}

// Push sends a named event to every connection joined as identityID and
// reports how many received it.
func (h *Hub) Push(identityID, event string, payload interface{}) int {
	env, err := push.NewEnvelope(event, payload)
	if err != nil {
		h.logger.Error("hub push marshal", "event", event, "error", err)
		return 0
	}
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("hub push marshal", "event", event, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*conn, 0, len(h.clients[identityID]))
	for c := range h.clients[identityID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if err := c.send(data); err != nil {
			h.logger.Debug("hub push failed", "identity_id", identityID, "event", event, "error", err)
			continue
		}
		delivered++
	}
	return delivered
}

// Connected reports how many connections are joined as identityID.
func (h *Hub) Connected(identityID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[identityID])
}

// DisconnectAll drops every push connection from the server side.
func (h *Hub) DisconnectAll() {
	h.mu.RLock()
	var all []*conn
	for _, set := range h.clients {
		for c := range set {
			all = append(all, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range all {
		_ = c.ws.Close()
	}
}
