// Package testutil provides a mock Home Assistant WebSocket server for
// testing snapshot clients without a live instance.
package testutil

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"automationsim/internal/ha"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// MockHAServer simulates the Home Assistant WebSocket API: the auth
// handshake and get_states. It serves frozen snapshots only; it never
// pushes events.
type MockHAServer struct {
	server   *httptest.Server
	states   map[string]ha.State
	statesMu sync.RWMutex
	token    string
}

type wsMessage struct {
	ID      int             `json:"id,omitempty"`
	Type    string          `json:"type"`
	Success *bool           `json:"success,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

// NewMockHAServer starts a mock server accepting the given access token
func NewMockHAServer(token string) *MockHAServer {
	s := &MockHAServer{
		states: make(map[string]ha.State),
		token:  token,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/websocket", s.handleWebSocket)
	s.server = httptest.NewServer(mux)
	return s
}

// URL returns the server's WebSocket URL
func (s *MockHAServer) URL() string {
	return strings.Replace(s.server.URL, "http://", "ws://", 1) + "/api/websocket"
}

// Close shuts the server down
func (s *MockHAServer) Close() {
	s.server.Close()
}

// SetState stores an entity state to be served by get_states
func (s *MockHAServer) SetState(entityID, state string, attributes map[string]interface{}) {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()
	s.states[entityID] = ha.State{
		EntityID:   entityID,
		State:      state,
		Attributes: attributes,
	}
}

func (s *MockHAServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("failed to upgrade connection: %v", err)
		return
	}
	defer conn.Close()

	conn.WriteJSON(wsMessage{Type: "auth_required"})

	var authMsg ha.AuthMessage
	if err := conn.ReadJSON(&authMsg); err != nil {
		return
	}
	if authMsg.AccessToken != s.token {
		conn.WriteJSON(wsMessage{Type: "auth_invalid"})
		return
	}
	conn.WriteJSON(wsMessage{Type: "auth_ok"})

	for {
		var raw json.RawMessage
		if err := conn.ReadJSON(&raw); err != nil {
			return
		}

		var base struct {
			ID   int    `json:"id"`
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &base); err != nil {
			continue
		}

		if base.Type == "get_states" {
			s.statesMu.RLock()
			states := make([]ha.State, 0, len(s.states))
			for _, st := range s.states {
				states = append(states, st)
			}
			s.statesMu.RUnlock()

			result, _ := json.Marshal(states)
			success := true
			conn.WriteJSON(wsMessage{
				ID:      base.ID,
				Type:    "result",
				Success: &success,
				Result:  result,
			})
		}
	}
}
