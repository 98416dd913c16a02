package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/abrezinsky/derbyrush/internal/logger"
	"github.com/abrezinsky/derbyrush/internal/models"
)

// mockGame implements GameDispatcher and records every routed event
type mockGame struct {
	mu       sync.Mutex
	joins    []models.JoinRequest
	joinIDs  []string
	joinErr  error
	taps     []string
	bets     []models.Wager
	leaves   []string
	starts   int
	locks    int
	resets   int
	getLists []string
}

func (m *mockGame) Join(id, name, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.joinIDs = append(m.joinIDs, id)
	m.joins = append(m.joins, models.JoinRequest{Name: name, Mode: role})
	return m.joinErr
}

func (m *mockGame) Leave(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves = append(m.leaves, id)
}

func (m *mockGame) Tap(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.taps = append(m.taps, id)
}

func (m *mockGame) PlaceBet(id string, wager models.Wager) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bets = append(m.bets, wager)
	return nil
}

func (m *mockGame) LockRacers() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locks++
}

func (m *mockGame) StartRace() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.starts++
	return nil
}

func (m *mockGame) ResetGame() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets++
}

func (m *mockGame) SendRacers(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getLists = append(m.getLists, id)
}

func (m *mockGame) tapCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.taps)
}

func (m *mockGame) leaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.leaves)
}

// newTestHub starts a hub behind an httptest server and returns the ws URL
func newTestHub(t *testing.T) (*Hub, *mockGame, string) {
	t.Helper()

	game := &mockGame{}
	hub := New(logger.New(), game, nil)
	hub.Start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWs)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	return hub, game, wsURL
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *websocket.Conn, msgType string, payload interface{}) {
	t.Helper()
	data, err := json.Marshal(models.WSMessage{Type: msgType, Payload: payload})
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

// waitUntil polls cond until it holds or the timeout expires
func waitUntil(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestNew_CreatesHubWithDependencies(t *testing.T) {
	hub := New(logger.New(), &mockGame{}, nil)

	if hub == nil {
		t.Fatal("expected hub to be created")
	}
	if hub.clients == nil {
		t.Error("expected clients map to be initialized")
	}
	if hub.broadcast == nil {
		t.Error("expected broadcast channel to be initialized")
	}
	if hub.register == nil || hub.unregister == nil {
		t.Error("expected register/unregister channels to be initialized")
	}
}

func TestServeWs_AssignsUniqueClientIDs(t *testing.T) {
	_, game, url := newTestHub(t)

	conn1 := dial(t, url)
	conn2 := dial(t, url)

	sendEvent(t, conn1, "join", models.JoinRequest{Name: "Alice", Mode: models.RoleRacer})
	sendEvent(t, conn2, "join", models.JoinRequest{Name: "Bob", Mode: models.RoleRacer})

	waitUntil(t, "both joins routed", func() bool {
		game.mu.Lock()
		defer game.mu.Unlock()
		return len(game.joinIDs) == 2
	})

	game.mu.Lock()
	defer game.mu.Unlock()
	if game.joinIDs[0] == game.joinIDs[1] {
		t.Errorf("each connection must get its own id, both got %q", game.joinIDs[0])
	}
	if game.joins[0].Name != "Alice" || game.joins[1].Name != "Bob" {
		t.Errorf("join payloads not routed: %+v", game.joins)
	}
}

func TestInboundEvents_RouteToGame(t *testing.T) {
	_, game, url := newTestHub(t)
	conn := dial(t, url)

	sendEvent(t, conn, "join", models.JoinRequest{Name: "Alice", Mode: models.RoleRacer})
	sendEvent(t, conn, "tap", nil)
	sendEvent(t, conn, "tap", nil)
	sendEvent(t, conn, "place-bet", models.Wager{Top3: []string{"x"}, Last: "y"})
	sendEvent(t, conn, "get-racers", nil)
	sendEvent(t, conn, "start-race", nil)
	sendEvent(t, conn, "lock-racers", nil)
	sendEvent(t, conn, "reset-game", nil)

	waitUntil(t, "all events routed", func() bool {
		game.mu.Lock()
		defer game.mu.Unlock()
		return len(game.taps) == 2 && len(game.bets) == 1 && len(game.getLists) == 1 &&
			game.starts == 1 && game.locks == 1 && game.resets == 1
	})

	game.mu.Lock()
	defer game.mu.Unlock()
	if game.taps[0] != game.joinIDs[0] {
		t.Error("tap must carry the same connection id as join")
	}
	if game.bets[0].Top3[0] != "x" || game.bets[0].Last != "y" {
		t.Errorf("wager payload not routed: %+v", game.bets[0])
	}
}

func TestBroadcast_ReachesAllClients(t *testing.T) {
	hub, _, url := newTestHub(t)

	conn1 := dial(t, url)
	conn2 := dial(t, url)

	// Wait for both registrations before broadcasting.
	waitUntil(t, "clients registered", func() bool {
		hub.mutex.RLock()
		defer hub.mutex.RUnlock()
		return len(hub.clients) == 2
	})

	hub.Broadcast("race-started", nil)

	for i, conn := range []*websocket.Conn{conn1, conn2} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var msg models.WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("client %d read failed: %v", i+1, err)
		}
		if msg.Type != "race-started" {
			t.Errorf("client %d got %q, want race-started", i+1, msg.Type)
		}
	}
}

func TestSendTo_TargetsSingleClient(t *testing.T) {
	hub, game, url := newTestHub(t)

	conn1 := dial(t, url)
	conn2 := dial(t, url)

	sendEvent(t, conn1, "join", models.JoinRequest{Name: "Alice", Mode: models.RoleRacer})
	waitUntil(t, "join routed", func() bool {
		game.mu.Lock()
		defer game.mu.Unlock()
		return len(game.joinIDs) == 1
	})

	game.mu.Lock()
	targetID := game.joinIDs[0]
	game.mu.Unlock()

	hub.SendTo(targetID, "joined", models.Joined{PlayerID: targetID, Mode: models.RoleRacer})

	conn1.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg models.WSMessage
	if err := conn1.ReadJSON(&msg); err != nil {
		t.Fatalf("target client read failed: %v", err)
	}
	if msg.Type != "joined" {
		t.Errorf("expected joined, got %q", msg.Type)
	}

	conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := conn2.ReadJSON(&msg); err == nil {
		t.Errorf("other client should not receive a direct send, got %q", msg.Type)
	}
}

func TestSendTo_UnknownClientIsNoOp(t *testing.T) {
	hub, _, _ := newTestHub(t)

	// Must not panic or block.
	hub.SendTo("no-such-client", "joined", nil)
}

func TestDisconnect_TriggersLeave(t *testing.T) {
	_, game, url := newTestHub(t)

	conn := dial(t, url)
	sendEvent(t, conn, "join", models.JoinRequest{Name: "Alice", Mode: models.RoleRacer})
	waitUntil(t, "join routed", func() bool {
		game.mu.Lock()
		defer game.mu.Unlock()
		return len(game.joinIDs) == 1
	})

	conn.Close()

	waitUntil(t, "leave routed", func() bool { return game.leaveCount() == 1 })

	game.mu.Lock()
	defer game.mu.Unlock()
	if game.leaves[0] != game.joinIDs[0] {
		t.Error("leave must use the same connection id as join")
	}
}

func TestMalformedMessages_AreDropped(t *testing.T) {
	_, game, url := newTestHub(t)
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	sendEvent(t, conn, "no-such-event", nil)
	sendEvent(t, conn, "tap", nil)

	waitUntil(t, "tap routed after garbage", func() bool { return game.tapCount() == 1 })
}
