package observer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frontline/warsim/internal/core/event"
	"github.com/frontline/warsim/internal/war"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastReachesClient(t *testing.T) {
	hub := NewHub(4, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus := event.NewBus()
	bus.Subscribe(hub.Listener())
	bus.Emit(event.SquadWiped{Stamp: event.Stamp{Time: 12}, SquadID: 4, Faction: war.Opfor})
	bus.Emit(event.MajorBattle{Stamp: event.Stamp{Time: 12}, X: 500, Z: 0, Intensity: 0.6})
	bus.Flush()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type   string            `json:"type"`
		Seq    uint64            `json:"seq"`
		Events []json.RawMessage `json:"events"`
	}
	require.NoError(t, json.Unmarshal(raw, &msg))
	assert.Equal(t, "events", msg.Type)
	assert.Equal(t, uint64(1), msg.Seq)
	require.Len(t, msg.Events, 2)
	assert.JSONEq(t, `{"type":"squad_wiped","time":12,"squadId":4,"faction":"opfor","x":0,"z":0}`, string(msg.Events[0]))
}

func TestClientLeaves(t *testing.T) {
	hub := NewHub(1, nil)
	srv := httptest.NewServer(hub.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBroadcastWithoutClientsIsFree(t *testing.T) {
	hub := NewHub(1, nil)
	hub.Broadcast([]event.Event{event.FactionAdvantage{Faction: war.Blufor, Ratio: 2}})
	assert.Zero(t, hub.Dropped())
}

func TestStatusEndpoint(t *testing.T) {
	hub := NewHub(1, nil)
	hub.Publish(Status{Elapsed: 30, Ticks: 600, Phase: "combat", Alive: [2]int{1400, 1380}, Materialized: 12})

	rec := httptest.NewRecorder()
	hub.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 600, int(st.Ticks))
	assert.Equal(t, [2]int{1400, 1380}, st.Alive)

	rec = httptest.NewRecorder()
	hub.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/status", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
