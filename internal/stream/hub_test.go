package stream

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func TestHub_BroadcastReachesClient(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := dialTestHub(t, hub)

	// Registration happens in the upgrade handler; wait for it.
	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	type runSummary struct {
		EntityID string `json:"entity_id"`
		Applied  int    `json:"applied"`
	}
	hub.Broadcast(runSummary{EntityID: "camp-1", Applied: 24})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var got runSummary
	require.NoError(t, json.Unmarshal(payload, &got))
	assert.Equal(t, "camp-1", got.EntityID)
	assert.Equal(t, 24, got.Applied)
}

func TestHub_ClientDisconnectIsNoticed(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := dialTestHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 0
	}, 2*time.Second, 10*time.Millisecond)

	// Broadcasting with no clients is a no-op, not an error.
	hub.Broadcast(map[string]string{"entity_id": "camp-1"})
}

type fakeGauge struct {
	mu   sync.Mutex
	last float64
}

func (g *fakeGauge) Set(v float64) {
	g.mu.Lock()
	g.last = v
	g.mu.Unlock()
}

func (g *fakeGauge) value() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.last
}

func TestHub_ClientGaugeTracksMembership(t *testing.T) {
	gauge := &fakeGauge{}
	hub := NewHub(nil).WithClientGauge(gauge)

	conn := dialTestHub(t, hub)

	require.Eventually(t, func() bool {
		return gauge.value() == 1
	}, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		return gauge.value() == 0
	}, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, float64(0), gauge.value())
}

func TestHub_CloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)

	conn := dialTestHub(t, hub)

	require.Eventually(t, func() bool {
		return hub.ClientCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
