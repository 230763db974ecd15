package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/bryanwahyu/plateguard/internal/domain/media"
)

func dialHub(t *testing.T, hub *Hub, tenant string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Handler(tenant, w, r)
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHubDeliversEventsToOwnTenantOnly(t *testing.T) {
	hub := NewHub(zap.NewNop())
	go hub.Run()

	acme := dialHub(t, hub, "acme")
	other := dialHub(t, hub, "other")

	require.Eventually(t, func() bool { return hub.ClientCount() == 2 },
		time.Second, 10*time.Millisecond)

	hub.Publish(domain.StatusEvent{
		TenantID: "acme",
		AssetID:  "a1b2c3d4-e5f6-7890-abcd-ef1234567890-photo",
		Status:   domain.StatusDone,
		At:       time.Now(),
	})

	acme.SetReadDeadline(time.Now().Add(time.Second))
	_, payload, err := acme.ReadMessage()
	require.NoError(t, err)

	var ev domain.StatusEvent
	require.NoError(t, json.Unmarshal(payload, &ev))
	require.Equal(t, "acme", ev.TenantID)
	require.Equal(t, domain.StatusDone, ev.Status)

	// the other tenant must stay silent
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err = other.ReadMessage()
	require.Error(t, err)
}

func TestHubPublishNeverBlocks(t *testing.T) {
	hub := NewHub(zap.NewNop())
	// hub not running: the buffered channel fills up, extra events drop
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(domain.StatusEvent{TenantID: "acme"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked")
	}
}
