package progress

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keyword-analyzer/internal/analyzer"
)

func dialHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.Serve))
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if hub.ClientCount() == want {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, want, hub.ClientCount())
}

func TestHubBroadcast(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := dialHub(t, hub)
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Publish(analyzer.ProgressUpdate{Keyword: "홍삼", Stage: "collecting", Progress: 40})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var update analyzer.ProgressUpdate
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "홍삼", update.Keyword)
	assert.Equal(t, "collecting", update.Stage)
	assert.Equal(t, 40, update.Progress)
}

func TestHubDropsClosedClients(t *testing.T) {
	hub := NewHub(nil)
	defer hub.Close()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)
	conn.Close()

	// The read loop notices the close and unregisters the client.
	waitForClients(t, hub, 0)
}
