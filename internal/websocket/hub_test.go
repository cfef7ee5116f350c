package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"estate-web/internal/event"
)

func TestHubDeliversOnlyToOwningSession(t *testing.T) {
	bus := event.NewBus()
	hub := NewHub(bus)
	go hub.Run()
	t.Cleanup(hub.Stop)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("sid"), func(*http.Request) bool { return true })
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	mine, _, err := gorilla.DefaultDialer.Dial(wsURL+"?sid=mine", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mine.Close() })
	other, _, err := gorilla.DefaultDialer.Dial(wsURL+"?sid=other", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = other.Close() })

	// registration completes asynchronously after the handshake
	time.Sleep(100 * time.Millisecond)

	bus.Publish(event.Event{Type: event.TypeImageProgress, SessionID: "mine", Payload: map[string]string{"file": "a.png"}})

	require.NoError(t, mine.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := mine.ReadMessage()
	require.NoError(t, err)

	var got struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &got))
	require.Equal(t, string(event.TypeImageProgress), got.Type)
	require.Equal(t, "a.png", got.Payload["file"])

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = other.ReadMessage()
	require.Error(t, err)
}
