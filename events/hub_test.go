package events

import (
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

func TestNilHubIsSafe(t *testing.T) {
	var hub *Hub

	assert.NotPanics(t, func() {
		hub.Publish(Event{Type: "asset", Action: "created", ID: 1})
	})
	assert.Equal(t, 0, hub.SubscriberCount())
}

func TestPublishReachesSubscriber(t *testing.T) {
	hub := NewHub()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.add(conn)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	hub.Publish(Event{Type: "asset", Action: "updated", ID: 7, ProjectID: 3})

	require.NoError(t, client.SetReadDeadline(time.Now().Add(time.Second)))
	_, payload, err := client.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"asset","action":"updated","id":7,"project_id":3}`, string(payload))
}

// Mutating handlers run concurrently, so Publish must serialize writes to
// each connection.
func TestConcurrentPublishesShareOneSubscriber(t *testing.T) {
	hub := NewHub()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.add(conn)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer client.Close()

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	const publishers = 8
	const perPublisher = 20

	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func(id uint64) {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				hub.Publish(Event{Type: "asset", Action: "updated", ID: id})
			}
		}(uint64(p + 1))
	}

	received := 0
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))
	for received < publishers*perPublisher {
		_, payload, err := client.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(payload), `"type":"asset"`)
		received++
	}
	wg.Wait()

	assert.Equal(t, 1, hub.SubscriberCount())
}

func TestPublishDropsDeadClients(t *testing.T) {
	hub := NewHub()

	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		hub.add(conn)
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return hub.SubscriberCount() == 1
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, client.Close())
	server.CloseClientConnections()

	require.Eventually(t, func() bool {
		hub.Publish(Event{Type: "project", Action: "updated", ID: 1})
		return hub.SubscriberCount() == 0
	}, 2*time.Second, 50*time.Millisecond)
}
