package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
)

func dialFeed(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	return conn
}

func waitForClients(t *testing.T, feed *LiveFeed, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for feed.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d connected clients, have %d", n, feed.ClientCount())
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestLiveFeedBroadcast(t *testing.T) {
	feed := NewLiveFeed()
	server := httptest.NewServer(http.HandlerFunc(feed.ServeWS))
	defer server.Close()

	conn := dialFeed(t, server)
	defer conn.Close()
	waitForClients(t, feed, 1)

	feed.BroadcastEvent("report_submitted", map[string]interface{}{
		"caseId":   "RS-HR-202401-AB12CD",
		"severity": "medium",
	})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	assert.NoError(t, err)

	var event struct {
		Type string                 `json:"type"`
		Data map[string]interface{} `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, "report_submitted", event.Type)
	assert.Equal(t, "RS-HR-202401-AB12CD", event.Data["caseId"])
}

func TestLiveFeedDropsDisconnectedClient(t *testing.T) {
	feed := NewLiveFeed()
	server := httptest.NewServer(http.HandlerFunc(feed.ServeWS))
	defer server.Close()

	conn := dialFeed(t, server)
	waitForClients(t, feed, 1)

	conn.Close()
	waitForClients(t, feed, 0)
}

func TestLiveFeedBroadcastWithoutClients(t *testing.T) {
	feed := NewLiveFeed()
	// no clients and even a nil feed are fine
	feed.BroadcastEvent("status_changed", nil)

	var nilFeed *LiveFeed
	nilFeed.BroadcastEvent("status_changed", nil)

	assert.Equal(t, 0, feed.ClientCount())
}
