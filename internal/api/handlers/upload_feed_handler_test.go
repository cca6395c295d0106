package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/welldanyogia/couchkit/internal/websocket"
)

func TestUploadFeedHandler_StreamsProgressToSubscriber(t *testing.T) {
	hub := websocket.NewHub(nil)
	go hub.Run()

	e := echo.New()
	e.GET("/ws/uploads", NewUploadFeedHandler(hub, websocket.DefaultUpgrader(), nil).Serve)
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/uploads"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(websocket.WSMessage{
		Type:         websocket.MessageTypeSubscribe,
		AttachmentID: "t1/a.txt",
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack websocket.WSMessage
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, websocket.MessageTypeSubscribed, ack.Type)
	assert.Equal(t, "t1/a.txt", ack.AttachmentID)

	hub.View("t1/a.txt").UpdateUpload(100)

	var msg websocket.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.MessageTypeUploadProgress, msg.Type)
	require.NotNil(t, msg.Percent)
	assert.InDelta(t, 100.0, *msg.Percent, 0.001)
}

func TestUploadFeedHandler_AnswersUnknownUnsubscribe(t *testing.T) {
	hub := websocket.NewHub(nil)
	go hub.Run()

	e := echo.New()
	e.GET("/ws/uploads", NewUploadFeedHandler(hub, websocket.DefaultUpgrader(), nil).Serve)
	server := httptest.NewServer(e)
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/uploads"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(websocket.WSMessage{
		Type:         websocket.MessageTypeUnsubscribe,
		AttachmentID: "t1/a.txt",
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg websocket.WSMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, websocket.MessageTypeError, msg.Type)
	assert.Equal(t, "not subscribed to t1/a.txt", msg.Error)
}

func TestUploadFeedHandler_RejectsForeignOrigin(t *testing.T) {
	hub := websocket.NewHub(nil)

	e := echo.New()
	upgrader := websocket.NewSecureUpgrader([]string{"http://app.example"}, nil)
	e.GET("/ws/uploads", NewUploadFeedHandler(hub, upgrader, nil).Serve)
	server := httptest.NewServer(e)
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/uploads"

	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
