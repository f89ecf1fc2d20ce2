package overlay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"million-words-server/internal/models"
	"million-words-server/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type overlayEnv struct {
	hub    *Hub
	server *httptest.Server
}

func newOverlayEnv(t *testing.T) *overlayEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(zap.NewNop())
	r := gin.New()
	r.GET("/ws/overlay", NewHandler(hub, nil, zap.NewNop()).ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		hub.Close()
	})
	return &overlayEnv{hub: hub, server: srv}
}

func (e *overlayEnv) dial(t *testing.T, targets string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws/overlay?targets=" + targets
	before := e.hub.ClientCount()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return e.hub.ClientCount() == before+1 }, 2*time.Second, 5*time.Millisecond)
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func testStory() *models.Story {
	return &models.Story{ID: "s1", Username: "alice", Title: "Night at the Reef", WordCount: 73, Status: models.StatusApproved}
}

func TestParseTargets(t *testing.T) {
	assert.Nil(t, ParseTargets(""))
	assert.Equal(t,
		[]scheduler.Strategy{scheduler.StrategySideOverlay, scheduler.StrategyTakeover},
		ParseTargets("side-overlay, takeover,bogus"),
	)
}

func TestRenderer_AvailabilityFollowsConnectedTargets(t *testing.T) {
	env := newOverlayEnv(t)
	ticker := NewHubRenderer(env.hub, scheduler.StrategyTicker, zap.NewNop())
	takeover := NewHubRenderer(env.hub, scheduler.StrategyTakeover, zap.NewNop())

	assert.True(t, ticker.Available())
	assert.False(t, takeover.Available())
	assert.ErrorIs(t, takeover.Render(context.Background(), testStory(), time.Second), models.ErrRenderTargetUnavailable)
	// Ticker with nobody listening is not an error.
	assert.NoError(t, ticker.Render(context.Background(), testStory(), time.Second))

	env.dial(t, "takeover")
	assert.True(t, takeover.Available())
	assert.False(t, NewHubRenderer(env.hub, scheduler.StrategySideOverlay, zap.NewNop()).Available())
}

func TestRenderer_ShowThenHide(t *testing.T) {
	env := newOverlayEnv(t)
	conn := env.dial(t, "side-overlay")
	r := NewHubRenderer(env.hub, scheduler.StrategySideOverlay, zap.NewNop())

	require.NoError(t, r.Render(context.Background(), testStory(), 50*time.Millisecond))

	show := readMessage(t, conn)
	assert.Equal(t, MessageShow, show.Type)
	assert.Equal(t, "side-overlay", show.Strategy)
	require.NotNil(t, show.Story)
	assert.Equal(t, "s1", show.Story.ID)
	assert.Equal(t, int64(50), show.VisibleForMs)

	hide := readMessage(t, conn)
	assert.Equal(t, MessageHide, hide.Type)
	assert.Equal(t, "s1", hide.StoryID)
}

func TestRenderer_OnlyMatchingOverlaysReceive(t *testing.T) {
	env := newOverlayEnv(t)
	tickerOnly := env.dial(t, "")
	takeoverPage := env.dial(t, "takeover")

	r := NewHubRenderer(env.hub, scheduler.StrategyTicker, zap.NewNop())
	require.NoError(t, r.Render(context.Background(), testStory(), time.Minute))

	// Every overlay renders the ticker.
	assert.Equal(t, "ticker", readMessage(t, tickerOnly).Strategy)
	assert.Equal(t, "ticker", readMessage(t, takeoverPage).Strategy)

	takeover := NewHubRenderer(env.hub, scheduler.StrategyTakeover, zap.NewNop())
	require.NoError(t, takeover.Render(context.Background(), testStory(), time.Minute))
	assert.Equal(t, "takeover", readMessage(t, takeoverPage).Strategy)

	require.NoError(t, tickerOnly.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := tickerOnly.ReadMessage()
	assert.Error(t, err)
}

func TestRenderers_HidePreviousStoryBeforeShowingNext(t *testing.T) {
	env := newOverlayEnv(t)
	conn := env.dial(t, "side-overlay,takeover")
	renderers := make(map[scheduler.Strategy]scheduler.Renderer)
	for _, r := range Renderers(env.hub, zap.NewNop()) {
		renderers[r.Strategy()] = r
	}

	first := testStory()
	first.ID = "a"
	second := testStory()
	second.ID = "b"
	require.NoError(t, renderers[scheduler.StrategyTakeover].Render(context.Background(), first, 200*time.Millisecond))
	require.NoError(t, renderers[scheduler.StrategySideOverlay].Render(context.Background(), second, time.Minute))

	msg := readMessage(t, conn)
	assert.Equal(t, []string{MessageShow, "takeover", "a"}, []string{msg.Type, msg.Strategy, msg.Story.ID})
	msg = readMessage(t, conn)
	assert.Equal(t, []string{MessageHide, "takeover", "a"}, []string{msg.Type, msg.Strategy, msg.StoryID})
	msg = readMessage(t, conn)
	assert.Equal(t, []string{MessageShow, "side-overlay", "b"}, []string{msg.Type, msg.Strategy, msg.Story.ID})

	// The replaced story's timer no longer fires.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(400*time.Millisecond)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestHandler_ClosedHubDropsConnection(t *testing.T) {
	env := newOverlayEnv(t)
	env.hub.Close()

	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws/overlay?targets=takeover"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "unexpected error: %v", err)
	assert.False(t, env.hub.Register(NewClient("late", nil, nil)))
}

func TestHub_DisconnectRemovesClient(t *testing.T) {
	env := newOverlayEnv(t)
	conn := env.dial(t, "takeover")
	require.True(t, env.hub.Supports(scheduler.StrategyTakeover))

	require.NoError(t, conn.Close())

	assert.Eventually(t, func() bool { return env.hub.ClientCount() == 0 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, env.hub.Supports(scheduler.StrategyTakeover))
}
