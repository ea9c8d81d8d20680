package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/reddishJade/sports-exem/internal/adapter/llm"
	"github.com/reddishJade/sports-exem/internal/config"
	"github.com/reddishJade/sports-exem/internal/domain"
	"github.com/reddishJade/sports-exem/internal/hub"
	"github.com/reddishJade/sports-exem/internal/memory"
	"github.com/reddishJade/sports-exem/internal/policy"
	"github.com/reddishJade/sports-exem/internal/repository"
	"github.com/reddishJade/sports-exem/internal/service"
)

type testEnv struct {
	url  string
	conv *domain.Conversation
	hub  *hub.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := repository.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Default()
	cfg.Mode = config.ModeMock
	logger := zap.NewNop()
	selector := llm.NewSelector(cfg, logger, llm.NewMockBackend())
	engine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	require.NoError(t, err)
	svc := service.New(store, selector, memory.NewSummarizer(selector, logger), engine, cfg, logger)

	conv, err := svc.CreateConversation(ctx, domain.UserContext{UserID: "u1"}, domain.CreateConversationRequest{})
	require.NoError(t, err)

	h := hub.NewHub(logger)
	hubCtx, cancel := context.WithCancel(ctx)
	go h.Run(hubCtx)
	t.Cleanup(cancel)

	srv := httptest.NewServer(NewEcho(NewServer(cfg.WebSocket, h, svc, logger), logger))
	t.Cleanup(srv.Close)

	return &testEnv{url: "ws" + strings.TrimPrefix(srv.URL, "http"), conv: conv, hub: h}
}

func (e *testEnv) dial(t *testing.T, user string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("X-User-ID", user)
	conn, _, err := websocket.DefaultDialer.Dial(e.url+"/ws/conversations/"+e.conv.ConversationID, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) domain.RealtimeEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var event domain.RealtimeEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestRealtimeTurnBroadcastsToGroup(t *testing.T) {
	env := newTestEnv(t)

	sender := env.dial(t, "u1")
	assert.Equal(t, domain.EventTypeConnectionEstablished, readEvent(t, sender).Type)
	watcher := env.dial(t, "u1")
	assert.Equal(t, domain.EventTypeConnectionEstablished, readEvent(t, watcher).Type)
	require.Eventually(t, func() bool { return env.hub.SubscriberCount(env.conv.ConversationID) == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, sender.WriteJSON(domain.TurnRequest{Message: "What should I eat before a run?"}))

	status := readEvent(t, sender)
	assert.Equal(t, domain.EventTypeStatus, status.Type)
	assert.Equal(t, domain.StatusProcessing, status.Status)

	for _, conn := range []*websocket.Conn{sender, watcher} {
		userEvent := readEvent(t, conn)
		assert.Equal(t, domain.EventTypeMessage, userEvent.Type)
		assert.Equal(t, domain.RoleUser, userEvent.Role)
		assert.Equal(t, "What should I eat before a run?", userEvent.Message)

		reply := readEvent(t, conn)
		assert.Equal(t, domain.RoleAssistant, reply.Role)
		assert.Contains(t, reply.Message, "[MOCK]")
		assert.Equal(t, llm.BackendMock, reply.ServiceType)
	}
}

func TestRealtimeErrorsGoToSenderOnly(t *testing.T) {
	env := newTestEnv(t)

	sender := env.dial(t, "u1")
	readEvent(t, sender)

	require.NoError(t, sender.WriteMessage(websocket.TextMessage, []byte("not json")))
	event := readEvent(t, sender)
	assert.Equal(t, domain.EventTypeError, event.Type)
	assert.Equal(t, "invalid JSON message", event.Message)

	require.NoError(t, sender.WriteJSON(domain.TurnRequest{Message: "  "}))
	event = readEvent(t, sender)
	assert.Equal(t, domain.EventTypeError, event.Type)
	assert.Equal(t, "message must not be empty", event.Message)
}

func TestRealtimeHandshakeQueryIdentity(t *testing.T) {
	env := newTestEnv(t)

	conn, _, err := websocket.DefaultDialer.Dial(env.url+"/ws/conversations/"+env.conv.ConversationID+"?user_id=u1", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Equal(t, domain.EventTypeConnectionEstablished, readEvent(t, conn).Type)
}

func TestRealtimeRejectsStrangers(t *testing.T) {
	env := newTestEnv(t)

	header := http.Header{}
	header.Set("X-User-ID", "u2")
	_, resp, err := websocket.DefaultDialer.Dial(env.url+"/ws/conversations/"+env.conv.ConversationID, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(env.url+"/ws/conversations/"+env.conv.ConversationID, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
