package ws

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/customer"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/intake"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/verification"
)

type noopRenderer struct{}

func (noopRenderer) Render(_ context.Context, letter sanction.Letter) (string, error) {
	return "letters/" + letter.SessionID + ".txt", nil
}

func newServer(t *testing.T) (*httptest.Server, *orchestrator.Orchestrator) {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	intakeSvc, err := intake.NewService(context.Background(), nil, log)
	require.NoError(t, err)

	orch := orchestrator.New(
		session.NewStore(),
		intakeSvc,
		verification.New(customer.NewMemoryDirectory(customer.Seed()), log),
		underwriting.NewEvaluator(underwriting.DefaultPolicy()),
		sanction.New(noopRenderer{}, log),
		nil,
		log,
	)

	r := chi.NewRouter()
	New(orch, log).RegisterRoutes(r)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, orch
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestWebSocketReply(t *testing.T) {
	srv, orch := newServer(t)

	start, err := orch.StartSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, start.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{
		"type": "message",
		"text": "my name is Rahul Sharma",
	}))

	var reply struct {
		Type string              `json:"type"`
		Data orchestrator.Result `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "reply", reply.Type)
	assert.Equal(t, start.SessionID, reply.Data.SessionID)
	assert.Contains(t, reply.Data.Reply, "loan be for")
}

func TestWebSocketPing(t *testing.T) {
	srv, orch := newServer(t)

	start, err := orch.StartSession(context.Background())
	require.NoError(t, err)

	conn := dial(t, srv, start.SessionID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))

	var reply struct {
		Type string `json:"type"`
	}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, "pong", reply.Type)
}

func TestWebSocketUnknownSession(t *testing.T) {
	srv, _ := newServer(t)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/no-such-session"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}
