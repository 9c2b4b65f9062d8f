package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/customer"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/intake"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/orchestrator"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/sanction"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/session"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/underwriting"
	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/service/verification"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	intakeSvc, err := intake.NewService(context.Background(), nil, log)
	require.NoError(t, err)

	renderer, err := sanction.NewLetterRenderer(t.TempDir())
	require.NoError(t, err)

	orch := orchestrator.New(
		session.NewStore(),
		intakeSvc,
		verification.New(customer.NewMemoryDirectory(customer.Seed()), log),
		underwriting.NewEvaluator(underwriting.DefaultPolicy()),
		sanction.New(renderer, log),
		nil,
		log,
	)

	r := chi.NewRouter()
	New(orch, log).RegisterRoutes(r)
	return r
}

func postJSON(t *testing.T, r http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func getPath(r http.Handler, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func startSession(t *testing.T, r http.Handler) orchestrator.Result {
	t.Helper()
	resp := postJSON(t, r, "/start", map[string]string{})
	require.Equal(t, http.StatusCreated, resp.Code)

	var res orchestrator.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &res))
	require.NotEmpty(t, res.SessionID)
	return res
}

func TestHealth(t *testing.T) {
	r := setupRouter(t)
	resp := getPath(r, "/health")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"ok"`)
}

func TestStartSession(t *testing.T) {
	r := setupRouter(t)
	res := startSession(t, r)
	assert.Equal(t, loan.StageIntake, res.Stage)
	assert.Contains(t, res.Reply, "Horizon Finance")
}

func TestChatMissingMessage(t *testing.T) {
	r := setupRouter(t)
	res := startSession(t, r)

	resp := postJSON(t, r, "/chat", map[string]string{"sessionId": res.SessionID})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Body.String(), "message is required")
}

func TestChatWithoutSessionIDStartsOne(t *testing.T) {
	r := setupRouter(t)

	resp := postJSON(t, r, "/chat", map[string]string{"message": "my name is Sneha Gupta"})
	require.Equal(t, http.StatusOK, resp.Code)

	var out orchestrator.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.NotEmpty(t, out.SessionID)
	assert.Equal(t, loan.StageIntake, out.Stage)
	assert.Contains(t, out.Reply, "loan be for")
}

func TestChatMalformedSessionID(t *testing.T) {
	r := setupRouter(t)
	resp := postJSON(t, r, "/chat", map[string]string{"sessionId": "not-a-uuid", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestChatUnknownSession(t *testing.T) {
	r := setupRouter(t)
	resp := postJSON(t, r, "/chat", map[string]string{"sessionId": uuid.NewString(), "message": "hi"})
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestChatAdvancesIntake(t *testing.T) {
	r := setupRouter(t)
	res := startSession(t, r)

	resp := postJSON(t, r, "/chat", map[string]string{
		"sessionId": res.SessionID,
		"message":   "my name is Amit Kumar",
	})
	require.Equal(t, http.StatusOK, resp.Code)

	var out orchestrator.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, loan.StageIntake, out.Stage)
	assert.Contains(t, out.Reply, "loan be for")
}

func TestGetSessionUnknown(t *testing.T) {
	r := setupRouter(t)
	resp := getPath(r, "/session/"+uuid.NewString())
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestDownloadBeforeSanction(t *testing.T) {
	r := setupRouter(t)
	res := startSession(t, r)

	resp := getPath(r, "/download/"+res.SessionID)
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestFullJourneyOverHTTP(t *testing.T) {
	r := setupRouter(t)
	res := startSession(t, r)

	script := []string{
		"my name is Amit Kumar",
		"it's for a wedding",
		"2 lakhs",
		"24 months",
		"9876543212",
	}

	var last orchestrator.Result
	for _, msg := range script {
		resp := postJSON(t, r, "/chat", map[string]string{"sessionId": res.SessionID, "message": msg})
		require.Equal(t, http.StatusOK, resp.Code)
		require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &last))
	}

	require.Equal(t, loan.StageComplete, last.Stage)
	require.True(t, last.DownloadAvailable)

	sessionResp := getPath(r, "/session/"+res.SessionID)
	require.Equal(t, http.StatusOK, sessionResp.Code)
	assert.Contains(t, sessionResp.Body.String(), `"APPROVED"`)

	download := getPath(r, "/download/"+res.SessionID)
	require.Equal(t, http.StatusOK, download.Code)
	assert.Contains(t, download.Body.String(), "LOAN SANCTION LETTER")
	assert.Contains(t, download.Body.String(), "Amit Kumar")
	assert.Contains(t, download.Header().Get("Content-Disposition"), "sanction_letter_")
}
