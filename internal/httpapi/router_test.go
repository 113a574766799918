package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/repo/memory"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	return NewServer(memory.NewAgentRepository(), memory.NewExecutionRepository(), nil, events.New(), nil)
}

func TestDeployAgentThenGetAndList(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	body, err := json.Marshal(map[string]interface{}{
		"name":     "triage-bot",
		"manifest": domain.AgentManifest{RuntimeImage: "aegis/python-tool:latest", InitialIntent: "triage incoming tickets"},
	})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var created struct {
		AgentID domain.AgentID `json:"agent_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.AgentID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agents/"+string(created.AgentID), nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agents", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var listed []*domain.Agent
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
}

func TestDeployAgentDuplicateNameConflicts(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	body, _ := json.Marshal(map[string]interface{}{"name": "dup-bot"})
	for i, wantStatus := range []int{http.StatusOK, http.StatusConflict} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(body)))
		require.Equal(t, wantStatus, w.Code, "attempt %d", i)
	}
}

func TestGetAgentNotFound(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agents/agent_nope", nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveAgent(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	body, _ := json.Marshal(map[string]interface{}{"name": "throwaway"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)
	var created struct {
		AgentID domain.AgentID `json:"agent_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/agents/"+string(created.AgentID), nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agents/"+string(created.AgentID), nil))
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestLookupAgentByName(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	body, _ := json.Marshal(map[string]interface{}{"name": "lookup-me"})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/agents", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/agents/lookup/lookup-me", nil))
	require.Equal(t, http.StatusOK, w.Code)
}

func TestListExecutionsEmpty(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/executions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var execs []*domain.Execution
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &execs))
	require.Empty(t, execs)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	r := s.Router()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Status)
}
