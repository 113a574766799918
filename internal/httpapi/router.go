// Package httpapi is the thin HTTP daemon surface: deploy/list/get/
// delete agents, start/status/cancel/stream/list executions, and a
// liveness probe. Every handler's real work is one call into
// internal/execengine, internal/repo, or internal/apierr's Kind→status
// mapping.
package httpapi

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aegis-run/orchestrator/internal/apierr"
	"github.com/aegis-run/orchestrator/internal/cortex"
	"github.com/aegis-run/orchestrator/internal/domain"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/execengine"
	"github.com/aegis-run/orchestrator/internal/repo"
	"github.com/aegis-run/orchestrator/internal/smcp"
	"github.com/aegis-run/orchestrator/internal/toolrouter"
	"github.com/aegis-run/orchestrator/internal/workflow"
)

// Server holds the collaborators every handler needs. Workflows,
// ToolRouter, Cortex, and their repositories are optional: a Server
// wired without them (e.g. an edge node with no sqlite/NATS backing)
// simply 404s those routes rather than panicking, since Router only
// registers a group once its collaborator is non-nil.
type Server struct {
	Agents     repo.AgentRepository
	Executions repo.ExecutionRepository
	Engine     *execengine.Engine
	Bus        *events.Bus
	Log        *slog.Logger

	Sessions        repo.SessionRepository
	TokenSecret     []byte
	DefaultTokenTTL time.Duration

	Workflows          repo.WorkflowRepository
	WorkflowExecutions repo.WorkflowExecutionRepository
	WorkflowEngine     *workflow.Engine
	HumanInput         *workflow.ChannelHumanInputProvider

	ToolRouter *toolrouter.Service
	Cortex     *cortex.Service

	startedAt time.Time
}

// NewServer builds a Server over its collaborators. startedAt is
// stamped at construction for the /health uptime field.
func NewServer(agents repo.AgentRepository, execs repo.ExecutionRepository, engine *execengine.Engine, bus *events.Bus, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		Agents:          agents,
		Executions:      execs,
		Engine:          engine,
		Bus:             bus,
		Log:             log,
		DefaultTokenTTL: time.Hour,
		startedAt:       time.Now(),
	}
}

// Router builds the gin.Engine with every daemon route.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/api/agents", s.deployAgent)
	r.GET("/api/agents", s.listAgents)
	r.GET("/api/agents/:id", s.getAgent)
	r.DELETE("/api/agents/:id", s.removeAgent)
	r.GET("/api/agents/lookup/:name", s.lookupAgent)
	r.POST("/api/agents/:id/execute", s.executeAgent)

	r.GET("/api/executions/:id", s.getExecution)
	r.POST("/api/executions/:id/cancel", s.cancelExecution)
	r.GET("/api/executions/:id/events", s.streamExecutionEvents)
	r.GET("/api/executions", s.listExecutions)

	if s.ToolRouter != nil {
		r.POST("/api/tool-calls", s.invokeTool)
	}

	if s.WorkflowEngine != nil {
		r.POST("/api/workflows", s.createWorkflow)
		r.GET("/api/workflows", s.listWorkflows)
		r.GET("/api/workflows/:id", s.getWorkflow)
		r.POST("/api/workflows/:id/start", s.startWorkflow)
		r.GET("/api/workflow-executions/:id", s.getWorkflowExecution)
		r.POST("/api/workflow-executions/:id/cancel", s.cancelWorkflowExecution)
		r.POST("/api/workflow-executions/:id/human-input", s.submitHumanInput)
	}

	if s.Cortex != nil {
		r.POST("/api/patterns", s.storePattern)
		r.POST("/api/patterns/search", s.searchPatterns)
	}

	r.GET("/health", s.health)
	return r
}

// fail writes the {error: "<string>"} body with the HTTP status
// apierr.HTTPStatus maps from err's Kind.
func fail(c *gin.Context, err error) {
	c.JSON(apierr.HTTPStatus(apierr.KindOf(err)), gin.H{"error": err.Error()})
}

func (s *Server) deployAgent(c *gin.Context) {
	var body struct {
		Manifest domain.AgentManifest `json:"manifest"`
		Name     string               `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "deploy_agent", err, "invalid manifest body"))
		return
	}
	if existing, _ := s.Agents.FindByName(c.Request.Context(), body.Name); existing != nil {
		fail(c, apierr.New(apierr.Conflict, "deploy_agent", "agent %q already exists", body.Name))
		return
	}
	now := time.Now()
	agent := &domain.Agent{
		ID:        domain.NewAgentID(),
		Name:      body.Name,
		Manifest:  body.Manifest,
		Status:    domain.AgentActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Agents.Save(c.Request.Context(), agent); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": agent.ID})
}

func (s *Server) listAgents(c *gin.Context) {
	agents, err := s.Agents.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agents)
}

func (s *Server) getAgent(c *gin.Context) {
	agent, err := s.Agents.FindByID(c.Request.Context(), domain.AgentID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (s *Server) removeAgent(c *gin.Context) {
	if err := s.Agents.Delete(c.Request.Context(), domain.AgentID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) lookupAgent(c *gin.Context) {
	agent, err := s.Agents.FindByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"agent_id": agent.ID})
}

func (s *Server) executeAgent(c *gin.Context) {
	var body struct {
		Input map[string]interface{} `json:"input"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "execute_agent", err, "invalid input body"))
		return
	}
	agentID := domain.AgentID(c.Param("id"))
	id, err := s.Engine.StartExecution(c.Request.Context(), agentID, body.Input)
	if err != nil {
		fail(c, err)
		return
	}

	resp := gin.H{"execution_id": id}
	if s.Sessions != nil {
		agent, err := s.Agents.FindByID(c.Request.Context(), agentID)
		if err != nil {
			fail(c, err)
			return
		}
		issued, err := smcp.Bootstrap(agentID, id, agent.Manifest.SecurityContext(), s.TokenSecret, time.Now(), s.DefaultTokenTTL)
		if err != nil {
			fail(c, apierr.Wrap(apierr.Fatal, "execute_agent", err, "failed to bootstrap smcp session"))
			return
		}
		if err := s.Sessions.Save(c.Request.Context(), issued.Session); err != nil {
			fail(c, err)
			return
		}
		resp["smcp_session_id"] = issued.Session.ID
		resp["smcp_token"] = issued.Session.IssuedToken
		resp["smcp_private_key"] = issued.PrivateKey
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getExecution(c *gin.Context) {
	exec, err := s.Executions.FindByID(c.Request.Context(), domain.ExecutionID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, exec)
}

func (s *Server) cancelExecution(c *gin.Context) {
	if err := s.Engine.CancelExecution(c.Request.Context(), domain.ExecutionID(c.Param("id"))); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

// streamExecutionEvents serves the `data: <json>\n\n` SSE stream,
// closing cleanly once a terminal event for this execution is
// observed.
func (s *Server) streamExecutionEvents(c *gin.Context) {
	executionID := c.Param("id")
	sub := s.Bus.SubscribeFiltered(events.ForExecution(executionID))
	defer s.Bus.Unsubscribe(sub)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-sub.C():
			if !ok {
				return false
			}
			body, err := events.ToJSON(ev)
			if err != nil {
				s.Log.Warn("sse event marshal failed", "err", err)
				return true
			}
			frame := make([]byte, 0, len(body)+8)
			frame = append(frame, "data: "...)
			frame = append(frame, body...)
			frame = append(frame, "\n\n"...)
			if _, err := w.Write(frame); err != nil {
				return false
			}
			return !isTerminalEvent(ev)
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func isTerminalEvent(ev events.DomainEvent) bool {
	switch ev.Type() {
	case "execution_completed", "execution_failed", "execution_cancelled",
		"workflow_execution_completed", "workflow_execution_failed", "workflow_execution_cancelled":
		return true
	default:
		return false
	}
}

func (s *Server) listExecutions(c *gin.Context) {
	if agentID := c.Query("agent_id"); agentID != "" {
		execs, err := s.Executions.FindByAgent(c.Request.Context(), domain.AgentID(agentID))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, execs)
		return
	}
	limit := 50
	execs, err := s.Executions.Recent(c.Request.Context(), limit)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, execs)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"uptime_secs": time.Since(s.startedAt).Seconds(),
	})
}

// invokeTool is the signed SMCP call surface: an
// agent holding an Active session's private key submits an Envelope
// and the service verifies, routes, and dispatches it.
func (s *Server) invokeTool(c *gin.Context) {
	var body struct {
		AgentID     domain.AgentID     `json:"agent_id"`
		ExecutionID domain.ExecutionID `json:"execution_id"`
		Envelope    smcp.Envelope      `json:"envelope"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "invoke_tool", err, "invalid tool call body"))
		return
	}
	invocation, result, err := s.ToolRouter.Invoke(c.Request.Context(), body.AgentID, body.ExecutionID, body.Envelope)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invocation": invocation, "result": result})
}

func (s *Server) createWorkflow(c *gin.Context) {
	var body struct {
		Name string              `json:"name"`
		Spec domain.WorkflowSpec `json:"spec"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "create_workflow", err, "invalid workflow body"))
		return
	}
	wf := &domain.Workflow{
		ID:       domain.NewWorkflowID(),
		Metadata: domain.WorkflowMetadata{Name: body.Name},
		Spec:     body.Spec,
	}
	if err := wf.Validate(); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "create_workflow", err, "invalid workflow definition"))
		return
	}
	if err := s.Workflows.Save(c.Request.Context(), wf); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"workflow_id": wf.ID})
}

func (s *Server) listWorkflows(c *gin.Context) {
	workflows, err := s.Workflows.List(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, workflows)
}

func (s *Server) getWorkflow(c *gin.Context) {
	wf, err := s.Workflows.FindByID(c.Request.Context(), domain.WorkflowID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, wf)
}

func (s *Server) startWorkflow(c *gin.Context) {
	var body struct {
		Input map[string]interface{} `json:"input"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "start_workflow", err, "invalid input body"))
		return
	}
	we, err := s.WorkflowEngine.Start(c.Request.Context(), domain.WorkflowID(c.Param("id")), body.Input)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, we)
}

func (s *Server) getWorkflowExecution(c *gin.Context) {
	we, err := s.WorkflowExecutions.FindByID(c.Request.Context(), domain.ExecutionID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, we)
}

func (s *Server) cancelWorkflowExecution(c *gin.Context) {
	we, err := s.WorkflowExecutions.FindByID(c.Request.Context(), domain.ExecutionID(c.Param("id")))
	if err != nil {
		fail(c, err)
		return
	}
	if err := s.WorkflowEngine.Cancel(c.Request.Context(), we); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) submitHumanInput(c *gin.Context) {
	var body struct {
		Response string `json:"response"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "submit_human_input", err, "invalid response body"))
		return
	}
	if s.HumanInput == nil || !s.HumanInput.Respond(c.Param("id"), body.Response) {
		fail(c, apierr.New(apierr.NotFound, "submit_human_input", "no human state waiting on workflow execution %s", c.Param("id")))
		return
	}
	c.Status(http.StatusAccepted)
}

func (s *Server) storePattern(c *gin.Context) {
	var body struct {
		ErrorSignature domain.ErrorSignature `json:"error_signature"`
		Solution       string                `json:"solution_code"`
		Category       string                `json:"task_category"`
		Tags           []string              `json:"tags"`
		Embedding      []float64             `json:"embedding"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "store_pattern", err, "invalid pattern body"))
		return
	}
	p, err := s.Cortex.StorePattern(c.Request.Context(), body.ErrorSignature, body.Solution, body.Category, body.Tags, body.Embedding)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) searchPatterns(c *gin.Context) {
	var body struct {
		Embedding []float64 `json:"embedding"`
		TopK      int       `json:"top_k"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, apierr.Wrap(apierr.InvalidInput, "search_patterns", err, "invalid search body"))
		return
	}
	ranked, err := s.Cortex.SearchPatterns(c.Request.Context(), body.Embedding, body.TopK)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, ranked)
}
