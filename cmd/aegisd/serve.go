package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/aegis-run/orchestrator/internal/config"
	"github.com/aegis-run/orchestrator/internal/cortex"
	"github.com/aegis-run/orchestrator/internal/events"
	"github.com/aegis-run/orchestrator/internal/execengine"
	"github.com/aegis-run/orchestrator/internal/fsal"
	"github.com/aegis-run/orchestrator/internal/fsal/storage"
	"github.com/aegis-run/orchestrator/internal/httpapi"
	"github.com/aegis-run/orchestrator/internal/llm"
	"github.com/aegis-run/orchestrator/internal/llm/providers"
	"github.com/aegis-run/orchestrator/internal/nfsgateway"
	"github.com/aegis-run/orchestrator/internal/repo"
	"github.com/aegis-run/orchestrator/internal/repo/memory"
	"github.com/aegis-run/orchestrator/internal/repo/sqlite"
	"github.com/aegis-run/orchestrator/internal/toolrouter"
	"github.com/aegis-run/orchestrator/internal/validation"
	"github.com/aegis-run/orchestrator/internal/workflow"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator daemon: HTTP API, execution engine, and NFS gateway",
	RunE:  runServe,
}

// repositories bundles every internal/repo contract the composition
// root needs, backed by either internal/repo/memory or
// internal/repo/sqlite depending on cfg.Database.URL.
type repositories struct {
	agents             repo.AgentRepository
	executions         repo.ExecutionRepository
	volumes            repo.VolumeRepository
	policies           fsal.PolicyLookup
	sessions           repo.SessionRepository
	patterns           repo.PatternRepository
	toolServers        repo.ToolServerRepository
	workflows          repo.WorkflowRepository
	workflowExecutions repo.WorkflowExecutionRepository
	closer             func() error
}

func buildRepositories(cfg *config.AegisConfig, log *slog.Logger) (*repositories, error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory repositories (no database.url configured)")
		return &repositories{
			agents:             memory.NewAgentRepository(),
			executions:         memory.NewExecutionRepository(),
			volumes:            memory.NewVolumeRepository(),
			policies:           memory.NewPolicyRepository(),
			sessions:           memory.NewSessionRepository(),
			patterns:           memory.NewPatternRepository(),
			toolServers:        memory.NewToolServerRepository(),
			workflows:          memory.NewWorkflowRepository(),
			workflowExecutions: memory.NewWorkflowExecutionRepository(),
			closer:             func() error { return nil },
		}, nil
	}

	log.Info("using sqlite repositories", "url", cfg.Database.URL)
	db, err := sqlite.Open(cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite database: %w", err)
	}
	return &repositories{
		agents:             sqlite.NewAgentRepository(db),
		executions:         sqlite.NewExecutionRepository(db),
		volumes:            sqlite.NewVolumeRepository(db),
		policies:           sqlite.NewPolicyRepository(db),
		sessions:           sqlite.NewSessionRepository(db),
		patterns:           sqlite.NewPatternRepository(db),
		toolServers:        sqlite.NewToolServerRepository(db),
		workflows:          sqlite.NewWorkflowRepository(db),
		workflowExecutions: sqlite.NewWorkflowExecutionRepository(db),
		closer:             db.Close,
	}, nil
}

// buildGenerator selects an llm.Generator from llm_providers per
// llm_selection.default_provider, falling back to the first enabled
// provider. The "anthropic" and "openai" provider types drive the
// direct-SDK adapters under internal/llm/providers; any other type
// (including "genkit") yields no generator. No generator leaves the
// execengine.InProcessRuntime path unavailable, so only DockerRuntime
// can run executions in that case.
func buildGenerator(cfg *config.AegisConfig, log *slog.Logger) llm.Generator {
	var chosen *config.LLMProvider
	for i := range cfg.LLMProviders {
		p := &cfg.LLMProviders[i]
		if !p.Enabled {
			continue
		}
		if p.Name == cfg.LLMSelection.DefaultProvider {
			chosen = p
			break
		}
		if chosen == nil {
			chosen = p
		}
	}
	if chosen == nil {
		log.Warn("no enabled llm_providers entry, in-process agent execution is unavailable")
		return nil
	}

	model := chosen.Name
	if len(chosen.Models) > 0 {
		model = chosen.Models[0].Model
	}

	switch chosen.Type {
	case "anthropic":
		return providers.NewAnthropicGenerator(chosen.ResolveAPIKey(), model)
	case "openai":
		return providers.NewOpenAIGenerator(chosen.ResolveAPIKey(), chosen.Endpoint, model)
	default:
		log.Warn("llm provider type has no direct adapter, in-process agent execution is unavailable", "type", chosen.Type, "provider", chosen.Name)
		return nil
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadAegisConfig(cfgFile)
	if err != nil {
		return err
	}

	log := newLogger(cfg.Observability)
	log.Info("aegisd starting", "node_id", cfg.Node.ID, "node_type", cfg.Node.Type)

	bus := events.New()

	repos, err := buildRepositories(cfg, log)
	if err != nil {
		return err
	}
	defer repos.closer()

	provider := storage.NewAferoProvider(afero.NewOsFs())
	fs := fsal.New(provider, repos.volumes, bus, repos.policies)

	// var, not :=, so a failed NewDockerRuntime leaves runtime a true
	// nil Runtime interface rather than a non-nil interface wrapping a
	// nil *DockerRuntime (the classic typed-nil pitfall).
	var runtime execengine.Runtime
	if dr, err := execengine.NewDockerRuntime(); err != nil {
		log.Warn("docker runtime unavailable", "err", err)
	} else {
		runtime = dr
	}
	if generator := buildGenerator(cfg, log); generator != nil {
		log.Info("in-process llm runtime available")
		if runtime == nil {
			runtime = execengine.NewInProcessRuntime(generator)
		}
	}

	engine := execengine.New(repos.executions, repos.agents, runtime, nil, bus)
	engine.SetValidator(validation.New(repos.executions, engine, bus))

	gateway := nfsgateway.NewGateway(fs, log)
	log.Info("nfs gateway ready", "default_port", nfsgateway.DefaultPort, "bind", cfg.Network.NFSBindAddr)

	// Tool routing: local fs.*/filesystem.* calls dispatch straight into
	// FSAL on the execution's owned volume; everything else dispatches
	// through the MCP client pool.
	volumeLookup := toolrouter.NewRepoVolumeLookup(repos.volumes)
	local := toolrouter.NewLocalDispatcher(fs, volumeLookup)
	remote := toolrouter.NewRemoteDispatcher()
	router := toolrouter.NewRouter(repos.toolServers)
	toolService := toolrouter.NewService(repos.sessions, router, local, remote, bus)

	// Workflow FSM: one state executor per domain.StateKind, dispatching
	// agent states straight into the execution engine (*execengine.Engine
	// satisfies workflow.AgentRunner directly).
	humanInput := workflow.NewChannelHumanInputProvider()
	dispatcher := workflow.NewDispatcher(
		workflow.NewAgentStateExecutor(repos.agents, engine),
		workflow.NewSystemStateExecutor(),
		workflow.NewHumanStateExecutor(humanInput),
		workflow.NewParallelAgentsStateExecutor(repos.agents, engine),
	)

	// A configured NATS URL mirrors every workflow state transition onto
	// a durable subject; without one, durability stays ledger-only (the
	// in-process repo append), matching NATSBridge's nil-safe design.
	var natsBridge *workflow.NATSBridge
	if cfg.Network.NATSURL != "" {
		nc, err := nats.Connect(cfg.Network.NATSURL)
		if err != nil {
			log.Warn("nats connect failed, workflow durability mirroring disabled", "err", err)
		} else {
			defer nc.Close()
			natsBridge = workflow.NewNATSBridge("aegis.workflow", func(ctx context.Context, subject string, payload []byte) error {
				return nc.Publish(subject, payload)
			})
		}
	}
	workflowEngine := workflow.New(repos.workflows, repos.workflowExecutions, repos.executions, natsBridge, dispatcher, bus)

	// Pattern memory: an in-memory cosine-similarity index is always
	// available. It starts empty on every start and holds only the
	// patterns stored or updated by this process; patterns already in
	// repos.patterns are not loaded into it.
	cortexService := cortex.New(repos.patterns, cortex.NewMemoryStore(), bus)
	workflowEngine.SetPatternSeeder(cortexService)
	pruneCtx, cancelPrune := context.WithCancel(context.Background())
	defer cancelPrune()
	go func() {
		schedule := cfg.Database.PruneSchedule
		maxAge := time.Duration(cfg.Database.PruneMaxAgeDays) * 24 * time.Hour
		if err := cortexService.RunPruner(pruneCtx, schedule, cfg.Database.PruneMinWeight, maxAge); err != nil {
			log.Warn("cortex pruner stopped", "err", err)
		}
	}()

	tokenSecret := []byte(cfg.Security.ResolveTokenSecret())
	if len(tokenSecret) == 0 {
		tokenSecret = make([]byte, 32)
		if _, err := rand.Read(tokenSecret); err != nil {
			return fmt.Errorf("generate ephemeral smcp token secret: %w", err)
		}
		log.Warn("no security.token_secret configured, using an ephemeral secret; sessions will not survive a restart")
	}

	server := httpapi.NewServer(repos.agents, repos.executions, engine, bus, log)
	server.Sessions = repos.sessions
	server.TokenSecret = tokenSecret
	server.Workflows = repos.workflows
	server.WorkflowExecutions = repos.workflowExecutions
	server.WorkflowEngine = workflowEngine
	server.HumanInput = humanInput
	server.ToolRouter = toolService
	server.Cortex = cortexService

	httpSrv := &http.Server{
		Addr:    cfg.Network.HTTPBindAddr,
		Handler: server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http api listening", "addr", cfg.Network.HTTPBindAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for _, volumeID := range gateway.ActiveMounts() {
		gateway.Unmount(volumeID)
	}
	return httpSrv.Shutdown(shutdownCtx)
}

func newLogger(obs config.ObservabilityConfig) *slog.Logger {
	level := slog.LevelInfo
	switch obs.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if obs.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
