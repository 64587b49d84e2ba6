// Package server wires all components and creates the MCP server instance.
//
// This is the composition root: it turns configuration into concrete
// stores, the safety service and the MCP tools, prompts and resources
// that depend on it. No business logic lives here, only wiring.
package server

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/config"
	"github.com/HendryAvila/safeguard/internal/contextload"
	"github.com/HendryAvila/safeguard/internal/enforcement"
	"github.com/HendryAvila/safeguard/internal/intent"
	"github.com/HendryAvila/safeguard/internal/patterns"
	"github.com/HendryAvila/safeguard/internal/prompts"
	"github.com/HendryAvila/safeguard/internal/resources"
	"github.com/HendryAvila/safeguard/internal/safety"
	"github.com/HendryAvila/safeguard/internal/session"
	"github.com/HendryAvila/safeguard/internal/telemetry"
	"github.com/HendryAvila/safeguard/internal/tools"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Components are the shared dependencies both transports serve.
type Components struct {
	Safety  *safety.Service
	Metrics *telemetry.Metrics
}

// NewComponents builds the safety service from cfg.
//
// The returned cleanup function closes the token database and must be
// called on shutdown (typically via defer). It is always non-nil and safe
// to call even if the database could not be opened; in that case tokens
// are kept in memory and a warning is logged.
func NewComponents(cfg *config.Config, logger *zap.Logger) (*Components, func(), error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	index := patterns.Default()
	if cfg.Patterns.CatalogFile != "" {
		catalog, err := patterns.LoadCatalogFile(cfg.Patterns.CatalogFile)
		if err != nil {
			return nil, noop, fmt.Errorf("loading pattern catalog: %w", err)
		}
		index, err = patterns.NewIndex(catalog)
		if err != nil {
			return nil, noop, fmt.Errorf("indexing pattern catalog: %w", err)
		}
		logger.Info("pattern catalog loaded", zap.String("path", cfg.Patterns.CatalogFile))
	}

	cleanup := noop
	var tokens enforcement.Store
	sq, err := enforcement.OpenSQLite(cfg.Storage.DataDir)
	if err != nil {
		logger.Warn("token database unavailable; tokens will not survive a restart",
			zap.String("data_dir", cfg.Storage.DataDir), zap.Error(err))
		tokens = enforcement.NewMemoryStore()
	} else {
		tokens = sq
		cleanup = func() {
			if err := sq.Close(); err != nil {
				logger.Warn("token database close", zap.Error(err))
			}
		}
	}

	metrics := telemetry.New()
	svc := safety.New(safety.Options{
		Sessions: session.NewMemoryStore(),
		Tokens:   tokens,
		Index:    index,
		Context: contextload.Options{
			Dir:           cfg.Context.Dir,
			DecisionsFile: cfg.Context.DecisionsFile,
			AttemptsFile:  cfg.Context.AttemptsFile,
			ReadTimeout:   cfg.Context.ReadTimeout.Duration(),
			MaxFileBytes:  cfg.Context.MaxFileBytes,
		},
		Intent: intent.Options{
			Threshold: cfg.Intent.OverallThreshold,
			MaxRounds: cfg.Intent.MaxRounds,
		},
		Attempts: attempts.Options{
			SimilarityThreshold: cfg.Attempts.SimilarityThreshold,
			RetryFailureLimit:   cfg.Attempts.RetryFailureLimit,
		},
		TokenTTL:           cfg.Enforcement.TTL.Duration(),
		DefaultProjectPath: cfg.Context.ProjectPath,
		Metrics:            metrics,
		Logger:             logger,
	})

	return &Components{Safety: svc, Metrics: metrics}, cleanup, nil
}

// NewMCP creates the MCP server with every tool, prompt and resource
// registered.
func NewMCP(name string, svc *safety.Service) *server.MCPServer {
	if name == "" {
		name = "safeguard"
	}
	s := server.NewMCPServer(
		name,
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register safety tools ---

	for _, t := range tools.All(svc) {
		s.AddTool(t.Definition(), t.Handle)
	}

	// --- Register prompts ---

	workflowPrompt := prompts.NewWorkflowPrompt()
	s.AddPrompt(workflowPrompt.Definition(), workflowPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(svc)
	s.AddResourceTemplate(resourceHandler.StatusTemplate(), resourceHandler.HandleStatus)

	return s
}

// noop is the cleanup used when nothing needs closing.
func noop() {}

// serverInstructions tells the AI how to use the gates.
func serverInstructions() string {
	return `You have access to safeguard, an enforcement layer that keeps coding work
inside what the user asked for and consistent with what was already decided.

## Gate order

Use one sessionId for the whole task and call, in order:

1. load_context: read the project's recorded decisions, failed attempts and blockers.
2. clarify_intent: score the request. If readyToProceed is false, ask the user
   each returned question and record the answer with answer_clarification.
   Never invent answers.
3. check_contradiction: test your plan against high and critical decisions.
4. define_scope: lock the directories and actions the request implies.
5. discover_patterns: get the pattern modules to read and a sessionToken.
   Pass the sessionId so completion checks this session's gates.
6. check_action before EVERY file change or command.
7. log_decision for each choice, log_attempt for each fix attempt.
8. validate_complete with the sessionToken and honest test results.

## Hard rules

- If a response has "blocked": true, do NOT perform the action. Tell the user the
  reason and ask how to proceed.
- If log_attempt returns shouldNotRetry, do not try that approach again; pick one of
  the suggested alternatives.
- Never report a task as done unless validate_complete returned "passed": true.
- Secrets (.env files, keys, certificates) and git internals are always out of
  scope.

Warnings never block, but mention them to the user.
Use get_safety_status at any time to see which gates are still open.`
}
