package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/config"
	"github.com/HendryAvila/safeguard/internal/safety"
	"github.com/HendryAvila/safeguard/internal/scope"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	cfg, err := config.LoadWithFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	cfg.Storage.DataDir = t.TempDir()
	return cfg
}

func TestNewComponents_TokensSurviveRestart(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()

	c, cleanup, err := NewComponents(cfg, zap.NewNop())
	require.NoError(t, err)
	d, err := c.Safety.DiscoverPatterns(ctx, safety.DiscoverPatternsRequest{Task: "add login with OAuth"})
	require.NoError(t, err)
	cleanup()

	c, cleanup, err = NewComponents(cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	res, err := c.Safety.ValidateComplete(ctx, safety.ValidateCompleteRequest{SessionToken: d.SessionToken, TestsRun: true, TestsPassed: true})
	require.NoError(t, err)
	assert.True(t, res.Passed, "token opened before the restart should validate")
}

func TestNewComponents_CatalogFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0o644))
	cfg.Patterns.CatalogFile = path

	_, cleanup, err := NewComponents(cfg, zap.NewNop())
	defer cleanup()
	assert.Error(t, err)
}

func TestNewMCP(t *testing.T) {
	s := NewMCP("", safety.New(safety.Options{}))
	assert.NotNil(t, s)
}

func TestServerInstructions_NameEveryGate(t *testing.T) {
	text := serverInstructions()
	for _, call := range []string{"load_context", "clarify_intent", "define_scope", "discover_patterns", "check_action", "validate_complete"} {
		assert.Contains(t, text, call)
	}
}

func TestServerInstructions_AlwaysForbiddenMatchesScope(t *testing.T) {
	text := serverInstructions()
	assert.NotContains(t, text, "lockfile")
	for _, entry := range []string{".env", "*.key", "*.pem", ".git/"} {
		assert.Contains(t, scope.DefaultForbidden, entry)
	}
	for _, target := range []string{".env", "certs/server.key", "certs/server.pem", ".git/config"} {
		_, ok := scope.MatchForbidden(target, scope.DefaultForbidden)
		assert.True(t, ok, "%s should be forbidden by default", target)
	}
}
