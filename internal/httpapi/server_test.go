package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/config"
	"github.com/HendryAvila/safeguard/internal/safety"
	"github.com/HendryAvila/safeguard/internal/telemetry"
)

type failingDispatcher struct{}

func (failingDispatcher) Dispatch(context.Context, string, json.RawMessage) (any, error) {
	return nil, errors.New("disk on fire")
}

func setupTestServer(t *testing.T) *Server {
	t.Helper()
	m := telemetry.New()
	svc := safety.New(safety.Options{Metrics: m})
	s, err := NewServer(svc, m, zap.NewNop(), config.ServerConfig{})
	require.NoError(t, err)
	return s
}

func do(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServer(t *testing.T) {
	t.Run("uses default address", func(t *testing.T) {
		s := setupTestServer(t)
		assert.Equal(t, config.DefaultHTTPAddr, s.config.HTTPAddr)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(safety.New(safety.Options{}), nil, nil, config.ServerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when dispatcher is nil", func(t *testing.T) {
		_, err := NewServer(nil, nil, zap.NewNop(), config.ServerConfig{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dispatcher cannot be nil")
	})
}

func TestHandleHealth(t *testing.T) {
	rec := do(setupTestServer(t), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestHandleCall(t *testing.T) {
	s := setupTestServer(t)

	t.Run("no scope allows with warning", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/safety",
			`{"action":"check_action","sessionId":"s1","actionType":"modify-file","targetFile":"src/app/page.tsx"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp safety.CheckActionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Allowed)
		assert.NotEmpty(t, resp.Warning)
	})

	t.Run("blocked is a 200", func(t *testing.T) {
		rec := do(s, http.MethodPost, "/api/safety",
			`{"action":"define_scope","sessionId":"s2","userRequest":"Add a login page with OAuth"}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(s, http.MethodPost, "/api/safety",
			`{"action":"check_action","sessionId":"s2","actionType":"modify-file","targetFile":".env"}`)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp safety.CheckActionResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.Blocked)
		assert.Equal(t, safety.CodeScopeViolation, resp.Code)
		require.NotNil(t, resp.Violation)
		assert.Equal(t, ".env", resp.Violation.TargetFile)
	})

	t.Run("malformed input is a 400", func(t *testing.T) {
		tests := []struct {
			name string
			body string
		}{
			{"not json", `{`},
			{"array body", `[]`},
			{"no action", `{"sessionId":"s1"}`},
			{"action not a string", `{"action":7}`},
			{"unknown action", `{"action":"fly"}`},
			{"missing field", `{"action":"clarify_intent","sessionId":"s1"}`},
			{"unknown field", `{"action":"get_status","sessionId":"s1","verbose":true}`},
			{"bad enum", `{"action":"log_attempt","sessionId":"s1","issue":"i","approach":"a","result":"maybe"}`},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rec := do(s, http.MethodPost, "/api/safety", tt.body)
				assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, safety.CodeMalformedInput, resp.Code)
			})
		}
	})
}

func TestHandleCall_InternalError(t *testing.T) {
	s, err := NewServer(failingDispatcher{}, nil, zap.NewNop(), config.ServerConfig{})
	require.NoError(t, err)

	rec := do(s, http.MethodPost, "/api/safety", `{"action":"get_status","sessionId":"s1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")
}

func TestHandleStatus(t *testing.T) {
	s := setupTestServer(t)

	rec := do(s, http.MethodGet, "/api/safety?sessionId=ghost", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp safety.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Exists)
	assert.Equal(t, "load_context", string(resp.NextAction))

	rec = do(s, http.MethodGet, "/api/safety", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := setupTestServer(t)
	_ = do(s, http.MethodPost, "/api/safety", `{"action":"get_status","sessionId":"s1"}`)

	rec := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "safeguard_calls_total")
}
