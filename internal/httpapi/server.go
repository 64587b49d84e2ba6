// Package httpapi serves safety calls over HTTP.
//
// Every call goes through one envelope, POST /api/safety with
// {"action": "...", ...fields}. The fields are validated against the
// action's schema by the dispatcher, so a malformed request is a 400 and
// a policy outcome (blocked, contradiction, failed validation) is a 200
// whose body says so.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/HendryAvila/safeguard/internal/config"
	"github.com/HendryAvila/safeguard/internal/safety"
	"github.com/HendryAvila/safeguard/internal/telemetry"
)

// BodyLimit caps request bodies.
const BodyLimit = "1M"

// Dispatcher runs one safety call from raw JSON arguments.
type Dispatcher interface {
	Dispatch(ctx context.Context, action string, raw json.RawMessage) (any, error)
}

// Server provides HTTP endpoints for safety calls.
type Server struct {
	echo       *echo.Echo
	dispatcher Dispatcher
	logger     *zap.Logger
	config     config.ServerConfig
}

// NewServer creates a new HTTP server. metrics may be nil, in which case
// /metrics is not served.
func NewServer(d Dispatcher, metrics *telemetry.Metrics, logger *zap.Logger, cfg config.ServerConfig) (*Server, error) {
	if d == nil {
		return nil, fmt.Errorf("dispatcher cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = config.DefaultHTTPAddr
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.BodyLimit(BodyLimit))
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)
			return nil
		}
	})

	s := &Server{
		echo:       e,
		dispatcher: d,
		logger:     logger,
		config:     cfg,
	}
	s.registerRoutes(metrics)
	return s, nil
}

func (s *Server) registerRoutes(metrics *telemetry.Metrics) {
	s.echo.GET("/health", s.handleHealth)
	if metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
	}

	api := s.echo.Group("/api")
	api.POST("/safety", s.handleCall)
	api.GET("/safety", s.handleStatus)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is the body of every 4xx and 5xx answer.
type ErrorResponse struct {
	Code   string `json:"code"`
	Error  string `json:"error"`
	Action string `json:"action,omitempty"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleCall unwraps the {action, ...fields} envelope.
func (s *Server) handleCall(c echo.Context) error {
	var envelope map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&envelope); err != nil || envelope == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:  safety.CodeMalformedInput,
			Error: "request body must be a JSON object with an 'action' field",
		})
	}

	var action string
	if raw, ok := envelope["action"]; ok {
		if err := json.Unmarshal(raw, &action); err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:  safety.CodeMalformedInput,
				Error: "'action' must be a string",
			})
		}
	}
	if action == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:  safety.CodeMalformedInput,
			Error: "'action' is required",
		})
	}
	delete(envelope, "action")

	args, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("re-encoding %s arguments: %w", action, err)
	}
	return s.dispatch(c, action, args)
}

// handleStatus is a read-only get_status.
func (s *Server) handleStatus(c echo.Context) error {
	id := c.QueryParam("sessionId")
	if id == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:   safety.CodeMalformedInput,
			Error:  "'sessionId' query parameter is required",
			Action: "get_status",
		})
	}
	args, err := json.Marshal(map[string]string{"sessionId": id})
	if err != nil {
		return err
	}
	return s.dispatch(c, "get_status", args)
}

func (s *Server) dispatch(c echo.Context, action string, args json.RawMessage) error {
	out, err := s.dispatcher.Dispatch(c.Request().Context(), action, args)
	if err != nil {
		var mi *safety.MalformedInputError
		if errors.As(err, &mi) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{
				Code:   safety.CodeMalformedInput,
				Error:  err.Error(),
				Action: action,
			})
		}
		s.logger.Error("safety call failed", zap.String("action", action), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:   "INTERNAL",
			Error:  "internal error",
			Action: action,
		})
	}
	return c.JSON(http.StatusOK, out)
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.echo }

// Start serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	s.logger.Info("starting http server", zap.String("addr", s.config.HTTPAddr))
	if err := s.echo.Start(s.config.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
