package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/dshills/reviewdeck/internal/apperrors"
	"github.com/dshills/reviewdeck/internal/review"
)

// ShutdownTimeout bounds how long Listen waits for in-flight requests.
const ShutdownTimeout = 5 * time.Second

// RefreshFunc runs one fetch cycle.
type RefreshFunc func(ctx context.Context) (*review.Result, error)

// Server serves the dashboard API.
type Server struct {
	app     *fiber.App
	tracker *review.Tracker
	refresh RefreshFunc
	log     *zap.SugaredLogger

	// base is the context refresh cycles run under. It outlives single
	// requests so a manual login is not cut short by a client disconnect.
	base    context.Context
	running atomic.Bool
}

// New creates a server. The tracker must be registered as an observer of
// the cycles refresh runs.
func New(ctx context.Context, tracker *review.Tracker, refresh RefreshFunc, log *zap.SugaredLogger) *Server {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	s := &Server{
		tracker: tracker,
		refresh: refresh,
		log:     log,
		base:    ctx,
	}

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(RequestLogger(log))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/api/dashboard", s.getDashboard)
	app.Post("/api/refresh", s.postRefresh)

	s.app = app
	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled, then shuts down.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.app.Listen(addr)
	}()
	s.log.Infow("dashboard server listening", "addr", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	done := make(chan struct{})
	go func() {
		_ = s.app.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(ShutdownTimeout):
		s.log.Warnw("server shutdown timeout", "timeout", ShutdownTimeout)
	}
	return nil
}

func (s *Server) getDashboard(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(s.tracker.Snapshot())
}

func (s *Server) postRefresh(c *fiber.Ctx) error {
	if !s.running.CompareAndSwap(false, true) {
		return writeError(c, http.StatusConflict, "CYCLE_RUNNING", "a refresh is already in progress")
	}
	defer s.running.Store(false)

	res, err := s.refresh(s.base)
	if err != nil {
		s.log.Errorw("refresh failed", "error", err)
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return writeError(c, appErr.HTTPStatus(), string(appErr.Code), appErr.Error())
		}
		return writeError(c, http.StatusInternalServerError, "INTERNAL", err.Error())
	}
	return c.Status(http.StatusOK).JSON(res)
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(c *fiber.Ctx, status int, code, msg string) error {
	return c.Status(status).JSON(errorBody{Error: errorDetail{Code: code, Message: msg}})
}
