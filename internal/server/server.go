package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mohammad-safakhou/askweb/config"
	"github.com/mohammad-safakhou/askweb/internal/chat"
	"github.com/mohammad-safakhou/askweb/internal/logging"
	"github.com/mohammad-safakhou/askweb/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators behind the HTTP surface.
type Deps struct {
	Chat           Answerer
	Sessions       session.Store
	Gatherer       prometheus.Gatherer // nil hides /metrics
	AllowOrigins   []string
	RequestTimeout time.Duration
	Logger         *log.Logger
}

// New builds the echo instance with every route mounted.
func New(d Deps) *echo.Echo {
	if d.Logger == nil {
		d.Logger = logging.New("http")
	}
	if len(d.AllowOrigins) == 0 {
		d.AllowOrigins = []string{"*"}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(tracing())
	e.HTTPErrorHandler = errorHandler(d.Logger)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: d.AllowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType},
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	if d.Gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}
	registerDocs(e)

	ch := &ChatHandler{Chat: d.Chat, Sessions: d.Sessions, RequestTimeout: d.RequestTimeout, Logger: d.Logger}
	ch.Register(e)
	ops := &OpsHandler{Sessions: d.Sessions}
	ops.Register(e)
	return e
}

// errorHandler writes {"error": msg} with the status mapped from err.
func errorHandler(logger *log.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		code, msg := statusFor(err)
		req := c.Request()
		logger.Printf("%d %s %s from %s (request %s): %v", code, req.Method, req.URL.Path, c.RealIP(),
			c.Response().Header().Get(echo.HeaderXRequestID), err)
		if c.Response().Committed {
			return
		}
		if req.Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, ErrorResponse{Error: msg})
	}
}

func statusFor(err error) (int, string) {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		if he.Message != nil {
			return he.Code, fmt.Sprint(he.Message)
		}
		return he.Code, http.StatusText(he.Code)
	case errors.Is(err, chat.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "Session not found"
	case errors.Is(err, chat.ErrNoLinksFound):
		return http.StatusNotFound, "No links found"
	case errors.Is(err, chat.ErrNoContent):
		return http.StatusNotFound, "No content found to process"
	case errors.Is(err, chat.ErrNoValidDocuments):
		return http.StatusNotFound, "No valid documents to process"
	case errors.Is(err, chat.ErrTimeout):
		return http.StatusGatewayTimeout, "Upstream service timed out"
	case errors.Is(err, chat.ErrExternal):
		return http.StatusBadGateway, "Upstream service error"
	}
	return http.StatusInternalServerError, "Internal server error"
}

// Run serves cfg until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg *config.Config) error {
	app, err := NewApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer app.Close()

	e := New(app.Deps())
	logger := logging.New("http")
	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.Server.Address)
		if err := e.Start(cfg.Server.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Printf("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
