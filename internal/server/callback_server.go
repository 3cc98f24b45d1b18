package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/tutorx/internal/shared"
)

// CallbackServer serves a [CallbackHandler] on a temporary local listener.
type CallbackServer struct {
	handler *CallbackHandler
	server  *http.Server
	logger  *log.Logger
	errs    chan error
	addr    string
}

// NewCallbackServer prepares a server on addr (host:port, port 0 picks a free one) for the callback path.
func NewCallbackServer(addr, path string, logger *log.Logger) *CallbackServer {
	handler := NewCallbackHandler(path)

	router := NewBasicRouter()
	router.Use(Recoverer(logger), RequestLogger(logger))
	router.Handler(handler)

	return &CallbackServer{
		handler: handler,
		server:  &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		logger:  logger,
		errs:    make(chan error, 1),
		addr:    addr,
	}
}

// Start binds the listener and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.addr = ln.Addr().String()

	go func() {
		s.logger.Infof("starting login callback server at %v", s.addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

// Addr returns the bound address once started.
func (s *CallbackServer) Addr() string {
	return s.addr
}

// Handler returns the callback handler.
func (s *CallbackServer) Handler() *CallbackHandler {
	return s.handler
}

// Wait blocks until the callback delivers a code, the server fails, timeout elapses or ctx is done.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.handler.Result():
		if err := result.Error(); err != nil {
			return "", err
		}
		return result.Code, nil
	case err := <-s.errs:
		return "", fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return "", fmt.Errorf("%w: no login callback within %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown stops the server, waiting at most five seconds for in-flight requests.
func (s *CallbackServer) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("error shutting down server", "error", err)
	}
}
