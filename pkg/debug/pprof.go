package debug

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/sirupsen/logrus"
)

// PprofServer serves the Go runtime profiles of the current process.
type PprofServer struct {
	server   *http.Server
	listener net.Listener
	logger   *logrus.Logger
}

// StartPprofServer listens on addr (":6060" when empty) and serves
// /debug/pprof/ in the background. Bind errors are returned immediately.
func StartPprofServer(addr string, logger *logrus.Logger) (*PprofServer, error) {
	if addr == "" {
		addr = ":6060"
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("pprof server failed: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	s := &PprofServer{
		server: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
		listener: ln,
		logger:   logger,
	}

	go func() {
		logger.WithField("addr", ln.Addr().String()).Info("pprof server starting")
		if err := s.server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Warn("pprof server stopped")
		}
	}()
	return s, nil
}

// Addr returns the bound address.
func (s *PprofServer) Addr() string {
	return s.listener.Addr().String()
}

// Stop shuts the server down, waiting up to five seconds for open requests.
func (s *PprofServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.WithError(err).Debug("pprof server shutdown")
	}
}
