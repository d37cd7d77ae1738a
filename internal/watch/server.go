// SPDX-License-Identifier: MIT

package watch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ManuGH/standardise/internal/health"
	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/metrics"
	"github.com/ManuGH/standardise/internal/version"
)

const shutdownTimeout = 5 * time.Second

type server struct {
	addr    string
	handler http.Handler
	w       *Watcher
}

func newServer(addr string, w *Watcher) *server {
	return &server{addr: addr, handler: NewRouter(w), w: w}
}

// NewRouter exposes /healthz, /readyz, /status and /metrics for a watcher.
func NewRouter(w *Watcher) http.Handler {
	hm := health.NewManager(version.Version)
	hm.RegisterChecker(health.DirChecker("watch_dir", w.cfg.Watch.Dir, false))
	hm.RegisterChecker(health.DirChecker("output_dir", w.cfg.Watch.OutputDir, true))
	hm.RegisterChecker(health.NewChecker("last_run", func(context.Context) health.CheckResult {
		st := w.Status()
		if st.Processed > 0 && st.LastFailed {
			return health.CheckResult{Status: health.StatusDegraded, Message: "last run failed: " + st.LastFile}
		}
		return health.CheckResult{Status: health.StatusHealthy}
	}))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", hm.ServeHealth)
	r.Get("/readyz", hm.ServeReady)
	r.Get("/status", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(w.Status())
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return otelhttp.NewHandler(r, "standardise.watch",
		otelhttp.WithFilter(traced),
		otelhttp.WithSpanNameFormatter(func(_ string, req *http.Request) string {
			return req.Method + " " + req.URL.Path
		}),
	)
}

// traced skips health checks and scrapes so they do not flood the trace backend.
func traced(req *http.Request) bool {
	switch req.URL.Path {
	case "/healthz", "/readyz", "/metrics":
		return false
	}
	return true
}

func (s *server) serve(ctx context.Context) error {
	logger := xglog.WithComponent("watch")
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("watch: listen %s: %w", s.addr, err)
	}
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str(xglog.FieldEvent, "watch.http_listening").
			Str("addr", ln.Addr().String()).
			Msg("health and metrics listener started")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("watch: http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("watch: http shutdown: %w", err)
	}
	<-errCh
	return nil
}
