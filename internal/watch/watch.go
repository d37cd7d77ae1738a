// SPDX-License-Identifier: MIT

// Package watch standardises files as they appear in a directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/standardise/internal/config"
	"github.com/ManuGH/standardise/internal/health"
	xglog "github.com/ManuGH/standardise/internal/log"
	"github.com/ManuGH/standardise/internal/runner"
)

// ErrSameDirectory is returned when the output directory is the watched one.
var ErrSameDirectory = errors.New("watch: output directory must differ from the watched directory")

// RunFunc standardises one file. cfg carries the per-file input and output.
type RunFunc func(ctx context.Context, cfg config.AppConfig) (runner.Report, error)

// Watcher feeds new or rewritten files from cfg.Watch.Dir into a RunFunc,
// one file at a time.
type Watcher struct {
	cfg    config.AppConfig
	run    RunFunc
	logger zerolog.Logger

	queue chan string

	mu      sync.Mutex
	timers  map[string]*pending
	state   Status
	started bool
}

// Status is the externally visible progress of a watcher.
type Status struct {
	Processed  int       `json:"processed"`
	Failed     int       `json:"failed"`
	LastFile   string    `json:"last_file,omitempty"`
	LastRunID  string    `json:"last_run_id,omitempty"`
	LastRunAt  time.Time `json:"last_run_at,omitempty"`
	LastFailed bool      `json:"last_failed"`
	Pending    int       `json:"pending"`
}

// New validates the watch configuration. A nil run uses runner.Run.
func New(cfg config.AppConfig, run RunFunc) (*Watcher, error) {
	if cfg.Watch.Dir == "" {
		return nil, errors.New("watch: directory is required")
	}
	if cfg.Watch.OutputDir == "" {
		return nil, errors.New("watch: output directory is required")
	}
	in, err := filepath.Abs(cfg.Watch.Dir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	out, err := filepath.Abs(cfg.Watch.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if in == out {
		return nil, ErrSameDirectory
	}
	if cfg.Watch.Pattern == "" {
		cfg.Watch.Pattern = "*"
	}
	if _, err := cfg.Output.ResolveFormat(); err != nil {
		return nil, fmt.Errorf("watch: output format: %w", err)
	}
	if run == nil {
		run = runner.Run
	}
	return &Watcher{
		cfg:    cfg,
		run:    run,
		logger: xglog.WithComponent("watch"),
		queue:  make(chan string, 64),
		timers: make(map[string]*pending),
	}, nil
}

// Status returns a snapshot of the watcher's progress.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.state
	s.Pending = len(w.timers) + len(w.queue)
	return s
}

// Run blocks until ctx is cancelled or the watcher fails. The HTTP listener,
// when configured, runs alongside and is shut down with the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("watch: already started")
	}
	w.started = true
	w.mu.Unlock()

	if err := os.MkdirAll(w.cfg.Watch.OutputDir, 0o755); err != nil {
		return fmt.Errorf("watch: create output directory: %w", err)
	}
	if err := health.CheckDir(w.cfg.Watch.OutputDir, true); err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: create watcher: %w", err)
	}
	if err := fsw.Add(w.cfg.Watch.Dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch: add %s: %w", w.cfg.Watch.Dir, err)
	}

	w.logger.Info().
		Str(xglog.FieldEvent, "watch.started").
		Str(xglog.FieldPath, w.cfg.Watch.Dir).
		Str("pattern", w.cfg.Watch.Pattern).
		Msg("watching directory for input files")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer func() { _ = fsw.Close() }()
		return w.eventLoop(gctx, fsw)
	})
	g.Go(func() error {
		return w.worker(gctx)
	})
	if w.cfg.Watch.Listen != "" {
		srv := newServer(w.cfg.Watch.Listen, w)
		g.Go(func() error {
			return srv.serve(gctx)
		})
	}

	err = g.Wait()
	w.stopTimers()
	w.logger.Info().Str(xglog.FieldEvent, "watch.stopped").Msg("directory watch stopped")
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (w *Watcher) eventLoop(ctx context.Context, fsw *fsnotify.Watcher) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if !w.matches(event.Name) {
				continue
			}
			w.logger.Debug().
				Str(xglog.FieldEvent, "watch.file_changed").
				Str(xglog.FieldPath, event.Name).
				Str("op", event.Op.String()).
				Msg("input file changed")
			w.schedule(ctx, event.Name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "watch.watcher_error").
				Msg("file watcher error")
		}
	}
}

func (w *Watcher) matches(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		// renameio pending files and editor swap files
		return false
	}
	ok, err := filepath.Match(w.cfg.Watch.Pattern, base)
	return err == nil && ok
}

// pending is one debounce timer. Its identity tells a superseded callback
// apart from the current one.
type pending struct {
	timer *time.Timer
}

// schedule (re)starts the debounce timer of path. Every further event on the
// same file pushes the run back by the debounce interval.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, ok := w.timers[path]; ok {
		p.timer.Stop()
	}
	p := &pending{}
	p.timer = time.AfterFunc(w.cfg.Watch.Debounce, func() { w.fire(ctx, path, p) })
	w.timers[path] = p
}

// fire enqueues path unless p was replaced or stopped after its timer
// expired but before it got the lock.
func (w *Watcher) fire(ctx context.Context, path string, p *pending) {
	w.mu.Lock()
	if w.timers[path] != p {
		w.mu.Unlock()
		return
	}
	delete(w.timers, path)
	w.mu.Unlock()
	select {
	case w.queue <- path:
	case <-ctx.Done():
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, p := range w.timers {
		p.timer.Stop()
		delete(w.timers, path)
	}
}

func (w *Watcher) worker(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case path := <-w.queue:
			w.process(ctx, path)
		}
	}
}

// OutputPath returns where the standardised version of input is written.
func (w *Watcher) OutputPath(input string) string {
	format, _ := w.cfg.Output.ResolveFormat()
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(w.cfg.Watch.OutputDir, base+format.Extension())
}

func (w *Watcher) process(ctx context.Context, path string) {
	cfg := w.cfg
	cfg.Input.Path = path
	cfg.Input.Format = ""
	cfg.Output.Path = w.OutputPath(path)

	rep, err := w.run(ctx, cfg)

	w.mu.Lock()
	w.state.Processed++
	w.state.LastFile = path
	w.state.LastRunID = rep.RunID
	w.state.LastRunAt = time.Now().UTC()
	w.state.LastFailed = err != nil
	if err != nil {
		w.state.Failed++
	}
	w.mu.Unlock()

	if err != nil {
		w.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "watch.run_failed").
			Str(xglog.FieldInputPath, path).
			Msg("standardise run failed")
		return
	}
	w.logger.Info().
		Str(xglog.FieldEvent, "watch.run_done").
		Str(xglog.FieldInputPath, path).
		Str(xglog.FieldOutputPath, cfg.Output.Path).
		Str("status", rep.Status).
		Msg("file standardised")
}
