package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/vaani/internal/dispatch"
	"github.com/MrWong99/vaani/internal/health"
	"github.com/MrWong99/vaani/internal/listen"
	"github.com/MrWong99/vaani/internal/observe"
)

// ErrStopped is returned by Run when a spoken command (exit, shutdown or
// restart) ended the turn loop.
var ErrStopped = errors.New("app: stopped by voice command")

// serverShutdownTimeout bounds the HTTP server drain.
const serverShutdownTimeout = 5 * time.Second

// Run speaks the greeting and executes turns until ctx is cancelled, a
// spoken command stops the assistant or a finite audio source runs dry.
// When server.listen_addr is set, the health and metrics server runs
// alongside the turn loop.
//
// Run returns ctx.Err() on cancellation, [ErrStopped] after a stop command
// and nil when the audio source is exhausted.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	// The server outlives a finished turn loop only until Run returns.
	loopCtx, loopDone := context.WithCancel(gctx)
	defer loopDone()

	if addr := a.cfg.Server.ListenAddr; addr != "" {
		srv := &http.Server{
			Addr:              addr,
			Handler:           a.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		g.Go(func() error {
			slog.Info("http server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-loopCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	var loopErr error
	g.Go(func() error {
		defer loopDone()
		loopErr = a.loop(loopCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	return loopErr
}

// loop runs turns until one of the exit conditions of Run is met.
func (a *App) loop(ctx context.Context) error {
	a.speak(ctx, dispatch.ReplyReady)
	slog.Info("assistant listening", "wake_words", a.cfg.Listen.WakeWords)

	for {
		t, err := a.NextTurn(ctx)
		switch {
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, listen.ErrEngineUnavailable):
			slog.Error("speech engine unavailable, turn loop idle", "err", err)
			<-ctx.Done()
			return ctx.Err()
		case errors.Is(err, io.EOF):
			slog.Info("audio source exhausted")
			return nil
		case err != nil:
			a.metrics.RecordTurn(ctx, turnError)
			slog.Warn("turn failed", "err", err)
			if !sleep(ctx, a.retryDelay) {
				return ctx.Err()
			}
			continue
		}

		stop := a.Respond(ctx, t)
		a.metrics.RecordTurn(ctx, turnResult(t))
		if stop {
			slog.Info("stop command received", "tag", t.Match.Tag)
			return ErrStopped
		}
	}
}

// Handler returns the HTTP handler serving /healthz, /readyz and /metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	health.New(a.checkers()...).Register(mux)
	mux.Handle("GET /metrics", observe.MetricsHandler())
	return observe.Middleware(a.metrics)(mux)
}

// checkers returns the readiness checks of every configured provider.
func (a *App) checkers() []health.Checker {
	checks := []health.Checker{
		health.Probe("stt", func() bool {
			if a.recognizer == nil {
				return false
			}
			return probeHealthy(a.providers.STT)
		}),
	}
	if a.providers.LLM != nil {
		checks = append(checks, health.Probe("llm", func() bool { return probeHealthy(a.providers.LLM) }))
	}
	if a.providers.TTS != nil {
		checks = append(checks, health.Probe("tts", func() bool { return probeHealthy(a.providers.TTS) }))
	}
	return checks
}

// probeHealthy asks v for its health when it reports one, as the resilience
// fallback groups do. Anything else is assumed healthy.
func probeHealthy(v any) bool {
	if h, ok := v.(interface{ Healthy() bool }); ok {
		return h.Healthy()
	}
	return true
}

// sleep waits for d or until ctx is done. It reports whether the full delay
// elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
