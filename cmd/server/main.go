package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pdf-ask/internal/app"
	"pdf-ask/internal/httputil"
	"pdf-ask/internal/queue"
)

// startingAnswer is returned while the session is still initializing.
const startingAnswer = "Agent is starting, try again in a few seconds."

type askRequest struct {
	Question string `json:"question" validate:"required"`
}

type askResponse struct {
	Answer string `json:"answer"`
}

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session := app.NewSession(deps)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           newRouter(deps, session),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// Serve immediately; /ask answers with startingAnswer until this finishes.
	g.Go(func() error {
		return ignoreCanceled(session.Start(gctx))
	})

	g.Go(func() error {
		return ignoreCanceled(deps.Queue.Worker(gctx, queue.TaskTypeReload, reloadTask(deps.Log, session)))
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), deps.Config.ShutdownTimeout)
		defer cancel()
		deps.Log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("server stopped", "err", err)
	}
	if err := session.Close(); err != nil {
		deps.Log.Error("session close failed", "err", err)
	}
}

func newRouter(deps app.Deps, session *app.Session) http.Handler {
	r := httputil.NewRouter(deps.Log, deps.Config.CORSOrigins)

	r.Post("/ask", askHandler(deps, session))
	r.Post("/admin/reload", reloadHandler(deps))
	r.Get("/healthz", httputil.HealthHandler(deps.Log))
	r.Get("/readyz", httputil.ReadyHandler(session.Ready))
	return r
}

func askHandler(deps app.Deps, session *app.Session) http.HandlerFunc {
	maxLen := deps.Config.MaxQuestionLength
	timeout := deps.Config.RequestTimeout

	return func(w http.ResponseWriter, r *http.Request) {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httputil.Fail(deps.Log, w, "invalid payload", err, http.StatusBadRequest)
			return
		}

		a := session.Agent()
		if a == nil {
			httputil.WriteJSON(w, http.StatusOK, askResponse{Answer: startingAnswer})
			return
		}

		req.Question = strings.TrimSpace(req.Question)
		if err := httputil.Validator.Struct(&req); err != nil {
			httputil.ValidationError(deps.Log, w, err)
			return
		}
		if maxLen > 0 && len(req.Question) > maxLen {
			httputil.Fail(deps.Log, w, fmt.Sprintf("question too long (max %d bytes)", maxLen), nil, http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		answer, err := a.Ask(ctx, req.Question)
		if errors.Is(err, context.DeadlineExceeded) {
			httputil.Fail(deps.Log, w, "answering took too long", err, http.StatusGatewayTimeout)
			return
		}
		if err != nil {
			httputil.Fail(deps.Log, w, "failed to answer question", err, http.StatusBadGateway)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, askResponse{Answer: answer})
	}
}

// reloadHandler broadcasts a reload so every replica re-reads the document.
func reloadHandler(deps app.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		task := queue.Task{Type: queue.TaskTypeReload}
		if err := queue.EnqueueWithRetry(r.Context(), deps.Queue, task, 3, 200*time.Millisecond); err != nil {
			httputil.Fail(deps.Log, w, "failed to publish reload; please retry", err, http.StatusInternalServerError)
			return
		}
		httputil.WriteJSON(w, http.StatusAccepted, map[string]any{"status": "reloading"})
	}
}

func reloadTask(log *slog.Logger, session *app.Session) queue.Handler {
	return func(ctx context.Context, task queue.Task) error {
		log.Info("reload requested", "task_id", task.ID, "issued_at", task.CreatedAt)
		return session.Reload(ctx)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
