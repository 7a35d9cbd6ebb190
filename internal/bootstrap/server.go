package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Task is a long-running loop started next to the HTTP server.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Run serves handler on addr together with tasks, and blocks until ctx is
// canceled or one of them fails. beforeShutdown runs first on the way out,
// so long-lived connections can be closed before the server drains.
func Run(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger, beforeShutdown func(), tasks ...Task) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	taskCtx, cancelTasks := context.WithCancel(ctx)
	defer cancelTasks()

	errCh := make(chan error, len(tasks)+1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	for _, task := range tasks {
		go func(task Task) {
			err := task.Run(taskCtx)
			if err != nil && taskCtx.Err() == nil {
				errCh <- fmt.Errorf("%s: %w", task.Name, err)
				return
			}
			logger.Info("task stopped", zap.String("task", task.Name))
		}(task)
	}

	var runErr error
	select {
	case runErr = <-errCh:
		logger.Error("shutting down after failure", zap.Error(runErr))
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	cancelTasks()
	if beforeShutdown != nil {
		beforeShutdown()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Join(runErr, fmt.Errorf("shutdown http server: %w", err))
	}
	return runErr
}
