package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"aistudio/internal/devserver"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func runDevServer(cmd *cobra.Command, args []string) error {
	srv := &http.Server{
		Addr:              devAddr,
		Handler:           devserver.New(devserver.Options{DegradedAuth: devDegraded}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("dev server listening", zap.String("addr", devAddr), zap.Bool("degraded", devDegraded))
		fmt.Fprintf(cmd.OutOrStdout(), "AI Studio dev server on %s (ctrl+c to stop)\n", devAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("dev server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down dev server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dev server forced to shutdown: %w", err)
	}
	return nil
}
