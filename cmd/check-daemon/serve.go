package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/capatazlib/go-daemoncheck/internal/notify"
	"github.com/capatazlib/go-daemoncheck/internal/probe"
	"github.com/capatazlib/go-daemoncheck/internal/server"
)

// shutdownTimeout bounds the graceful shutdown of the HTTP server
const shutdownTimeout = 5 * time.Second

func serve(c *cli.Context, stderr io.Writer) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}

	checks := cfg.CheckInputs()
	if len(checks) == 0 {
		return unknownf("serve mode requires at least one check in the configuration file")
	}

	metrics := notify.NewMetrics()
	opts := append(
		cfg.ProbeOpts(),
		probe.WithNotifier(reliableNotifier(log, metrics)),
	)
	srv := server.NewServer(log, probe.New(opts...), metrics, checks)

	httpServer := &http.Server{
		Addr:              c.String("listen"),
		Handler:           srv.NewHTTPHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logrus.Fields{
			"listen": httpServer.Addr,
			"checks": len(checks),
		}).Info("check server starting")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return unknownf("check server failed: %s", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("shutting down check server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return unknownf("check server shutdown failed: %s", err)
		}
		return nil
	}
}
