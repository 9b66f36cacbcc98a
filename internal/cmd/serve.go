package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rasool-click/wessaal-relay/common/logging"
	"github.com/rasool-click/wessaal-relay/internal/config"
	"github.com/rasool-click/wessaal-relay/internal/dispatcher"
	"github.com/rasool-click/wessaal-relay/internal/fanout"
	"github.com/rasool-click/wessaal-relay/internal/forwarder"
	"github.com/rasool-click/wessaal-relay/internal/normalizer"
	"github.com/rasool-click/wessaal-relay/internal/publisher"
	"github.com/rasool-click/wessaal-relay/internal/server"
	"github.com/rasool-click/wessaal-relay/internal/source"
)

// Distinct exit codes per startup failure cause so supervisors can
// tell misconfiguration kinds apart.
const (
	exitMissingEndpoint = 2
	exitMissingInstance = 3
)

const drainTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the relay",
	Long:  `Connects to the upstream event stream and relays events until interrupted.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		switch {
		case errors.Is(err, config.ErrMissingEndpoint):
			os.Exit(exitMissingEndpoint)
		case errors.Is(err, config.ErrMissingInstance):
			os.Exit(exitMissingInstance)
		}
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)
	logging.SetDefault(log)

	src := source.NewWebSocket(cfg.Upstream, log)
	hub := fanout.NewHub(cfg.Fanout, log)
	fwd := forwarder.New(cfg.Webhook, log)

	var mirror *publisher.Mirror
	if cfg.Mirror.URL != "" {
		mirror, err = publisher.NewMirror(cfg.Mirror.URL, log)
		if err != nil {
			return err
		}
		defer mirror.Close()
	}

	pub := publisher.New(hub, mirror, log)
	disp := dispatcher.New(src, normalizer.New(cfg.Raw), fwd, pub, cfg.Upstream.Events, log)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Fanout.Port),
		Handler: server.NewRouter(hub, cfg.Fanout),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		log.Info("fanout server listening",
			"addr", srv.Addr, "mount_path", cfg.Fanout.MountPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	go func() {
		if err := disp.Run(ctx); err != nil {
			log.Error("dispatcher stopped", logging.Err(err))
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("fanout server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("fanout server shutdown failed", logging.Err(err))
	}

	if !disp.Drain(drainTimeout) {
		log.Warn("deliveries still in flight at exit")
	}
	return nil
}
