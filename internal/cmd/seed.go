package cmd

import (
	"context"
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
	"github.com/rasool-click/wessaal-relay/internal/seeder"
)

var (
	seedCount     int
	seedInterval  time.Duration
	seedSeed      int64
	seedInstances []string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Drive the pipeline with synthetic events",
	Long: `Generates fake upstream events and runs them through the full
normalize/forward/publish pipeline. Useful for exercising a webhook
backend or fan-out subscribers without a live upstream.`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().IntVar(&seedCount, "count", 100, "number of events to generate")
	seedCmd.Flags().DurationVar(&seedInterval, "interval", 100*time.Millisecond, "delay between events")
	seedCmd.Flags().Int64Var(&seedSeed, "seed", time.Now().UnixNano(), "randomness seed (fixed seed reproduces the stream)")
	seedCmd.Flags().StringSliceVar(&seedInstances, "instances", []string{"demo"}, "instances to spread events across")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	// Seeding needs no upstream endpoint, so the config is not
	// validated the way serve does.
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log := logging.New(logging.ParseLevel(cfg.Logging.Level), cfg.Logging.Format)

	gen := seeder.NewGenerator(seedSeed, seedInstances)
	src := seeder.NewSource(gen, seedCount, seedInterval)

	hub := fanout.NewHub(cfg.Fanout, log)
	fwd := forwarder.New(cfg.Webhook, log)
	pub := publisher.New(hub, nil, log)
	disp := dispatcher.New(src, normalizer.New(cfg.Raw), fwd, pub, nil, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("seeding events",
		"count", seedCount, "interval", seedInterval.String(),
		"instances", seedInstances)

	if err := disp.Run(ctx); err != nil {
		return err
	}
	disp.Drain(drainTimeout)
	log.Info("seeding complete")
	return nil
}
