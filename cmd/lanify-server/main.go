package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanify/monitor/internal/config"
	"github.com/lanify/monitor/internal/feed"
	"github.com/lanify/monitor/internal/logging"
	"github.com/lanify/monitor/internal/mock"
	"github.com/lanify/monitor/internal/store"
)

var version = "dev"

func main() {
	var (
		configPath string
		port       int
		mockMode   bool
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "lanify-server",
		Short: "Lane departure alert feed",
		Long: `lanify-server stores dashcam lane departure alerts and pushes them to
lanify clients over websocket or long-polling.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			if debug {
				cfg.Log.Level = "debug"
			}
			return run(cfg, mockMode)
		},
	}

	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
	rootCmd.Flags().IntVar(&port, "port", 0, "override server port")
	rootCmd.Flags().BoolVar(&mockMode, "mock", false, "generate simulated alerts")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, mockMode bool) error {
	log, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer st.Close()

	metrics := feed.NewMetrics()
	broadcaster := feed.NewBroadcaster(cfg.Server.Backlog, metrics, log.WithField("component", "broadcast"))
	defer broadcaster.Close()
	server := feed.NewServer(cfg.Server, st, broadcaster, metrics, log.WithField("component", "server"))

	if mockMode {
		log.Info("starting mock fleet")
		mock.NewGenerator(server, cfg.Mock, log.WithField("component", "mock")).Start(ctx)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	if err := feed.ListenAndServe(ctx, addr, server.Handler(), cfg.Server.PollWait, log); err != nil {
		return err
	}
	log.Info("shut down")
	return nil
}
