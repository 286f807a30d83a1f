package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lanify/monitor/internal/app"
	"github.com/lanify/monitor/internal/channel"
	"github.com/lanify/monitor/internal/config"
	"github.com/lanify/monitor/internal/lifecycle"
	"github.com/lanify/monitor/internal/logging"
	"github.com/lanify/monitor/internal/toast"
)

var version = "dev"

// closeTimeout bounds how long exit waits for the alert channel to close.
const closeTimeout = 3 * time.Second

type options struct {
	configPath string
	endpoint   string
	token      string
	transports []string
	debug      bool
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "lanify",
		Short: "Real-time lane departure monitoring",
		Long: `lanify shows lane departure alerts from a lanify feed server.

The monitoring view holds one connection to the feed for as long as it is
open and shows every alert as a short notification.`,
		Version:      version,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(opts)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "lanify.yaml", "config file path")
	flags.StringVar(&opts.endpoint, "endpoint", "", "feed server URL (overrides client.endpoint)")
	flags.StringVar(&opts.token, "token", "", "feed server auth token")
	flags.StringSliceVar(&opts.transports, "transport", nil, "transport preference, e.g. websocket,polling")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newWatchCmd(opts),
		newAlertsCmd(opts),
		newReportCmd(opts),
		newSendCmd(opts),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Log alerts to stderr without the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts)
		},
	}
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.endpoint != "" {
		cfg.Client.Endpoint = opts.endpoint
	}
	if opts.token != "" {
		cfg.Client.Token = opts.token
	}
	if len(opts.transports) > 0 {
		cfg.Client.Transports = opts.transports
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func channelFactory(cfg config.ClientConfig, log logrus.FieldLogger) lifecycle.Factory {
	opts := channel.OptionsFromConfig(cfg)
	return func() lifecycle.Channel {
		return channel.New(cfg.Endpoint, opts, log.WithField("component", "channel"))
	}
}

func runTUI(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	// stdout belongs to the alt screen.
	if cfg.Log.File == "" {
		cfg.Log.File = logging.DefaultFile()
	}
	log, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()
	log.WithField("version", version).Info("lanify starting")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	presenter := toast.NewProgramPresenter()
	var p *tea.Program
	binder := lifecycle.NewBinder(
		channelFactory(cfg.Client, log),
		presenter,
		app.Observer(func(msg tea.Msg) { p.Send(msg) }),
		log.WithField("component", "lifecycle"),
	)

	p = tea.NewProgram(app.New(ctx, binder, cfg.Client), tea.WithAltScreen())
	presenter.Attach(p)
	defer presenter.Detach()

	final, err := p.Run()
	if m, ok := final.(app.Model); ok {
		// Quitting from monitoring already released the token.
		binder.Deactivate(m.Token())
		tok := m.Token()
		if tok == nil {
			tok = m.Released()
		}
		if tok != nil {
			select {
			case <-tok.Closed():
			case <-time.After(closeTimeout):
				log.Warn("alert channel did not close in time")
			}
		}
	}
	log.WithFields(logrus.Fields{
		"shown":   presenter.Sent(),
		"dropped": presenter.Dropped(),
	}).Info("lanify exiting")
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}

func runWatch(opts *options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	log, closer := logging.New(cfg.Log, os.Stderr)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	binder := lifecycle.NewBinder(
		channelFactory(cfg.Client, log),
		toast.NewLogPresenter(log),
		nil,
		log.WithField("component", "lifecycle"),
	)

	tok := binder.Activate(ctx)
	log.WithField("endpoint", cfg.Client.Endpoint).Info("watching for lane departures")

	dormant := make(chan struct{})
	if c, ok := tok.Channel().(*channel.Client); ok {
		go func() {
			<-c.Done()
			close(dormant)
		}()
	}

	select {
	case <-ctx.Done():
	case <-dormant:
		log.Warn("alert feed unreachable, giving up")
	}
	binder.Deactivate(tok)
	<-tok.Closed()

	if ctx.Err() == nil {
		return fmt.Errorf("could not reach %s", cfg.Client.Endpoint)
	}
	return nil
}
