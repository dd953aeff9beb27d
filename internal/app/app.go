package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pybill/pbdash/internal/config"
	"github.com/pybill/pbdash/internal/dispatch"
	"github.com/pybill/pbdash/internal/envelope"
	"github.com/pybill/pbdash/internal/export"
	"github.com/pybill/pbdash/internal/gate"
	"github.com/pybill/pbdash/internal/logging"
	"github.com/pybill/pbdash/internal/notify"
	"github.com/pybill/pbdash/internal/prefs"
	"github.com/pybill/pbdash/internal/query"
	"github.com/pybill/pbdash/internal/state"
	"github.com/pybill/pbdash/internal/ui"
)

// Options configure the pbdash application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/pbdash/prefs.toml
	PollEvery  int    // seconds; zero uses default
}

// Run boots the pbdash TUI until the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.Setup(cfg.Log)
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting pbdash", zap.String("api_url", cfg.APIURL))

	notifier := notify.NewController(
		notify.WithDuration(cfg.NotifyDuration()),
		notify.WithLogger(logger.Named("notify")),
	)
	defer notifier.Clear()

	dispatcher, err := dispatch.New(notifier, dispatch.Options{
		BaseURL:   cfg.APIURL,
		Timeout:   cfg.RequestTimeout(),
		Codec:     envelope.NewCodec(cfg.Notify.ErrorField),
		RateLimit: cfg.RateLimit,
		Logger:    logger.Named("dispatch"),
	})
	if err != nil {
		return fmt.Errorf("init dispatcher: %w", err)
	}
	facade := query.New(dispatcher, logger.Named("query"))

	userPrefs := prefs.Load(opts.PrefsPath)
	session := gate.NewSessionStore(cfg.Session.Dir)
	dashboard := session.Load(cfg.DashboardInterval())

	store := &state.Store{}

	interval := defaultPollInterval
	if opts.PollEvery > 0 {
		interval = time.Duration(opts.PollEvery) * time.Second
	}

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()
	StartPoller(pollCtx, store, facade, interval, logger.Named("poller"))

	err = ui.Run(ui.Options{
		Context:    ctx,
		Dispatcher: dispatcher,
		Facade:     facade,
		Notifier:   notifier,
		Store:      store,
		Config:     &cfg,
		Exporter:   export.Exporter{Dir: cfg.Export.Dir},
		Gate:       dashboard,
		Session:    session,
		Prefs:      userPrefs,
		PrefsPath:  opts.PrefsPath,
		Logger:     logger.Named("ui"),
	})

	stopPolling()
	dispatcher.Drain()
	return err
}
