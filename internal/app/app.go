// Package app wires configuration, credentials, transport, feed channel,
// optional dispatch queue and reporter into one runnable unit.
package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"trainfeed/internal/config"
	"trainfeed/internal/creds"
	"trainfeed/internal/dispatch"
	"trainfeed/internal/feed"
	"trainfeed/internal/monitor"
	"trainfeed/internal/plot"
	"trainfeed/internal/reporter"
	"trainfeed/internal/transport"
	"trainfeed/internal/transport/statusapi"
	"trainfeed/internal/transport/telegram"
	"trainfeed/pkg/logx"
)

type App struct {
	cfg    *config.Config
	mgr    *config.Manager
	logSvc *logx.Service
	log    logx.Logger

	channel *feed.Channel
	disp    *dispatch.Service
	rep     *reporter.Reporter

	mu        sync.Mutex
	watchDone chan struct{}
	cancel    context.CancelFunc
}

// New loads the config and builds the full pipeline. All construction-time
// validation happens here, before any training epoch runs.
func New(cfgPath string) (*App, error) {
	boot := logx.NewConsole("info")
	mgr := config.NewManager(cfgPath, boot)
	cfg, err := mgr.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	tr, err := buildTransport(cfg, log)
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	recipients := make([]transport.Recipient, len(cfg.Recipients))
	for i, r := range cfg.Recipients {
		recipients[i] = transport.Recipient(r)
	}
	channel := feed.NewChannel(tr, recipients, log.With(logx.String("comp", "feed")))

	var poster reporter.Poster = channel
	var disp *dispatch.Service
	if d := cfg.Dispatch; d != nil && d.Enabled {
		sendTimeout, _ := config.ParseDurationField("dispatch.send_timeout", d.SendTimeout)
		retryBase, _ := config.ParseDurationField("dispatch.retry_base", d.RetryBase)
		retryMaxDelay, _ := config.ParseDurationField("dispatch.retry_max_delay", d.RetryMaxDelay)
		disp = dispatch.New(dispatch.Config{
			QueueSize:     d.QueueSize,
			RatePerSec:    d.RatePerSec,
			SendTimeout:   sendTimeout,
			RetryMax:      d.RetryMax,
			RetryBase:     retryBase,
			RetryMaxDelay: retryMaxDelay,
		}, channel, log.With(logx.String("comp", "dispatch")))
		poster = disp.Poster()
	}

	subs := make([]reporter.Subscription, len(cfg.Subscriptions))
	for i, s := range cfg.Subscriptions {
		subs[i] = reporter.Subscription{
			Channel:       s.Channel,
			CadenceEpochs: s.CadenceEpochs,
			Kind:          reporter.Kind(strings.ToLower(strings.TrimSpace(s.Kind))),
		}
	}
	rep, err := reporter.New(cfg.Job.Name, subs, poster, log.With(logx.String("comp", "reporter")))
	if err != nil {
		_ = logSvc.Close()
		return nil, err
	}

	return &App{
		cfg:     cfg,
		mgr:     mgr,
		logSvc:  logSvc,
		log:     log,
		channel: channel,
		disp:    disp,
		rep:     rep,
	}, nil
}

func buildTransport(cfg *config.Config, log logx.Logger) (transport.Transport, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Transport.Driver))
	if driver == "dryrun" {
		return &transport.DryRun{Log: log.With(logx.String("comp", "transport"))}, nil
	}

	cr, err := creds.FileStore{Path: cfg.Transport.CredentialsFile}.Load()
	if err != nil {
		return nil, err
	}
	timeout, _ := config.ParseDurationField("transport.timeout", cfg.Transport.Timeout)

	switch driver {
	case "statusapi":
		return statusapi.New(statusapi.Config{
			Timeout:    timeout,
			RatePerSec: cfg.Transport.RatePerSec,
		}, cr, log.With(logx.String("comp", "statusapi")))
	case "telegram":
		return telegram.New(telegram.Config{}, cr, log.With(logx.String("comp", "telegram")))
	default:
		return nil, fmt.Errorf("unknown transport driver %q", driver)
	}
}

// Start launches the dispatch worker and the config watcher.
func (a *App) Start(ctx context.Context) {
	wctx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancel = cancel
	a.watchDone = make(chan struct{})
	done := a.watchDone
	a.mu.Unlock()

	if a.disp != nil {
		a.disp.Start(wctx)
	}

	// Config watch: the only hot-applied section is logging.
	sub := a.mgr.Subscribe(1)
	go func() {
		defer close(done)
		go func() {
			if err := a.mgr.Watch(wctx); err != nil {
				a.log.Warn("config watch stopped", logx.Err(err))
			}
		}()
		for {
			select {
			case <-wctx.Done():
				a.mgr.Unsubscribe(sub)
				return
			case cfg, ok := <-sub:
				if !ok {
					return
				}
				a.logSvc.Apply(logx.Config{
					Level:   cfg.Logging.Level,
					Console: cfg.Logging.Console,
					File: logx.FileConfig{
						Enabled: cfg.Logging.File.Enabled,
						Path:    cfg.Logging.File.Path,
					},
				})
				a.log.Info("logging config applied", logx.String("level", cfg.Logging.Level))
			}
		}
	}()
}

// Stop drains the dispatch queue and shuts the watcher down.
func (a *App) Stop(ctx context.Context) {
	if a.disp != nil {
		a.disp.Stop(ctx)
	}

	a.mu.Lock()
	cancel := a.cancel
	done := a.watchDone
	a.cancel = nil
	a.watchDone = nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
		}
	}
	_ = a.logSvc.Close()
}

// Reporter exposes the configured reporter for callers embedding trainfeed
// into their own training loop.
func (a *App) Reporter() *reporter.Reporter { return a.rep }

// Replay feeds a recorded metric log through the reporter epoch by epoch,
// exactly as a live training run would have.
func (a *App) Replay(ctx context.Context, logPath string) error {
	f, err := os.Open(logPath)
	if err != nil {
		return fmt.Errorf("open metric log: %w", err)
	}
	entries, err := monitor.ReadLog(f)
	_ = f.Close()
	if err != nil {
		return err
	}

	m := monitor.New()
	snapshots, plots := reporter.MonitorProviders(m, plot.PNGRenderer{})

	current := -1
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if current >= 0 && e.Epoch != current {
			a.rep.OnEpochEnd(ctx, current, snapshots, plots)
		}
		m.Append(e.Channel, e.Epoch, e.Seconds, e.Value)
		current = e.Epoch
	}
	if current >= 0 {
		a.rep.OnEpochEnd(ctx, current, snapshots, plots)
	}

	a.log.Info("replay finished", logx.Int("entries", len(entries)))
	return nil
}
