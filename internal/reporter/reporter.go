// Package reporter drives the per-epoch notification cycle: it checks each
// subscription's cadence against the current epoch and dispatches status
// text or a metric plot through the feed channel.
package reporter

import (
	"context"
	"errors"
	"fmt"

	"trainfeed/internal/compose"
	"trainfeed/internal/feed"
	"trainfeed/internal/monitor"
	"trainfeed/internal/plot"
	"trainfeed/pkg/logx"
)

// Kind selects what a subscription posts.
type Kind string

const (
	KindText Kind = "text"
	KindPlot Kind = "plot"
)

var ErrInvalidSubscription = errors.New("reporter: invalid subscription")

// Subscription asks for one channel to be reported every CadenceEpochs
// epochs. Immutable after construction.
type Subscription struct {
	Channel       string
	CadenceEpochs int
	Kind          Kind
}

func (s Subscription) validate() error {
	if s.Channel == "" {
		return fmt.Errorf("%w: empty channel name", ErrInvalidSubscription)
	}
	if s.CadenceEpochs < 1 {
		return fmt.Errorf("%w: channel %q: cadence %d (must be >= 1)", ErrInvalidSubscription, s.Channel, s.CadenceEpochs)
	}
	if s.Kind != KindText && s.Kind != KindPlot {
		return fmt.Errorf("%w: channel %q: unknown kind %q", ErrInvalidSubscription, s.Channel, s.Kind)
	}
	return nil
}

// SnapshotProvider resolves a channel name to its current snapshot.
type SnapshotProvider func(channel string) (monitor.Snapshot, error)

// PlotProvider renders a channel's series to an encoded image.
type PlotProvider func(channel string) ([]byte, error)

// Poster is the slice of the feed channel the reporter needs. Satisfied by
// *feed.Channel and by the dispatch queue's handle.
type Poster interface {
	PostTextLong(ctx context.Context, msg string) []feed.DeliveryResult
	PostImage(ctx context.Context, image []byte, caption string) feed.DeliveryResult
}

// Reporter holds immutable run configuration; it keeps no state across
// epochs beyond it.
type Reporter struct {
	hostID  string
	jobName string
	subs    []Subscription
	channel Poster
	log     logx.Logger
}

func New(jobName string, subs []Subscription, channel Poster, log logx.Logger) (*Reporter, error) {
	if channel == nil {
		return nil, errors.New("reporter: nil channel")
	}
	for _, s := range subs {
		if err := s.validate(); err != nil {
			return nil, err
		}
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Reporter{
		hostID:  compose.HostID(),
		jobName: jobName,
		subs:    append([]Subscription(nil), subs...),
		channel: channel,
		log:     log,
	}, nil
}

// OnEpochEnd runs one report cycle. Every due subscription is processed in
// configuration order; a failure in one never aborts the rest, and nothing
// here returns an error to the training loop.
//
// Cadence is epoch % cadence == 0, so epoch 0 fires every subscription by
// construction (0 mod n is 0); startup reports are intentional.
func (r *Reporter) OnEpochEnd(ctx context.Context, epoch int, snapshots SnapshotProvider, plots PlotProvider) {
	for _, sub := range r.subs {
		if epoch%sub.CadenceEpochs != 0 {
			continue
		}
		r.report(ctx, epoch, sub, snapshots, plots)
	}
}

func (r *Reporter) report(ctx context.Context, epoch int, sub Subscription, snapshots SnapshotProvider, plots PlotProvider) {
	log := r.log.With(logx.String("channel", sub.Channel), logx.Int("epoch", epoch))

	switch sub.Kind {
	case KindText:
		snap, err := snapshots(sub.Channel)
		if err != nil {
			log.Warn("snapshot unavailable, skipping subscription", logx.Err(err))
			return
		}
		msg := compose.Compose(r.hostID, r.jobName, snap)
		results := r.channel.PostTextLong(ctx, msg)
		for _, res := range results {
			if !res.OK {
				log.Error("status chunk delivery failed",
					logx.Int("http", res.HTTPStatus), logx.String("detail", res.Detail))
			}
		}
		log.Debug("status posted", logx.Int("chunks", len(results)))

	case KindPlot:
		image, err := plots(sub.Channel)
		if err != nil {
			log.Warn("plot render failed, skipping subscription", logx.Err(err))
			return
		}
		if res := r.channel.PostImage(ctx, image, ""); !res.OK {
			log.Error("plot delivery failed",
				logx.Int("http", res.HTTPStatus), logx.String("detail", res.Detail))
			return
		}
		log.Debug("plot posted", logx.Int("bytes", len(image)))
	}
}

// MonitorProviders wires a live monitor and a renderer into the provider
// pair OnEpochEnd consumes.
func MonitorProviders(m *monitor.Monitor, renderer plot.Renderer) (SnapshotProvider, PlotProvider) {
	snapshots := func(channel string) (monitor.Snapshot, error) {
		return m.Snapshot(channel)
	}
	plots := func(channel string) ([]byte, error) {
		pts, err := m.Series(channel)
		if err != nil {
			return nil, err
		}
		series, err := plot.Prepare(channel, pts)
		if err != nil {
			return nil, err
		}
		return renderer.Render(series)
	}
	return snapshots, plots
}
