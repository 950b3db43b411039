// Package notify runs the notification batch: for every subscriber it fetches
// the forecast for their location, looks for the first point matching their
// condition and emails them about it.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/i474232898/weather-alerts/internal/mail"
	"github.com/i474232898/weather-alerts/internal/observability"
	"github.com/i474232898/weather-alerts/internal/subscription"
	"github.com/i474232898/weather-alerts/internal/weather"
)

// ErrMissingCoordinates marks a subscriber skipped for lack of a location.
var ErrMissingCoordinates = errors.New("subscriber has no coordinates")

// Lister is the part of the subscriber store the batch reads from.
type Lister interface {
	ListAll(ctx context.Context) ([]subscription.Subscriber, error)
}

// Notifier runs notification batches. Runs never overlap; a run started
// while another is active returns immediately.
type Notifier struct {
	subscribers Lister
	forecasts   weather.ForecastProvider
	sender      mail.Sender

	location *time.Location
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *slog.Logger

	running sync.Mutex
}

// Option customizes a Notifier.
type Option func(*Notifier)

// WithLocation sets the zone forecast times are rendered in. Defaults to time.Local.
func WithLocation(loc *time.Location) Option {
	return func(n *Notifier) { n.location = loc }
}

// WithClock overrides the time source.
func WithClock(c clockwork.Clock) Option {
	return func(n *Notifier) { n.clock = c }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(n *Notifier) { n.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(n *Notifier) { n.logger = l }
}

// NewNotifier creates a new Notifier.
func NewNotifier(subscribers Lister, forecasts weather.ForecastProvider, sender mail.Sender, opts ...Option) *Notifier {
	n := &Notifier{
		subscribers: subscribers,
		forecasts:   forecasts,
		sender:      sender,
		location:    time.Local,
		clock:       clockwork.NewRealClock(),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

type fetchResult struct {
	series weather.ForecastSeries
	err    error
}

// Run processes every subscriber once, sequentially, in the store's listing
// order. Per-subscriber failures are recorded in the summary and never stop
// the batch; only a failure to list subscribers does.
func (n *Notifier) Run(ctx context.Context) Result {
	if !n.running.TryLock() {
		return Result{Success: false, Message: MsgRunInProgress}
	}
	defer n.running.Unlock()

	started := n.clock.Now()
	runID := uuid.NewString()
	logger := n.logger.With("run_id", runID)

	subs, err := n.subscribers.ListAll(ctx)
	if err != nil {
		logger.Error("listing subscribers failed", "error", err)
		n.observeRun("store_error", started)
		return Result{Success: false, Message: MsgStoreFailure}
	}
	if len(subs) == 0 {
		logger.Info("no subscribers, nothing to notify")
		n.observeRun("no_subscribers", started)
		return Result{Success: false, Message: MsgNoSubscribers}
	}

	summary := &Summary{
		RunID:     runID,
		StartedAt: started,
		Total:     len(subs),
		Results:   make([]SubscriberResult, 0, len(subs)),
	}

	// Subscribers sharing a location share one fetch per run.
	fetched := make(map[string]fetchResult)

	for _, sub := range subs {
		res := n.process(ctx, logger, sub, fetched)
		summary.add(res)
		if n.metrics != nil {
			n.metrics.SubscriberOutcomes.WithLabelValues(string(res.Outcome)).Inc()
		}
	}

	summary.FinishedAt = n.clock.Now()
	n.observeRun("success", started)

	logger.Info("notification run finished",
		"total", summary.Total,
		"sent", summary.Sent,
		"unmatched", summary.Unmatched,
		"skipped", summary.Skipped,
		"fetch_failed", summary.FetchFailed,
		"send_failed", summary.SendFailed,
		"duration", summary.FinishedAt.Sub(started),
	)

	return Result{Success: true, Message: MsgProcessed, Summary: summary}
}

func (n *Notifier) process(ctx context.Context, logger *slog.Logger, sub subscription.Subscriber, fetched map[string]fetchResult) SubscriberResult {
	res := SubscriberResult{Email: sub.Email}
	logger = logger.With("email", sub.Email)

	coords, ok := sub.Coordinates()
	if !ok {
		logger.Warn("subscriber skipped", "outcome", OutcomeSkipped, "error", ErrMissingCoordinates)
		return res.fail(OutcomeSkipped, ErrMissingCoordinates)
	}

	fr, ok := fetched[coords.Key()]
	if !ok {
		fr = n.fetch(ctx, coords)
		fetched[coords.Key()] = fr
	}
	if fr.err != nil {
		logger.Warn("forecast fetch failed", "outcome", OutcomeFetchFailed, "location", coords.Key(), "error", fr.err)
		return res.fail(OutcomeFetchFailed, fr.err)
	}

	match, ok := weather.FirstMatch(fr.series.Points, sub.WeatherCondition)
	if !ok {
		logger.Debug("no matching forecast", "outcome", OutcomeUnmatched, "weather", sub.WeatherCondition)
		res.Outcome = OutcomeUnmatched
		return res
	}
	res.Match = &match

	msg := BuildMessage(sub, match, fr.series.City, n.location)
	if err := n.sender.Send(ctx, msg); err != nil {
		if errors.Is(err, mail.ErrDisabled) {
			logger.Warn("alert not sent, mail is disabled", "outcome", OutcomeSkipped)
			return res.fail(OutcomeSkipped, err)
		}
		logger.Error("sending alert failed", "outcome", OutcomeSendFailed, "error", err)
		return res.fail(OutcomeSendFailed, err)
	}

	logger.Info("alert sent", "outcome", OutcomeSent, "weather", sub.WeatherCondition, "forecast_time", match.Timestamp)
	res.Outcome = OutcomeSent
	return res
}

func (n *Notifier) fetch(ctx context.Context, coords weather.Coordinates) fetchResult {
	start := n.clock.Now()
	series, err := n.forecasts.FetchForecast(ctx, coords)

	if n.metrics != nil {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		n.metrics.UpstreamFetches.WithLabelValues(n.forecasts.Name(), outcome).Inc()
		n.metrics.UpstreamFetchDur.WithLabelValues(n.forecasts.Name()).Observe(n.clock.Since(start).Seconds())
	}
	return fetchResult{series: series, err: err}
}

func (n *Notifier) observeRun(result string, started time.Time) {
	if n.metrics == nil {
		return
	}
	n.metrics.NotifyRuns.WithLabelValues(result).Inc()
	n.metrics.NotifyRunDuration.Observe(n.clock.Since(started).Seconds())
}

func (r SubscriberResult) fail(outcome Outcome, err error) SubscriberResult {
	r.Outcome = outcome
	r.Err = err
	r.Error = err.Error()
	return r
}
