package notifications

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"moversync/internal/config"
	"moversync/internal/exclusions"
	"moversync/internal/logging"
	"moversync/internal/moverlogs"
)

// Observer turns operation outcomes into alerts. It publishes only when the
// build or a manager changes between healthy and failing.
type Observer struct {
	svc           Service
	logger        *slog.Logger
	timeout       time.Duration
	notifyPartial bool

	mu           sync.Mutex
	buildFailing bool
	partial      string
	managerDown  map[string]bool
}

// NewObserver wraps svc. A nil logger discards publish failures.
func NewObserver(cfg *config.Config, svc Service, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Observer{
		svc:           svc,
		logger:        logging.NewComponentLogger(logger, "notifications"),
		timeout:       cfg.Notifications.Timeout(),
		notifyPartial: cfg.Notifications.NotifyPartial,
		managerDown:   make(map[string]bool),
	}
}

func (o *Observer) BuildFinished(result exclusions.Result, err error) {
	if errors.Is(err, exclusions.ErrBuildInProgress) {
		return
	}

	o.mu.Lock()
	var event Event
	var payload Payload
	switch {
	case err != nil:
		if !o.buildFailing {
			event, payload = EventBuildFailed, Payload{"error": err.Error()}
		}
		o.buildFailing = true
	case o.buildFailing:
		o.buildFailing = false
		event, payload = EventBuildRecovered, Payload{"total": result.TotalWritten}
	}
	if err == nil {
		sources := failedSources(result.SourceErrors)
		if event == "" && o.notifyPartial && sources != "" && sources != o.partial {
			event, payload = EventBuildPartial, Payload{"total": result.TotalWritten, "sources": sources}
		}
		o.partial = sources
	}
	o.mu.Unlock()

	if event != "" {
		o.publish(event, payload)
	}
}

func (o *Observer) ConnectionChecked(manager string, ok bool) {
	o.mu.Lock()
	wasDown := o.managerDown[manager]
	o.managerDown[manager] = !ok
	o.mu.Unlock()

	switch {
	case !ok && !wasDown:
		o.publish(EventManagerUnreachable, Payload{"manager": manager})
	case ok && wasDown:
		o.publish(EventManagerRestored, Payload{"manager": manager})
	}
}

func (o *Observer) SyncFinished(time.Time)              {}
func (o *Observer) MoverStatsParsed(moverlogs.Stats)    {}
func (o *Observer) ExclusionSummary(exclusions.Summary) {}

func (o *Observer) publish(event Event, payload Payload) {
	if o.svc == nil || !o.svc.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.svc.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(o.logger, "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
		)
		return
	}
	o.logger.Debug("notification sent", logging.String("event", string(event)))
}

func failedSources(errs []exclusions.SourceError) string {
	names := make([]string, 0, len(errs))
	for _, se := range errs {
		names = append(names, string(se.Source))
	}
	slices.Sort(names)
	return strings.Join(slices.Compact(names), ", ")
}
