// Package application contains use-case orchestration services.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/ericfisherdev/bountybot/internal/domain/model"
	"github.com/ericfisherdev/bountybot/internal/domain/port/driven"
)

// EventKind is a webhook event name joined with its action, e.g. "issues.closed".
type EventKind string

const (
	EventIssuesLabeled   EventKind = "issues.labeled"
	EventIssuesUnlabeled EventKind = "issues.unlabeled"
	EventIssuesClosed    EventKind = "issues.closed"
)

// EventContext carries everything a handler needs about one event. Settings
// is filled by the dispatcher before any handler runs.
type EventContext struct {
	DeliveryID string
	Kind       EventKind
	Repo       string
	Issue      model.Issue
	Sender     model.User
	Settings   model.BotSettings
}

// HandlerFunc processes one event. A non-empty message is shown to the
// user; an error is reported without stopping the remaining handlers.
type HandlerFunc func(ctx context.Context, ev *EventContext) (string, error)

// Handler lists the functions run for an event kind, stage by stage.
// Comment posts the joined messages back on the issue as one comment.
type Handler struct {
	Pre     []HandlerFunc
	Action  []HandlerFunc
	Post    []HandlerFunc
	Comment bool
}

// Outcome is the result of dispatching one event. Message is never empty.
type Outcome struct {
	Kind      EventKind
	Message   string
	Commented bool
	Failures  int
}

// SettingsLoader resolves the effective settings for a repository.
type SettingsLoader interface {
	Load(ctx context.Context, repoFullName string) (model.BotSettings, error)
}

// NewHandlerTable wires the services to the event kinds they handle.
func NewHandlerTable(pricing *PricingService, payout *PayoutService) map[EventKind]Handler {
	return map[EventKind]Handler{
		EventIssuesLabeled:   {Action: []HandlerFunc{pricing.Apply}},
		EventIssuesUnlabeled: {Action: []HandlerFunc{pricing.Apply}},
		EventIssuesClosed: {
			Action:  []HandlerFunc{payout.HandleIssueClosed},
			Post:    []HandlerFunc{payout.HandleIncentives},
			Comment: true,
		},
	}
}

// Dispatcher routes events to their handlers. Events run concurrently up
// to a fixed limit; handlers within one event run sequentially.
type Dispatcher struct {
	handlers map[EventKind]Handler
	settings SettingsLoader
	writer   driven.IssueWriter
	recorder driven.Recorder
	sem      *semaphore.Weighted
	stopping context.Context
	stop     context.CancelFunc
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. maxConcurrent below 1 is treated as 1.
func NewDispatcher(
	handlers map[EventKind]Handler,
	settings SettingsLoader,
	writer driven.IssueWriter,
	recorder driven.Recorder,
	maxConcurrent int64,
	logger *slog.Logger,
) *Dispatcher {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	stopping, stop := context.WithCancel(context.Background())
	return &Dispatcher{
		stopping: stopping,
		stop:     stop,
		handlers: handlers,
		settings: settings,
		writer:   writer,
		recorder: recorder,
		sem:      semaphore.NewWeighted(maxConcurrent),
		logger:   orDefault(logger),
	}
}

// Dispatch runs the pre, action and post handlers for ev in order.
func (d *Dispatcher) Dispatch(ctx context.Context, ev *EventContext) (Outcome, error) {
	out := Outcome{Kind: ev.Kind}

	handler, ok := d.handlers[ev.Kind]
	if !ok {
		out.Message = fmt.Sprintf("Ignored event %q.", ev.Kind)
		d.recorder.EventHandled(string(ev.Kind), "ignored")
		return out, nil
	}

	if err := d.acquire(ctx); err != nil {
		out.Message = "Event dropped: the bot is shutting down."
		d.recorder.EventHandled(string(ev.Kind), "dropped")
		return out, fmt.Errorf("acquire dispatch slot: %w", err)
	}
	defer d.sem.Release(1)

	log := d.logger.With("delivery", ev.DeliveryID, "kind", ev.Kind, "repo", ev.Repo, "issue", ev.Issue.Number)

	settings, err := d.settings.Load(ctx, ev.Repo)
	if err != nil {
		log.Error("load settings", "error", err)
		out.Message = "Could not load bot settings for this repository."
		d.recorder.EventHandled(string(ev.Kind), "error")
		return out, fmt.Errorf("load settings for %s: %w", ev.Repo, err)
	}
	ev.Settings = settings

	var messages []string
	stages := []struct {
		name  string
		funcs []HandlerFunc
	}{
		{"pre", handler.Pre},
		{"action", handler.Action},
		{"post", handler.Post},
	}
	for _, stage := range stages {
		for i, fn := range stage.funcs {
			msg, err := fn(ctx, ev)
			if err != nil {
				out.Failures++
				log.Error("handler failed", "stage", stage.name, "index", i, "error", err)
				msg = fmt.Sprintf("Error: %v", err)
			}
			if strings.TrimSpace(msg) != "" {
				messages = append(messages, msg)
			}
		}
	}

	out.Message = strings.Join(messages, "\n\n")
	if out.Message == "" {
		out.Message = "Nothing to do."
	}

	result := "ok"
	if out.Failures > 0 {
		result = "error"
	}
	d.recorder.EventHandled(string(ev.Kind), result)

	if handler.Comment && len(messages) > 0 {
		if err := d.writer.CreateComment(ctx, ev.Repo, ev.Issue.Number, out.Message); err != nil {
			log.Error("post comment", "error", err)
			return out, fmt.Errorf("post comment on %s#%d: %w", ev.Repo, ev.Issue.Number, err)
		}
		out.Commented = true
	}

	log.Info("event dispatched", "failures", out.Failures, "commented", out.Commented)
	return out, nil
}

// Close makes events still waiting for a slot give up. Events that already
// hold a slot run to completion.
func (d *Dispatcher) Close() {
	d.stop()
}

// acquire waits for a slot until ctx is done or the dispatcher is closed.
func (d *Dispatcher) acquire(ctx context.Context) error {
	if d.stopping.Err() != nil {
		return context.Canceled
	}
	waitCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopWaiting := context.AfterFunc(d.stopping, cancel)
	defer stopWaiting()

	return d.sem.Acquire(waitCtx, 1)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
