package transport

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Handler consumes one inbound event.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// LoopOptions groups dependencies for Loop.
type LoopOptions struct {
	Source  Source       // Required: inbound event source
	Handler Handler      // Required: event dispatcher, usually a Router
	Logger  *slog.Logger // Optional: structured logger

	// Concurrency caps how many events are handled at once. Events for
	// the same user still serialize inside the services. Defaults to 8.
	Concurrency int
}

// Loop pulls batches of events from a Source and fans them out to the
// Handler until the context is cancelled.
type Loop struct {
	source      Source
	handler     Handler
	logger      *slog.Logger
	concurrency int
}

// NewLoop constructs a new Loop.
func NewLoop(opts LoopOptions) (*Loop, error) {
	if opts.Source == nil {
		return nil, errors.New("Source is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("Handler is required")
	}

	concurrency := opts.Concurrency
	if concurrency < 1 {
		concurrency = 8
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Loop{
		source:      opts.Source,
		handler:     opts.Handler,
		logger:      logger.With("component", "transport_loop"),
		concurrency: concurrency,
	}, nil
}

// Run consumes events until ctx is cancelled. Source errors are logged and
// the loop keeps pulling; handler errors are logged per event.
func (l *Loop) Run(ctx context.Context) error {
	l.logger.InfoContext(ctx, "transport loop starting", "concurrency", l.concurrency)

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(l.concurrency)

	for {
		select {
		case <-ctx.Done():
			if err := group.Wait(); err != nil && !isContextCancellation(err) {
				l.logger.Error("event handling failed during shutdown", "error", err)
			}
			l.logger.Info("transport loop stopped")
			return nil
		default:
		}

		events, err := l.source.Next(ctx)
		if err != nil {
			if isContextCancellation(err) {
				continue
			}
			l.logger.ErrorContext(ctx, "fetching events failed", "error", err)
			continue
		}

		for _, ev := range events {
			ev := ev
			group.Go(func() error {
				if err := l.handler.Handle(groupCtx, ev); err != nil && !isContextCancellation(err) {
					l.logger.ErrorContext(groupCtx, "event handling failed",
						"user_id", ev.UserID,
						"kind", ev.Kind,
						"error", err,
					)
				}
				return nil
			})
		}
	}
}

func isContextCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
