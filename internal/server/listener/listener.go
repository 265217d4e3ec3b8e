// Package listener turns enrollment_created notifications into aggregator
// runs.
package listener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/rechub/internal/logging"
	"github.com/dmitrijs2005/rechub/internal/server/services"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// Channel is the notification channel the enrollments trigger publishes to.
const Channel = "enrollment_created"

// SweepBatch is how many uncounted enrollments are fetched per sweep query.
const SweepBatch = 100

// Conn is the part of *pgx.Conn the listener uses.
type Conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type Applier interface {
	ApplyByID(ctx context.Context, id string) (services.ApplyResult, error)
}

// UncountedFunc lists enrollments missing at least one counter.
type UncountedFunc func(ctx context.Context, limit int) ([]string, error)

// Listener holds a dedicated connection on Channel. On start and after
// every reconnect it sweeps uncounted enrollments so that notifications
// missed while disconnected are still applied.
type Listener struct {
	dsn       string
	connect   func(ctx context.Context, dsn string) (Conn, error)
	applier   Applier
	uncounted UncountedFunc
	log       logging.Logger
	minDelay  time.Duration
	maxDelay  time.Duration
}

func NewListener(dsn string, applier Applier, uncounted UncountedFunc, log logging.Logger) *Listener {
	return &Listener{
		dsn:       dsn,
		connect:   connectPgx,
		applier:   applier,
		uncounted: uncounted,
		log:       log,
		minDelay:  500 * time.Millisecond,
		maxDelay:  30 * time.Second,
	}
}

func connectPgx(ctx context.Context, dsn string) (Conn, error) {
	c, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Run blocks until ctx is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.newBackoff()
	for {
		err := l.session(ctx, func() { backoff = l.newBackoff() })
		if ctx.Err() != nil {
			return nil
		}

		delay, stop := backoff.Next()
		if stop {
			return fmt.Errorf("listener gave up: %w", err)
		}
		l.log.Warn(ctx, "enrollment listener disconnected", "error", err, "retry_in", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}
	}
}

func (l *Listener) newBackoff() retry.Backoff {
	return retry.WithCappedDuration(l.maxDelay, retry.NewExponential(l.minDelay))
}

// session runs one connection until it fails. connected is called once the
// LISTEN is in place.
func (l *Listener) session(ctx context.Context, connected func()) error {
	conn, err := l.connect(ctx, l.dsn)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+Channel); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	connected()
	l.log.Info(ctx, "enrollment listener connected", "channel", Channel)

	if err := l.Sweep(ctx); err != nil {
		l.log.Error(ctx, "enrollment sweep failed", "error", err)
	}

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		if n.Channel != Channel || n.Payload == "" {
			continue
		}
		l.apply(ctx, n.Payload)
	}
}

// Sweep applies every enrollment that is not yet fully counted. It stops
// when a batch makes no progress.
func (l *Listener) Sweep(ctx context.Context) error {
	for {
		ids, err := l.uncounted(ctx, SweepBatch)
		if err != nil {
			return fmt.Errorf("list uncounted: %w", err)
		}
		progress := false
		for _, id := range ids {
			if l.apply(ctx, id) {
				progress = true
			}
		}
		if len(ids) < SweepBatch || !progress {
			return nil
		}
	}
}

func (l *Listener) apply(ctx context.Context, id string) bool {
	res, err := l.applier.ApplyByID(ctx, id)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			l.log.Error(ctx, "aggregating enrollment failed", "enrollment_id", id, "error", err)
		}
		return false
	}
	l.log.Debug(ctx, "enrollment aggregated", "enrollment_id", id,
		"program", res.ProgramApplied, "summary", res.SummaryApplied)
	return true
}
