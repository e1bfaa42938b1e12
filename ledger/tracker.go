package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/flowdapp/profile-dapp/pkg/logger"
)

const (
	defaultTickInterval  = time.Second
	defaultFetchAttempts = 5
)

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithTickInterval sets the interval between result polls.
func WithTickInterval(interval time.Duration) TrackerOption {
	return func(t *Tracker) {
		t.tick = interval
	}
}

// WithFetchAttempts sets how many consecutive failed polls end the tracking with an error.
func WithFetchAttempts(attempts uint) TrackerOption {
	return func(t *Tracker) {
		t.attempts = attempts
	}
}

// WithTrackerLogger sets the logger.
func WithTrackerLogger(lggr logger.Logger) TrackerOption {
	return func(t *Tracker) {
		t.lggr = lggr
	}
}

// Tracker follows the lifecycle of submitted transactions by polling their results.
type Tracker struct {
	fetcher  ResultFetcher
	tick     time.Duration
	attempts uint
	lggr     logger.Logger
}

// NewTracker returns a Tracker polling fetcher.
func NewTracker(fetcher ResultFetcher, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		fetcher:  fetcher,
		tick:     defaultTickInterval,
		attempts: defaultFetchAttempts,
		lggr:     logger.Nop(),
	}
	for _, o := range opts {
		o(t)
	}

	return t
}

// OnceSealed blocks until the transaction is sealed or expired. A reverted or expired
// transaction, or a failure to follow it, is returned as a *TransactionError along with the
// last known result.
func (t *Tracker) OnceSealed(ctx context.Context, id TransactionID) (TransactionResult, error) {
	res, err := t.watch(ctx, id, nil)
	if err != nil {
		return res, &TransactionError{ID: id, Err: fmt.Errorf("failed to wait for seal: %w", err)}
	}

	return res, ResultError(res)
}

// ResultError converts a final result into a *TransactionError, or nil when it succeeded.
func ResultError(res TransactionResult) error {
	switch {
	case res.Status == StatusExpired:
		return &TransactionError{ID: res.ID, Err: ErrTransactionExpired}
	case res.Failed():
		return &TransactionError{ID: res.ID, Err: fmt.Errorf("%w: %s", ErrTransactionReverted, res.ErrorMessage)}
	default:
		return nil
	}
}

// Subscribe follows the transaction in the background and calls fn once for every status
// advance, in lifecycle order, until the status is final, fetching fails or the subscription
// is stopped. fn is called from a single goroutine.
func (t *Tracker) Subscribe(ctx context.Context, id TransactionID, fn func(TransactionResult)) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{
		id:     id,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()

		res, err := t.watch(ctx, id, fn)

		s.mu.Lock()
		defer s.mu.Unlock()
		s.result = res
		if err != nil && !(s.stopped && errors.Is(err, context.Canceled)) {
			s.err = err
		}
	}()

	return s
}

// watch polls the result until it is final, calling fn on every advance.
func (t *Tracker) watch(ctx context.Context, id TransactionID, fn func(TransactionResult)) (TransactionResult, error) {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	var (
		last   = StatusUnknown
		latest TransactionResult
	)
	for {
		res, err := t.fetch(ctx, id)
		if err != nil {
			return latest, err
		}

		if last.Advances(res.Status) {
			t.lggr.Debugw("Transaction status changed", "id", id, "from", last, "to", res.Status)
			last = res.Status
			latest = res
			if fn != nil {
				fn(res)
			}
		}
		if last.IsFinal() {
			return latest, nil
		}

		select {
		case <-ctx.Done():
			return latest, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (t *Tracker) fetch(ctx context.Context, id TransactionID) (TransactionResult, error) {
	return retry.DoWithData(func() (TransactionResult, error) {
		return t.fetcher.TransactionResult(ctx, id)
	},
		retry.Context(ctx),
		retry.Attempts(t.attempts),
		retry.Delay(t.tick),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			t.lggr.Debugw("Retrying transaction result", "id", id, "attempt", attempt+1, "err", err)
		}),
	)
}

// Subscription is a background status subscription started by Tracker.Subscribe.
type Subscription struct {
	id     TransactionID
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	stopped bool
	result  TransactionResult
	err     error
}

// TransactionID returns the followed transaction.
func (s *Subscription) TransactionID() TransactionID { return s.id }

// Stop ends the subscription and waits for the polling goroutine to exit. fn is not called
// after Stop returns.
func (s *Subscription) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.cancel()
	<-s.done
}

// Done is closed when the subscription has ended.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns why the subscription ended early. It is nil while running, after reaching a
// final status and after Stop.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.err
}

// Result returns the last result delivered to fn.
func (s *Subscription) Result() TransactionResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.result
}
