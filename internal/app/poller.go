package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/pybill/pbdash/internal/query"
	"github.com/pybill/pbdash/internal/state"
)

const (
	defaultPollInterval = 30 * time.Second
	maxBackoff          = 30 * time.Second
)

var errNoSuccessField = errors.New("stock list response had no success field")

// StartPoller launches a background goroutine that refreshes the stock list.
// Consecutive failures stretch the wait with exponential backoff. It returns
// immediately.
func StartPoller(ctx context.Context, store *state.Store, facade *query.Facade, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	go func() {
		failures := 0
		for {
			if err := refresh(ctx, store, facade); err != nil {
				if ctx.Err() != nil {
					return
				}
				failures++
				logger.Warn("stock list poll failed", zap.Int("failures", failures), zap.Error(err))
			} else {
				failures = 0
			}

			timer := time.NewTimer(calculateBackoff(failures, interval))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
		}
	}()
}

// refresh fetches the stock list and waits for its continuation to run.
func refresh(ctx context.Context, store *state.Store, facade *query.Facade) error {
	pending := facade.ListStocks(ctx, func(items []query.StockItem) {
		store.UpdateStocks(items, nil)
	})
	out, err := pending.Wait(ctx)
	if err != nil {
		return err
	}
	switch {
	case out.Err != nil:
		store.UpdateStocks(nil, out.Err)
		return out.Err
	case out.Ignored:
		store.UpdateStocks(nil, errNoSuccessField)
		return errNoSuccessField
	}
	return nil
}

// calculateBackoff doubles base per consecutive failure, capped at maxBackoff.
// The cap only applies once failures start, so a long base interval is kept
// as is while healthy.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}
