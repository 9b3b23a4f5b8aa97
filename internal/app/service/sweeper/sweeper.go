// Package sweeper periodically expires rentals and subscriptions whose end
// has passed.
package sweeper

import (
	"context"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/internal/app/service/rental"
	"github.com/fatflowers/bookrental/internal/app/service/subscription"
	"github.com/fatflowers/bookrental/pkg/config"
)

type RentalSweeper interface {
	SweepExpiredRentals(ctx context.Context) (int, error)
}

type SubscriptionSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// Result is the outcome of one sweep run.
type Result struct {
	Rentals       int `json:"rentals"`
	Subscriptions int `json:"subscriptions"`
}

type Service struct {
	rentals  RentalSweeper
	subs     SubscriptionSweeper
	interval time.Duration
	log      *zap.SugaredLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(rentals RentalSweeper, subs SubscriptionSweeper, cfg *config.Config, log *zap.SugaredLogger) *Service {
	return &Service{rentals: rentals, subs: subs, interval: cfg.Sweeper.Interval, log: log}
}

// RunOnce sweeps rentals and then subscriptions. A rental failure does not
// stop the subscription sweep; the first error is returned.
func (s *Service) RunOnce(ctx context.Context) (*Result, error) {
	res := &Result{}
	var firstErr error

	n, err := s.rentals.SweepExpiredRentals(ctx)
	if err != nil {
		s.log.Errorw("rental_sweep_failed", "error", err.Error())
		firstErr = err
	}
	res.Rentals = n

	n, err = s.subs.SweepExpired(ctx)
	if err != nil {
		s.log.Errorw("subscription_sweep_failed", "error", err.Error())
		if firstErr == nil {
			firstErr = err
		}
	}
	res.Subscriptions = n

	s.log.Infow("sweep_finished", "rentals", res.Rentals, "subscriptions", res.Subscriptions)
	return res, firstErr
}

// Start runs a sweep now and then every interval until Stop. An interval of
// zero disables the loop.
func (s *Service) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.log.Infow("sweeper disabled")
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_, _ = s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_, _ = s.RunOnce(ctx)
			}
		}
	}()
	s.log.Infow("sweeper started", "interval", s.interval)
}

func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

func register(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			// the start context is cancelled once startup completes
			s.Start(context.Background())
			return nil
		},
		OnStop: func(context.Context) error {
			s.Stop()
			return nil
		},
	})
}

var Module = fx.Options(
	fx.Provide(
		func(r *rental.Service) RentalSweeper { return r },
		func(s *subscription.Service) SubscriptionSweeper { return s },
	),
	fx.Provide(NewService),
	fx.Invoke(register),
)
