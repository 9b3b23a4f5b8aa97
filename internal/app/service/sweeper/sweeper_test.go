package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fatflowers/bookrental/pkg/config"
)

type countingSweeper struct {
	calls atomic.Int32
	n     int
	err   error
}

func (c *countingSweeper) SweepExpiredRentals(context.Context) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func (c *countingSweeper) SweepExpired(context.Context) (int, error) {
	c.calls.Add(1)
	return c.n, c.err
}

func newService(r, s *countingSweeper, interval time.Duration) *Service {
	cfg := &config.Config{Sweeper: config.SweeperConfig{Interval: interval}}
	return NewService(r, s, cfg, zap.NewNop().Sugar())
}

func TestRunOnce(t *testing.T) {
	r, s := &countingSweeper{n: 2}, &countingSweeper{n: 1}
	res, err := newService(r, s, 0).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Result{Rentals: 2, Subscriptions: 1}, res)
}

func TestRunOnce_RentalFailureStillSweepsSubscriptions(t *testing.T) {
	boom := errors.New("db down")
	r, s := &countingSweeper{err: boom}, &countingSweeper{n: 3}
	res, err := newService(r, s, 0).RunOnce(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, res.Subscriptions)
	assert.EqualValues(t, 1, s.calls.Load())
}

func TestStart_TicksUntilStopped(t *testing.T) {
	r, s := &countingSweeper{}, &countingSweeper{}
	svc := newService(r, s, 10*time.Millisecond)
	svc.Start(context.Background())

	assert.Eventually(t, func() bool { return r.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	svc.Stop()

	after := r.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, r.calls.Load())
}

func TestStart_DisabledWithZeroInterval(t *testing.T) {
	r, s := &countingSweeper{}, &countingSweeper{}
	svc := newService(r, s, 0)
	svc.Start(context.Background())
	svc.Stop()
	assert.Zero(t, r.calls.Load())
}
