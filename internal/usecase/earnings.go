package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ThetaHarvest/internal/domain/repository"
	"ThetaHarvest/pkg/cache"
	"ThetaHarvest/pkg/logger"
	"ThetaHarvest/pkg/util"
)

// ErrRefreshQuotaExhausted is returned when the daily earnings refresh
// allowance is used up.
var ErrRefreshQuotaExhausted = errors.New("earnings refresh quota exhausted for today")

// EarningsRefresher guards manual earnings-cache refreshes behind a small
// daily quota, since every refresh costs a full round of calendar lookups on
// the next scan.
type EarningsRefresher struct {
	store  repository.Store
	cache  cache.Service
	log    *logger.Logger
	perDay int
	tz     *time.Location
	now    func() time.Time
}

func NewEarningsRefresher(store repository.Store, cacheSvc cache.Service, log *logger.Logger, perDay int, tz *time.Location) *EarningsRefresher {
	if perDay <= 0 {
		perDay = 3
	}
	if tz == nil {
		tz = time.UTC
	}
	return &EarningsRefresher{
		store:  store,
		cache:  cacheSvc,
		log:    log,
		perDay: perDay,
		tz:     tz,
		now:    time.Now,
	}
}

func (r *EarningsRefresher) quotaKey() string {
	return "earnings:refresh:" + util.DateString(r.now().In(r.tz))
}

// Refresh clears the cached earnings dates so the next scan refetches them.
// Returns how many refreshes remain today.
func (r *EarningsRefresher) Refresh(ctx context.Context) (int, error) {
	n, err := r.cache.Increment(ctx, r.quotaKey())
	if err != nil {
		return 0, fmt.Errorf("refresh counter: %w", err)
	}
	// The counter key dies on its own well after the day rolls over.
	if n == 1 {
		_, _ = r.cache.Expire(ctx, r.quotaKey(), 48*time.Hour)
	}
	if n > int64(r.perDay) {
		return 0, ErrRefreshQuotaExhausted
	}

	if err := r.store.ClearEarnings(ctx); err != nil {
		return 0, fmt.Errorf("clear earnings cache: %w", err)
	}
	remaining := r.perDay - int(n)
	r.log.Info("earnings cache cleared", logger.Int("remaining_today", remaining))
	return remaining, nil
}

// Remaining reports how many refreshes are left today without consuming one.
func (r *EarningsRefresher) Remaining(ctx context.Context) int {
	var used int64
	if err := r.cache.Get(ctx, r.quotaKey(), &used); err != nil {
		return r.perDay
	}
	remaining := r.perDay - int(used)
	if remaining < 0 {
		return 0
	}
	return remaining
}
