package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

const (
	defaultCartTTL   = 7 * 24 * time.Hour
	staleCartCadence = 6 * time.Hour
)

type staleCartRepo interface {
	AbandonStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type StaleCartJobParams struct {
	Logger *logger.Logger
	Carts  staleCartRepo
	TTL    time.Duration
}

// NewStaleCartJob abandons active carts nobody touched within TTL.
func NewStaleCartJob(params StaleCartJobParams) (Job, error) {
	if params.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultCartTTL
	}
	return &staleCartJob{logg: logg, carts: params.Carts, ttl: ttl, now: time.Now}, nil
}

type staleCartJob struct {
	logg  *logger.Logger
	carts staleCartRepo
	ttl   time.Duration
	now   func() time.Time
}

func (j *staleCartJob) Name() string { return "stale-carts" }

func (j *staleCartJob) Every() time.Duration { return staleCartCadence }

func (j *staleCartJob) Run(ctx context.Context) (int, error) {
	cutoff := j.now().UTC().Add(-j.ttl)
	abandoned, err := j.carts.AbandonStale(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("abandon stale carts: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"abandoned": abandoned,
	}), "stale carts abandoned")
	return int(abandoned), nil
}
