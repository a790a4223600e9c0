package cron

import (
	"context"
	"fmt"

	"github.com/harvestlink/harvestlink-backend/pkg/logger"
)

const defaultLowStockBatch = 100

type lowStockReorderer interface {
	ReorderLowStock(ctx context.Context, limit int) (int, error)
}

type LowStockRestockJobParams struct {
	Logger    *logger.Logger
	Restocks  lowStockReorderer
	BatchSize int
}

// NewLowStockRestockJob opens automatic restocks for inventory items at or
// below their reorder level.
func NewLowStockRestockJob(params LowStockRestockJobParams) (Job, error) {
	if params.Restocks == nil {
		return nil, fmt.Errorf("restock service required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultLowStockBatch
	}
	return &lowStockRestockJob{logg: logg, restocks: params.Restocks, batch: batch}, nil
}

type lowStockRestockJob struct {
	logg     *logger.Logger
	restocks lowStockReorderer
	batch    int
}

func (j *lowStockRestockJob) Name() string { return "low-stock-restock" }

func (j *lowStockRestockJob) Run(ctx context.Context) (int, error) {
	created, err := j.restocks.ReorderLowStock(ctx, j.batch)
	if err != nil {
		return created, fmt.Errorf("reorder low stock: %w", err)
	}
	if created > 0 {
		j.logg.Info(j.logg.WithField(ctx, "restocks_opened", created), "automatic restocks opened")
	}
	return created, nil
}
