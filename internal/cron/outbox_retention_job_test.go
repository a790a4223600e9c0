package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/harvestlink/harvestlink-backend/pkg/db/dbtest"
	"github.com/harvestlink/harvestlink-backend/pkg/db/models"
	"github.com/harvestlink/harvestlink-backend/pkg/enums"
	"github.com/harvestlink/harvestlink-backend/pkg/outbox"
)

func TestOutboxRetentionJobUsesCutoff(t *testing.T) {
	now := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	repo := &fakeOutboxRetentionRepo{deleted: 7}
	job := newOutboxRetentionJob(t, repo, 48*time.Hour)
	job.now = func() time.Time { return now }

	affected, err := job.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, affected)
	assert.True(t, repo.lastCutoff.Equal(now.Add(-48*time.Hour)))
	assert.Equal(t, defaultOutboxMaxAttempts, repo.maxAttempts)
	assert.Equal(t, 1, repo.called)
}

func TestOutboxRetentionJobPropagatesError(t *testing.T) {
	job := newOutboxRetentionJob(t, &fakeOutboxRetentionRepo{err: errors.New("boom")}, 0)

	_, err := job.Run(context.Background())
	require.Error(t, err)
}

func TestOutboxRetentionDeletesOnlyExpiredRows(t *testing.T) {
	conn := dbtest.New(t)
	ctx := context.Background()
	now := time.Now().UTC()
	old := now.Add(-60 * 24 * time.Hour)
	recent := now.Add(-time.Hour)

	rows := []models.OutboxEvent{
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, CreatedAt: old, PublishedAt: &old},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, CreatedAt: recent, PublishedAt: &recent},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, CreatedAt: old, AttemptCount: 10},
		{EventType: enums.EventOrderPlaced, AggregateType: enums.AggregateOrder, CreatedAt: old, AttemptCount: 1},
	}
	for i := range rows {
		rows[i].Payload = []byte(`{}`)
		require.NoError(t, conn.DB().Create(&rows[i]).Error)
	}

	job, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		DB:          conn,
		Repository:  outbox.NewRepository(conn.DB()),
		MaxAttempts: 10,
	})
	require.NoError(t, err)

	affected, err := job.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, affected)

	var remaining int64
	require.NoError(t, conn.DB().Model(&models.OutboxEvent{}).Count(&remaining).Error)
	assert.EqualValues(t, 2, remaining)
}

func newOutboxRetentionJob(t *testing.T, repo *fakeOutboxRetentionRepo, retention time.Duration) *outboxRetentionJob {
	t.Helper()
	jobIface, err := NewOutboxRetentionJob(OutboxRetentionJobParams{
		DB:         passthroughTx{},
		Repository: repo,
		Retention:  retention,
	})
	require.NoError(t, err)
	job, ok := jobIface.(*outboxRetentionJob)
	require.True(t, ok)
	return job
}

type fakeOutboxRetentionRepo struct {
	lastCutoff  time.Time
	maxAttempts int
	called      int
	deleted     int64
	err         error
}

func (f *fakeOutboxRetentionRepo) DeletePublishedBefore(_ context.Context, _ *gorm.DB, cutoff time.Time, maxAttempts int) (int64, error) {
	f.called++
	f.lastCutoff = cutoff
	f.maxAttempts = maxAttempts
	if f.err != nil {
		return 0, f.err
	}
	return f.deleted, nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}
