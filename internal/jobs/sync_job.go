package jobs

import (
	"context"

	"github.com/folkops/opsboard/internal/service"
)

// SyncOrdersJob mirrors the legacy spreadsheet API into Postgres.
type SyncOrdersJob struct {
	sync *service.SyncService
}

// NewSyncOrdersJob wraps the sync service as a schedulable job.
func NewSyncOrdersJob(sync *service.SyncService) *SyncOrdersJob {
	return &SyncOrdersJob{sync: sync}
}

func (j *SyncOrdersJob) Name() string { return "sync-orders" }

func (j *SyncOrdersJob) Run(ctx context.Context) error {
	_, err := j.sync.Run(ctx)
	return err
}
