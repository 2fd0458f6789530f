package models

import "time"

// WorkerStatsRow is the single per-worker heartbeat row the stats
// publisher upserts on a ticker, and the API's /worker/stats reads back.
type WorkerStatsRow struct {
	BaseModel
	WorkerID           string    `gorm:"uniqueIndex;not null" json:"worker_id"`
	Mode               string    `json:"mode"`
	QueueDepth         int64     `json:"queue_depth"`
	ProcessingCount    int64     `json:"processing_count"`
	ScheduledJobsCount int64     `json:"scheduled_jobs_count"`
	AvailableJobsCount int64     `json:"available_jobs_count"`
	ScheduledJobs      JSONList  `json:"scheduled_jobs" gorm:"type:jsonb"`
	AvailableJobs      JSONList  `json:"available_jobs" gorm:"type:jsonb"`
	JobsSucceeded      int64     `json:"jobs_succeeded"`
	JobsFailed         int64     `json:"jobs_failed"`
	LastHeartbeatAt    time.Time `json:"last_heartbeat_at"`
}

// IsStale reports whether the heartbeat is older than the given
// staleness threshold, per the 300s degraded-health rule.
func (w *WorkerStatsRow) IsStale(threshold time.Duration, now time.Time) bool {
	return now.Sub(w.LastHeartbeatAt) > threshold
}
