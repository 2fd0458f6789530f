package queue

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/logger"
)

// HealthCheckHandler is the trivial self-test job used to exercise the
// dispatcher end to end without touching storage.
type HealthCheckHandler struct {
	log *logger.Logger
}

func NewHealthCheckHandler(log *logger.Logger) *HealthCheckHandler {
	return &HealthCheckHandler{log: log}
}

func (h *HealthCheckHandler) Handle(ctx context.Context, job *Job) error {
	h.log.Debugw("health check job ran", "job_id", job.ID)
	return nil
}

// SnapshotPersistHandler writes a captured request/response pair to
// storage. The payload is built by the Snapshot middleware with header
// redaction already applied.
type SnapshotPersistHandler struct {
	db *gorm.DB
}

func NewSnapshotPersistHandler(db *gorm.DB) *SnapshotPersistHandler {
	return &SnapshotPersistHandler{db: db}
}

func (h *SnapshotPersistHandler) Handle(ctx context.Context, job *Job) error {
	row, err := snapshotRowFromPayload(job.Payload)
	if err != nil {
		return fmt.Errorf("snapshot persist: %w", err)
	}
	return h.db.WithContext(ctx).Create(row).Error
}

// snapshotRowFromPayload builds a row from the middleware's in-memory
// payload. The payload may have round-tripped through JSON (the Broker
// variant marshals it onto the wire), which turns every number into a
// float64 and every map into map[string]interface{} — intField/headerField
// below accept either shape rather than assuming the InProc in-memory form.
func snapshotRowFromPayload(payload map[string]interface{}) (*models.RequestSnapshot, error) {
	row := &models.RequestSnapshot{
		Method:            stringField(payload, "method"),
		Path:              stringField(payload, "path"),
		Query:             stringField(payload, "query"),
		RequestBody:       stringField(payload, "request_body"),
		ResponseBody:      stringField(payload, "response_body"),
		ClientIP:          stringField(payload, "client_ip"),
		GeoCountry:        stringField(payload, "geo_country"),
		GeoCity:           stringField(payload, "geo_city"),
		GeoSource:         stringField(payload, "geo_source"),
		RequestHeader:     headerField(payload, "request_headers"),
		ResponseHeader:    headerField(payload, "response_headers"),
		StatusCode:        int(intField(payload, "status_code")),
		DurationMS:        intField(payload, "duration_ms"),
		RequestTruncated:  boolField(payload, "request_truncated"),
		ResponseTruncated: boolField(payload, "response_truncated"),
		OccurredAt:        timeField(payload, "occurred_at"),
	}

	if row.Method == "" || row.Path == "" {
		return nil, fmt.Errorf("missing required snapshot fields")
	}
	return row, nil
}

func stringField(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func boolField(payload map[string]interface{}, key string) bool {
	v, _ := payload[key].(bool)
	return v
}

func intField(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func timeField(payload map[string]interface{}, key string) time.Time {
	switch v := payload[key].(type) {
	case time.Time:
		return v
	case string:
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return t
		}
	}
	return time.Now()
}

func headerField(payload map[string]interface{}, key string) models.JSONMap {
	switch v := payload[key].(type) {
	case models.JSONMap:
		return v
	case map[string]interface{}:
		return models.JSONMap(v)
	default:
		return nil
	}
}

// SnapshotRetentionHandler deletes snapshots older than a configured
// retention window, run on a recurring cron entry.
type SnapshotRetentionHandler struct {
	db     *gorm.DB
	log    *logger.Logger
	maxAge time.Duration
}

func NewSnapshotRetentionHandler(db *gorm.DB, log *logger.Logger, maxAge time.Duration) *SnapshotRetentionHandler {
	return &SnapshotRetentionHandler{db: db, log: log, maxAge: maxAge}
}

func (h *SnapshotRetentionHandler) Handle(ctx context.Context, job *Job) error {
	cutoff := time.Now().Add(-h.maxAge)
	result := h.db.WithContext(ctx).Where("occurred_at < ?", cutoff).Delete(&models.RequestSnapshot{})
	if result.Error != nil {
		return fmt.Errorf("snapshot retention: %w", result.Error)
	}
	h.log.Infow("snapshot retention swept expired rows", "deleted", result.RowsAffected, "cutoff", cutoff)
	return nil
}
