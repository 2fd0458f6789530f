package models

import "time"

// RequestSnapshot is a captured inbound HTTP request/response pair, the
// unit the replay engine re-dispatches.
type RequestSnapshot struct {
	BaseModel
	Method        string    `gorm:"not null;index" json:"method"`
	Path          string    `gorm:"not null;index" json:"path"`
	Query         string    `json:"query"`
	RequestHeader JSONMap   `gorm:"type:jsonb" json:"request_headers"`
	RequestBody   string    `json:"request_body"`
	RequestTruncated bool   `json:"request_truncated"`

	StatusCode     int     `json:"status_code"`
	ResponseHeader JSONMap `gorm:"type:jsonb" json:"response_headers"`
	ResponseBody   string  `json:"response_body"`
	ResponseTruncated bool `json:"response_truncated"`

	ClientIP    string `json:"client_ip"`
	GeoCountry  string `json:"geo_country"`
	GeoCity     string `json:"geo_city"`
	GeoSource   string `json:"geo_source"`

	DurationMS int64     `json:"duration_ms"`
	OccurredAt time.Time `gorm:"index" json:"occurred_at"`
}

// JSONMap is a map persisted as jsonb.
type JSONMap map[string]interface{}
