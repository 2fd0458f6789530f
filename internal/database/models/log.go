package models

import "time"

// Log is a generic structured log row exposed through the CRUD /logs
// surface; it is not the application's own operational log stream.
type Log struct {
	BaseModel
	Level     string    `gorm:"index" json:"level" validate:"oneof=debug info warn error"`
	Message   string    `gorm:"not null" json:"message" validate:"required"`
	Source    string    `gorm:"index" json:"source"`
	Fields    JSONMap   `gorm:"type:jsonb" json:"fields"`
	Embedding Vector    `gorm:"type:jsonb" json:"-"`
	LoggedAt  time.Time `gorm:"index" json:"logged_at"`
}

// Metric is a generic point-in-time measurement row exposed through the
// CRUD /metrics surface.
type Metric struct {
	BaseModel
	Name       string    `gorm:"index;not null" json:"name" validate:"required"`
	Value      float64   `json:"value"`
	Unit       string    `json:"unit"`
	Tags       JSONMap   `gorm:"type:jsonb" json:"tags"`
	RecordedAt time.Time `gorm:"index" json:"recorded_at"`
}
