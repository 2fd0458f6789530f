// Package snapshot provides the list/detail query surface over persisted
// request_snapshots rows. Persistence itself lives in the queue's
// SnapshotPersistHandler, which runs asynchronously off the request path.
package snapshot

import (
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/querybuilder"
)

// AllowedFilterFields is the closed set of columns /replay may filter and
// sort on.
var AllowedFilterFields = map[string]bool{
	"method":      true,
	"path":        true,
	"status_code": true,
	"occurred_at": true,
	"created_at":  true,
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

type ListResult struct {
	Rows  []models.RequestSnapshot
	Total int64
}

func (s *Service) List(query *querybuilder.Query) (*ListResult, error) {
	scope, err := query.Scope(AllowedFilterFields)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var total int64
	if err := s.db.Model(&models.RequestSnapshot{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count snapshots", err)
	}

	var rows []models.RequestSnapshot
	db := s.db.Scopes(scope).Order("occurred_at DESC")
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}
	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	if err := db.Find(&rows).Error; err != nil {
		return nil, apperror.Internal("failed to list snapshots", err)
	}

	return &ListResult{Rows: rows, Total: total}, nil
}

func (s *Service) Get(id string) (*models.RequestSnapshot, error) {
	var row models.RequestSnapshot
	err := s.db.First(&row, "id = ?", id).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperror.NotFound("snapshot not found")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load snapshot", err)
	}
	return &row, nil
}
