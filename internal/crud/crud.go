// Package crud implements the generic list/get/create/update/delete
// surface the query-builder drives for User, Log, and Metric rows.
// Soft-delete semantics (gorm.DeletedAt) apply uniformly: list/get never
// surface a soft-deleted row, and hard delete is opt-in per request.
package crud

import (
	"errors"

	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/querybuilder"
)

// Resource binds a gorm model type to its allowed filter/sort fields.
type Resource struct {
	db            *gorm.DB
	model         interface{}
	allowedFields map[string]bool
}

func NewResource(db *gorm.DB, model interface{}, allowedFields map[string]bool) *Resource {
	return &Resource{db: db, model: model, allowedFields: allowedFields}
}

type ListResult struct {
	Rows  interface{} `json:"rows"`
	Total int64       `json:"total"`
}

// List applies the query-builder's scope, honoring soft-delete invisibility
// implicitly via gorm's DeletedAt clause.
func (r *Resource) List(query *querybuilder.Query, dest interface{}) (*ListResult, error) {
	scope, err := query.Scope(r.allowedFields)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var total int64
	if err := r.db.Model(r.model).Scopes(scope).Count(&total).Error; err != nil {
		return nil, apperror.Internal("failed to count rows", err)
	}

	db := r.db.Scopes(scope)
	if query.Limit > 0 {
		db = db.Limit(query.Limit)
	}
	if query.Offset > 0 {
		db = db.Offset(query.Offset)
	}
	for _, sort := range query.Sorts {
		if sort.Desc {
			db = db.Order(sort.Field + " DESC")
		} else {
			db = db.Order(sort.Field + " ASC")
		}
	}

	if err := db.Find(dest).Error; err != nil {
		return nil, apperror.Internal("failed to list rows", err)
	}
	return &ListResult{Rows: dest, Total: total}, nil
}

func (r *Resource) Get(id string, dest interface{}) error {
	err := r.db.First(dest, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound("resource not found")
	}
	if err != nil {
		return apperror.Internal("failed to load resource", err)
	}
	return nil
}

func (r *Resource) Create(dest interface{}) error {
	if err := r.db.Create(dest).Error; err != nil {
		return apperror.Wrap(apperror.KindConflict, "failed to create resource", err)
	}
	return nil
}

func (r *Resource) Update(id string, dest interface{}, updates map[string]interface{}) error {
	if err := r.Get(id, dest); err != nil {
		return err
	}
	if err := r.db.Model(dest).Updates(updates).Error; err != nil {
		return apperror.Internal("failed to update resource", err)
	}
	return nil
}

// Delete soft-deletes by default (sets deleted_at via gorm's hook). When
// hard is true, it permanently removes the row with Unscoped.
func (r *Resource) Delete(id string, dest interface{}, hard bool) error {
	if err := r.Get(id, dest); err != nil {
		return err
	}
	db := r.db
	if hard {
		db = db.Unscoped()
	}
	if err := db.Delete(dest).Error; err != nil {
		return apperror.Internal("failed to delete resource", err)
	}
	return nil
}
