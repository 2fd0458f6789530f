package snapshot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/snapq/snapq-go/internal/database/models"
	"github.com/snapq/snapq-go/internal/querybuilder"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.RequestSnapshot{}))
	return db
}

func seedSnapshot(t *testing.T, db *gorm.DB, method, path string, status int, occurredAt time.Time) {
	t.Helper()
	row := models.RequestSnapshot{
		Method:     method,
		Path:       path,
		StatusCode: status,
		OccurredAt: occurredAt,
	}
	require.NoError(t, db.Create(&row).Error)
}

func TestServiceListOrdersByOccurredAtDescending(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	now := time.Now().UTC().Truncate(time.Second)
	seedSnapshot(t, db, "GET", "/a", 200, now.Add(-time.Hour))
	seedSnapshot(t, db, "GET", "/b", 200, now)

	result, err := svc.List(&querybuilder.Query{})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	assert.Equal(t, "/b", result.Rows[0].Path)
	assert.Equal(t, int64(2), result.Total)
}

func TestServiceListFiltersByAllowedField(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	now := time.Now().UTC()
	seedSnapshot(t, db, "GET", "/ok", 200, now)
	seedSnapshot(t, db, "GET", "/err", 500, now)

	query := &querybuilder.Query{
		Filters: []querybuilder.Filter{{Field: "status_code", Operator: querybuilder.OpEq, Values: []string{"500"}}},
	}
	result, err := svc.List(query)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	assert.Equal(t, "/err", result.Rows[0].Path)
}

func TestServiceListRejectsDisallowedFilterField(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	query := &querybuilder.Query{
		Filters: []querybuilder.Filter{{Field: "request_body", Operator: querybuilder.OpEq, Values: []string{"x"}}},
	}
	_, err := svc.List(query)
	assert.Error(t, err)
}

func TestServiceGetReturnsNotFoundForMissingID(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Get("00000000-0000-0000-0000-000000000000")
	assert.Error(t, err)
}

func TestServiceGetReturnsSeededRow(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	row := models.RequestSnapshot{Method: "POST", Path: "/widgets", OccurredAt: time.Now()}
	require.NoError(t, db.Create(&row).Error)

	got, err := svc.Get(row.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/widgets", got.Path)
}
