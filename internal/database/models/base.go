package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models.
type BaseModel struct {
	ID        uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// BeforeCreate assigns a UUID rather than relying on a numeric ID.
func (base *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if base.ID == uuid.Nil {
		base.ID = uuid.New()
	}
	return nil
}

// User is the principal authenticated requests resolve to.
type User struct {
	BaseModel
	Email         string     `gorm:"uniqueIndex;not null" json:"email" validate:"required,email"`
	Password      string     `gorm:"not null" json:"-" validate:"required,min=8"`
	Name          string     `gorm:"not null" json:"name" validate:"required,min=2,max=255"`
	Role          string     `gorm:"default:'user'" json:"role" validate:"oneof=user admin"`
	IsActive      bool       `gorm:"default:true" json:"is_active"`
	EmailVerified bool       `gorm:"default:false" json:"email_verified"`
	LastLoginAt   *time.Time `json:"last_login_at"`
	Embedding     Vector     `gorm:"type:jsonb" json:"-"`
}

// RefreshToken is the refresh_tokens table. It is migrated, but
// auth.Service keeps refresh tokens only in Redis and writes no rows here.
type RefreshToken struct {
	BaseModel
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"user_id"`
	TokenHash string     `gorm:"not null" json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Vector is a float vector persisted as jsonb. Nothing in this repository
// populates it or orders query results by it.
type Vector []float64
