package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Model is a schema-holding entity. Its versioned document carries the field
// definitions every Entry of this Model is written against. The entity row
// itself only owns identity, lifecycle and the current-version pointer.
type Model struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	CurrentVersionID *uuid.UUID     `gorm:"type:uuid;column:current_version_id" json:"current_version_id,omitempty"`
	CreatorID        *uuid.UUID     `gorm:"type:uuid;column:creator_id" json:"creator_id,omitempty"`
	DeleterID        *uuid.UUID     `gorm:"type:uuid;column:deleter_id" json:"deleter_id,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Model) TableName() string { return "model" }

// ModelVersion is an append-only snapshot of a Model's document. Rows are
// soft-deleted alongside their Model and only ever hard-deleted by purge.
type ModelVersion struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ModelID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"model_id"`
	Document  datatypes.JSON `gorm:"column:document;type:jsonb" json:"document"`
	CreatorID *uuid.UUID     `gorm:"type:uuid;column:creator_id" json:"creator_id,omitempty"`
	DeleterID *uuid.UUID     `gorm:"type:uuid;column:deleter_id" json:"deleter_id,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (ModelVersion) TableName() string { return "model_version" }
