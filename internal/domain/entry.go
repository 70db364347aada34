package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Entry is a data-holding entity: one record written against a Model's schema.
type Entry struct {
	ID               uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	ModelID          uuid.UUID      `gorm:"type:uuid;not null;index" json:"model_id"`
	CurrentVersionID *uuid.UUID     `gorm:"type:uuid;column:current_version_id" json:"current_version_id,omitempty"`
	CreatorID        *uuid.UUID     `gorm:"type:uuid;column:creator_id" json:"creator_id,omitempty"`
	DeleterID        *uuid.UUID     `gorm:"type:uuid;column:deleter_id" json:"deleter_id,omitempty"`
	CreatedAt        time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Entry) TableName() string { return "entry" }

// EntryVersion snapshots an Entry's attribute document. The generated v_*
// columns live on this table, computed from the document jsonb so the
// relational engine can filter and sort without touching the document itself.
type EntryVersion struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EntryID   uuid.UUID      `gorm:"type:uuid;not null;index" json:"entry_id"`
	Document  datatypes.JSON `gorm:"column:document;type:jsonb" json:"document"`
	CreatorID *uuid.UUID     `gorm:"type:uuid;column:creator_id" json:"creator_id,omitempty"`
	DeleterID *uuid.UUID     `gorm:"type:uuid;column:deleter_id" json:"deleter_id,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (EntryVersion) TableName() string { return "entry_version" }
