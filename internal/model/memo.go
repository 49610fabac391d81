package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Memo is a free-text note pinned to the inventory dashboard.
type Memo struct {
	ID                  uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Title               string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"title" validate:"required,max=50"`
	Text                string     `gorm:"type:text" json:"text" validate:"max=1000"`
	DatetimeCreated     time.Time  `gorm:"autoCreateTime" json:"datetime_created"`
	DatetimeLastUpdated *time.Time `json:"datetime_lastupdated"`
}

func (m *Memo) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
