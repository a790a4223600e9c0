package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supplier is an entry in a distributor's supplier directory.
type Supplier struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	DistributorID uuid.UUID `gorm:"column:distributor_id;type:uuid;not null;index"`
	Name          string    `gorm:"column:name;type:text;not null"`
	ContactEmail  *string   `gorm:"column:contact_email;type:text"`
	Phone         *string   `gorm:"column:phone;type:text"`
	Address       *string   `gorm:"column:address;type:text"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Supplier) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
