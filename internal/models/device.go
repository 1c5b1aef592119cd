package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Device — учётная единица инвентаря. Натуральный ключ — Name
// (уникален среди активных записей организации, см. db.MigrateUniqueIndexes).
type Device struct {
	gorm.Model
	UUID           string `gorm:"type:char(36);uniqueIndex"`
	OrgID          uint   `gorm:"index"`
	Name           string `gorm:"type:varchar(255);index"`
	DeviceType     string `gorm:"type:varchar(64)"`
	Manufacturer   string `gorm:"type:varchar(128)"`
	ModelName      string `gorm:"column:model_name;type:varchar(128)"`
	SerialNumber   string `gorm:"type:varchar(128)"`
	Location       string `gorm:"type:varchar(255)"`
	Status         string `gorm:"type:varchar(16);default:'active'"`
	Tags           datatypes.JSON
	DeletionReason string `gorm:"type:varchar(255)"`
}
