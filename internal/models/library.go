package models

import "gorm.io/gorm"

// Library — запись каталога установленного ПО. Натуральный ключ — Name.
type Library struct {
	gorm.Model
	OrgID          uint   `gorm:"index"`
	Name           string `gorm:"type:varchar(255);index"`
	Version        string `gorm:"type:varchar(64)"`
	Vendor         string `gorm:"type:varchar(128)"`
	LicenseType    string `gorm:"type:varchar(64)"`
	LicenseExpiry  string `gorm:"type:varchar(32)"`
	Status         string `gorm:"type:varchar(16);default:'active'"`
	DeletionReason string `gorm:"type:varchar(255)"`
}
