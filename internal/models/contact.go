package models

import "gorm.io/gorm"

// Contact — контактное лицо. Натуральный ключ — Email.
// Контакты не деактивируются автосинком (см. internal/syncer).
type Contact struct {
	gorm.Model
	OrgID      uint   `gorm:"index"`
	Email      string `gorm:"type:varchar(255);index"`
	Name       string `gorm:"type:varchar(255)"`
	Phone      string `gorm:"type:varchar(64)"`
	Department string `gorm:"type:varchar(128)"`
	Title      string `gorm:"type:varchar(128)"`
	Status     string `gorm:"type:varchar(16);default:'active'"`
}
