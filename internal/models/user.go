package models

import "gorm.io/gorm"

// User — минимальная учётка (для атрибуции синков).
type User struct {
	gorm.Model
	Email    string `gorm:"type:varchar(255);uniqueIndex"`
	Name     string `gorm:"type:varchar(255)"`
	IsSystem bool   `gorm:"default:false"`
}
