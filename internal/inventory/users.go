package inventory

import (
	"errors"
	"fmt"

	"warden/internal/models"

	"gorm.io/gorm"
)

// UserDirectory — поиск системной учётки для атрибуции авто-синков.
type UserDirectory struct {
	db          *gorm.DB
	systemEmail string
}

func NewUserDirectory(db *gorm.DB, systemEmail string) *UserDirectory {
	return &UserDirectory{db: db, systemEmail: systemEmail}
}

// EnsureSystemUser создаёт системную учётку при первом старте.
func (d *UserDirectory) EnsureSystemUser() error {
	u := models.User{Email: d.systemEmail, Name: "System", IsSystem: true}
	return d.db.Where(&models.User{Email: d.systemEmail}).FirstOrCreate(&u).Error
}

func (d *UserDirectory) SystemUserID() (uint, error) {
	var u models.User
	err := d.db.Where("email = ?", d.systemEmail).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("system user %q not found", d.systemEmail)
	}
	if err != nil {
		return 0, err
	}
	return u.ID, nil
}
