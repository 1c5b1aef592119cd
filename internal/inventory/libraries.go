package inventory

import (
	"errors"

	"warden/internal/models"
	"warden/internal/syncer"

	"gorm.io/gorm"
)

// LibraryStore — gorm-хранилище каталога ПО (натуральный ключ — name).
type LibraryStore struct{ db *gorm.DB }

func NewLibraryStore(db *gorm.DB) *LibraryStore { return &LibraryStore{db: db} }

func (s *LibraryStore) ListActive(orgID uint) ([]syncer.Entity, error) {
	var rows []models.Library
	if err := s.db.Where("org_id = ? AND status = ?", orgID, models.StatusActive).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]syncer.Entity, 0, len(rows))
	for _, m := range rows {
		out = append(out, syncer.Entity{ID: m.ID, Key: m.Name})
	}
	return out, nil
}

func (s *LibraryStore) FindInactive(orgID uint, name string) (syncer.Entity, bool, error) {
	var m models.Library
	err := s.db.Unscoped().
		Where("org_id = ? AND name = ? AND (deleted_at IS NOT NULL OR status <> ?)", orgID, name, models.StatusActive).
		Order("id DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return syncer.Entity{}, false, nil
	}
	if err != nil {
		return syncer.Entity{}, false, err
	}
	return syncer.Entity{ID: m.ID, Key: m.Name}, true, nil
}

func (s *LibraryStore) Create(orgID uint, name string, fields syncer.Record) (uint, error) {
	m := models.Library{
		OrgID:  orgID,
		Name:   name,
		Status: models.StatusActive,
	}
	applyLibraryFields(&m, fields)
	if err := s.db.Create(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

func applyLibraryFields(m *models.Library, fields syncer.Record) {
	for k, v := range fields {
		s := toString(v)
		switch k {
		case "name":
			m.Name = s
		case "version":
			m.Version = s
		case "vendor":
			m.Vendor = s
		case "license_type":
			m.LicenseType = s
		case "license_expiry":
			m.LicenseExpiry = s
		}
	}
}

func (s *LibraryStore) Patch(id uint, fields syncer.Record) error {
	upd := columnsFor(fields)
	if len(upd) == 0 {
		return nil
	}
	return s.db.Model(&models.Library{}).Where("id = ?", id).Updates(upd).Error
}

func (s *LibraryStore) Reactivate(id uint, fields syncer.Record) error {
	upd := columnsFor(fields)
	upd["deleted_at"] = nil
	upd["deletion_reason"] = ""
	upd["status"] = models.StatusActive
	return s.db.Unscoped().Model(&models.Library{}).Where("id = ?", id).Updates(upd).Error
}

func (s *LibraryStore) Deactivate(id uint, reason string) error {
	if err := s.db.Model(&models.Library{}).Where("id = ?", id).Updates(map[string]any{
		"status":          models.StatusInactive,
		"deletion_reason": reason,
	}).Error; err != nil {
		return err
	}
	return s.db.Delete(&models.Library{}, id).Error
}
