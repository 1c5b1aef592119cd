package inventory

import (
	"errors"

	"warden/internal/models"
	"warden/internal/syncer"

	"gorm.io/gorm"
)

// ContactStore — gorm-хранилище контактов (натуральный ключ — email).
// Deactivate реализован для полноты контракта, но контактный reconciler
// его не вызывает.
type ContactStore struct{ db *gorm.DB }

func NewContactStore(db *gorm.DB) *ContactStore { return &ContactStore{db: db} }

func (s *ContactStore) ListActive(orgID uint) ([]syncer.Entity, error) {
	var rows []models.Contact
	if err := s.db.Where("org_id = ? AND status = ?", orgID, models.StatusActive).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]syncer.Entity, 0, len(rows))
	for _, m := range rows {
		out = append(out, syncer.Entity{ID: m.ID, Key: m.Email})
	}
	return out, nil
}

func (s *ContactStore) FindInactive(orgID uint, email string) (syncer.Entity, bool, error) {
	var m models.Contact
	err := s.db.Unscoped().
		Where("org_id = ? AND email = ? AND (deleted_at IS NOT NULL OR status <> ?)", orgID, email, models.StatusActive).
		Order("id DESC").First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return syncer.Entity{}, false, nil
	}
	if err != nil {
		return syncer.Entity{}, false, err
	}
	return syncer.Entity{ID: m.ID, Key: m.Email}, true, nil
}

func (s *ContactStore) Create(orgID uint, email string, fields syncer.Record) (uint, error) {
	m := models.Contact{
		OrgID:  orgID,
		Email:  email,
		Status: models.StatusActive,
	}
	applyContactFields(&m, fields)
	if err := s.db.Create(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

func applyContactFields(m *models.Contact, fields syncer.Record) {
	for k, v := range fields {
		s := toString(v)
		switch k {
		case "email":
			m.Email = s
		case "name":
			m.Name = s
		case "phone":
			m.Phone = s
		case "department":
			m.Department = s
		case "title":
			m.Title = s
		}
	}
}

func (s *ContactStore) Patch(id uint, fields syncer.Record) error {
	upd := columnsFor(fields)
	if len(upd) == 0 {
		return nil
	}
	return s.db.Model(&models.Contact{}).Where("id = ?", id).Updates(upd).Error
}

func (s *ContactStore) Reactivate(id uint, fields syncer.Record) error {
	upd := columnsFor(fields)
	upd["deleted_at"] = nil
	upd["status"] = models.StatusActive
	return s.db.Unscoped().Model(&models.Contact{}).Where("id = ?", id).Updates(upd).Error
}

func (s *ContactStore) Deactivate(id uint, reason string) error {
	_ = reason // у контактов нет deletion_reason
	if err := s.db.Model(&models.Contact{}).Where("id = ?", id).
		Update("status", models.StatusInactive).Error; err != nil {
		return err
	}
	return s.db.Delete(&models.Contact{}, id).Error
}
