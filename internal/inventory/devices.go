package inventory

import (
	"encoding/json"
	"errors"

	"warden/internal/models"
	"warden/internal/syncer"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DeviceStore — gorm-хранилище устройств (контракт syncer.EntityStore,
// натуральный ключ — name).
type DeviceStore struct{ db *gorm.DB }

func NewDeviceStore(db *gorm.DB) *DeviceStore { return &DeviceStore{db: db} }

func (s *DeviceStore) ListActive(orgID uint) ([]syncer.Entity, error) {
	var rows []models.Device
	if err := s.db.Where("org_id = ? AND status = ?", orgID, models.StatusActive).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]syncer.Entity, 0, len(rows))
	for _, m := range rows {
		out = append(out, syncer.Entity{ID: m.ID, Key: m.Name})
	}
	return out, nil
}

func (s *DeviceStore) FindInactive(orgID uint, name string) (syncer.Entity, bool, error) {
	var m models.Device
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

func (s *DeviceStore) Create(orgID uint, name string, fields syncer.Record) (uint, error) {
	m := models.Device{
		UUID:   uuid.NewString(),
		OrgID:  orgID,
		Name:   name,
		Status: models.StatusActive,
	}
	applyDeviceFields(&m, fields)
	if err := s.db.Create(&m).Error; err != nil {
		return 0, err
	}
	return m.ID, nil
}

func (s *DeviceStore) Patch(id uint, fields syncer.Record) error {
	upd := deviceColumns(fields)
	if len(upd) == 0 {
		return nil
	}
	return s.db.Model(&models.Device{}).Where("id = ?", id).Updates(upd).Error
}

func (s *DeviceStore) Reactivate(id uint, fields syncer.Record) error {
	upd := deviceColumns(fields)
	upd["deleted_at"] = nil
	upd["deletion_reason"] = ""
	upd["status"] = models.StatusActive
	return s.db.Unscoped().Model(&models.Device{}).Where("id = ?", id).Updates(upd).Error
}

func (s *DeviceStore) Deactivate(id uint, reason string) error {
	if err := s.db.Model(&models.Device{}).Where("id = ?", id).Updates(map[string]any{
		"status":          models.StatusInactive,
		"deletion_reason": reason,
	}).Error; err != nil {
		return err
	}
	return s.db.Delete(&models.Device{}, id).Error
}

func applyDeviceFields(m *models.Device, fields syncer.Record) {
	for k, v := range fields {
		if k == "tags" {
			if b, err := json.Marshal(v); err == nil {
				m.Tags = b
			}
			continue
		}
		s := toString(v)
		switch k {
		case "name":
			m.Name = s
		case "device_type":
			m.DeviceType = s
		case "manufacturer":
			m.Manufacturer = s
		case "model_name":
			m.ModelName = s
		case "serial_number":
			m.SerialNumber = s
		case "location":
			m.Location = s
		}
	}
}

// deviceColumns — как columnsFor, но tags уходит json-значением,
// а не строковым представлением.
func deviceColumns(fields syncer.Record) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if k == "tags" {
			if b, err := json.Marshal(v); err == nil {
				out[k] = datatypes.JSON(b)
			}
			continue
		}
		out[k] = toString(v)
	}
	return out
}
