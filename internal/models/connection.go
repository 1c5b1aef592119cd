package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Допустимые значения SyncTarget.
const (
	TargetDevice  = "device"
	TargetLibrary = "library"
	TargetContact = "contact"
)

// Допустимые значения FrequencyUnit.
const (
	UnitMinutes = "minutes"
	UnitHours   = "hours"
	UnitDays    = "days"
)

// Статусы последнего синка.
const (
	SyncStatusSuccess = "success"
	SyncStatusError   = "error"
)

// APIConnection — настроенный внешний источник данных.
// FieldMapping — json-объект { внутреннее_поле: внешнее_поле }.
type APIConnection struct {
	gorm.Model
	OrgID           uint   `gorm:"index"`
	Name            string `gorm:"type:varchar(255)"`
	URL             string `gorm:"column:url;type:varchar(512)"`
	SyncTarget      string `gorm:"type:varchar(16)"`
	FieldMapping    datatypes.JSON
	AutoSync        bool   `gorm:"default:false"`
	FrequencyValue  int    `gorm:"default:60"`
	FrequencyUnit   string `gorm:"type:varchar(16);default:'minutes'"`
	LastSyncAt      *time.Time
	LastSyncStatus  string `gorm:"type:varchar(16)"`
	LastSyncMessage string `gorm:"type:varchar(512)"`
	IsActive        bool   `gorm:"default:true"`
}

// Frequency — настроенная периодичность как Duration.
func (c *APIConnection) Frequency() time.Duration {
	v := time.Duration(c.FrequencyValue)
	switch c.FrequencyUnit {
	case UnitHours:
		return v * time.Hour
	case UnitDays:
		return v * 24 * time.Hour
	default: // minutes
		return v * time.Minute
	}
}

// Mapping — распакованная таблица соответствия полей.
func (c *APIConnection) Mapping() (map[string]string, error) {
	m := map[string]string{}
	if len(c.FieldMapping) == 0 {
		return m, nil
	}
	if err := jsonUnmarshal(c.FieldMapping, &m); err != nil {
		return nil, err
	}
	return m, nil
}
