package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Типы запуска синка.
const (
	ExecManual = "manual"
	ExecAuto   = "auto"
)

// Статусы попытки синка.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SyncHistory — одна попытка синхронизации (ровно один терминальный переход
// running -> completed|failed на запись).
type SyncHistory struct {
	gorm.Model
	ConnectionID  uint   `gorm:"index"`
	InitiatedBy   uint   // id пользователя; системная учётка для авто-запусков
	ExecutionType string `gorm:"type:varchar(16)"` // manual|auto
	Status        string `gorm:"type:varchar(16);index"`
	StartedAt     time.Time
	CompletedAt   *time.Time
	Processed     int
	Added         int
	Updated       int
	Deactivated   int
	Detail        datatypes.JSON
	ErrorMessage  string `gorm:"type:text"`
}

func (SyncHistory) TableName() string { return "sync_histories" }

func jsonUnmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }
