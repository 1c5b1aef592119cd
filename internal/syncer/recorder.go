package syncer

import (
	"encoding/json"
	"time"

	"warden/internal/logs"
	"warden/internal/models"

	"gorm.io/gorm"
)

// HistoryRecorder — аудит попыток синка. На каждый Begin — ровно один
// Complete или Fail.
type HistoryRecorder interface {
	Begin(connID, initiator uint, execType string) (uint, error)
	Complete(id uint, c Counters, detail map[string]any) error
	Fail(id uint, errMsg string) error
}

// Recorder — gorm-реализация поверх sync_histories.
type Recorder struct{ db *gorm.DB }

func NewRecorder(db *gorm.DB) *Recorder { return &Recorder{db: db} }

func (r *Recorder) Begin(connID, initiator uint, execType string) (uint, error) {
	h := models.SyncHistory{
		ConnectionID:  connID,
		InitiatedBy:   initiator,
		ExecutionType: execType,
		Status:        models.RunStatusRunning,
		StartedAt:     time.Now(),
	}
	if err := r.db.Create(&h).Error; err != nil {
		return 0, err
	}
	return h.ID, nil
}

func (r *Recorder) Complete(id uint, c Counters, detail map[string]any) error {
	now := time.Now()
	upd := map[string]any{
		"status":       models.RunStatusCompleted,
		"completed_at": &now,
		"processed":    c.Processed,
		"added":        c.Added,
		"updated":      c.Updated,
		"deactivated":  c.Deactivated,
	}
	if len(detail) > 0 {
		if b, err := json.Marshal(detail); err == nil {
			upd["detail"] = b
		} else {
			logs.Logger.Warnf("sync history %d: detail not serializable, dropped: %v", id, err)
		}
	}
	return r.db.Model(&models.SyncHistory{}).Where("id = ?", id).Updates(upd).Error
}

func (r *Recorder) Fail(id uint, errMsg string) error {
	now := time.Now()
	return r.db.Model(&models.SyncHistory{}).Where("id = ?", id).Updates(map[string]any{
		"status":        models.RunStatusFailed,
		"completed_at":  &now,
		"error_message": errMsg,
	}).Error
}

// ListByConnection — история попыток соединения, свежие сверху.
func (r *Recorder) ListByConnection(connID uint, limit int) ([]models.SyncHistory, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []models.SyncHistory
	err := r.db.Where("connection_id = ?", connID).
		Order("id DESC").Limit(limit).Find(&out).Error
	return out, err
}
