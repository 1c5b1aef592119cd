package connections

import (
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

// Repo — реестр соединений. Сам движок синка соединения не удаляет,
// только обновляет last_sync-поля.
type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) Create(c *models.APIConnection) error { return r.db.Create(c).Error }
func (r *Repo) Update(c *models.APIConnection) error { return r.db.Save(c).Error }
func (r *Repo) Delete(id uint) error                 { return r.db.Delete(&models.APIConnection{}, id).Error }

func (r *Repo) Get(id uint) (*models.APIConnection, error) {
	var c models.APIConnection
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repo) List(orgID uint) ([]models.APIConnection, error) {
	var out []models.APIConnection
	err := r.db.Where("org_id = ?", orgID).Order("id").Find(&out).Error
	return out, err
}

// ListAutoSync — активные соединения с включённым автосинком
// (кандидаты каждого тика планировщика).
func (r *Repo) ListAutoSync() ([]models.APIConnection, error) {
	var out []models.APIConnection
	err := r.db.Where("auto_sync = ? AND is_active = ?", true, true).Order("id").Find(&out).Error
	return out, err
}

// SetLastSync обновляет отметку последней попытки после каждого прогона,
// ручного или автоматического.
func (r *Repo) SetLastSync(id uint, status, message string, at time.Time) error {
	return r.db.Model(&models.APIConnection{}).Where("id = ?", id).Updates(map[string]any{
		"last_sync_at":      &at,
		"last_sync_status":  status,
		"last_sync_message": message,
	}).Error
}
