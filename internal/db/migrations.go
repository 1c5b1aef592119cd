// internal/db/migrations.go
package db

import (
	"fmt"

	"gorm.io/gorm"
)

// MigrateUniqueIndexes — уникальность натурального ключа среди живых записей.
// AutoMigrate такие индексы не умеет: для postgres нужен partial-индекс
// по deleted_at IS NULL, для mysql/sqlite — составной (key, deleted_at).
func MigrateUniqueIndexes(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	dialect := db.Dialector.Name()

	type spec struct {
		table string
		key   string
	}
	specs := []spec{
		{"devices", "name"},
		{"libraries", "name"},
		{"contacts", "email"},
	}

	for _, s := range specs {
		idx := fmt.Sprintf("ux_%s_%s_live", s.table, s.key)
		var err error
		switch dialect {
		case "mysql":
			_ = db.Exec(fmt.Sprintf("DROP INDEX `%s` ON `%s`", idx, s.table)).Error
			err = db.Exec(fmt.Sprintf(
				"CREATE UNIQUE INDEX `%s` ON `%s` (`org_id`, `%s`, `deleted_at`)",
				idx, s.table, s.key)).Error
		case "postgres":
			err = db.Exec(fmt.Sprintf(
				`CREATE UNIQUE INDEX IF NOT EXISTS %s ON "%s" ("org_id", "%s") WHERE "deleted_at" IS NULL`,
				idx, s.table, s.key)).Error
		case "sqlite":
			err = db.Exec(fmt.Sprintf(
				`CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (org_id, %s, deleted_at)`,
				idx, s.table, s.key)).Error
		default:
			return fmt.Errorf("unsupported dialect: %s", dialect)
		}
		if err != nil {
			return fmt.Errorf("index %s: %w", idx, err)
		}
	}
	return nil
}
