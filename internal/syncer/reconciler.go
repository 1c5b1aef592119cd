package syncer

import (
	"fmt"

	"warden/internal/connections/mapschema"
	"warden/internal/logs"
	"warden/internal/models"
)

// ReasonAutoDeactivated пишется в deletion_reason при авто-деактивации.
const ReasonAutoDeactivated = "auto-sync: missing from source"

// Entity — проекция хранимой сущности, достаточная для reconcile.
type Entity struct {
	ID  uint
	Key string
}

// EntityStore — контракт хранилища одного вида сущностей.
// Patch/Reactivate принимают только присутствующие в записи поля:
// незатронутые колонки не перезаписываются. Create возвращает id
// созданной записи.
type EntityStore interface {
	ListActive(orgID uint) ([]Entity, error)
	FindInactive(orgID uint, key string) (Entity, bool, error)
	Create(orgID uint, key string, fields Record) (uint, error)
	Patch(id uint, fields Record) error
	Reactivate(id uint, fields Record) error
	Deactivate(id uint, reason string) error
}

// Counters — счётчики одного прогона reconcile.
type Counters struct {
	Processed   int
	Added       int
	Updated     int
	Deactivated int
	Skipped     int
	Reactivated int // реактивации дополнительно учтены в Added
}

func (c Counters) Summary() string {
	return fmt.Sprintf("%d added, %d updated, %d deactivated", c.Added, c.Updated, c.Deactivated)
}

// Reconciler — один вид сущностей, один общий контракт.
type Reconciler interface {
	Target() string
	Reconcile(conn *models.APIConnection, feed []map[string]any) (Counters, error)
}

// kindSpec — отличия видов: натуральный ключ, допустимые поля,
// участвует ли вид в деактивационном проходе.
type kindSpec struct {
	target   string
	keyField string
	fields   map[string]struct{}
	sweep    bool
}

func specFor(target string, sweep bool) kindSpec {
	key, _ := mapschema.KeyField(target)
	return kindSpec{
		target:   target,
		keyField: key,
		fields:   mapschema.Fields(target),
		sweep:    sweep,
	}
}

type deviceReconciler struct{ store EntityStore }

func NewDeviceReconciler(store EntityStore) Reconciler { return deviceReconciler{store: store} }

func (r deviceReconciler) Target() string { return models.TargetDevice }

func (r deviceReconciler) Reconcile(conn *models.APIConnection, feed []map[string]any) (Counters, error) {
	return reconcile(specFor(models.TargetDevice, true), r.store, conn, feed)
}

type libraryReconciler struct{ store EntityStore }

func NewLibraryReconciler(store EntityStore) Reconciler { return libraryReconciler{store: store} }

func (r libraryReconciler) Target() string { return models.TargetLibrary }

func (r libraryReconciler) Reconcile(conn *models.APIConnection, feed []map[string]any) (Counters, error) {
	return reconcile(specFor(models.TargetLibrary, true), r.store, conn, feed)
}

type contactReconciler struct{ store EntityStore }

func NewContactReconciler(store EntityStore) Reconciler { return contactReconciler{store: store} }

func (r contactReconciler) Target() string { return models.TargetContact }

func (r contactReconciler) Reconcile(conn *models.APIConnection, feed []map[string]any) (Counters, error) {
	// контакты не деактивируются: пропавший из фида контакт остаётся активным
	return reconcile(specFor(models.TargetContact, false), r.store, conn, feed)
}

// reconcile — общий алгоритм сверки фида с хранилищем.
//
// Каждая запись фида независимо апсертится по натуральному ключу; после
// обработки всего фида активные сущности, не встретившиеся в фиде,
// деактивируются (если sweep). Транзакции вокруг всего прогона нет:
// частично применённый прогон безопасно доигрывается повторным запуском.
func reconcile(spec kindSpec, store EntityStore, conn *models.APIConnection, feed []map[string]any) (Counters, error) {
	var c Counters

	mapping, err := conn.Mapping()
	if err != nil {
		return c, fmt.Errorf("field mapping: %w", err)
	}

	active, err := store.ListActive(conn.OrgID)
	if err != nil {
		return c, fmt.Errorf("load active %ss: %w", spec.target, err)
	}
	byKey := make(map[string]Entity, len(active))
	for _, e := range active {
		byKey[e.Key] = e
	}

	seen := map[string]bool{}
	for _, raw := range feed {
		c.Processed++

		rec := MapRecord(mapping, raw)
		key, ok := naturalKey(rec, spec.keyField)
		if !ok {
			c.Skipped++
			logs.Logger.Warnf("sync %s (connection %d): record without %s, skipped", spec.target, conn.ID, spec.keyField)
			continue
		}
		fields := filterFields(rec, spec.fields)

		if e, found := byKey[key]; found {
			if err := store.Patch(e.ID, fields); err != nil {
				return c, fmt.Errorf("update %s %q: %w", spec.target, key, err)
			}
			c.Updated++
			seen[key] = true
			continue
		}

		// среди активных нет; возможно, сущность была деактивирована раньше
		e, found, err := store.FindInactive(conn.OrgID, key)
		if err != nil {
			return c, fmt.Errorf("lookup %s %q: %w", spec.target, key, err)
		}
		if found {
			if err := store.Reactivate(e.ID, fields); err != nil {
				return c, fmt.Errorf("reactivate %s %q: %w", spec.target, key, err)
			}
			// реактивация считается как "added" (совместимость отчётов)
			c.Added++
			c.Reactivated++
			byKey[key] = e // повтор ключа в фиде дальше пойдёт как update
			seen[key] = true
			continue
		}

		id, err := store.Create(conn.OrgID, key, fields)
		if err != nil {
			return c, fmt.Errorf("create %s %q: %w", spec.target, key, err)
		}
		c.Added++
		byKey[key] = Entity{ID: id, Key: key}
		seen[key] = true
	}

	if spec.sweep {
		for key, e := range byKey {
			if seen[key] {
				continue
			}
			if err := store.Deactivate(e.ID, ReasonAutoDeactivated); err != nil {
				return c, fmt.Errorf("deactivate %s %q: %w", spec.target, key, err)
			}
			c.Deactivated++
		}
	}

	return c, nil
}

// filterFields отбрасывает поля вне каталога вида (маппинг валидируется
// при сохранении соединения, но старые записи могли его обойти).
func filterFields(rec Record, allowed map[string]struct{}) Record {
	out := Record{}
	for k, v := range rec {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}
