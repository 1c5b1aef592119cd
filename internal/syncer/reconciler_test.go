package syncer

import (
	"encoding/json"
	"errors"
	"testing"

	"warden/internal/models"

	"github.com/google/go-cmp/cmp"
	"gorm.io/datatypes"
)

// fakeEntity — состояние одной сущности в fakeStore.
type fakeEntity struct {
	id      uint
	key     string
	active  bool
	deleted bool
	reason  string
	fields  Record
	patches int
}

type fakeStore struct {
	entities map[uint]*fakeEntity
	nextID   uint
	failOn   string // имя операции, которая должна вернуть ошибку
}

func newFakeStore() *fakeStore {
	return &fakeStore{entities: map[uint]*fakeEntity{}}
}

func (s *fakeStore) seed(key string) *fakeEntity {
	s.nextID++
	e := &fakeEntity{id: s.nextID, key: key, active: true, fields: Record{}}
	s.entities[e.id] = e
	return e
}

func (s *fakeStore) byKey(key string) *fakeEntity {
	for _, e := range s.entities {
		if e.key == key {
			return e
		}
	}
	return nil
}

func (s *fakeStore) ListActive(orgID uint) ([]Entity, error) {
	if s.failOn == "list" {
		return nil, errors.New("list failed")
	}
	var out []Entity
	for _, e := range s.entities {
		if e.active && !e.deleted {
			out = append(out, Entity{ID: e.id, Key: e.key})
		}
	}
	return out, nil
}

func (s *fakeStore) FindInactive(orgID uint, key string) (Entity, bool, error) {
	if s.failOn == "find" {
		return Entity{}, false, errors.New("find failed")
	}
	for _, e := range s.entities {
		if e.key == key && (e.deleted || !e.active) {
			return Entity{ID: e.id, Key: e.key}, true, nil
		}
	}
	return Entity{}, false, nil
}

func (s *fakeStore) Create(orgID uint, key string, fields Record) (uint, error) {
	if s.failOn == "create" {
		return 0, errors.New("create failed")
	}
	s.nextID++
	f := Record{}
	for k, v := range fields {
		f[k] = v
	}
	s.entities[s.nextID] = &fakeEntity{id: s.nextID, key: key, active: true, fields: f}
	return s.nextID, nil
}

func (s *fakeStore) activeCount(key string) int {
	n := 0
	for _, e := range s.entities {
		if e.key == key && e.active && !e.deleted {
			n++
		}
	}
	return n
}

func (s *fakeStore) Patch(id uint, fields Record) error {
	if s.failOn == "patch" {
		return errors.New("patch failed")
	}
	e := s.entities[id]
	e.patches++
	for k, v := range fields {
		e.fields[k] = v
	}
	return nil
}

func (s *fakeStore) Reactivate(id uint, fields Record) error {
	if s.failOn == "reactivate" {
		return errors.New("reactivate failed")
	}
	e := s.entities[id]
	e.active = true
	e.deleted = false
	e.reason = ""
	for k, v := range fields {
		e.fields[k] = v
	}
	return nil
}

func (s *fakeStore) Deactivate(id uint, reason string) error {
	if s.failOn == "deactivate" {
		return errors.New("deactivate failed")
	}
	e := s.entities[id]
	e.active = false
	e.deleted = true
	e.reason = reason
	return nil
}

func testConn(target string, mapping map[string]string) *models.APIConnection {
	b, _ := json.Marshal(mapping)
	c := &models.APIConnection{
		Name:         "test source",
		URL:          "http://example.test/feed",
		SyncTarget:   target,
		FieldMapping: datatypes.JSON(b),
		IsActive:     true,
	}
	c.ID = 1
	return c
}

var deviceMapping = map[string]string{"name": "nm", "location": "loc"}

func TestReconcileAddsNewDevice(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)

	c, err := rec.Reconcile(testConn(models.TargetDevice, deviceMapping),
		[]map[string]any{{"nm": "srv-01", "loc": "dc1"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := Counters{Processed: 1, Added: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("counters (-want +got):\n%s", diff)
	}
	e := store.byKey("srv-01")
	if e == nil || !e.active {
		t.Fatalf("expected active device srv-01, got %+v", e)
	}
	if got := e.fields["location"]; got != "dc1" {
		t.Errorf("location = %v, want dc1", got)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)
	conn := testConn(models.TargetDevice, deviceMapping)
	feed := []map[string]any{{"nm": "srv-01"}, {"nm": "srv-02"}}

	if _, err := rec.Reconcile(conn, feed); err != nil {
		t.Fatalf("first run: %v", err)
	}
	c, err := rec.Reconcile(conn, feed)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	want := Counters{Processed: 2, Updated: 2}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("second run counters (-want +got):\n%s", diff)
	}
}

func TestReconcileSweepDeactivatesMissing(t *testing.T) {
	store := newFakeStore()
	store.seed("srv-01")
	rec := NewDeviceReconciler(store)

	c, err := rec.Reconcile(testConn(models.TargetDevice, deviceMapping), nil)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if c.Deactivated != 1 {
		t.Fatalf("deactivated = %d, want 1", c.Deactivated)
	}
	e := store.byKey("srv-01")
	if e.active || !e.deleted {
		t.Errorf("expected srv-01 soft-deleted, got %+v", e)
	}
	if e.reason != ReasonAutoDeactivated {
		t.Errorf("deletion reason = %q, want %q", e.reason, ReasonAutoDeactivated)
	}
}

func TestReconcileReactivationCountsAsAdded(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)
	conn := testConn(models.TargetDevice, deviceMapping)

	// сущность была и пропала из фида
	if _, err := rec.Reconcile(conn, []map[string]any{{"nm": "srv-01"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Reconcile(conn, nil); err != nil {
		t.Fatal(err)
	}

	// вернулась — реактивация, в счётчиках как added
	c, err := rec.Reconcile(conn, []map[string]any{{"nm": "srv-01"}})
	if err != nil {
		t.Fatal(err)
	}
	want := Counters{Processed: 1, Added: 1, Reactivated: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("counters (-want +got):\n%s", diff)
	}
	e := store.byKey("srv-01")
	if !e.active || e.deleted || e.reason != "" {
		t.Errorf("expected reactivated entity, got %+v", e)
	}
}

func TestContactsNeverDeactivated(t *testing.T) {
	store := newFakeStore()
	store.seed("ops@example.com")
	rec := NewContactReconciler(store)
	conn := testConn(models.TargetContact, map[string]string{"email": "mail"})

	for i := 0; i < 3; i++ {
		c, err := rec.Reconcile(conn, nil)
		if err != nil {
			t.Fatal(err)
		}
		if c.Deactivated != 0 {
			t.Fatalf("run %d: deactivated = %d, want 0", i, c.Deactivated)
		}
	}
	if e := store.byKey("ops@example.com"); !e.active {
		t.Error("contact must stay active when missing from feed")
	}
}

func TestReconcileDuplicateKeyInFeed(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)

	// повтор ключа в одном фиде: вторая запись — update, не второй insert
	c, err := rec.Reconcile(testConn(models.TargetDevice, deviceMapping),
		[]map[string]any{{"nm": "srv-01", "loc": "dc1"}, {"nm": "srv-01", "loc": "dc2"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := Counters{Processed: 2, Added: 1, Updated: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("counters (-want +got):\n%s", diff)
	}
	if n := store.activeCount("srv-01"); n != 1 {
		t.Fatalf("active entities with key srv-01 = %d, want 1", n)
	}
	if got := store.byKey("srv-01").fields["location"]; got != "dc2" {
		t.Errorf("location = %v, want dc2 (last record wins)", got)
	}
}

func TestReconcileDuplicateKeyAfterReactivation(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)
	conn := testConn(models.TargetDevice, deviceMapping)

	// сущность деактивирована, затем фид содержит её ключ дважды
	if _, err := rec.Reconcile(conn, []map[string]any{{"nm": "srv-01"}}); err != nil {
		t.Fatal(err)
	}
	if _, err := rec.Reconcile(conn, nil); err != nil {
		t.Fatal(err)
	}

	c, err := rec.Reconcile(conn, []map[string]any{{"nm": "srv-01"}, {"nm": "srv-01"}})
	if err != nil {
		t.Fatal(err)
	}
	want := Counters{Processed: 2, Added: 1, Updated: 1, Reactivated: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("counters (-want +got):\n%s", diff)
	}
	if n := store.activeCount("srv-01"); n != 1 {
		t.Fatalf("active entities with key srv-01 = %d, want 1", n)
	}
}

func TestReconcileSkipsRecordWithoutKey(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)

	c, err := rec.Reconcile(testConn(models.TargetDevice, deviceMapping),
		[]map[string]any{{"loc": "dc1"}, {"nm": "srv-01"}})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	want := Counters{Processed: 2, Added: 1, Skipped: 1}
	if diff := cmp.Diff(want, c); diff != "" {
		t.Errorf("counters (-want +got):\n%s", diff)
	}
}

func TestPatchTouchesOnlyPresentFields(t *testing.T) {
	store := newFakeStore()
	e := store.seed("srv-01")
	e.fields["location"] = "dc1"
	rec := NewDeviceReconciler(store)

	// запись без loc: location не должен затираться
	_, err := rec.Reconcile(testConn(models.TargetDevice, deviceMapping),
		[]map[string]any{{"nm": "srv-01"}})
	if err != nil {
		t.Fatal(err)
	}
	if got := e.fields["location"]; got != "dc1" {
		t.Errorf("location = %v, want dc1 (unchanged)", got)
	}
	if e.patches != 1 {
		t.Errorf("patches = %d, want 1", e.patches)
	}
}

func TestReconcileDeviceTags(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)
	mapping := map[string]string{"name": "nm", "tags": "labels"}

	_, err := rec.Reconcile(testConn(models.TargetDevice, mapping),
		[]map[string]any{{"nm": "srv-01", "labels": []any{"prod", "edge"}}})
	if err != nil {
		t.Fatal(err)
	}
	e := store.byKey("srv-01")
	if diff := cmp.Diff([]any{"prod", "edge"}, e.fields["tags"]); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestReconcileDropsFieldsOutsideCatalog(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)
	mapping := map[string]string{"name": "nm", "bogus_column": "x"}

	_, err := rec.Reconcile(testConn(models.TargetDevice, mapping),
		[]map[string]any{{"nm": "srv-01", "x": "evil"}})
	if err != nil {
		t.Fatal(err)
	}
	e := store.byKey("srv-01")
	if _, ok := e.fields["bogus_column"]; ok {
		t.Error("field outside the catalog must not reach the store")
	}
}

func TestReconcilePersistenceErrorAborts(t *testing.T) {
	store := newFakeStore()
	store.failOn = "create"
	rec := NewDeviceReconciler(store)

	_, err := rec.Reconcile(testConn(models.TargetDevice, deviceMapping),
		[]map[string]any{{"nm": "srv-01"}, {"nm": "srv-02"}})
	if err == nil {
		t.Fatal("expected error from store.Create")
	}
}

func TestReconcileMalformedMappingFails(t *testing.T) {
	store := newFakeStore()
	rec := NewDeviceReconciler(store)
	conn := testConn(models.TargetDevice, nil)
	conn.FieldMapping = datatypes.JSON([]byte(`"not an object"`))

	if _, err := rec.Reconcile(conn, nil); err == nil {
		t.Fatal("expected mapping error")
	}
}
