package syncer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"warden/internal/models"

	"gorm.io/gorm"
)

type memRegistry struct {
	conns      map[uint]*models.APIConnection
	lastStatus map[uint]string
	lastMsg    map[uint]string
}

func newMemRegistry(conns ...*models.APIConnection) *memRegistry {
	r := &memRegistry{
		conns:      map[uint]*models.APIConnection{},
		lastStatus: map[uint]string{},
		lastMsg:    map[uint]string{},
	}
	for _, c := range conns {
		r.conns[c.ID] = c
	}
	return r
}

func (r *memRegistry) Get(id uint) (*models.APIConnection, error) {
	c, ok := r.conns[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *memRegistry) ListAutoSync() ([]models.APIConnection, error) {
	var out []models.APIConnection
	for _, c := range r.conns {
		if c.AutoSync && c.IsActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memRegistry) SetLastSync(id uint, status, message string, at time.Time) error {
	r.lastStatus[id] = status
	r.lastMsg[id] = message
	if c, ok := r.conns[id]; ok {
		t := at
		c.LastSyncAt = &t
		c.LastSyncStatus = status
		c.LastSyncMessage = message
	}
	return nil
}

type histRow struct {
	connID    uint
	initiator uint
	execType  string
	status    string
	errMsg    string
	counters  Counters
}

type memRecorder struct{ rows []*histRow }

func (m *memRecorder) Begin(connID, initiator uint, execType string) (uint, error) {
	m.rows = append(m.rows, &histRow{
		connID: connID, initiator: initiator, execType: execType,
		status: models.RunStatusRunning,
	})
	return uint(len(m.rows)), nil
}

func (m *memRecorder) Complete(id uint, c Counters, detail map[string]any) error {
	r := m.rows[id-1]
	r.status = models.RunStatusCompleted
	r.counters = c
	return nil
}

func (m *memRecorder) Fail(id uint, errMsg string) error {
	r := m.rows[id-1]
	r.status = models.RunStatusFailed
	r.errMsg = errMsg
	return nil
}

type memUsers struct {
	id  uint
	err error
}

func (u memUsers) SystemUserID() (uint, error) { return u.id, u.err }

func feedServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRunManualSuccess(t *testing.T) {
	ts := feedServer(t, `[{"nm":"srv-01","loc":"dc1"}]`)

	conn := testConn(models.TargetDevice, deviceMapping)
	conn.URL = ts.URL
	reg := newMemRegistry(conn)
	recd := &memRecorder{}
	store := newFakeStore()

	engine := NewEngine(reg, recd, memUsers{id: 7}, NewHTTPFetcher(2*time.Second),
		NewDeviceReconciler(store))

	counters, err := engine.RunManual(context.Background(), conn.ID, 42)
	if err != nil {
		t.Fatalf("RunManual: %v", err)
	}
	if counters.Added != 1 {
		t.Errorf("added = %d, want 1", counters.Added)
	}

	if len(recd.rows) != 1 {
		t.Fatalf("history rows = %d, want 1", len(recd.rows))
	}
	row := recd.rows[0]
	if row.status != models.RunStatusCompleted {
		t.Errorf("history status = %q, want completed", row.status)
	}
	if row.initiator != 42 || row.execType != models.ExecManual {
		t.Errorf("attribution = (%d, %s), want (42, manual)", row.initiator, row.execType)
	}

	if reg.lastStatus[conn.ID] != models.SyncStatusSuccess {
		t.Errorf("last_sync_status = %q, want success", reg.lastStatus[conn.ID])
	}
	if want := "1 added, 0 updated, 0 deactivated"; reg.lastMsg[conn.ID] != want {
		t.Errorf("last_sync_message = %q, want %q", reg.lastMsg[conn.ID], want)
	}
	if conn.LastSyncAt == nil {
		t.Error("LastSyncAt not set")
	}
}

func TestRunFailsOnNonArrayResponse(t *testing.T) {
	ts := feedServer(t, `{"error":"down"}`)

	conn := testConn(models.TargetDevice, deviceMapping)
	conn.URL = ts.URL
	reg := newMemRegistry(conn)
	recd := &memRecorder{}
	store := newFakeStore()

	engine := NewEngine(reg, recd, memUsers{id: 7}, NewHTTPFetcher(2*time.Second),
		NewDeviceReconciler(store))

	_, err := engine.RunManual(context.Background(), conn.ID, 42)
	if err == nil {
		t.Fatal("expected shape error")
	}

	if len(recd.rows) != 1 || recd.rows[0].status != models.RunStatusFailed {
		t.Fatalf("expected one failed history row, got %+v", recd.rows)
	}
	if !strings.Contains(recd.rows[0].errMsg, "JSON array") {
		t.Errorf("error message %q should mention the expected shape", recd.rows[0].errMsg)
	}
	if reg.lastStatus[conn.ID] != models.SyncStatusError {
		t.Errorf("last_sync_status = %q, want error", reg.lastStatus[conn.ID])
	}
	if len(store.entities) != 0 {
		t.Error("no entity rows may be touched on a shape error")
	}
}

func TestRunRejectsConcurrentRunForSameConnection(t *testing.T) {
	conn := testConn(models.TargetDevice, deviceMapping)
	reg := newMemRegistry(conn)
	recd := &memRecorder{}

	engine := NewEngine(reg, recd, memUsers{}, NewHTTPFetcher(time.Second),
		NewDeviceReconciler(newFakeStore()))

	if !engine.acquire(conn.ID) {
		t.Fatal("acquire failed")
	}
	defer engine.release(conn.ID)

	_, err := engine.RunManual(context.Background(), conn.ID, 1)
	if !errors.Is(err, ErrSyncInProgress) {
		t.Fatalf("err = %v, want ErrSyncInProgress", err)
	}
	if len(recd.rows) != 0 {
		t.Error("busy run must not open a history row")
	}
}

func TestRunInactiveConnection(t *testing.T) {
	conn := testConn(models.TargetDevice, deviceMapping)
	conn.IsActive = false
	reg := newMemRegistry(conn)
	recd := &memRecorder{}

	engine := NewEngine(reg, recd, memUsers{}, NewHTTPFetcher(time.Second),
		NewDeviceReconciler(newFakeStore()))

	_, err := engine.RunManual(context.Background(), conn.ID, 1)
	if !errors.Is(err, ErrConnectionInactive) {
		t.Fatalf("err = %v, want ErrConnectionInactive", err)
	}
}

func TestRunUnknownTargetFailsRun(t *testing.T) {
	ts := feedServer(t, `[]`)
	conn := testConn("rack", nil)
	conn.URL = ts.URL
	reg := newMemRegistry(conn)
	recd := &memRecorder{}

	engine := NewEngine(reg, recd, memUsers{}, NewHTTPFetcher(time.Second),
		NewDeviceReconciler(newFakeStore()))

	_, err := engine.RunManual(context.Background(), conn.ID, 1)
	if !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("err = %v, want ErrUnknownTarget", err)
	}
	if len(recd.rows) != 1 || recd.rows[0].status != models.RunStatusFailed {
		t.Fatalf("expected one failed history row, got %+v", recd.rows)
	}
}

func TestRunMalformedMappingFailsBeforeFetch(t *testing.T) {
	conn := testConn(models.TargetDevice, nil)
	conn.FieldMapping = []byte(`"not an object"`)
	reg := newMemRegistry(conn)
	recd := &memRecorder{}

	// фетчер без фидов: если до него дойдёт, ошибка будет про connection refused
	engine := NewEngine(reg, recd, memUsers{id: 7},
		fakeFetcher{}, NewDeviceReconciler(newFakeStore()))

	_, err := engine.RunManual(context.Background(), conn.ID, 1)
	if err == nil || !strings.Contains(err.Error(), "field mapping") {
		t.Fatalf("err = %v, want field mapping error before any fetch", err)
	}
	if len(recd.rows) != 1 || recd.rows[0].status != models.RunStatusFailed {
		t.Fatalf("expected one failed history row, got %+v", recd.rows)
	}
}

func TestRunAutoMissingSystemUser(t *testing.T) {
	conn := testConn(models.TargetDevice, deviceMapping)
	reg := newMemRegistry(conn)
	recd := &memRecorder{}

	engine := NewEngine(reg, recd, memUsers{err: errors.New("system user not found")},
		NewHTTPFetcher(time.Second), NewDeviceReconciler(newFakeStore()))

	_, err := engine.RunAuto(context.Background(), conn.ID)
	if err == nil {
		t.Fatal("expected configuration error")
	}
	if len(recd.rows) != 1 || recd.rows[0].status != models.RunStatusFailed {
		t.Fatalf("config error must still be recorded, got %+v", recd.rows)
	}
	if reg.lastStatus[conn.ID] != models.SyncStatusError {
		t.Errorf("last_sync_status = %q, want error", reg.lastStatus[conn.ID])
	}
}

func TestRunAutoAttributesSystemUser(t *testing.T) {
	ts := feedServer(t, `[]`)
	conn := testConn(models.TargetDevice, deviceMapping)
	conn.URL = ts.URL
	reg := newMemRegistry(conn)
	recd := &memRecorder{}

	engine := NewEngine(reg, recd, memUsers{id: 7}, NewHTTPFetcher(2*time.Second),
		NewDeviceReconciler(newFakeStore()))

	if _, err := engine.RunAuto(context.Background(), conn.ID); err != nil {
		t.Fatalf("RunAuto: %v", err)
	}
	row := recd.rows[0]
	if row.initiator != 7 || row.execType != models.ExecAuto {
		t.Errorf("attribution = (%d, %s), want (7, auto)", row.initiator, row.execType)
	}
}
