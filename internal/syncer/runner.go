package syncer

import (
	"context"
	"errors"
	"fmt"
	stdsync "sync"
	"time"

	"warden/internal/logs"
	"warden/internal/models"
)

var (
	ErrSyncInProgress     = errors.New("sync already in progress for this connection")
	ErrConnectionInactive = errors.New("connection is not active")
	ErrUnknownTarget      = errors.New("unknown sync target")
)

// Registry — доступ к соединениям (internal/connections.Repo).
type Registry interface {
	Get(id uint) (*models.APIConnection, error)
	ListAutoSync() ([]models.APIConnection, error)
	SetLastSync(id uint, status, message string, at time.Time) error
}

// UserDirectory — атрибуция авто-запусков системной учёткой.
type UserDirectory interface {
	SystemUserID() (uint, error)
}

// Engine — общий путь синка для планировщика и ручного запуска:
// begin -> fetch -> reconcile -> финализация истории -> last_sync соединения.
type Engine struct {
	registry    Registry
	history     HistoryRecorder
	users       UserDirectory
	fetcher     FeedFetcher
	reconcilers map[string]Reconciler

	mu       stdsync.Mutex
	inflight map[uint]bool // per-connection lock: ручной и авто-запуски не пересекаются
}

func NewEngine(reg Registry, hist HistoryRecorder, users UserDirectory, fetcher FeedFetcher, recs ...Reconciler) *Engine {
	e := &Engine{
		registry:    reg,
		history:     hist,
		users:       users,
		fetcher:     fetcher,
		reconcilers: map[string]Reconciler{},
		inflight:    map[uint]bool{},
	}
	for _, r := range recs {
		e.reconcilers[r.Target()] = r
	}
	return e
}

// RunManual — синхронный запуск по действию пользователя. Ошибка
// возвращается вызывающему (для показа в UI) уже после записи в историю.
func (e *Engine) RunManual(ctx context.Context, connID, userID uint) (Counters, error) {
	return e.run(ctx, connID, userID, models.ExecManual)
}

// RunAuto — запуск из планировщика от имени системной учётки.
func (e *Engine) RunAuto(ctx context.Context, connID uint) (Counters, error) {
	initiator, err := e.users.SystemUserID()
	if err != nil {
		// конфигурационная ошибка: внешний вызов не делаем, но попытку фиксируем
		err = fmt.Errorf("resolve system user: %w", err)
		if histID, berr := e.history.Begin(connID, 0, models.ExecAuto); berr == nil {
			_ = e.history.Fail(histID, err.Error())
		}
		_ = e.registry.SetLastSync(connID, models.SyncStatusError, err.Error(), time.Now())
		return Counters{}, err
	}
	return e.run(ctx, connID, initiator, models.ExecAuto)
}

func (e *Engine) run(ctx context.Context, connID, initiator uint, execType string) (Counters, error) {
	conn, err := e.registry.Get(connID)
	if err != nil {
		return Counters{}, fmt.Errorf("connection %d: %w", connID, err)
	}
	if !conn.IsActive {
		return Counters{}, ErrConnectionInactive
	}

	if !e.acquire(connID) {
		return Counters{}, ErrSyncInProgress
	}
	defer e.release(connID)

	histID, err := e.history.Begin(connID, initiator, execType)
	if err != nil {
		return Counters{}, fmt.Errorf("open sync history: %w", err)
	}

	counters, runErr := e.execute(ctx, conn)
	now := time.Now()

	if runErr != nil {
		if err := e.history.Fail(histID, runErr.Error()); err != nil {
			logs.Logger.Errorf("sync history %d finalize: %v", histID, err)
		}
		if err := e.registry.SetLastSync(connID, models.SyncStatusError, runErr.Error(), now); err != nil {
			logs.Logger.Errorf("connection %d last_sync update: %v", connID, err)
		}
		observeRun(conn.SyncTarget, execType, models.RunStatusFailed, counters)
		return counters, runErr
	}

	detail := map[string]any{
		"reactivated": counters.Reactivated,
		"skipped":     counters.Skipped,
	}
	if err := e.history.Complete(histID, counters, detail); err != nil {
		logs.Logger.Errorf("sync history %d finalize: %v", histID, err)
	}
	if err := e.registry.SetLastSync(connID, models.SyncStatusSuccess, counters.Summary(), now); err != nil {
		logs.Logger.Errorf("connection %d last_sync update: %v", connID, err)
	}
	observeRun(conn.SyncTarget, execType, models.RunStatusCompleted, counters)
	logs.Logger.Infof("sync connection %d (%s, %s): %s", connID, conn.SyncTarget, execType, counters.Summary())
	return counters, nil
}

// execute — fetch + reconcile; паника внутри сводится к ошибке прогона,
// чтобы финализация истории отработала в любом случае.
func (e *Engine) execute(ctx context.Context, conn *models.APIConnection) (c Counters, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sync panic: %v", r)
		}
	}()

	rec, ok := e.reconcilers[conn.SyncTarget]
	if !ok {
		return Counters{}, fmt.Errorf("%w: %q", ErrUnknownTarget, conn.SyncTarget)
	}

	// кривой маппинг — конфигурационная ошибка, наружу не ходим
	if _, err := conn.Mapping(); err != nil {
		return Counters{}, fmt.Errorf("field mapping: %w", err)
	}

	feed, err := e.fetcher.Fetch(ctx, conn.URL)
	if err != nil {
		return Counters{}, err
	}
	return rec.Reconcile(conn, feed)
}

func (e *Engine) acquire(connID uint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.inflight[connID] {
		return false
	}
	e.inflight[connID] = true
	return true
}

func (e *Engine) release(connID uint) {
	e.mu.Lock()
	delete(e.inflight, connID)
	e.mu.Unlock()
}
