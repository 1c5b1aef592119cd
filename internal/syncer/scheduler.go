package syncer

import (
	"context"
	"sync/atomic"
	"time"

	"warden/internal/logs"
	"warden/internal/models"
)

// schedulerActive — один планировщик на процесс. Повторный Start
// (например, при горячем перезапуске приложения поверх живого) — no-op.
var schedulerActive atomic.Bool

// Scheduler раз в tick-интервал обходит активные auto-sync соединения и
// запускает просроченные, строго последовательно. Ошибка одного
// соединения не прерывает обработку остальных.
type Scheduler struct {
	engine   *Engine
	registry Registry
	interval time.Duration

	owned bool
	busy  atomic.Bool // защита от наложения тиков: занято — тик пропускаем
	stop  chan struct{}
	done  chan struct{}
}

func NewScheduler(engine *Engine, registry Registry, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Scheduler{engine: engine, registry: registry, interval: interval}
}

func (s *Scheduler) Start() {
	if !schedulerActive.CompareAndSwap(false, true) {
		logs.Logger.Info("sync scheduler already running in this process, start ignored")
		return
	}
	s.owned = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop()
	logs.Logger.Infof("sync scheduler started, tick every %s", s.interval)
}

func (s *Scheduler) Stop() {
	if !s.owned {
		return
	}
	close(s.stop)
	<-s.done
	s.owned = false
	schedulerActive.Store(false)
	logs.Logger.Info("sync scheduler stopped")
}

func (s *Scheduler) loop() {
	defer close(s.done)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			go s.Tick(context.Background())
		}
	}
}

// Tick — один проход планировщика. Экспортирован для ручного прогона.
func (s *Scheduler) Tick(ctx context.Context) {
	if !s.busy.CompareAndSwap(false, true) {
		logs.Logger.Warn("previous sync tick still running, skipping this one")
		return
	}
	defer s.busy.Store(false)

	conns, err := s.registry.ListAutoSync()
	if err != nil {
		logs.Logger.Errorf("sync tick: list connections: %v", err)
		return
	}

	now := time.Now()
	for i := range conns {
		conn := &conns[i]
		due, wait := Due(conn, now)
		if !due {
			logs.Logger.Debugf("connection %d (%s) not due, next sync in %s", conn.ID, conn.Name, wait.Round(time.Second))
			continue
		}
		if _, err := s.engine.RunAuto(ctx, conn.ID); err != nil {
			// фиксация в истории уже сделана внутри Engine
			logs.Logger.Errorf("auto sync connection %d (%s): %v", conn.ID, conn.Name, err)
		}
	}
}

// Due — просрочено ли соединение: синка не было вообще, либо с последнего
// прошло не меньше настроенной периодичности. Второе значение — сколько
// осталось ждать.
func Due(c *models.APIConnection, now time.Time) (bool, time.Duration) {
	if c.LastSyncAt == nil {
		return true, 0
	}
	elapsed := now.Sub(*c.LastSyncAt)
	if elapsed >= c.Frequency() {
		return true, 0
	}
	return false, c.Frequency() - elapsed
}
