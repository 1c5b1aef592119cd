package syncer

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/gorilla/mux"
)

// HTTP — ручной запуск синка и просмотр истории.
type HTTP struct {
	engine  *Engine
	history *Recorder
}

func NewHTTP(engine *Engine, history *Recorder) *HTTP {
	return &HTTP{engine: engine, history: history}
}

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	// POST /api/v1/connections/{id}/sync — запустить синк сейчас
	api.HandleFunc("/connections/{id}/sync", h.trigger).Methods(http.MethodPost)

	// GET /api/v1/connections/{id}/history?limit=50
	api.HandleFunc("/connections/{id}/history", h.listHistory).Methods(http.MethodGet)
}

func (h *HTTP) trigger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || idU == 0 {
		http.Error(w, "invalid connection id", http.StatusBadRequest)
		return
	}

	// кто запускает (аутентификация — забота внешнего слоя)
	var userID uint
	if v, err := strconv.ParseUint(r.Header.Get("X-User-Id"), 10, 64); err == nil {
		userID = uint(v)
	}

	counters, runErr := h.engine.RunManual(r.Context(), uint(idU), userID)
	if runErr != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(runErr, gorm.ErrRecordNotFound):
			status = http.StatusNotFound
		case errors.Is(runErr, ErrSyncInProgress):
			status = http.StatusConflict
		case errors.Is(runErr, ErrConnectionInactive), errors.Is(runErr, ErrUnknownTarget):
			status = http.StatusUnprocessableEntity
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": runErr.Error()})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":     counters.Summary(),
		"processed":   counters.Processed,
		"added":       counters.Added,
		"updated":     counters.Updated,
		"deactivated": counters.Deactivated,
		"skipped":     counters.Skipped,
	})
}

func (h *HTTP) listHistory(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || idU == 0 {
		http.Error(w, "invalid connection id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := h.history.ListByConnection(uint(idU), limit)
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(items)
}
