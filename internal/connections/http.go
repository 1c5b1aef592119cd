package connections

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"warden/internal/connections/mapschema"
	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/datatypes"
)

type HTTP struct{ repo *Repo }

func NewHTTP(r *Repo) *HTTP { return &HTTP{repo: r} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/connections", h.create).Methods(http.MethodPost)
	api.HandleFunc("/connections", h.list).Methods(http.MethodGet)
	api.HandleFunc("/connections/{id}", h.get).Methods(http.MethodGet)
	api.HandleFunc("/connections/{id}", h.update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/connections/{id}", h.delete).Methods(http.MethodDelete)
}

type connectionPayload struct {
	Name           *string           `json:"name"`
	URL            *string           `json:"url"`
	SyncTarget     *string           `json:"sync_target"`
	FieldMapping   map[string]string `json:"field_mapping"`
	AutoSync       *bool             `json:"auto_sync"`
	FrequencyValue *int              `json:"frequency_value"`
	FrequencyUnit  *string           `json:"frequency_unit"`
	IsActive       *bool             `json:"is_active"`
	OrgID          *uint             `json:"org_id"`
}

func validFrequencyUnit(u string) bool {
	switch u {
	case models.UnitMinutes, models.UnitHours, models.UnitDays:
		return true
	}
	return false
}

func (h *HTTP) create(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var in connectionPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		http.Error(w, "name required", 400)
		return
	}
	if in.URL == nil || strings.TrimSpace(*in.URL) == "" {
		http.Error(w, "url required", 400)
		return
	}
	if in.SyncTarget == nil {
		http.Error(w, "sync_target required", 400)
		return
	}
	if err := mapschema.Validate(*in.SyncTarget, in.FieldMapping); err != nil {
		http.Error(w, err.Error(), 400)
		return
	}

	c := &models.APIConnection{
		Name:           strings.TrimSpace(*in.Name),
		URL:            strings.TrimSpace(*in.URL),
		SyncTarget:     *in.SyncTarget,
		FrequencyValue: 60,
		FrequencyUnit:  models.UnitMinutes,
		IsActive:       true,
	}
	if in.FieldMapping != nil {
		b, _ := json.Marshal(in.FieldMapping)
		c.FieldMapping = datatypes.JSON(b)
	}
	if in.AutoSync != nil {
		c.AutoSync = *in.AutoSync
	}
	if in.FrequencyValue != nil && *in.FrequencyValue > 0 {
		c.FrequencyValue = *in.FrequencyValue
	}
	if in.FrequencyUnit != nil {
		if !validFrequencyUnit(*in.FrequencyUnit) {
			http.Error(w, "frequency_unit must be minutes|hours|days", 400)
			return
		}
		c.FrequencyUnit = *in.FrequencyUnit
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if in.OrgID != nil {
		c.OrgID = *in.OrgID
	}

	if err := h.repo.Create(c); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(c)
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	orgU, _ := strconv.ParseUint(r.URL.Query().Get("org_id"), 10, 64)
	out, err := h.repo.List(uint(orgU))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	c, err := h.repo.Get(uint(idU))
	if err != nil {
		http.Error(w, err.Error(), 404)
		return
	}
	_ = json.NewEncoder(w).Encode(c)
}

func (h *HTTP) update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	c, err := h.repo.Get(uint(idU))
	if err != nil {
		http.Error(w, err.Error(), 404)
		return
	}
	var in connectionPayload
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid json", 400)
		return
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.URL != nil {
		c.URL = strings.TrimSpace(*in.URL)
	}
	if in.SyncTarget != nil {
		c.SyncTarget = *in.SyncTarget
	}
	if in.FieldMapping != nil {
		if err := mapschema.Validate(c.SyncTarget, in.FieldMapping); err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		b, _ := json.Marshal(in.FieldMapping)
		c.FieldMapping = datatypes.JSON(b)
	} else if in.SyncTarget != nil {
		// смена вида без новой таблицы: перепроверяем старую
		m, err := c.Mapping()
		if err == nil {
			err = mapschema.Validate(c.SyncTarget, m)
		}
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
	}
	if in.AutoSync != nil {
		c.AutoSync = *in.AutoSync
	}
	if in.FrequencyValue != nil && *in.FrequencyValue > 0 {
		c.FrequencyValue = *in.FrequencyValue
	}
	if in.FrequencyUnit != nil {
		if !validFrequencyUnit(*in.FrequencyUnit) {
			http.Error(w, "frequency_unit must be minutes|hours|days", 400)
			return
		}
		c.FrequencyUnit = *in.FrequencyUnit
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}

	if err := h.repo.Update(c); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(c)
}

func (h *HTTP) delete(w http.ResponseWriter, r *http.Request) {
	idU, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err := h.repo.Delete(uint(idU)); err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
