package inventory

import (
	"encoding/json"
	"net/http"
	"strconv"

	"warden/internal/models"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// HTTP — читающие ручки инвентаря (UI-списки и карточки).
type HTTP struct{ db *gorm.DB }

func NewHTTP(db *gorm.DB) *HTTP { return &HTTP{db: db} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/devices", h.listDevices).Methods(http.MethodGet)
	api.HandleFunc("/devices/{id}", h.getDevice).Methods(http.MethodGet)
	api.HandleFunc("/libraries", h.listLibraries).Methods(http.MethodGet)
	api.HandleFunc("/contacts", h.listContacts).Methods(http.MethodGet)
}

func orgOf(r *http.Request) uint {
	v, _ := strconv.ParseUint(r.URL.Query().Get("org_id"), 10, 64)
	return uint(v)
}

func (h *HTTP) listDevices(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	q := h.db.Where("org_id = ?", orgOf(r))
	if st := r.URL.Query().Get("status"); st != "" {
		q = q.Where("status = ?", st)
	}
	var out []models.Device
	if err := q.Order("name").Find(&out).Error; err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (h *HTTP) getDevice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	var m models.Device
	if err := h.db.First(&m, uint(idU)).Error; err != nil {
		http.Error(w, err.Error(), 404)
		return
	}
	_ = json.NewEncoder(w).Encode(m)
}

func (h *HTTP) listLibraries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var out []models.Library
	if err := h.db.Where("org_id = ?", orgOf(r)).Order("name").Find(&out).Error; err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (h *HTTP) listContacts(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var out []models.Contact
	if err := h.db.Where("org_id = ?", orgOf(r)).Order("email").Find(&out).Error; err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(out)
}
