package ipam

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

type HTTP struct{ repo *Repo }

func NewHTTP(r *Repo) *HTTP { return &HTTP{repo: r} }

func (h *HTTP) RegisterRoutes(r *mux.Router) {
	api := r.PathPrefix("/api/v1/ipam").Subrouter()

	// POST /api/v1/ipam/prefixes  { cidr, note, org_id }
	api.HandleFunc("/prefixes", h.createRootPrefix).Methods(http.MethodPost)

	// GET /api/v1/ipam/prefixes?org_id=1 — корневые префиксы
	api.HandleFunc("/prefixes", h.listRoots).Methods(http.MethodGet)

	// POST /api/v1/ipam/prefixes/{id}/allocate?new_prefix_len=24&note=...
	api.HandleFunc("/prefixes/{id}/allocate", h.allocateChild).Methods(http.MethodPost)

	// GET /api/v1/ipam/prefixes/{id}/children
	api.HandleFunc("/prefixes/{id}/children", h.listChildren).Methods(http.MethodGet)

	// POST /api/v1/ipam/prefixes/{id}/assign/{uuid} — IP устройству
	api.HandleFunc("/prefixes/{id}/assign/{uuid}", h.assignToDevice).Methods(http.MethodPost)

	// GET  /api/v1/ipam/devices/{uuid}/ips
	api.HandleFunc("/devices/{uuid}/ips", h.listDeviceIPs).Methods(http.MethodGet)
	// DELETE /api/v1/ipam/devices/{uuid}/ips/{id}
	api.HandleFunc("/devices/{uuid}/ips/{id}", h.releaseDeviceIP).Methods(http.MethodDelete)
}

func (h *HTTP) createRootPrefix(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	var in struct {
		CIDR  string `json:"cidr"`
		Note  string `json:"note"`
		OrgID uint   `json:"org_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.CIDR == "" {
		http.Error(w, "invalid body (need {cidr, note})", http.StatusBadRequest)
		return
	}
	p, err := h.repo.CreateRootPrefix(in.OrgID, in.CIDR, in.Note)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

func (h *HTTP) listRoots(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	orgU, _ := strconv.ParseUint(r.URL.Query().Get("org_id"), 10, 64)
	ps, err := h.repo.ListRoots(uint(orgU))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(ps)
}

func (h *HTTP) allocateChild(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || idU == 0 {
		http.Error(w, "invalid parent id", http.StatusBadRequest)
		return
	}
	newLen, err := strconv.ParseInt(r.URL.Query().Get("new_prefix_len"), 10, 64)
	if err != nil || newLen == 0 {
		http.Error(w, "new_prefix_len required", http.StatusBadRequest)
		return
	}
	note := r.URL.Query().Get("note")
	p, e := h.repo.AllocateChild(uint(idU), int(newLen), note)
	if e != nil {
		http.Error(w, e.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(p)
}

func (h *HTTP) listChildren(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, _ := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	ps, err := h.repo.ListChildren(uint(idU))
	if err != nil {
		http.Error(w, err.Error(), 500)
		return
	}
	_ = json.NewEncoder(w).Encode(ps)
}

func (h *HTTP) assignToDevice(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	idU, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || idU == 0 {
		http.Error(w, "invalid prefix id", http.StatusBadRequest)
		return
	}
	uuid := mux.Vars(r)["uuid"]
	rec, err := h.repo.AssignIPToDevice(uint(idU), uuid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(rec)
}

func (h *HTTP) listDeviceIPs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	uuid := mux.Vars(r)["uuid"]
	recs, err := h.repo.DeviceIPs(uuid)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	type out struct {
		ID         uint   `json:"id"`
		PrefixID   uint   `json:"prefix_id"`
		Address    string `json:"address"`
		PrefixCIDR string `json:"prefix_cidr"`
		Netmask    string `json:"netmask"`
		Gateway    string `json:"gateway"`
	}

	result := make([]out, 0, len(recs))
	for _, rec := range recs {
		p, _ := h.repo.GetPrefix(rec.PrefixID)
		var cidr, nm, gw string
		if p != nil {
			cidr = p.CIDR
			if _, nw, e := net.ParseCIDR(p.CIDR); e == nil {
				nm = net.IP(nw.Mask).String()
				gw = firstUsableIPv4(nw)
			}
		}
		result = append(result, out{
			ID:         rec.ID,
			PrefixID:   rec.PrefixID,
			Address:    rec.Address,
			PrefixCIDR: cidr,
			Netmask:    nm,
			Gateway:    gw,
		})
	}
	_ = json.NewEncoder(w).Encode(result)
}

func (h *HTTP) releaseDeviceIP(w http.ResponseWriter, r *http.Request) {
	idU, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil || idU == 0 {
		http.Error(w, "invalid ip id", http.StatusBadRequest)
		return
	}
	if err := h.repo.ReleaseDeviceIP(uint(idU)); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// firstUsableIPv4 — network + 1 (шлюз по соглашению)
func firstUsableIPv4(nw *net.IPNet) string {
	ip := nw.IP.To4()
	if ip == nil {
		return ""
	}
	u := uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
	u++
	return net.IPv4(byte(u>>24), byte(u>>16), byte(u>>8), byte(u)).String()
}
