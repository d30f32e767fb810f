// Package localapi serves a small local HTTP status/control surface over
// the active Session: current tuning, latency breakdown, and effect
// parameter updates, so a local UI can drive the receiver without going
// through the daemon connection itself.
package localapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/mux"

	"github.com/hfdsp/receivercore/internal/latency"
	"github.com/hfdsp/receivercore/internal/settings"
)

// SessionView is the minimal surface localapi needs from a Session,
// kept as an interface so the server can be tested without a real one.
type SessionView interface {
	Status() Status
	SetEffectParam(effect, name string, value float64) error
	LatencyBreakdown() latency.Breakdown
	SettingsStore() *settings.Store
	LocalInstances() []settings.LocalInstance
	SavedInstances() []settings.SavedInstance
	SaveInstance(inst settings.SavedInstance) error
}

// Status is the current tuning/connection snapshot shown at GET /status.
type Status struct {
	Connected bool   `json:"connected"`
	Frequency int    `json:"frequency"`
	Mode      string `json:"mode"`
}

// Server is the local control/status HTTP API.
type Server struct {
	mu      sync.RWMutex
	session SessionView
	router  *mux.Router
	http    *http.Server
}

// NewServer builds a Server bound to addr, routing through session.
func NewServer(addr string, session SessionView) *Server {
	s := &Server{session: session, router: mux.NewRouter()}

	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/latency", s.handleLatency).Methods(http.MethodGet)
	s.router.HandleFunc("/effects/{effect}/{param}", s.handleSetParam).Methods(http.MethodPost)
	s.router.HandleFunc("/settings/save", s.handleSetSave).Methods(http.MethodPost)
	s.router.HandleFunc("/instances", s.handleInstances).Methods(http.MethodGet)
	s.router.HandleFunc("/instances/save", s.handleSaveInstance).Methods(http.MethodPost)

	s.http = &http.Server{Addr: addr, Handler: s.router}
	return s
}

// ListenAndServe starts the HTTP server; it blocks until the server stops.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

// Close shuts down the HTTP server.
func (s *Server) Close() error {
	return s.http.Close()
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Status())
}

func (s *Server) handleLatency(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.LatencyBreakdown())
}

func (s *Server) handleSetParam(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body struct {
		Value float64 `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}

	if err := s.session.SetEffectParam(vars["effect"], vars["param"], body.Value); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleSetSave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	s.session.SettingsStore().SetSaveEnabled(body.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleInstances lists receiver daemons discovered on the LAN alongside
// the user's persisted list.
func (s *Server) handleInstances(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"local": s.session.LocalInstances(),
		"saved": s.session.SavedInstances(),
	})
}

func (s *Server) handleSaveInstance(w http.ResponseWriter, r *http.Request) {
	var inst settings.SavedInstance
	if err := json.NewDecoder(r.Body).Decode(&inst); err != nil {
		http.Error(w, fmt.Sprintf("bad request: %v", err), http.StatusBadRequest)
		return
	}
	if inst.Host == "" || inst.Port == 0 {
		http.Error(w, "host and port are required", http.StatusBadRequest)
		return
	}
	if err := s.session.SaveInstance(inst); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
