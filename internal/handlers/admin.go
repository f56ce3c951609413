package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	engine "github.com/nhiquach/white-elephant-party/engine"
	"github.com/nhiquach/white-elephant-party/internal/auth"
	"github.com/nhiquach/white-elephant-party/internal/database"
	"github.com/nhiquach/white-elephant-party/internal/store"
)

// AdminStore is the backend surface the maintenance routes need.
type AdminStore interface {
	store.Store
	store.Admin
}

// ResultsReader serves archived outcomes of finished parties.
type ResultsReader interface {
	Results(ctx context.Context, partyID string) ([]engine.Result, error)
}

// AdminHandler serves /api/admin. Every route requires X-Admin-Key.
type AdminHandler struct {
	gate    *auth.AdminGate
	store   AdminStore
	results ResultsReader // nil when no archive is configured
	log     *logrus.Logger
}

// NewAdminHandler returns nil when gate is nil, which leaves the admin routes
// unregistered.
func NewAdminHandler(gate *auth.AdminGate, st AdminStore, results ResultsReader, log *logrus.Logger) *AdminHandler {
	if gate == nil {
		return nil
	}
	return &AdminHandler{gate: gate, store: st, results: results, log: log}
}

func (a *AdminHandler) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/admin/parties", a.guard(a.list))
	mux.HandleFunc("GET /api/admin/parties/{id}", a.guard(a.get))
	mux.HandleFunc("DELETE /api/admin/parties/{id}", a.guard(a.remove))
	mux.HandleFunc("GET /api/admin/parties/{id}/results", a.guard(a.archived))
}

func (a *AdminHandler) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.gate.Allow(r.Header.Get("X-Admin-Key")) {
			a.log.WithField("remote", r.RemoteAddr).Warn("admin key rejected")
			writeMessage(w, http.StatusForbidden, "Admin key required")
			return
		}
		next(w, r)
	}
}

func (a *AdminHandler) list(w http.ResponseWriter, r *http.Request) {
	parties, err := a.store.List(r.Context())
	if err != nil {
		a.fail(w, r, "Failed to list parties", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count   int             `json:"count"`
		Parties []store.Summary `json:"parties"`
	}{len(parties), parties})
}

// get returns the unprojected record, wrapped gifts included.
func (a *AdminHandler) get(w http.ResponseWriter, r *http.Request) {
	p, err := a.store.Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Party not found")
		return
	}
	if err != nil {
		a.fail(w, r, "Failed to get party", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *AdminHandler) remove(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := a.store.Delete(r.Context(), id); err != nil {
		a.fail(w, r, "Failed to delete party", err)
		return
	}
	a.log.WithField("party", id).Info("party deleted by admin")
	writeJSON(w, http.StatusOK, struct {
		Deleted string `json:"deleted"`
	}{id})
}

func (a *AdminHandler) archived(w http.ResponseWriter, r *http.Request) {
	if a.results == nil {
		writeMessage(w, http.StatusNotFound, "No results archive configured")
		return
	}
	results, err := a.results.Results(r.Context(), r.PathValue("id"))
	if errors.Is(err, database.ErrNoResults) {
		writeMessage(w, http.StatusNotFound, "No archived results")
		return
	}
	if err != nil {
		a.fail(w, r, "Failed to load results", err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Results []engine.Result `json:"results"`
	}{results})
}

func (a *AdminHandler) fail(w http.ResponseWriter, r *http.Request, what string, err error) {
	a.log.WithError(err).WithField("path", r.URL.Path).Error(what)
	writeMessage(w, http.StatusInternalServerError, what)
}
