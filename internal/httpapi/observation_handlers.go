package httpapi

import (
	"net/http"
	"time"

	"watchpost.org/internal/audit"
	"watchpost.org/internal/auth"
	"watchpost.org/internal/event"
)

type submitRequest struct {
	EventHeading string `json:"event_heading"`
	EventSummary string `json:"event_summary"`
	TimeNoted    string `json:"time_noted"`
}

type observationView struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	EventHeading string    `json:"event_heading"`
	EventSummary string    `json:"event_summary"`
	TimeNoted    string    `json:"time_noted"`
	SubmittedAt  time.Time `json:"submitted_at"`
	IsVerified   *bool     `json:"is_verified"`
	Score        int       `json:"score"`
	AdminNotes   string    `json:"admin_notes,omitempty"`
}

func viewObservation(o event.Observation) observationView {
	return observationView{
		ID:           o.ID,
		UserID:       o.UserID,
		EventHeading: o.EventHeading,
		EventSummary: o.EventSummary,
		TimeNoted:    o.TimeNoted,
		SubmittedAt:  o.SubmittedAt,
		IsVerified:   o.IsVerified,
		Score:        o.Score,
		AdminNotes:   o.AdminNotes,
	}
}

func viewObservations(list []event.Observation) []observationView {
	out := make([]observationView, 0, len(list))
	for _, o := range list {
		out = append(out, viewObservation(o))
	}
	return out
}

func (a *API) handleObservations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.submitObservation(w, r)
	case http.MethodGet:
		a.listOwnObservations(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) submitObservation(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var req submitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	obsv, err := a.events.Submit(r.Context(), userID, event.SubmitInput{
		EventHeading: req.EventHeading,
		EventSummary: req.EventSummary,
		TimeNoted:    req.TimeNoted,
	})
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "observation_submitted", map[string]any{
		"observation_id": obsv.ID,
		"event_heading":  obsv.EventHeading,
	})
	writeJSON(w, http.StatusCreated, viewObservation(obsv))
}

func (a *API) listOwnObservations(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	list, err := a.events.ListByUser(r.Context(), userID)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"observations": viewObservations(list),
		"count":        len(list),
	})
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	entries, err := a.events.Leaderboard(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"leaderboard": entries,
	})
}
