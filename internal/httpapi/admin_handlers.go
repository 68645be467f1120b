package httpapi

import (
	"net/http"
	"strings"
	"time"

	"watchpost.org/internal/audit"
	"watchpost.org/internal/event"
)

func (a *API) handleAdmin(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/admin")
	switch {
	case path == "/observations":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.listForReview(w, r)
	case path == "/observations/successful":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.successfulByUser(w, r)
	case path == "/observations/count":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.countObservations(w, r)
	case path == "/users/count":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.countUsers(w, r)
	case strings.HasPrefix(path, "/observations/"):
		id := strings.TrimPrefix(path, "/observations/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		if r.Method != http.MethodPut {
			methodNotAllowed(w, r, http.MethodPut)
			return
		}
		a.verifyObservation(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// parseReviewFilter reads the optional query narrowing for the admin
// listing. Date bounds use YYYY-MM-DD; "to" is inclusive of that day.
func parseReviewFilter(r *http.Request) (event.ReviewFilter, map[string]string) {
	q := r.URL.Query()
	fields := map[string]string{}
	var f event.ReviewFilter

	if raw := q.Get("category"); raw != "" {
		cat, ok := event.ParseCategory(raw)
		if !ok {
			fields["category"] = "unknown category"
		} else {
			f.Category = cat
		}
	}
	status, err := event.ParseStatus(q.Get("status"))
	if err != nil {
		fields["status"] = err.Error()
	} else {
		f.Status = status
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields["from"] = "expected YYYY-MM-DD"
		} else {
			f.From = t.UTC()
		}
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			fields["to"] = "expected YYYY-MM-DD"
		} else {
			f.To = t.UTC().Add(24*time.Hour - time.Nanosecond)
		}
	}
	return f, fields
}

func (a *API) listForReview(w http.ResponseWriter, r *http.Request) {
	filter, fields := parseReviewFilter(r)
	if len(fields) > 0 {
		writeFieldErrors(w, r, fields)
		return
	}
	items, err := a.events.ListForReview(r.Context(), filter)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"observations": items,
		"count":        len(items),
	})
}

type verifyRequest struct {
	IsVerified *bool  `json:"is_verified"`
	AdminNotes string `json:"admin_notes"`
}

func (a *API) verifyObservation(w http.ResponseWriter, r *http.Request, id string) {
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.IsVerified == nil {
		writeFieldErrors(w, r, map[string]string{
			"is_verified": "required, must be true or false",
		})
		return
	}
	obsv, err := a.events.Verify(r.Context(), id, *req.IsVerified, req.AdminNotes)
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "observation_reviewed", map[string]any{
		"observation_id": obsv.ID,
		"is_verified":    *req.IsVerified,
		"score":          obsv.Score,
	})
	writeJSON(w, http.StatusOK, viewObservation(obsv))
}

func (a *API) successfulByUser(w http.ResponseWriter, r *http.Request) {
	groups, err := a.events.SuccessfulByUser(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"users": groups,
		"count": len(groups),
	})
}

func (a *API) countObservations(w http.ResponseWriter, r *http.Request) {
	n, err := a.events.Count(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (a *API) countUsers(w http.ResponseWriter, r *http.Request) {
	n, err := a.auth.CountUsers(r.Context())
	if err != nil {
		handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}
