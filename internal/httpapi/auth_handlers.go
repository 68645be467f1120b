package httpapi

import (
	"net/http"
	"strings"
	"time"

	"watchpost.org/internal/audit"
	"watchpost.org/internal/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      userView  `json:"user"`
}

type userView struct {
	ID       string    `json:"id"`
	Email    string    `json:"email"`
	Name     string    `json:"name,omitempty"`
	TeamName string    `json:"team_name,omitempty"`
	Role     auth.Role `json:"role"`
	Created  time.Time `json:"created_at"`
}

func viewUser(u auth.User) userView {
	return userView{
		ID:       u.ID,
		Email:    u.Email,
		Name:     u.Name,
		TeamName: u.TeamName,
		Role:     u.Role,
		Created:  u.CreatedAt,
	}
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	fields := map[string]string{}
	if req.Email == "" {
		fields["email"] = "required"
	}
	if req.Password == "" {
		fields["password"] = "required"
	}
	if len(fields) > 0 {
		writeFieldErrors(w, r, fields)
		return
	}

	session, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		audit.LogEvent(r.Context(), "login_failed", map[string]any{
			"email": req.Email,
		})
		handleDomainError(w, r, err)
		return
	}

	audit.LogEvent(r.Context(), "login_succeeded", map[string]any{
		"user_id": session.User.ID,
		"role":    string(session.User.Role),
	})
	writeJSON(w, http.StatusOK, loginResponse{
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
		User:      viewUser(session.User),
	})
}
