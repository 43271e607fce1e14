package httpapi

import (
	"net/http"
	"time"

	"medequip/internal/shared/models"
)

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	Error     string    `json:"error,omitempty"`
}

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC(), Database: "connected"}
	if r.db != nil {
		if err := r.db.Ping(req.Context()); err != nil {
			resp.Status, resp.Database, resp.Error = "error", "disconnected", err.Error()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleLogin accepts the OAuth2 password form (username, password).
func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid form")
		return
	}
	username, password := req.PostForm.Get("username"), req.PostForm.Get("password")
	if username == "" || password == "" {
		writeDetail(w, http.StatusUnprocessableEntity, "username and password required")
		return
	}
	token, err := r.services.Auth.Login(req.Context(), username, password)
	if err != nil {
		r.writeError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(req.Context()).Profile())
}
