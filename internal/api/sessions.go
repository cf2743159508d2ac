package api

import (
	"encoding/json"
	"net/http"

	"github.com/example/meetapp/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type SessionHandler struct {
	store     *store.PostgresStore
	jwtSecret string
}

func NewSessionHandler(s *store.PostgresStore, jwtSecret string) *SessionHandler {
	return &SessionHandler{store: s, jwtSecret: jwtSecret}
}

type createSessionRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createSessionResponse struct {
	User  userResponse `json:"user"`
	Token string       `json:"token"`
}

// Create exchanges email+password for a signed session token.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.store.GetUserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		// Same response for both cases: do not reveal which part failed.
		respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := IssueToken(h.jwtSecret, user.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	respondJSON(w, http.StatusOK, createSessionResponse{
		User:  userResponse{ID: user.ID, Name: user.Name, Email: user.Email},
		Token: token,
	})
}
