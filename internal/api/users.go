package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/meetapp/internal/domain"
	"github.com/example/meetapp/internal/store"
	"golang.org/x/crypto/bcrypt"
)

type UserHandler struct {
	store *store.PostgresStore
}

func NewUserHandler(s *store.PostgresStore) *UserHandler {
	return &UserHandler{store: s}
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Name == "" || len(req.Name) > 250 {
		respondError(w, http.StatusBadRequest, "name is required and must be at most 250 characters")
		return
	}
	if req.Email == "" || len(req.Email) > 150 {
		respondError(w, http.StatusBadRequest, "email is required and must be at most 150 characters")
		return
	}
	if len(req.Password) < 6 || len(req.Password) > 72 {
		respondError(w, http.StatusBadRequest, "password must be between 6 and 72 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	user, err := h.store.CreateUser(r.Context(), req.Name, req.Email, string(hash))
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(w, http.StatusBadRequest, "user already exists")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	respondJSON(w, http.StatusCreated, userResponse{ID: user.ID, Name: user.Name, Email: user.Email})
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.store.GetUser(r.Context(), CallerID(r))
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load user")
		return
	}
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unknown user")
		return
	}

	if req.Name != nil {
		if *req.Name == "" || len(*req.Name) > 250 {
			respondError(w, http.StatusBadRequest, "name must be at most 250 characters")
			return
		}
		user.Name = *req.Name
	}
	if req.Email != nil && *req.Email != user.Email {
		if *req.Email == "" || len(*req.Email) > 150 {
			respondError(w, http.StatusBadRequest, "email must be at most 150 characters")
			return
		}
		user.Email = *req.Email
	}

	if req.Password != nil {
		if req.OldPassword == nil {
			respondError(w, http.StatusBadRequest, "old_password is required to change the password")
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(*req.OldPassword)) != nil {
			respondError(w, http.StatusUnauthorized, "password does not match")
			return
		}
		if len(*req.Password) < 6 || len(*req.Password) > 72 {
			respondError(w, http.StatusBadRequest, "password must be between 6 and 72 characters")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update user")
			return
		}
		user.PasswordHash = string(hash)
	}

	updated, err := h.store.UpdateUser(r.Context(), user)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			respondError(w, http.StatusBadRequest, "this e-mail is already being used")
			return
		}
		respondError(w, http.StatusInternalServerError, "failed to update user")
		return
	}

	respondJSON(w, http.StatusOK, userResponse{ID: updated.ID, Name: updated.Name, Email: updated.Email})
}
