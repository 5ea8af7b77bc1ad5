package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/kozaktomas/roll-call/internal/database"
)

// UsersHandler handles subject management endpoints.
type UsersHandler struct {
	store database.UserStore
}

func NewUsersHandler(store database.UserStore) *UsersHandler {
	return &UsersHandler{store: store}
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Create registers a new subject.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if req.FullName == "" || req.Email == "" {
		respondError(w, http.StatusBadRequest, "full_name and email are required")
		return
	}

	id, err := h.store.AddUser(r.Context(), req.FullName, req.Email, database.Role(req.Role))
	switch {
	case errors.Is(err, database.ErrEmailExists):
		respondError(w, http.StatusConflict, "email already exists")
		return
	case errors.Is(err, database.ErrInvalidRole):
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	case err != nil:
		log.Printf("creating user %s: %v", sanitizeForLog(req.Email), err)
		respondError(w, http.StatusInternalServerError, "could not create user")
		return
	}

	respondJSON(w, http.StatusCreated, userResponse{
		ID:       id,
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
	})
}

// List returns subjects, optionally filtered by the role query parameter.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	role := database.Role(r.URL.Query().Get("role"))
	if role != "" && !role.Valid() {
		respondError(w, http.StatusBadRequest, "unknown role")
		return
	}

	users, err := h.store.ListUsers(r.Context(), role)
	if err != nil {
		log.Printf("listing users: %v", err)
		respondError(w, http.StatusInternalServerError, "could not list users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userResponse{ID: u.ID, FullName: u.FullName, Email: u.Email, Role: string(u.Role)})
	}
	respondJSON(w, http.StatusOK, map[string]any{"users": out})
}
