package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	IsAdmin  bool   `json:"is_admin"`
}

type UpdateUserRequest struct {
	Username string  `json:"username" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
	IsAdmin  bool    `json:"is_admin"`
}

type UserHandler struct {
	service  user.Service
	validate *validator.Validate
}

func NewUserHandler(service user.Service) *UserHandler {
	return &UserHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *UserHandler) RegisterRoutes(router chi.Router, authn Middleware) {
	router.Group(func(r chi.Router) {
		r.Use(authn, auth.RequireAdmin)
		r.Get("/users", h.handleListUsers)
		r.Post("/users", h.handleCreateUser)
		r.Get("/users/{id}", h.handleGetUserByID)
		r.Put("/users/{id}", h.handleUpdateUser)
		r.Delete("/users/{id}", h.handleDeleteUser)
	})
}

func (h *UserHandler) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "list users")
		return
	}

	resp := make([]UserResponse, 0, len(users))
	for i := range users {
		resp = append(resp, newUserResponse(&users[i]))
	}
	respondWithJSON(w, http.StatusOK, resp)
}

func (h *UserHandler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateUserRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	domainUser := user.User{
		Username:     requestPayload.Username,
		Email:        requestPayload.Email,
		PasswordHash: requestPayload.Password,
		IsAdmin:      requestPayload.IsAdmin,
	}

	createdUser, err := h.service.CreateUser(r.Context(), &domainUser)
	if err != nil {
		respondWithServiceError(w, r, err, "create user")
		return
	}

	respondWithJSON(w, http.StatusCreated, newUserResponse(createdUser))
}

func (h *UserHandler) handleGetUserByID(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	foundUser, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err, "get user by id")
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(foundUser))
}

func (h *UserHandler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateUserRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	domainUser := user.User{
		ID:       userID,
		Username: requestPayload.Username,
		Email:    requestPayload.Email,
		IsAdmin:  requestPayload.IsAdmin,
	}
	if requestPayload.Password != nil {
		domainUser.PasswordHash = *requestPayload.Password
	}

	if err := h.service.UpdateUser(r.Context(), &domainUser); err != nil {
		respondWithServiceError(w, r, err, "update user")
		return
	}

	updatedUser, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		respondWithServiceError(w, r, err, "get updated user")
		return
	}

	respondWithJSON(w, http.StatusOK, newUserResponse(updatedUser))
}

func (h *UserHandler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID); err != nil {
		respondWithServiceError(w, r, err, "delete user")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
