package handlers

import (
	"net/http"

	"bucket-list-backend/internal/services"

	"github.com/rs/zerolog/log"
)

// AuthHandler issues JWTs for the REST surface
type AuthHandler struct {
	userService *services.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(userService *services.UserService) *AuthHandler {
	return &AuthHandler{userService: userService}
}

// TokenRequest carries login credentials
type TokenRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse is returned on a successful login
type TokenResponse struct {
	Token  string `json:"token"`
	UserID string `json:"user_id"`
}

// Token handles POST /api/v1/auth/token
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	user, err := h.userService.Login(r.Context(), services.Credentials{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(w, err, "Failed to login")
		return
	}

	token, err := h.userService.GenerateJWT(user.ID)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to generate token")
		respondError(w, "internal server error", http.StatusInternalServerError)
		return
	}

	log.Info().Str("user_id", user.ID).Msg("Issued token")
	respondJSON(w, http.StatusOK, TokenResponse{Token: token, UserID: user.ID})
}
