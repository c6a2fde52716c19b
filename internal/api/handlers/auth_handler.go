package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/dvrmln/taskdeck-be/internal/auth"
	"github.com/dvrmln/taskdeck-be/internal/services"
)

// AuthHandler handles registration, login and profile lookup.
type AuthHandler struct {
	users  services.UserServiceProvider
	tokens *auth.TokenService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(users services.UserServiceProvider, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// RegisterPayload defines the structure for registration requests.
type RegisterPayload struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register handles new user registration and issues a short-lived token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := h.users.Register(r.Context(), payload.Name, payload.Email, payload.Password)
	if err != nil {
		serviceError(w, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Name, auth.RegisterTokenTTL)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token after registration")
		fail(w, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	log.Info().Str("user_id", user.ID).Msg("New user registered")
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": "User registered successfully!",
		"token":   token,
	})
}

// Login authenticates credentials and issues a day-long token. Unknown
// email and wrong password produce the same response.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		fail(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if payload.Email == "" || payload.Password == "" {
		fail(w, http.StatusBadRequest, "Email and password are required.")
		return
	}

	user, err := h.users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		serviceError(w, err)
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Name, auth.LoginTokenTTL)
	if err != nil {
		log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to issue token on login")
		fail(w, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged in successfully!",
		"token":   token,
	})
}

// Me returns the profile of the token's subject.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		log.Error().Msg("Could not retrieve user claims from context")
		fail(w, http.StatusInternalServerError, "Could not retrieve user from token.")
		return
	}

	user, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		serviceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Profile fetched successfully.",
		"user":    user,
	})
}
