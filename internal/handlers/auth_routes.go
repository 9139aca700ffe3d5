package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"gorm.io/gorm"

	applog "precifica/internal/log"
	"precifica/models"
)

type registerRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type userResponse struct {
	ID        uint      `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func projectUser(user models.User) userResponse {
	return userResponse{
		ID:        user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
}

// Register creates a new account and signs it in. The first account ever
// created becomes the administrator; later accounts default to the user
// role.
func Register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	var payload registerRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(r.Context(), "invalid register payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	if _, err := findUserByEmail(r, payload.Email); err == nil {
		writeJSONError(w, http.StatusBadRequest, "já existe uma conta com esse email")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		applog.Error(r.Context(), "failed to check existing user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	role := models.RoleUser
	var count int64
	if err := database.WithContext(r.Context()).Model(&models.User{}).Count(&count).Error; err != nil {
		applog.Error(r.Context(), "failed to count users", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if count == 0 {
		role = models.RoleAdmin
	}

	user, err := createUser(r, payload.Email, payload.FirstName, payload.LastName, payload.Password, role)
	if err != nil {
		applog.Error(r.Context(), "failed to create user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	if err := establishSession(r, user); err != nil {
		applog.Error(r.Context(), "failed to establish session after register", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	applog.Info(r.Context(), "user registered", "userID", user.ID, "role", user.Role)
	writeJSON(w, http.StatusCreated, projectUser(*user))
}

// Login processes credential sign-in and establishes the session cookie.
func Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if sessionManager == nil || database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	var payload loginRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(r.Context(), "invalid login payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	user, ok := authenticate(r, strings.TrimSpace(payload.Email), payload.Password)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, msgInvalidCredentials)
		return
	}

	applog.Debug(r.Context(), "authentication succeeded", "email", strings.ToLower(payload.Email))
	writeJSON(w, http.StatusOK, projectUser(*user))
}

// Logout destroys the current session.
func Logout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	if sessionManager != nil {
		if err := sessionManager.Destroy(r.Context()); err != nil {
			applog.Error(r.Context(), "failed to destroy session", "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated account.
func Me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	userID, ok := currentUserID(r)
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, msgUnauthenticated)
		return
	}

	var user models.User
	if err := database.WithContext(r.Context()).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusUnauthorized, msgUnauthenticated)
			return
		}
		applog.Error(r.Context(), "failed to load current user", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, projectUser(user))
}
