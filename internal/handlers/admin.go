package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	applog "precifica/internal/log"
	"precifica/models"
)

type roleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AdminUserResource manages registered accounts. Routes behind it are
// wrapped with RequireAdmin.
func AdminUserResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/admin/users"), "/")

	if path == "" {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		listUsers(w, r)
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	userID := uint(idValue)

	switch {
	case len(segments) == 2 && segments[1] == "role":
		if r.Method != http.MethodPut {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		updateUserRole(w, r, userID)
	case len(segments) > 1:
		writeJSONError(w, http.StatusNotFound, msgNotFound)
	case r.Method == http.MethodPut:
		updateUserRole(w, r, userID)
	case r.Method == http.MethodDelete:
		deleteUser(w, r, userID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var users []models.User
	if err := database.WithContext(ctx).Order("email asc").Find(&users).Error; err != nil {
		applog.Error(ctx, "failed to list users", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	responses := make([]userResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, projectUser(user))
	}
	writeJSON(w, http.StatusOK, responses)
}

func updateUserRole(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()

	var payload roleRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	role := strings.ToLower(strings.TrimSpace(payload.Role))
	if !models.ValidRole(role) {
		writeJSONError(w, http.StatusBadRequest, "perfil inválido: use admin ou user")
		return
	}

	if actorID, ok := currentUserID(r); ok && actorID == userID && role != models.RoleAdmin {
		writeJSONError(w, http.StatusBadRequest, "não é possível remover o próprio perfil de administrador")
		return
	}

	var user models.User
	if err := database.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to load user", "error", err, "id", userID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	if err := database.WithContext(ctx).Model(&user).Update("role", role).Error; err != nil {
		applog.Error(ctx, "failed to update user role", "error", err, "id", userID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	applog.Info(ctx, "user role changed", "id", userID, "role", role)
	user.Role = role
	writeJSON(w, http.StatusOK, projectUser(user))
}

func deleteUser(w http.ResponseWriter, r *http.Request, userID uint) {
	ctx := r.Context()

	if actorID, ok := currentUserID(r); ok && actorID == userID {
		writeJSONError(w, http.StatusBadRequest, "não é possível excluir a própria conta")
		return
	}

	var user models.User
	if err := database.WithContext(ctx).First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to load user", "error", err, "id", userID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	if err := database.WithContext(ctx).Unscoped().Delete(&user).Error; err != nil {
		applog.Error(ctx, "failed to delete user", "error", err, "id", userID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	applog.Info(ctx, "user deleted", "id", userID, "email", user.Email)
	w.WriteHeader(http.StatusNoContent)
}
