package handlers

import (
	"net/http"

	applog "precifica/internal/log"
)

// Healthz reports process and database liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok"}

	if database == nil {
		status["database"] = "unconfigured"
		writeJSON(w, http.StatusOK, status)
		return
	}

	sqlDB, err := database.DB()
	if err == nil {
		err = sqlDB.PingContext(r.Context())
	}
	if err != nil {
		applog.Warn(r.Context(), "database ping failed", "error", err)
		status["status"] = "degraded"
		status["database"] = "unreachable"
		writeJSON(w, http.StatusServiceUnavailable, status)
		return
	}

	status["database"] = "ok"
	writeJSON(w, http.StatusOK, status)
}
