package handlers

import (
	"errors"
	"net/http"
	"time"

	"gorm.io/gorm"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

type workConfigurationRequest struct {
	Monday      bool    `json:"monday"`
	Tuesday     bool    `json:"tuesday"`
	Wednesday   bool    `json:"wednesday"`
	Thursday    bool    `json:"thursday"`
	Friday      bool    `json:"friday"`
	Saturday    bool    `json:"saturday"`
	Sunday      bool    `json:"sunday"`
	HoursPerDay float64 `json:"hours_per_day" validate:"gte=0,lte=24"`
}

type workConfigurationResponse struct {
	models.WorkConfiguration
	AnnualWorkDays   int     `json:"annual_work_days"`
	MonthlyWorkHours float64 `json:"monthly_work_hours"`
}

func projectWorkConfiguration(config models.WorkConfiguration) workConfigurationResponse {
	year := time.Now().Year()
	return workConfigurationResponse{
		WorkConfiguration: config,
		AnnualWorkDays:    config.AnnualWorkDays(year),
		MonthlyWorkHours:  config.MonthlyWorkHours(year),
	}
}

// SettingsResource exposes the work schedule singleton. A missing row reads
// as the default schedule; the first write creates it.
func SettingsResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "settings request without database")
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	switch r.Method {
	case http.MethodGet:
		showSettings(w, r)
	case http.MethodPut:
		updateSettings(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func showSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var config models.WorkConfiguration
	err := database.WithContext(ctx).Order("id asc").First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		config = models.DefaultWorkConfiguration()
	} else if err != nil {
		applog.Error(ctx, "failed to load work configuration", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, projectWorkConfiguration(config))
}

func updateSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload workConfigurationRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid work configuration payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	var saved models.WorkConfiguration
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recorder := costing.NewRecorder(tx)
		affected, err := allProductIDs(ctx, tx)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		var existing models.WorkConfiguration
		err = tx.Order("id asc").First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = models.WorkConfiguration{
				Monday:      payload.Monday,
				Tuesday:     payload.Tuesday,
				Wednesday:   payload.Wednesday,
				Thursday:    payload.Thursday,
				Friday:      payload.Friday,
				Saturday:    payload.Saturday,
				Sunday:      payload.Sunday,
				HoursPerDay: payload.HoursPerDay,
			}
			if err := tx.Create(&saved).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			updates := map[string]any{
				"monday":        payload.Monday,
				"tuesday":       payload.Tuesday,
				"wednesday":     payload.Wednesday,
				"thursday":      payload.Thursday,
				"friday":        payload.Friday,
				"saturday":      payload.Saturday,
				"sunday":        payload.Sunday,
				"hours_per_day": payload.HoursPerDay,
			}
			if err := tx.Model(&existing).Updates(updates).Error; err != nil {
				return err
			}
			if err := tx.First(&saved, existing.ID).Error; err != nil {
				return err
			}
		}

		return recorder.RecordProductChanges(ctx, before, models.ChangeTypeWorkConfigUpdate, nil)
	})
	if err != nil {
		applog.Error(ctx, "failed to update work configuration", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.InvalidateAll(ctx)
	writeJSON(w, http.StatusOK, projectWorkConfiguration(saved))
}
