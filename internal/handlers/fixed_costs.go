package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

type fixedCostRequest struct {
	Name       string  `json:"name" validate:"required,min=2,max=120"`
	Category   string  `json:"category" validate:"max=60"`
	Value      float64 `json:"value" validate:"required,gt=0"`
	Recurrence string  `json:"recurrence"`
	IsActive   *bool   `json:"is_active"`
}

// allProductIDs lists every product, used when a change affects the fixed
// cost share of the whole catalog.
func allProductIDs(ctx context.Context, tx *gorm.DB) ([]uint, error) {
	var ids []uint
	if err := tx.WithContext(ctx).Model(&models.Product{}).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// FixedCostResource handles REST interactions for recurring fixed costs.
func FixedCostResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "fixed cost request without database")
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/fixed-costs"), "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listFixedCosts(w, r)
		case http.MethodPost:
			createFixedCost(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	costID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showFixedCost(w, r, costID)
	case http.MethodPut:
		updateFixedCost(w, r, costID)
	case http.MethodDelete:
		deleteFixedCost(w, r, costID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listFixedCosts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.FixedCost
	query := database.WithContext(ctx).Order("name asc")
	if active := r.URL.Query().Get("is_active"); active == "true" {
		query = query.Where("is_active = ?", true)
	}
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list fixed costs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func showFixedCost(w http.ResponseWriter, r *http.Request, costID uint) {
	ctx := r.Context()
	var cost models.FixedCost
	if err := database.WithContext(ctx).First(&cost, costID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to load fixed cost", "error", err, "id", costID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

func createFixedCost(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload fixedCostRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid fixed cost payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}
	recurrence := strings.ToLower(strings.TrimSpace(payload.Recurrence))
	if recurrence == "" {
		recurrence = models.RecurrenceMonthly
	}
	if !models.ValidRecurrence(recurrence) {
		writeJSONError(w, http.StatusBadRequest, "recorrência inválida: use monthly, quarterly ou yearly")
		return
	}

	isActive := true
	if payload.IsActive != nil {
		isActive = *payload.IsActive
	}
	cost := models.FixedCost{
		Name:       strings.TrimSpace(payload.Name),
		Category:   strings.TrimSpace(payload.Category),
		Value:      payload.Value,
		Recurrence: recurrence,
		IsActive:   isActive,
	}

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		recorder := costing.NewRecorder(tx)
		affected, err := allProductIDs(ctx, tx)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		if err := tx.Create(&cost).Error; err != nil {
			return err
		}
		return recorder.RecordProductChanges(ctx, before, models.ChangeTypeFixedCostUpdate, nil)
	})
	if err != nil {
		applog.Error(ctx, "failed to create fixed cost", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.InvalidateAll(ctx)
	writeJSON(w, http.StatusCreated, cost)
}

func updateFixedCost(w http.ResponseWriter, r *http.Request, costID uint) {
	ctx := r.Context()

	var payload fixedCostRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid fixed cost payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}
	recurrence := strings.ToLower(strings.TrimSpace(payload.Recurrence))
	if recurrence != "" && !models.ValidRecurrence(recurrence) {
		writeJSONError(w, http.StatusBadRequest, "recorrência inválida: use monthly, quarterly ou yearly")
		return
	}

	var updated models.FixedCost
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FixedCost
		if err := tx.First(&existing, costID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		affected, err := allProductIDs(ctx, tx)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		oldValue := existing.Value
		name := strings.TrimSpace(payload.Name)

		updates := map[string]any{
			"name":     name,
			"category": strings.TrimSpace(payload.Category),
			"value":    payload.Value,
		}
		if recurrence != "" {
			updates["recurrence"] = recurrence
		}
		if payload.IsActive != nil {
			updates["is_active"] = *payload.IsActive
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}

		if err := recorder.RecordEntityChange(ctx, models.HistoryItemFixedCost, name, oldValue, payload.Value, models.ChangeTypeFixedCostUpdate, nil, nil); err != nil {
			return err
		}
		if err := recorder.RecordProductChanges(ctx, before, models.ChangeTypeFixedCostUpdate, nil); err != nil {
			return err
		}

		return tx.First(&updated, costID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to update fixed cost", "error", err, "id", costID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.InvalidateAll(ctx)
	writeJSON(w, http.StatusOK, updated)
}

func deleteFixedCost(w http.ResponseWriter, r *http.Request, costID uint) {
	ctx := r.Context()

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.FixedCost
		if err := tx.First(&existing, costID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		affected, err := allProductIDs(ctx, tx)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			return err
		}
		return recorder.RecordProductChanges(ctx, before, models.ChangeTypeFixedCostUpdate, nil)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to delete fixed cost", "error", err, "id", costID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.InvalidateAll(ctx)
	w.WriteHeader(http.StatusNoContent)
}
