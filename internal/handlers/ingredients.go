package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

type ingredientRequest struct {
	Name            string  `json:"name" validate:"required,min=2,max=120"`
	Category        string  `json:"category" validate:"max=60"`
	PackageQuantity float64 `json:"package_quantity" validate:"required,gt=0"`
	Unit            string  `json:"unit" validate:"required"`
	PackagePrice    float64 `json:"package_price" validate:"gte=0"`
	Brand           string  `json:"brand" validate:"max=120"`
}

type ingredientResponse struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	PackageQuantity float64   `json:"package_quantity"`
	Unit            string    `json:"unit"`
	PackagePrice    float64   `json:"package_price"`
	UnitPrice       float64   `json:"unit_price"`
	Brand           string    `json:"brand"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func projectIngredient(ingredient models.Ingredient) ingredientResponse {
	return ingredientResponse{
		ID:              ingredient.ID,
		Name:            ingredient.Name,
		Category:        ingredient.Category,
		PackageQuantity: ingredient.PackageQuantity,
		Unit:            ingredient.Unit,
		PackagePrice:    ingredient.PackagePrice,
		UnitPrice:       ingredient.UnitPrice(),
		Brand:           ingredient.Brand,
		CreatedAt:       ingredient.CreatedAt,
		UpdatedAt:       ingredient.UpdatedAt,
	}
}

// IngredientResource handles REST interactions for ingredient records.
func IngredientResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "ingredient request without database")
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/ingredients")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listIngredients(w, r)
		case http.MethodPost:
			createIngredient(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idValue, err := strconv.ParseUint(path, 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid ingredient identifier", "identifier", path, "error", err)
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	ingredientID := uint(idValue)

	switch r.Method {
	case http.MethodGet:
		showIngredient(w, r, ingredientID)
	case http.MethodPut:
		updateIngredient(w, r, ingredientID)
	case http.MethodDelete:
		deleteIngredient(w, r, ingredientID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listIngredients(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Ingredient
	query := database.WithContext(ctx).Order("name asc")
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	responses := make([]ingredientResponse, 0, len(results))
	for _, ingredient := range results {
		responses = append(responses, projectIngredient(ingredient))
	}
	writeJSON(w, http.StatusOK, responses)
}

func showIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()
	var ingredient models.Ingredient
	if err := database.WithContext(ctx).First(&ingredient, ingredientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to load ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeJSON(w, http.StatusOK, projectIngredient(ingredient))
}

func createIngredient(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload ingredientRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid ingredient create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	ingredient := models.Ingredient{
		Name:            strings.TrimSpace(payload.Name),
		Category:        strings.TrimSpace(payload.Category),
		PackageQuantity: payload.PackageQuantity,
		Unit:            normalizedUnit(payload.Unit),
		PackagePrice:    payload.PackagePrice,
		Brand:           strings.TrimSpace(payload.Brand),
	}

	if err := database.WithContext(ctx).Create(&ingredient).Error; err != nil {
		applog.Error(ctx, "failed to create ingredient", "error", err)
		writeJSONError(w, http.StatusBadRequest, "não foi possível criar o ingrediente")
		return
	}

	writeJSON(w, http.StatusCreated, projectIngredient(ingredient))
}

func updateIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()

	var payload ingredientRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid ingredient update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	var affected []uint
	var updated models.Ingredient

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Ingredient
		if err := tx.First(&existing, ingredientID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingIngredient(ctx, ingredientID)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		newUnit := normalizedUnit(payload.Unit)
		if !strings.EqualFold(existing.Unit, newUnit) {
			if err := convertRecipeLineUnits(ctx, tx, existing, newUnit); err != nil {
				return err
			}
		}

		oldPrice := existing.PackagePrice
		newName := strings.TrimSpace(payload.Name)
		updates := map[string]any{
			"name":             newName,
			"category":         strings.TrimSpace(payload.Category),
			"package_quantity": payload.PackageQuantity,
			"unit":             newUnit,
			"package_price":    payload.PackagePrice,
			"brand":            strings.TrimSpace(payload.Brand),
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}

		id := ingredientID
		if err := recorder.RecordEntityChange(ctx, models.HistoryItemIngredient, newName, oldPrice, payload.PackagePrice, models.ChangeTypePriceUpdate, nil, &id); err != nil {
			return err
		}
		if err := recorder.RecordProductChanges(ctx, before, models.ChangeTypePriceUpdate, &id); err != nil {
			return err
		}

		return tx.First(&updated, ingredientID).Error
	})
	if err != nil {
		var incompatible *unitConversionError
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			writeJSONError(w, http.StatusNotFound, msgNotFound)
		case errors.As(err, &incompatible):
			writeJSONError(w, http.StatusBadRequest, incompatible.Error())
		default:
			applog.Error(ctx, "failed to update ingredient", "error", err, "id", ingredientID)
			writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}

	costCache.Invalidate(ctx, affected...)
	writeJSON(w, http.StatusOK, projectIngredient(updated))
}

func deleteIngredient(w http.ResponseWriter, r *http.Request, ingredientID uint) {
	ctx := r.Context()

	var affected []uint
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Ingredient
		if err := tx.First(&existing, ingredientID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingIngredient(ctx, ingredientID)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		// dependent recipe lines go with the ingredient
		if err := tx.Unscoped().Where("ingredient_id = ?", ingredientID).Delete(&models.RecipeLine{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			return err
		}
		return recorder.RecordProductChanges(ctx, before, models.ChangeTypeRecipeUpdate, nil)
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to delete ingredient", "error", err, "id", ingredientID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.Invalidate(ctx, affected...)
	w.WriteHeader(http.StatusNoContent)
}

// unitConversionError carries the user-facing incompatibility message that
// aborts an ingredient update.
type unitConversionError struct {
	from, to string
}

func (e *unitConversionError) Error() string {
	return fmt.Sprintf("não é possível converter a unidade %q para %q nas receitas que usam este ingrediente", e.from, e.to)
}

// unitConversionFactor returns the multiplier that converts a quantity
// expressed in from-units to to-units. Only conversions within the same
// dimension are supported.
func unitConversionFactor(from, to string) (float64, bool) {
	type dimension struct {
		kind   string
		toBase float64
	}
	dimensions := map[string]dimension{
		"g":  {"mass", 1},
		"kg": {"mass", 1000},
		"mg": {"mass", 0.001},
		"ml": {"volume", 1},
		"l":  {"volume", 1000},
		"un": {"count", 1},
	}

	f, okFrom := dimensions[strings.ToLower(strings.TrimSpace(from))]
	t, okTo := dimensions[strings.ToLower(strings.TrimSpace(to))]
	if !okFrom || !okTo || f.kind != t.kind {
		return 0, false
	}
	return f.toBase / t.toBase, true
}

// convertRecipeLineUnits rewrites every recipe line that consumes the
// ingredient into the new unit. An incompatible conversion aborts the
// enclosing transaction with a detailed message.
func convertRecipeLineUnits(ctx context.Context, tx *gorm.DB, ingredient models.Ingredient, newUnit string) error {
	factor, ok := unitConversionFactor(ingredient.Unit, newUnit)
	if !ok {
		return &unitConversionError{from: ingredient.Unit, to: newUnit}
	}

	var lines []models.RecipeLine
	if err := tx.Where("ingredient_id = ?", ingredient.ID).Find(&lines).Error; err != nil {
		return err
	}
	for _, line := range lines {
		updates := map[string]any{
			"quantity": line.Quantity * factor,
			"unit":     newUnit,
		}
		if err := tx.Model(&models.RecipeLine{}).Where("id = ?", line.ID).Updates(updates).Error; err != nil {
			return err
		}
	}
	return nil
}

func normalizedUnit(unit string) string {
	trimmed := strings.ToLower(strings.TrimSpace(unit))
	if trimmed == "" {
		return "un"
	}
	return trimmed
}
