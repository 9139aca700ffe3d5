package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

type recipeLineRequest struct {
	Quantity            float64 `json:"quantity" validate:"required,gt=0"`
	Unit                string  `json:"unit" validate:"max=10"`
	IngredientID        *uint   `json:"ingredient_id"`
	ProductIngredientID *uint   `json:"product_ingredient_id"`
}

type recipeLineResponse struct {
	ID                  uint      `json:"id"`
	ProductID           uint      `json:"product_id"`
	Quantity            float64   `json:"quantity"`
	Unit                string    `json:"unit"`
	IngredientID        *uint     `json:"ingredient_id,omitempty"`
	IngredientName      string    `json:"ingredient_name,omitempty"`
	ProductIngredientID *uint     `json:"product_ingredient_id,omitempty"`
	ProductName         string    `json:"product_name,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

func projectRecipeLine(line models.RecipeLine) recipeLineResponse {
	response := recipeLineResponse{
		ID:                  line.ID,
		ProductID:           line.ProductID,
		Quantity:            line.Quantity,
		Unit:                line.Unit,
		IngredientID:        line.IngredientID,
		ProductIngredientID: line.ProductIngredientID,
		CreatedAt:           line.CreatedAt,
	}
	if line.Ingredient != nil {
		response.IngredientName = line.Ingredient.Name
	}
	if line.ProductIngredient != nil {
		response.ProductName = line.ProductIngredient.Name
	}
	return response
}

func projectRecipeLines(lines []models.RecipeLine) []recipeLineResponse {
	responses := make([]recipeLineResponse, 0, len(lines))
	for _, line := range lines {
		responses = append(responses, projectRecipeLine(line))
	}
	return responses
}

// validateRecipeLinePayload enforces that a line references exactly one of
// an ingredient or a sub product.
func validateRecipeLinePayload(payload recipeLineRequest) string {
	if message := validationMessage(payload); message != "" {
		return message
	}
	hasIngredient := payload.IngredientID != nil && *payload.IngredientID != 0
	hasProduct := payload.ProductIngredientID != nil && *payload.ProductIngredientID != 0
	if hasIngredient == hasProduct {
		return "cada item da receita deve referenciar um ingrediente ou um subproduto, nunca ambos"
	}
	return ""
}

func recipeLineResource(w http.ResponseWriter, r *http.Request, productID uint, segments []string) {
	if len(segments) == 0 {
		switch r.Method {
		case http.MethodGet:
			listRecipeLines(w, r, productID)
		case http.MethodPost:
			createRecipeLine(w, r, productID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	lineValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil || len(segments) > 1 {
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	lineID := uint(lineValue)

	switch r.Method {
	case http.MethodPut:
		updateRecipeLine(w, r, productID, lineID)
	case http.MethodDelete:
		deleteRecipeLine(w, r, productID, lineID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listRecipeLines(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	var product models.Product
	if err := database.WithContext(ctx).First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to load product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	var lines []models.RecipeLine
	if err := database.WithContext(ctx).Preload("Ingredient").Preload("ProductIngredient").Where("product_id = ?", productID).Order("id asc").Find(&lines).Error; err != nil {
		applog.Error(ctx, "failed to list recipe lines", "error", err, "product", productID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, projectRecipeLines(lines))
}

func createRecipeLine(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()

	var payload recipeLineRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid recipe line payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validateRecipeLinePayload(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	var created models.RecipeLine
	var affected []uint
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, productID).Error; err != nil {
			return err
		}

		if payload.IngredientID != nil {
			var ingredient models.Ingredient
			if err := tx.First(&ingredient, *payload.IngredientID).Error; err != nil {
				return err
			}
		}
		if payload.ProductIngredientID != nil {
			var sub models.Product
			if err := tx.First(&sub, *payload.ProductIngredientID).Error; err != nil {
				return err
			}
			cycles, err := costing.New(tx).WouldCreateCycle(ctx, productID, *payload.ProductIngredientID)
			if err != nil {
				return err
			}
			if cycles {
				return costing.ErrCircularRecipe
			}
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingProduct(ctx, productID)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		created = models.RecipeLine{
			ProductID:           productID,
			Quantity:            payload.Quantity,
			Unit:                normalizedUnit(payload.Unit),
			IngredientID:        payload.IngredientID,
			ProductIngredientID: payload.ProductIngredientID,
		}
		if err := tx.Create(&created).Error; err != nil {
			return err
		}

		if err := recorder.RecordProductChanges(ctx, before, models.ChangeTypeRecipeUpdate, nil); err != nil {
			return err
		}

		return tx.Preload("Ingredient").Preload("ProductIngredient").First(&created, created.ID).Error
	})
	if err != nil {
		writeRecipeLineError(w, r, err, productID)
		return
	}

	costCache.Invalidate(ctx, affected...)
	writeJSON(w, http.StatusCreated, projectRecipeLine(created))
}

func updateRecipeLine(w http.ResponseWriter, r *http.Request, productID, lineID uint) {
	ctx := r.Context()

	var payload recipeLineRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid recipe line payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validateRecipeLinePayload(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	var updated models.RecipeLine
	var affected []uint
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RecipeLine
		if err := tx.Where("product_id = ?", productID).First(&existing, lineID).Error; err != nil {
			return err
		}

		if payload.IngredientID != nil {
			var ingredient models.Ingredient
			if err := tx.First(&ingredient, *payload.IngredientID).Error; err != nil {
				return err
			}
		}
		if payload.ProductIngredientID != nil {
			var sub models.Product
			if err := tx.First(&sub, *payload.ProductIngredientID).Error; err != nil {
				return err
			}
			cycles, err := costing.New(tx).WouldCreateCycle(ctx, productID, *payload.ProductIngredientID)
			if err != nil {
				return err
			}
			if cycles {
				return costing.ErrCircularRecipe
			}
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingProduct(ctx, productID)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		updates := map[string]any{
			"quantity":              payload.Quantity,
			"unit":                  normalizedUnit(payload.Unit),
			"ingredient_id":         payload.IngredientID,
			"product_ingredient_id": payload.ProductIngredientID,
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}

		if err := recorder.RecordProductChanges(ctx, before, models.ChangeTypeRecipeUpdate, nil); err != nil {
			return err
		}

		return tx.Preload("Ingredient").Preload("ProductIngredient").First(&updated, lineID).Error
	})
	if err != nil {
		writeRecipeLineError(w, r, err, productID)
		return
	}

	costCache.Invalidate(ctx, affected...)
	writeJSON(w, http.StatusOK, projectRecipeLine(updated))
}

func deleteRecipeLine(w http.ResponseWriter, r *http.Request, productID, lineID uint) {
	ctx := r.Context()

	var affected []uint
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.RecipeLine
		if err := tx.Where("product_id = ?", productID).First(&existing, lineID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingProduct(ctx, productID)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		if err := tx.Unscoped().Delete(&existing).Error; err != nil {
			return err
		}

		return recorder.RecordProductChanges(ctx, before, models.ChangeTypeRecipeUpdate, nil)
	})
	if err != nil {
		writeRecipeLineError(w, r, err, productID)
		return
	}

	costCache.Invalidate(ctx, affected...)
	w.WriteHeader(http.StatusNoContent)
}

func writeRecipeLineError(w http.ResponseWriter, r *http.Request, err error, productID uint) {
	switch {
	case errors.Is(err, costing.ErrCircularRecipe):
		writeJSONError(w, http.StatusBadRequest, msgCircularRecipe)
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeJSONError(w, http.StatusNotFound, msgNotFound)
	default:
		applog.Error(r.Context(), "recipe line operation failed", "error", err, "product", productID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
	}
}
