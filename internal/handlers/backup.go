package handlers

import (
	"fmt"
	"net/http"
	"time"

	"gorm.io/gorm"

	applog "precifica/internal/log"
	"precifica/models"
)

const backupMarker = "precifica-backup"

type backupData struct {
	Ingredients        []models.Ingredient        `json:"ingredients"`
	Products           []models.Product           `json:"products"`
	RecipeLines        []models.RecipeLine        `json:"recipeLines"`
	FixedCosts         []models.FixedCost         `json:"fixedCosts"`
	WorkConfigurations []models.WorkConfiguration `json:"workConfiguration"`
	PriceHistory       []models.PriceHistory      `json:"priceHistory"`
}

type backupDocument struct {
	Application string     `json:"application"`
	Version     int        `json:"version"`
	ExportedAt  time.Time  `json:"exportedAt"`
	Data        backupData `json:"data"`
}

// CreateBackup serializes the whole catalog into a single JSON document.
func CreateBackup(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	document := backupDocument{
		Application: backupMarker,
		Version:     1,
		ExportedAt:  time.Now().UTC(),
	}

	loaders := []struct {
		name string
		load func(tx *gorm.DB) error
	}{
		{"ingredients", func(tx *gorm.DB) error { return tx.Order("id asc").Find(&document.Data.Ingredients).Error }},
		{"products", func(tx *gorm.DB) error { return tx.Order("id asc").Find(&document.Data.Products).Error }},
		{"recipe lines", func(tx *gorm.DB) error { return tx.Order("id asc").Find(&document.Data.RecipeLines).Error }},
		{"fixed costs", func(tx *gorm.DB) error { return tx.Order("id asc").Find(&document.Data.FixedCosts).Error }},
		{"work configurations", func(tx *gorm.DB) error { return tx.Order("id asc").Find(&document.Data.WorkConfigurations).Error }},
		{"price history", func(tx *gorm.DB) error { return tx.Order("id asc").Find(&document.Data.PriceHistory).Error }},
	}
	for _, loader := range loaders {
		if err := loader.load(database.WithContext(ctx)); err != nil {
			applog.Error(ctx, "failed to assemble backup", "section", loader.name, "error", err)
			writeJSONError(w, http.StatusInternalServerError, msgInternalError)
			return
		}
	}

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "precifica-backup-"+document.ExportedAt.Format("2006-01-02")+".json"))
	writeJSON(w, http.StatusOK, document)
}

// RestoreBackup replaces the whole catalog with the contents of a previously
// exported document. Primary keys are reassigned on insert, so references
// between sections are remapped from the old identifiers.
func RestoreBackup(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var document backupDocument
	if err := decodeJSON(r, &document); err != nil {
		applog.Debug(ctx, "invalid backup payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if document.Application != backupMarker {
		writeJSONError(w, http.StatusBadRequest, "arquivo de backup inválido")
		return
	}

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&models.PriceHistory{}, &models.RecipeLine{}, &models.Product{}, &models.Ingredient{}, &models.FixedCost{}, &models.WorkConfiguration{}} {
			if err := tx.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}

		ingredientIDs := make(map[uint]uint, len(document.Data.Ingredients))
		for _, ingredient := range document.Data.Ingredients {
			oldID := ingredient.ID
			ingredient.ID = 0
			ingredient.RecipeLines = nil
			if err := tx.Create(&ingredient).Error; err != nil {
				return err
			}
			ingredientIDs[oldID] = ingredient.ID
		}

		productIDs := make(map[uint]uint, len(document.Data.Products))
		for _, product := range document.Data.Products {
			oldID := product.ID
			product.ID = 0
			product.RecipeLines = nil
			if err := tx.Create(&product).Error; err != nil {
				return err
			}
			productIDs[oldID] = product.ID
		}

		for _, line := range document.Data.RecipeLines {
			line.ID = 0
			line.Ingredient = nil
			line.ProductIngredient = nil
			newProductID, ok := productIDs[line.ProductID]
			if !ok {
				continue
			}
			line.ProductID = newProductID
			if line.IngredientID != nil {
				newID, ok := ingredientIDs[*line.IngredientID]
				if !ok {
					continue
				}
				line.IngredientID = &newID
			}
			if line.ProductIngredientID != nil {
				newID, ok := productIDs[*line.ProductIngredientID]
				if !ok {
					continue
				}
				line.ProductIngredientID = &newID
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		}

		for _, cost := range document.Data.FixedCosts {
			cost.ID = 0
			if err := tx.Create(&cost).Error; err != nil {
				return err
			}
		}
		for _, config := range document.Data.WorkConfigurations {
			config.ID = 0
			if err := tx.Create(&config).Error; err != nil {
				return err
			}
		}

		for _, row := range document.Data.PriceHistory {
			row.ID = 0
			if row.ProductID != nil {
				if newID, ok := productIDs[*row.ProductID]; ok {
					row.ProductID = &newID
				} else {
					row.ProductID = nil
				}
			}
			if row.IngredientID != nil {
				if newID, ok := ingredientIDs[*row.IngredientID]; ok {
					row.IngredientID = &newID
				} else {
					row.IngredientID = nil
				}
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		applog.Error(ctx, "failed to restore backup", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.InvalidateAll(ctx)
	applog.Info(ctx, "backup restored",
		"ingredients", len(document.Data.Ingredients),
		"products", len(document.Data.Products),
		"recipe_lines", len(document.Data.RecipeLines))
	writeJSON(w, http.StatusOK, map[string]any{
		"ingredients":  len(document.Data.Ingredients),
		"products":     len(document.Data.Products),
		"recipe_lines": len(document.Data.RecipeLines),
		"fixed_costs":  len(document.Data.FixedCosts),
	})
}
