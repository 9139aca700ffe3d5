package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

type productRequest struct {
	Name                   string  `json:"name" validate:"required,min=2,max=120"`
	Category               string  `json:"category" validate:"max=60"`
	Description            string  `json:"description"`
	IsAlsoIngredient       bool    `json:"is_also_ingredient"`
	MarginPercentage       float64 `json:"margin_percentage" validate:"gte=0"`
	PreparationTimeMinutes float64 `json:"preparation_time_minutes" validate:"gte=0"`
	Yield                  float64 `json:"yield" validate:"gte=0"`
	YieldUnit              string  `json:"yield_unit"`
	SalePrice              float64 `json:"sale_price" validate:"gte=0"`
}

type productResponse struct {
	ID                     uint          `json:"id"`
	Name                   string        `json:"name"`
	Category               string        `json:"category"`
	Description            string        `json:"description"`
	IsAlsoIngredient       bool          `json:"is_also_ingredient"`
	MarginPercentage       float64       `json:"margin_percentage"`
	PreparationTimeMinutes float64       `json:"preparation_time_minutes"`
	Yield                  float64       `json:"yield"`
	YieldUnit              string        `json:"yield_unit"`
	SalePrice              float64       `json:"sale_price"`
	Cost                   *costing.Cost `json:"cost,omitempty"`
	CreatedAt              time.Time     `json:"created_at"`
	UpdatedAt              time.Time     `json:"updated_at"`
}

func projectProduct(product models.Product, cost *costing.Cost) productResponse {
	return productResponse{
		ID:                     product.ID,
		Name:                   product.Name,
		Category:               product.Category,
		Description:            product.Description,
		IsAlsoIngredient:       product.IsAlsoIngredient,
		MarginPercentage:       product.MarginPercentage,
		PreparationTimeMinutes: product.PreparationTimeMinutes,
		Yield:                  product.Yield,
		YieldUnit:              product.YieldUnit,
		SalePrice:              product.SalePrice,
		Cost:                   cost,
		CreatedAt:              product.CreatedAt,
		UpdatedAt:              product.UpdatedAt,
	}
}

// productCostCached consults the cost cache before falling back to a fresh
// evaluation.
func productCostCached(ctx context.Context, productID uint) (costing.Cost, error) {
	if cost, ok := costCache.GetProductCost(ctx, productID); ok {
		return cost, nil
	}
	cost, err := costing.New(database).ProductCost(ctx, productID)
	if err != nil {
		return costing.Cost{}, err
	}
	costCache.SetProductCost(ctx, cost)
	return cost, nil
}

// ProductResource handles REST interactions for products, including the
// nested recipe collection.
func ProductResource(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "product request without database")
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/products")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			listProducts(w, r)
		case http.MethodPost:
			createProduct(w, r)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	segments := strings.Split(path, "/")
	idValue, err := strconv.ParseUint(segments[0], 10, 64)
	if err != nil {
		applog.Debug(r.Context(), "invalid product identifier", "identifier", segments[0], "error", err)
		writeJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	productID := uint(idValue)

	if len(segments) > 1 {
		switch segments[1] {
		case "cost":
			if r.Method != http.MethodGet {
				w.WriteHeader(http.StatusMethodNotAllowed)
				return
			}
			showProductCost(w, r, productID)
		case "recipes":
			recipeLineResource(w, r, productID, segments[2:])
		default:
			writeJSONError(w, http.StatusNotFound, msgNotFound)
		}
		return
	}

	switch r.Method {
	case http.MethodGet:
		showProduct(w, r, productID)
	case http.MethodPut:
		updateProduct(w, r, productID)
	case http.MethodDelete:
		deleteProduct(w, r, productID)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func listProducts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var results []models.Product
	query := database.WithContext(ctx).Order("name asc")
	if category := strings.TrimSpace(r.URL.Query().Get("category")); category != "" {
		query = query.Where("category = ?", category)
	}
	if onlyIngredients := r.URL.Query().Get("is_also_ingredient"); onlyIngredients == "true" {
		query = query.Where("is_also_ingredient = ?", true)
	}
	if err := query.Find(&results).Error; err != nil {
		applog.Error(ctx, "failed to list products", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costs, err := costing.New(database).AllProductCosts(ctx)
	if err != nil {
		applog.Error(ctx, "failed to evaluate product costs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	responses := make([]productResponse, 0, len(results))
	for _, product := range results {
		cost, ok := costs[product.ID]
		if ok {
			costCache.SetProductCost(ctx, cost)
			responses = append(responses, projectProduct(product, &cost))
		} else {
			responses = append(responses, projectProduct(product, nil))
		}
	}
	writeJSON(w, http.StatusOK, responses)
}

func showProduct(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	var product models.Product
	if err := database.WithContext(ctx).Preload("RecipeLines.Ingredient").Preload("RecipeLines.ProductIngredient").First(&product, productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to load product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	response := projectProduct(product, nil)
	if cost, err := productCostCached(ctx, productID); err == nil {
		response.Cost = &cost
	} else if !errors.Is(err, costing.ErrCircularRecipe) {
		applog.Error(ctx, "failed to compute product cost", "error", err, "id", productID)
	}

	writeJSON(w, http.StatusOK, struct {
		productResponse
		RecipeLines []recipeLineResponse `json:"recipe_lines"`
	}{response, projectRecipeLines(product.RecipeLines)})
}

func showProductCost(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()
	cost, err := productCostCached(ctx, productID)
	if err != nil {
		switch {
		case errors.Is(err, costing.ErrProductNotFound):
			writeJSONError(w, http.StatusNotFound, msgNotFound)
		case errors.Is(err, costing.ErrCircularRecipe):
			writeJSONError(w, http.StatusBadRequest, msgCircularRecipe)
		default:
			applog.Error(ctx, "failed to compute product cost", "error", err, "id", productID)
			writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		}
		return
	}
	writeJSON(w, http.StatusOK, cost)
}

func createProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var payload productRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid product create payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	product := models.Product{
		Name:                   strings.TrimSpace(payload.Name),
		Category:               strings.TrimSpace(payload.Category),
		Description:            strings.TrimSpace(payload.Description),
		IsAlsoIngredient:       payload.IsAlsoIngredient,
		MarginPercentage:       payload.MarginPercentage,
		PreparationTimeMinutes: payload.PreparationTimeMinutes,
		Yield:                  payload.Yield,
		YieldUnit:              strings.TrimSpace(payload.YieldUnit),
		SalePrice:              payload.SalePrice,
	}

	if err := database.WithContext(ctx).Create(&product).Error; err != nil {
		applog.Error(ctx, "failed to create product", "error", err)
		writeJSONError(w, http.StatusBadRequest, "não foi possível criar o produto")
		return
	}

	writeJSON(w, http.StatusCreated, projectProduct(product, nil))
}

func updateProduct(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()

	var payload productRequest
	if err := decodeJSON(r, &payload); err != nil {
		applog.Debug(ctx, "invalid product update payload", "error", err)
		writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if message := validationMessage(payload); message != "" {
		writeJSONError(w, http.StatusBadRequest, message)
		return
	}

	var affected []uint
	var updated models.Product

	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		if err := tx.First(&existing, productID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingProduct(ctx, productID)
		if err != nil {
			return err
		}
		before := recorder.SnapshotCosts(ctx, affected)

		updates := map[string]any{
			"name":                     strings.TrimSpace(payload.Name),
			"category":                 strings.TrimSpace(payload.Category),
			"description":              strings.TrimSpace(payload.Description),
			"is_also_ingredient":       payload.IsAlsoIngredient,
			"margin_percentage":        payload.MarginPercentage,
			"preparation_time_minutes": payload.PreparationTimeMinutes,
			"yield":                    payload.Yield,
			"yield_unit":               strings.TrimSpace(payload.YieldUnit),
			"sale_price":               payload.SalePrice,
		}
		if err := tx.Model(&existing).Updates(updates).Error; err != nil {
			return err
		}

		if err := recorder.RecordProductChanges(ctx, before, models.ChangeTypeRecipeUpdate, nil); err != nil {
			return err
		}

		return tx.First(&updated, productID).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeJSONError(w, http.StatusNotFound, msgNotFound)
			return
		}
		applog.Error(ctx, "failed to update product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.Invalidate(ctx, affected...)

	response := projectProduct(updated, nil)
	if cost, err := productCostCached(ctx, productID); err == nil {
		response.Cost = &cost
	}
	writeJSON(w, http.StatusOK, response)
}

func deleteProduct(w http.ResponseWriter, r *http.Request, productID uint) {
	ctx := r.Context()

	var affected []uint
	err := database.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Product
		if err := tx.First(&existing, productID).Error; err != nil {
			return err
		}

		recorder := costing.NewRecorder(tx)
		var err error
		affected, err = recorder.Calculator().ProductsUsingProduct(ctx, productID)
		if err != nil {
			return err
		}
		consumers := make([]uint, 0, len(affected))
		for _, id := range affected {
			if id != productID {
				consumers = append(consumers, id)
			}
		}
		before := recorder.SnapshotCosts(ctx, consumers)

		// the product's own recipe and every line that consumed it
		if err := tx.Unscoped().Where("product_id = ? OR product_ingredient_id = ?", productID, productID).Delete(&models.RecipeLine{}).Error; err != nil {
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
		applog.Error(ctx, "failed to delete product", "error", err, "id", productID)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	costCache.Invalidate(ctx, affected...)
	w.WriteHeader(http.StatusNoContent)
}
