package handlers

import (
	"net/http"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

type dashboardProduct struct {
	ProductID      uint    `json:"product_id"`
	Name           string  `json:"name"`
	TotalCost      float64 `json:"total_cost"`
	SuggestedPrice float64 `json:"suggested_price"`
	SalePrice      float64 `json:"sale_price"`
	ProfitMargin   float64 `json:"profit_margin"`
}

type dashboardSummary struct {
	IngredientCount  int64             `json:"ingredient_count"`
	ProductCount     int64             `json:"product_count"`
	FixedCostMonthly float64           `json:"fixed_cost_monthly"`
	FixedCostPerHour float64           `json:"fixed_cost_per_hour"`
	MostProfitable   *dashboardProduct `json:"most_profitable,omitempty"`
	LeastProfitable  *dashboardProduct `json:"least_profitable,omitempty"`
}

// DashboardSummary aggregates the catalog into the numbers shown on the
// landing screen.
func DashboardSummary(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "dashboard request without database")
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var summary dashboardSummary

	if err := database.WithContext(ctx).Model(&models.Ingredient{}).Count(&summary.IngredientCount).Error; err != nil {
		applog.Error(ctx, "failed to count ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if err := database.WithContext(ctx).Model(&models.Product{}).Count(&summary.ProductCount).Error; err != nil {
		applog.Error(ctx, "failed to count products", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	var fixedCosts []models.FixedCost
	if err := database.WithContext(ctx).Where("is_active = ?", true).Find(&fixedCosts).Error; err != nil {
		applog.Error(ctx, "failed to load fixed costs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	for _, cost := range fixedCosts {
		summary.FixedCostMonthly += cost.MonthlyValue()
	}

	calculator := costing.New(database)
	perHour, err := calculator.FixedCostPerHour(ctx)
	if err != nil {
		applog.Error(ctx, "failed to compute fixed cost per hour", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	summary.FixedCostPerHour = perHour

	var products []models.Product
	if err := database.WithContext(ctx).Find(&products).Error; err != nil {
		applog.Error(ctx, "failed to list products", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	costs, err := calculator.AllProductCosts(ctx)
	if err != nil {
		applog.Error(ctx, "failed to evaluate product costs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	for _, product := range products {
		cost, ok := costs[product.ID]
		if !ok || cost.TotalCost <= 0 {
			continue
		}
		price := product.SalePrice
		if price <= 0 {
			price = cost.SuggestedPrice
		}
		entry := dashboardProduct{
			ProductID:      product.ID,
			Name:           product.Name,
			TotalCost:      cost.TotalCost,
			SuggestedPrice: cost.SuggestedPrice,
			SalePrice:      product.SalePrice,
			ProfitMargin:   (price - cost.TotalCost) / cost.TotalCost * 100,
		}
		if summary.MostProfitable == nil || entry.ProfitMargin > summary.MostProfitable.ProfitMargin {
			clone := entry
			summary.MostProfitable = &clone
		}
		if summary.LeastProfitable == nil || entry.ProfitMargin < summary.LeastProfitable.ProfitMargin {
			clone := entry
			summary.LeastProfitable = &clone
		}
	}

	writeJSON(w, http.StatusOK, summary)
}
