package handlers

import (
	"net/http"
	"strconv"
	"strings"

	applog "precifica/internal/log"
	"precifica/models"
)

const priceHistoryPageLimit = 200

// PriceHistoryIndex lists recorded price movements, newest first. The list
// is read only; rows are created by the recorder when costs move.
func PriceHistoryIndex(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		applog.Debug(r.Context(), "price history request without database")
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	query := database.WithContext(ctx).Order("created_at desc, id desc").Limit(priceHistoryPageLimit)

	if itemType := strings.TrimSpace(r.URL.Query().Get("item_type")); itemType != "" {
		query = query.Where("item_type = ?", itemType)
	}
	if changeType := strings.TrimSpace(r.URL.Query().Get("change_type")); changeType != "" {
		query = query.Where("change_type = ?", changeType)
	}
	if productParam := r.URL.Query().Get("product_id"); productParam != "" {
		productID, err := strconv.ParseUint(productParam, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
			return
		}
		query = query.Where("product_id = ?", uint(productID))
	}
	if ingredientParam := r.URL.Query().Get("ingredient_id"); ingredientParam != "" {
		ingredientID, err := strconv.ParseUint(ingredientParam, 10, 64)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, msgInvalidPayload)
			return
		}
		query = query.Where("ingredient_id = ?", uint(ingredientID))
	}

	var rows []models.PriceHistory
	if err := query.Find(&rows).Error; err != nil {
		applog.Error(ctx, "failed to list price history", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
