package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"precifica/models"
)

func TestDashboardSummary(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	flour := createTestIngredient(t, db, "Farinha de Trigo", 5, "kg", 12.5)
	butter := createTestIngredient(t, db, "Manteiga", 0.5, "kg", 9)

	cheap := createTestProduct(t, db, "Pão Simples", 40, 0)
	addTestIngredientLine(t, db, cheap.ID, flour.ID, 1, "kg")
	if err := db.Model(&models.Product{}).Where("id = ?", cheap.ID).Update("sale_price", 10).Error; err != nil {
		t.Fatalf("failed to set sale price: %v", err)
	}

	rich := createTestProduct(t, db, "Croissant", 120, 0)
	addTestIngredientLine(t, db, rich.ID, butter.ID, 0.25, "kg")
	if err := db.Model(&models.Product{}).Where("id = ?", rich.ID).Update("sale_price", 4.5).Error; err != nil {
		t.Fatalf("failed to set sale price: %v", err)
	}

	if err := db.Create(&models.FixedCost{Name: "Aluguel", Value: 1600, Recurrence: models.RecurrenceMonthly, IsActive: true}).Error; err != nil {
		t.Fatalf("failed to seed fixed cost: %v", err)
	}
	if err := db.Create(&models.FixedCost{Name: "Seguro", Value: 1200, Recurrence: models.RecurrenceYearly, IsActive: true}).Error; err != nil {
		t.Fatalf("failed to seed fixed cost: %v", err)
	}
	if err := db.Create(&models.FixedCost{Name: "Assinatura", Value: 99, Recurrence: models.RecurrenceMonthly, IsActive: false}).Error; err != nil {
		t.Fatalf("failed to seed fixed cost: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	w := httptest.NewRecorder()
	DashboardSummary(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var summary dashboardSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.IngredientCount != 2 || summary.ProductCount != 2 {
		t.Fatalf("unexpected counts: %+v", summary)
	}
	// 1600 monthly plus 1200 yearly spread over twelve months
	if !almostEqual(summary.FixedCostMonthly, 1700) {
		t.Fatalf("expected monthly fixed total 1700, got %v", summary.FixedCostMonthly)
	}
	if summary.FixedCostPerHour <= 0 {
		t.Fatalf("expected positive fixed cost per hour, got %v", summary.FixedCostPerHour)
	}

	if summary.MostProfitable == nil || summary.LeastProfitable == nil {
		t.Fatal("expected profitability extremes to be populated")
	}
	// bread: cost 2.50, sold at 10.00 (300%); croissant: cost 4.50, sold at 4.50 (0%)
	if summary.MostProfitable.ProductID != cheap.ID {
		t.Fatalf("expected bread to be most profitable, got %+v", summary.MostProfitable)
	}
	if summary.LeastProfitable.ProductID != rich.ID {
		t.Fatalf("expected croissant to be least profitable, got %+v", summary.LeastProfitable)
	}
}

func TestDashboardSummaryEmptyCatalog(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/summary", nil)
	w := httptest.NewRecorder()
	DashboardSummary(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var summary dashboardSummary
	if err := json.Unmarshal(w.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if summary.MostProfitable != nil || summary.LeastProfitable != nil {
		t.Fatalf("expected no profitability extremes, got %+v", summary)
	}
}
