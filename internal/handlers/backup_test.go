package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"precifica/models"
)

func TestBackupAndRestoreRoundTrip(t *testing.T) {
	db, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	flour := createTestIngredient(t, db, "Farinha de Trigo", 5, "kg", 12.5)
	dough := createTestProduct(t, db, "Massa Base", 0, 0)
	cake := createTestProduct(t, db, "Bolo Simples", 60, 90)
	addTestIngredientLine(t, db, dough.ID, flour.ID, 1, "kg")
	doughID := dough.ID
	if err := db.Create(&models.RecipeLine{ProductID: cake.ID, ProductIngredientID: &doughID, Quantity: 1.5, Unit: "un"}).Error; err != nil {
		t.Fatalf("failed to seed sub product line: %v", err)
	}
	if err := db.Create(&models.FixedCost{Name: "Aluguel", Value: 1600, Recurrence: models.RecurrenceMonthly, IsActive: true}).Error; err != nil {
		t.Fatalf("failed to seed fixed cost: %v", err)
	}
	flourID := flour.ID
	if err := db.Create(&models.PriceHistory{ItemType: models.HistoryItemIngredient, ItemName: "Farinha de Trigo", OldPrice: 10, NewPrice: 12.5, ChangeType: models.ChangeTypePriceUpdate, IngredientID: &flourID}).Error; err != nil {
		t.Fatalf("failed to seed history: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/backup", nil)
	w := httptest.NewRecorder()
	CreateBackup(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var document backupDocument
	if err := json.Unmarshal(w.Body.Bytes(), &document); err != nil {
		t.Fatalf("failed to decode backup: %v", err)
	}
	if document.Application != backupMarker || document.Version != 1 {
		t.Fatalf("unexpected backup envelope: %+v", document)
	}
	if len(document.Data.Ingredients) != 1 || len(document.Data.Products) != 2 || len(document.Data.RecipeLines) != 2 {
		t.Fatalf("unexpected backup sizes: %d ingredients, %d products, %d lines",
			len(document.Data.Ingredients), len(document.Data.Products), len(document.Data.RecipeLines))
	}

	// wipe and add noise so restored primary keys differ from the originals
	for _, model := range []any{&models.PriceHistory{}, &models.RecipeLine{}, &models.Product{}, &models.Ingredient{}, &models.FixedCost{}} {
		if err := db.Unscoped().Where("1 = 1").Delete(model).Error; err != nil {
			t.Fatalf("failed to wipe table: %v", err)
		}
	}
	createTestIngredient(t, db, "Ingrediente Descartável", 1, "un", 1)

	restoreReq := httptest.NewRequest(http.MethodPost, "/api/restore", bytes.NewReader(w.Body.Bytes()))
	restoreReq.Header.Set("Content-Type", "application/json")
	restoreW := httptest.NewRecorder()
	RestoreBackup(restoreW, restoreReq)
	if restoreW.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", restoreW.Code, restoreW.Body.String())
	}

	var ingredients []models.Ingredient
	if err := db.Find(&ingredients).Error; err != nil {
		t.Fatalf("failed to list ingredients: %v", err)
	}
	if len(ingredients) != 1 || ingredients[0].Name != "Farinha de Trigo" {
		t.Fatalf("expected restore to replace existing data, got %+v", ingredients)
	}

	var restoredCake models.Product
	if err := db.Where("name = ?", "Bolo Simples").Preload("RecipeLines.ProductIngredient").First(&restoredCake).Error; err != nil {
		t.Fatalf("failed to load restored product: %v", err)
	}
	if len(restoredCake.RecipeLines) != 1 {
		t.Fatalf("expected one recipe line, got %d", len(restoredCake.RecipeLines))
	}
	sub := restoredCake.RecipeLines[0]
	if sub.ProductIngredient == nil || sub.ProductIngredient.Name != "Massa Base" {
		t.Fatalf("expected sub product reference to be remapped, got %+v", sub)
	}

	var history []models.PriceHistory
	if err := db.Find(&history).Error; err != nil {
		t.Fatalf("failed to list history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("expected one restored history row, got %d", len(history))
	}
	if history[0].IngredientID == nil || *history[0].IngredientID != ingredients[0].ID {
		t.Fatalf("expected history ingredient reference to be remapped, got %+v", history[0])
	}
}

func TestRestoreRejectsForeignDocuments(t *testing.T) {
	_, cleanupDB := withTestDatabase(t)
	t.Cleanup(cleanupDB)

	req := httptest.NewRequest(http.MethodPost, "/api/restore", bytes.NewReader([]byte(`{"application":"outra-coisa"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	RestoreBackup(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}
