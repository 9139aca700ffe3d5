package costing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"precifica/models"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Ingredient{},
		&models.Product{},
		&models.RecipeLine{},
		&models.FixedCost{},
		&models.WorkConfiguration{},
		&models.PriceHistory{},
	); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createIngredient(t *testing.T, db *gorm.DB, name string, quantity, price float64) models.Ingredient {
	t.Helper()
	ingredient := models.Ingredient{Name: name, PackageQuantity: quantity, Unit: "kg", PackagePrice: price}
	if err := db.Create(&ingredient).Error; err != nil {
		t.Fatalf("failed to create ingredient %q: %v", name, err)
	}
	return ingredient
}

func createProduct(t *testing.T, db *gorm.DB, name string, margin, prepMinutes float64) models.Product {
	t.Helper()
	product := models.Product{Name: name, MarginPercentage: margin, PreparationTimeMinutes: prepMinutes}
	if err := db.Create(&product).Error; err != nil {
		t.Fatalf("failed to create product %q: %v", name, err)
	}
	return product
}

func addIngredientLine(t *testing.T, db *gorm.DB, productID uint, ingredientID uint, quantity float64) {
	t.Helper()
	line := models.RecipeLine{ProductID: productID, IngredientID: &ingredientID, Quantity: quantity, Unit: "kg"}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("failed to create recipe line: %v", err)
	}
}

func addSubProductLine(t *testing.T, db *gorm.DB, productID uint, subProductID uint, quantity float64) {
	t.Helper()
	line := models.RecipeLine{ProductID: productID, ProductIngredientID: &subProductID, Quantity: quantity, Unit: "un"}
	if err := db.Create(&line).Error; err != nil {
		t.Fatalf("failed to create sub-product line: %v", err)
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

func TestProductCostWorkedExample(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	// Flour: 12.50 for 5kg -> unit cost 2.50/kg. Cake uses 2kg, no prep
	// time, 60% margin.
	flour := createIngredient(t, db, "Farinha", 5, 12.50)
	cake := createProduct(t, db, "Bolo", 60, 0)
	addIngredientLine(t, db, cake.ID, flour.ID, 2)

	cost, err := New(db).ProductCost(ctx, cake.ID)
	if err != nil {
		t.Fatalf("ProductCost returned error: %v", err)
	}

	if !almostEqual(cost.IngredientsCost, 5.00) {
		t.Fatalf("IngredientsCost = %f, want 5.00", cost.IngredientsCost)
	}
	if !almostEqual(cost.TotalCost, 5.00) {
		t.Fatalf("TotalCost = %f, want 5.00", cost.TotalCost)
	}
	if !almostEqual(cost.SuggestedPrice, 8.00) {
		t.Fatalf("SuggestedPrice = %f, want 8.00", cost.SuggestedPrice)
	}
	if !almostEqual(cost.Margin, 3.00) {
		t.Fatalf("Margin = %f, want 3.00", cost.Margin)
	}
}

func TestProductCostEmptyRecipeIsFixedShareOnly(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	workCfg := models.DefaultWorkConfiguration()
	if err := db.Create(&workCfg).Error; err != nil {
		t.Fatalf("failed to create work configuration: %v", err)
	}
	rent := models.FixedCost{Name: "Aluguel", Value: 1000, Recurrence: models.RecurrenceMonthly, IsActive: true}
	if err := db.Create(&rent).Error; err != nil {
		t.Fatalf("failed to create fixed cost: %v", err)
	}

	product := createProduct(t, db, "Sem Receita", 0, 60)

	calc := New(db)
	perHour, err := calc.FixedCostPerHour(ctx)
	if err != nil {
		t.Fatalf("FixedCostPerHour returned error: %v", err)
	}
	if perHour <= 0 {
		t.Fatalf("expected positive fixed cost per hour, got %f", perHour)
	}

	cost, err := calc.ProductCost(ctx, product.ID)
	if err != nil {
		t.Fatalf("ProductCost returned error: %v", err)
	}
	if !almostEqual(cost.IngredientsCost, 0) {
		t.Fatalf("IngredientsCost = %f, want 0", cost.IngredientsCost)
	}
	if !almostEqual(cost.TotalCost, perHour) {
		t.Fatalf("TotalCost = %f, want fixed share %f for one hour of preparation", cost.TotalCost, perHour)
	}
}

func TestProductCostMarginIdentity(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	sugar := createIngredient(t, db, "Açúcar", 1, 4.20)
	sweet := createProduct(t, db, "Doce", 35, 0)
	addIngredientLine(t, db, sweet.ID, sugar.ID, 0.3)

	cost, err := New(db).ProductCost(ctx, sweet.ID)
	if err != nil {
		t.Fatalf("ProductCost returned error: %v", err)
	}

	if !almostEqual(cost.SuggestedPrice-cost.TotalCost, cost.Margin) {
		t.Fatalf("suggested - total = %f, want margin %f", cost.SuggestedPrice-cost.TotalCost, cost.Margin)
	}
	if !almostEqual(cost.Margin, cost.TotalCost*0.35) {
		t.Fatalf("Margin = %f, want %f", cost.Margin, cost.TotalCost*0.35)
	}
}

func TestProductCostLinearInIngredientPrice(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	flour := createIngredient(t, db, "Farinha", 5, 12.50)
	cake := createProduct(t, db, "Bolo", 0, 0)
	addIngredientLine(t, db, cake.ID, flour.ID, 2)

	calc := New(db)
	before, err := calc.ProductCost(ctx, cake.ID)
	if err != nil {
		t.Fatalf("ProductCost returned error: %v", err)
	}

	const delta = 2.5
	if err := db.Model(&models.Ingredient{}).Where("id = ?", flour.ID).Update("package_price", flour.PackagePrice+delta).Error; err != nil {
		t.Fatalf("failed to update ingredient price: %v", err)
	}

	after, err := calc.ProductCost(ctx, cake.ID)
	if err != nil {
		t.Fatalf("ProductCost after update returned error: %v", err)
	}

	want := delta * (2.0 / 5.0)
	if !almostEqual(after.TotalCost-before.TotalCost, want) {
		t.Fatalf("cost moved by %f, want %f", after.TotalCost-before.TotalCost, want)
	}
}

func TestProductCostRecursesIntoSubProducts(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	flour := createIngredient(t, db, "Farinha", 1, 3)
	dough := createProduct(t, db, "Massa", 0, 0)
	addIngredientLine(t, db, dough.ID, flour.ID, 2) // dough costs 6
	cake := createProduct(t, db, "Bolo", 0, 0)
	addSubProductLine(t, db, cake.ID, dough.ID, 1.5)

	cost, err := New(db).ProductCost(ctx, cake.ID)
	if err != nil {
		t.Fatalf("ProductCost returned error: %v", err)
	}
	if !almostEqual(cost.TotalCost, 9) {
		t.Fatalf("TotalCost = %f, want 9", cost.TotalCost)
	}
}

func TestProductCostDetectsCircularRecipe(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	a := createProduct(t, db, "A", 0, 0)
	b := createProduct(t, db, "B", 0, 0)
	addSubProductLine(t, db, a.ID, b.ID, 1)
	addSubProductLine(t, db, b.ID, a.ID, 1)

	if _, err := New(db).ProductCost(ctx, a.ID); !errors.Is(err, ErrCircularRecipe) {
		t.Fatalf("expected ErrCircularRecipe, got %v", err)
	}
}

func TestProductCostUnknownProduct(t *testing.T) {
	db := openTestDatabase(t)

	if _, err := New(db).ProductCost(context.Background(), 999); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
}

func TestFixedCostPerHourNormalizesRecurrences(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	workCfg := models.DefaultWorkConfiguration()
	if err := db.Create(&workCfg).Error; err != nil {
		t.Fatalf("failed to create work configuration: %v", err)
	}

	costs := []models.FixedCost{
		{Name: "Aluguel", Value: 1200, Recurrence: models.RecurrenceMonthly, IsActive: true},
		{Name: "Contador", Value: 600, Recurrence: models.RecurrenceQuarterly, IsActive: true},
		{Name: "Licença", Value: 2400, Recurrence: models.RecurrenceYearly, IsActive: true},
		{Name: "Desligado", Value: 9999, Recurrence: models.RecurrenceMonthly, IsActive: false},
	}
	for _, cost := range costs {
		costCopy := cost
		if err := db.Create(&costCopy).Error; err != nil {
			t.Fatalf("failed to create fixed cost: %v", err)
		}
	}

	calc := New(db)
	perHour, err := calc.FixedCostPerHour(ctx)
	if err != nil {
		t.Fatalf("FixedCostPerHour returned error: %v", err)
	}

	// 1200 + 600/3 + 2400/12 = 1600 monthly.
	wantMonthly := 1600.0
	hours := workCfg.MonthlyWorkHours(calc.now().Year())
	if !almostEqual(perHour, wantMonthly/hours) {
		t.Fatalf("FixedCostPerHour = %f, want %f", perHour, wantMonthly/hours)
	}
}

func TestFixedCostPerHourZeroScheduleIsZero(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	workCfg := models.WorkConfiguration{HoursPerDay: 0}
	if err := db.Create(&workCfg).Error; err != nil {
		t.Fatalf("failed to create work configuration: %v", err)
	}
	rent := models.FixedCost{Name: "Aluguel", Value: 1000, Recurrence: models.RecurrenceMonthly, IsActive: true}
	if err := db.Create(&rent).Error; err != nil {
		t.Fatalf("failed to create fixed cost: %v", err)
	}

	perHour, err := New(db).FixedCostPerHour(ctx)
	if err != nil {
		t.Fatalf("FixedCostPerHour returned error: %v", err)
	}
	if perHour != 0 {
		t.Fatalf("FixedCostPerHour = %f, want 0 for an empty schedule", perHour)
	}
}

func TestAllProductCostsSkipsCircularRecipes(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	flour := createIngredient(t, db, "Farinha", 1, 3)
	good := createProduct(t, db, "Bolo", 0, 0)
	addIngredientLine(t, db, good.ID, flour.ID, 1)

	loop := createProduct(t, db, "Cíclico", 0, 0)
	addSubProductLine(t, db, loop.ID, loop.ID, 1)

	costs, err := New(db).AllProductCosts(ctx)
	if err != nil {
		t.Fatalf("AllProductCosts returned error: %v", err)
	}
	if !almostEqual(costs[good.ID].TotalCost, 3) {
		t.Fatalf("good product cost = %f, want 3", costs[good.ID].TotalCost)
	}
	if costs[loop.ID].TotalCost != 0 {
		t.Fatalf("circular product cost = %f, want 0", costs[loop.ID].TotalCost)
	}
}
