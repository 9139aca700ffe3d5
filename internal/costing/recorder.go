package costing

import (
	"context"
	"errors"
	"math"

	"gorm.io/gorm"

	applog "precifica/internal/log"
	"precifica/models"
)

// Epsilon is the smallest cost movement worth a history row: differences of
// one cent or less are treated as noise.
const Epsilon = 0.01

// Recorder appends price-history rows for cost movements detected around a
// mutation. Callers run the snapshot, the mutation, and the recording inside
// one transaction so the audit trail can never outlive a rolled-back change.
type Recorder struct {
	db   *gorm.DB
	calc *Calculator
}

// NewRecorder builds a Recorder bound to the given handle, typically a
// transaction.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db, calc: New(db)}
}

// Calculator exposes the recorder's calculator, bound to the same handle.
func (r *Recorder) Calculator() *Calculator {
	return r.calc
}

// SnapshotCosts captures the current total cost of each listed product.
// Products that cannot be evaluated (missing or circular) are skipped.
func (r *Recorder) SnapshotCosts(ctx context.Context, productIDs []uint) map[uint]float64 {
	snapshot := make(map[uint]float64, len(productIDs))
	for _, id := range productIDs {
		cost, err := r.calc.ProductCost(ctx, id)
		if err != nil {
			if !errors.Is(err, ErrProductNotFound) && !errors.Is(err, ErrCircularRecipe) {
				applog.Warn(ctx, "failed to snapshot product cost", "productID", id, "error", err)
			}
			continue
		}
		snapshot[id] = cost.TotalCost
	}
	return snapshot
}

// RecordEntityChange appends the history row for the mutated entity itself
// when its price moved by more than Epsilon.
func (r *Recorder) RecordEntityChange(ctx context.Context, itemType, itemName string, oldPrice, newPrice float64, changeType string, productID, ingredientID *uint) error {
	if math.Abs(newPrice-oldPrice) <= Epsilon {
		return nil
	}
	entry := models.PriceHistory{
		ItemType:     itemType,
		ItemName:     itemName,
		OldPrice:     oldPrice,
		NewPrice:     newPrice,
		ChangeType:   changeType,
		ProductID:    productID,
		IngredientID: ingredientID,
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

// RecordProductChanges recomputes each snapshotted product and appends one
// history row per product whose total cost moved by more than Epsilon.
func (r *Recorder) RecordProductChanges(ctx context.Context, before map[uint]float64, changeType string, ingredientID *uint) error {
	for id, oldCost := range before {
		cost, err := r.calc.ProductCost(ctx, id)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) || errors.Is(err, ErrCircularRecipe) {
				continue
			}
			return err
		}
		if math.Abs(cost.TotalCost-oldCost) <= Epsilon {
			continue
		}

		var product models.Product
		if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return err
		}

		productID := id
		entry := models.PriceHistory{
			ItemType:     models.HistoryItemProduct,
			ItemName:     product.Name,
			OldPrice:     oldCost,
			NewPrice:     cost.TotalCost,
			ChangeType:   changeType,
			ProductID:    &productID,
			IngredientID: ingredientID,
		}
		if err := r.db.WithContext(ctx).Create(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}
