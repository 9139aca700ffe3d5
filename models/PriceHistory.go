package models

import (
	"gorm.io/gorm"
)

const (
	HistoryItemIngredient = "ingredient"
	HistoryItemProduct    = "product"
	HistoryItemFixedCost  = "fixed_cost"

	ChangeTypePriceUpdate      = "price_update"
	ChangeTypeRecipeUpdate     = "recipe_update"
	ChangeTypeFixedCostUpdate  = "fixed_cost_update"
	ChangeTypeWorkConfigUpdate = "work_config_update"
	ChangeTypeIngredientImport = "ingredient_import"
)

// PriceHistory is an append-only audit row recording a detected cost or
// price movement. Rows are never updated or deleted.
type PriceHistory struct {
	gorm.Model
	ItemType     string  `gorm:"not null;index" json:"item_type"`
	ItemName     string  `gorm:"not null" json:"item_name"`
	OldPrice     float64 `gorm:"not null" json:"old_price"`
	NewPrice     float64 `gorm:"not null" json:"new_price"`
	ChangeType   string  `gorm:"not null" json:"change_type"`
	ProductID    *uint   `gorm:"index" json:"product_id,omitempty"`
	IngredientID *uint   `gorm:"index" json:"ingredient_id,omitempty"`
}
