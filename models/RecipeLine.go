package models

import (
	"gorm.io/gorm"
)

// RecipeLine ties a product to one component of its recipe. Exactly one of
// IngredientID or ProductIngredientID is set: a line either consumes a raw
// ingredient or the output of another product, never both.
type RecipeLine struct {
	gorm.Model
	ProductID uint    `gorm:"not null;index" json:"product_id"` // owning product
	Quantity  float64 `gorm:"not null" json:"quantity"`
	Unit      string  `gorm:"not null" json:"unit"`

	IngredientID        *uint `gorm:"index" json:"ingredient_id,omitempty"`
	ProductIngredientID *uint `gorm:"index" json:"product_ingredient_id,omitempty"`

	Ingredient        *Ingredient `gorm:"foreignKey:IngredientID" json:"ingredient,omitempty"`
	ProductIngredient *Product    `gorm:"foreignKey:ProductIngredientID" json:"product_ingredient,omitempty"`
}
