package models

import (
	"gorm.io/gorm"
)

type Ingredient struct {
	gorm.Model
	Name            string       `gorm:"uniqueIndex;not null" json:"name"`
	Category        string       `json:"category"`
	PackageQuantity float64      `gorm:"not null" json:"package_quantity"`
	Unit            string       `gorm:"not null" json:"unit"`
	PackagePrice    float64      `gorm:"not null" json:"package_price"`
	Brand           string       `json:"brand"`
	RecipeLines     []RecipeLine `gorm:"foreignKey:IngredientID" json:"-"`
}

// UnitPrice is the cost of a single unit of the ingredient's package unit.
// A package quantity of zero yields zero rather than dividing by zero.
func (i Ingredient) UnitPrice() float64 {
	if i.PackageQuantity <= 0 {
		return 0
	}
	return i.PackagePrice / i.PackageQuantity
}
