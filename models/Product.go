package models

import (
	"gorm.io/gorm"
)

type Product struct {
	gorm.Model
	Name                   string       `gorm:"not null" json:"name"`
	Category               string       `json:"category"`
	Description            string       `gorm:"type:text" json:"description"`
	IsAlsoIngredient       bool         `gorm:"not null;default:false" json:"is_also_ingredient"`
	MarginPercentage       float64      `gorm:"not null;default:0" json:"margin_percentage"`
	PreparationTimeMinutes float64      `gorm:"not null;default:0" json:"preparation_time_minutes"`
	Yield                  float64      `json:"yield"`
	YieldUnit              string       `json:"yield_unit"`
	SalePrice              float64      `json:"sale_price"`
	RecipeLines            []RecipeLine `gorm:"foreignKey:ProductID" json:"recipe_lines"`
}
