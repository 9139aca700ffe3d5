package costing

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"precifica/models"
)

var (
	// ErrProductNotFound indicates the requested product does not exist.
	ErrProductNotFound = errors.New("costing: product not found")
	// ErrCircularRecipe indicates a recipe references itself, directly or
	// through intermediate products.
	ErrCircularRecipe = errors.New("costing: circular recipe detected")
)

// Cost holds the computed production figures for a single product.
type Cost struct {
	ProductID       uint    `json:"product_id"`
	IngredientsCost float64 `json:"ingredients_cost"`
	FixedCostShare  float64 `json:"fixed_cost_share"`
	TotalCost       float64 `json:"total_cost"`
	SuggestedPrice  float64 `json:"suggested_price"`
	Margin          float64 `json:"margin"`
}

// Calculator evaluates product production costs against the current store
// state. It holds no cache between calls: every evaluation reads the
// database, so results always reflect the latest mutations.
type Calculator struct {
	db  *gorm.DB
	now func() time.Time
}

// New builds a Calculator bound to the given database handle.
func New(db *gorm.DB) *Calculator {
	return &Calculator{db: db, now: time.Now}
}

// evaluation carries the shared state of one cost computation: the recipe
// graph loaded up front, per-product memoized totals, and the visited stack
// used for cycle detection.
type evaluation struct {
	products     map[uint]models.Product
	lines        map[uint][]models.RecipeLine
	fixedPerHour float64
	memo         map[uint]float64
	stack        map[uint]bool
}

func (c *Calculator) load(ctx context.Context) (*evaluation, error) {
	if c.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var products []models.Product
	if err := c.db.WithContext(ctx).Find(&products).Error; err != nil {
		return nil, err
	}

	var lines []models.RecipeLine
	if err := c.db.WithContext(ctx).Preload("Ingredient").Find(&lines).Error; err != nil {
		return nil, err
	}

	fixedPerHour, err := c.FixedCostPerHour(ctx)
	if err != nil {
		return nil, err
	}

	eval := &evaluation{
		products:     make(map[uint]models.Product, len(products)),
		lines:        make(map[uint][]models.RecipeLine),
		fixedPerHour: fixedPerHour,
		memo:         make(map[uint]float64),
		stack:        make(map[uint]bool),
	}
	for _, product := range products {
		eval.products[product.ID] = product
	}
	for _, line := range lines {
		eval.lines[line.ProductID] = append(eval.lines[line.ProductID], line)
	}
	return eval, nil
}

// totalCost computes a product's full production cost, recursing through
// sub-product lines. Results are memoized per evaluation and a visited
// stack turns self-reference into ErrCircularRecipe instead of unbounded
// recursion.
func (e *evaluation) totalCost(productID uint) (float64, error) {
	if value, ok := e.memo[productID]; ok {
		return value, nil
	}
	if e.stack[productID] {
		return 0, ErrCircularRecipe
	}
	product, ok := e.products[productID]
	if !ok {
		return 0, ErrProductNotFound
	}

	e.stack[productID] = true
	defer func() { e.stack[productID] = false }()

	ingredientsCost, err := e.ingredientsCost(productID)
	if err != nil {
		return 0, err
	}

	total := ingredientsCost + e.fixedShare(product)
	e.memo[productID] = total
	return total, nil
}

func (e *evaluation) ingredientsCost(productID uint) (float64, error) {
	sum := 0.0
	for _, line := range e.lines[productID] {
		switch {
		case line.IngredientID != nil:
			if line.Ingredient != nil {
				sum += line.Ingredient.UnitPrice() * line.Quantity
			}
		case line.ProductIngredientID != nil:
			subCost, err := e.totalCost(*line.ProductIngredientID)
			if err != nil {
				if errors.Is(err, ErrProductNotFound) {
					// dangling reference contributes nothing
					continue
				}
				return 0, err
			}
			sum += subCost * line.Quantity
		}
	}
	return sum, nil
}

func (e *evaluation) fixedShare(product models.Product) float64 {
	return e.fixedPerHour * product.PreparationTimeMinutes / 60
}

func (e *evaluation) cost(productID uint) (Cost, error) {
	product, ok := e.products[productID]
	if !ok {
		return Cost{}, ErrProductNotFound
	}

	total, err := e.totalCost(productID)
	if err != nil {
		return Cost{}, err
	}

	fixedShare := e.fixedShare(product)
	ingredientsCost := total - fixedShare
	suggested := total * (1 + product.MarginPercentage/100)

	return Cost{
		ProductID:       productID,
		IngredientsCost: ingredientsCost,
		FixedCostShare:  fixedShare,
		TotalCost:       total,
		SuggestedPrice:  suggested,
		Margin:          suggested - total,
	}, nil
}

// ProductCost computes the full cost breakdown for one product.
func (c *Calculator) ProductCost(ctx context.Context, productID uint) (Cost, error) {
	eval, err := c.load(ctx)
	if err != nil {
		return Cost{}, err
	}
	return eval.cost(productID)
}

// AllProductCosts evaluates every product in a single pass, sharing the
// recipe graph and the sub-product memo across products. Products with
// circular recipes are reported with a zero Cost and collected separately.
func (c *Calculator) AllProductCosts(ctx context.Context) (map[uint]Cost, error) {
	eval, err := c.load(ctx)
	if err != nil {
		return nil, err
	}

	costs := make(map[uint]Cost, len(eval.products))
	for id := range eval.products {
		cost, err := eval.cost(id)
		if err != nil {
			if errors.Is(err, ErrCircularRecipe) {
				costs[id] = Cost{ProductID: id}
				continue
			}
			return nil, err
		}
		costs[id] = cost
	}
	return costs, nil
}

// FixedCostPerHour derives the hourly fixed-cost allocation: the monthly
// normalized sum of active fixed costs divided by the configured monthly
// work hours. A schedule with no worked hours yields zero rather than a
// division by zero.
func (c *Calculator) FixedCostPerHour(ctx context.Context) (float64, error) {
	if c.db == nil {
		return 0, gorm.ErrInvalidDB
	}

	var costs []models.FixedCost
	if err := c.db.WithContext(ctx).Where("is_active = ?", true).Find(&costs).Error; err != nil {
		return 0, err
	}

	monthlyTotal := 0.0
	for _, cost := range costs {
		monthlyTotal += cost.MonthlyValue()
	}

	workCfg, err := c.workConfiguration(ctx)
	if err != nil {
		return 0, err
	}

	hours := workCfg.MonthlyWorkHours(c.now().Year())
	if hours <= 0 {
		return 0, nil
	}
	return monthlyTotal / hours, nil
}

func (c *Calculator) workConfiguration(ctx context.Context) (models.WorkConfiguration, error) {
	var workCfg models.WorkConfiguration
	err := c.db.WithContext(ctx).First(&workCfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.DefaultWorkConfiguration(), nil
		}
		return models.WorkConfiguration{}, err
	}
	return workCfg, nil
}
