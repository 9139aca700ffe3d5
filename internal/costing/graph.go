package costing

import (
	"context"

	"gorm.io/gorm"

	"precifica/models"
)

// buildRecipeDependencyGraph maps each product id to the sub-products its
// recipe consumes.
func buildRecipeDependencyGraph(lines []models.RecipeLine) map[uint][]uint {
	graph := make(map[uint][]uint)
	for _, line := range lines {
		if line.ProductIngredientID == nil || *line.ProductIngredientID == 0 {
			continue
		}
		graph[line.ProductID] = append(graph[line.ProductID], *line.ProductIngredientID)
	}
	return graph
}

// wouldCreateRecipeCycle reports whether adding subProductID to productID's
// recipe would close a cycle: either a self-reference or a path from the
// candidate back to the owning product.
func wouldCreateRecipeCycle(graph map[uint][]uint, productID, subProductID uint) bool {
	if productID == subProductID {
		return true
	}

	visited := make(map[uint]bool)
	var reaches func(from uint) bool
	reaches = func(from uint) bool {
		if from == productID {
			return true
		}
		if visited[from] {
			return false
		}
		visited[from] = true
		for _, next := range graph[from] {
			if reaches(next) {
				return true
			}
		}
		return false
	}
	return reaches(subProductID)
}

// WouldCreateCycle checks against the stored recipe graph whether linking
// subProductID into productID's recipe would make the recipe circular.
func (c *Calculator) WouldCreateCycle(ctx context.Context, productID, subProductID uint) (bool, error) {
	if c.db == nil {
		return false, gorm.ErrInvalidDB
	}

	var lines []models.RecipeLine
	if err := c.db.WithContext(ctx).Find(&lines).Error; err != nil {
		return false, err
	}
	return wouldCreateRecipeCycle(buildRecipeDependencyGraph(lines), productID, subProductID), nil
}

// ProductsUsingIngredient lists the ids of products whose recipes reference
// the ingredient, directly or through intermediate sub-products. The scan is
// linear over all recipe lines, which is adequate for small-business catalog
// sizes.
func (c *Calculator) ProductsUsingIngredient(ctx context.Context, ingredientID uint) ([]uint, error) {
	if c.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var lines []models.RecipeLine
	if err := c.db.WithContext(ctx).Find(&lines).Error; err != nil {
		return nil, err
	}

	direct := make([]uint, 0)
	for _, line := range lines {
		if line.IngredientID != nil && *line.IngredientID == ingredientID {
			direct = append(direct, line.ProductID)
		}
	}
	return expandDependents(lines, direct), nil
}

// ProductsUsingProduct lists the ids of products affected by a change to
// the given product: the product itself plus every product that consumes it,
// transitively.
func (c *Calculator) ProductsUsingProduct(ctx context.Context, productID uint) ([]uint, error) {
	if c.db == nil {
		return nil, gorm.ErrInvalidDB
	}

	var lines []models.RecipeLine
	if err := c.db.WithContext(ctx).Find(&lines).Error; err != nil {
		return nil, err
	}
	return expandDependents(lines, []uint{productID}), nil
}

// expandDependents widens a seed set of product ids with every product
// whose recipe consumes a member of the set, repeated to a fixed point.
func expandDependents(lines []models.RecipeLine, seeds []uint) []uint {
	consumers := make(map[uint][]uint)
	for _, line := range lines {
		if line.ProductIngredientID == nil || *line.ProductIngredientID == 0 {
			continue
		}
		consumers[*line.ProductIngredientID] = append(consumers[*line.ProductIngredientID], line.ProductID)
	}

	seen := make(map[uint]bool)
	queue := append([]uint(nil), seeds...)
	result := make([]uint, 0, len(seeds))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true
		result = append(result, id)
		queue = append(queue, consumers[id]...)
	}
	return result
}
