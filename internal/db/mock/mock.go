package mock

import (
	"context"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	applog "precifica/internal/log"
	"precifica/models"
)

// New returns an in-memory sqlite database seeded with a representative
// confectionery catalog, suitable for local development without Postgres.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	db, err := gorm.Open(sqlite.Open("file:precifica-mock?mode=memory&cache=shared"), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		PrepareStmt:                              true,
		SkipDefaultTransaction:                   true,
		DisableForeignKeyConstraintWhenMigrating: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Ingredient{},
		&models.Product{},
		&models.RecipeLine{},
		&models.FixedCost{},
		&models.WorkConfiguration{},
		&models.PriceHistory{},
	); err != nil {
		return nil, err
	}

	if err := seed(ctx, db); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return db, nil
}

func seed(ctx context.Context, db *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	password, err := bcrypt.GenerateFromPassword([]byte("confeitaria"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Email:        "ana@precifica.app",
		PasswordHash: string(password),
		FirstName:    "Ana",
		LastName:     "Ribeiro",
		Role:         models.RoleAdmin,
	}
	if err := db.WithContext(ctx).Create(admin).Error; err != nil {
		return err
	}

	flour := models.Ingredient{
		Name:            "Farinha de Trigo",
		Category:        "Secos",
		PackageQuantity: 5,
		Unit:            "kg",
		PackagePrice:    12.50,
		Brand:           "Moinho Sul",
	}
	sugar := models.Ingredient{
		Name:            "Açúcar Refinado",
		Category:        "Secos",
		PackageQuantity: 1,
		Unit:            "kg",
		PackagePrice:    4.20,
	}
	butter := models.Ingredient{
		Name:            "Manteiga",
		Category:        "Laticínios",
		PackageQuantity: 0.5,
		Unit:            "kg",
		PackagePrice:    18.90,
		Brand:           "Serra Alta",
	}

	ingredients := []*models.Ingredient{&flour, &sugar, &butter}
	for _, ingredient := range ingredients {
		if err := db.WithContext(ctx).Create(ingredient).Error; err != nil {
			return err
		}
	}

	dough := models.Product{
		Name:                   "Massa Base",
		Category:               "Intermediários",
		IsAlsoIngredient:       true,
		MarginPercentage:       0,
		PreparationTimeMinutes: 20,
		Yield:                  1,
		YieldUnit:              "kg",
	}
	cake := models.Product{
		Name:                   "Bolo de Manteiga",
		Category:               "Bolos",
		MarginPercentage:       60,
		PreparationTimeMinutes: 90,
		Yield:                  1,
		YieldUnit:              "un",
	}

	if err := db.WithContext(ctx).Create(&dough).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Create(&cake).Error; err != nil {
		return err
	}

	lines := []models.RecipeLine{
		{ProductID: dough.ID, Quantity: 0.8, Unit: "kg", IngredientID: &flour.ID},
		{ProductID: dough.ID, Quantity: 0.2, Unit: "kg", IngredientID: &sugar.ID},
		{ProductID: cake.ID, Quantity: 1, Unit: "kg", ProductIngredientID: &dough.ID},
		{ProductID: cake.ID, Quantity: 0.25, Unit: "kg", IngredientID: &butter.ID},
	}
	for _, line := range lines {
		lineCopy := line
		if err := db.WithContext(ctx).Create(&lineCopy).Error; err != nil {
			return err
		}
	}

	costs := []models.FixedCost{
		{Name: "Aluguel", Category: "Estrutura", Value: 1200, Recurrence: models.RecurrenceMonthly, IsActive: true},
		{Name: "Energia", Category: "Estrutura", Value: 350, Recurrence: models.RecurrenceMonthly, IsActive: true},
		{Name: "Seguro", Category: "Estrutura", Value: 960, Recurrence: models.RecurrenceYearly, IsActive: true},
	}
	for _, cost := range costs {
		costCopy := cost
		if err := db.WithContext(ctx).Create(&costCopy).Error; err != nil {
			return err
		}
	}

	workCfg := models.DefaultWorkConfiguration()
	if err := db.WithContext(ctx).Create(&workCfg).Error; err != nil {
		return err
	}

	applog.Debug(ctx, "mock database seeded")
	return nil
}
