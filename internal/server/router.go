package server

import (
	"context"
	"net/http"

	"precifica/internal/handlers"
	applog "precifica/internal/log"
)

func newRouter() http.Handler {
	mux := http.NewServeMux()
	applog.Debug(context.Background(), "registering http routes")

	mux.HandleFunc("/healthz", handlers.Healthz)
	mux.HandleFunc("/api/auth/register", handlers.Register)
	mux.HandleFunc("/api/auth/login", handlers.Login)
	mux.HandleFunc("/api/auth/logout", handlers.Logout)
	mux.Handle("/api/auth/me", handlers.RequireAuthentication(http.HandlerFunc(handlers.Me)))

	authenticated := map[string]http.HandlerFunc{
		"/api/ingredients":              handlers.IngredientResource,
		"/api/ingredients/":             handlers.IngredientResource,
		"/api/products":                 handlers.ProductResource,
		"/api/products/":                handlers.ProductResource,
		"/api/fixed-costs":              handlers.FixedCostResource,
		"/api/fixed-costs/":             handlers.FixedCostResource,
		"/api/price-history":            handlers.PriceHistoryIndex,
		"/api/settings":                 handlers.SettingsResource,
		"/api/dashboard/summary":        handlers.DashboardSummary,
		"/api/export/ingredients.csv":   handlers.ExportIngredientsCSV,
		"/api/export/price-history.csv": handlers.ExportPriceHistoryCSV,
		"/api/export/products.xlsx":     handlers.ExportProductsXLSX,
	}
	for path, handler := range authenticated {
		mux.Handle(path, handlers.RequireAuthentication(handler))
	}

	admin := map[string]http.HandlerFunc{
		"/api/backup":       handlers.CreateBackup,
		"/api/restore":      handlers.RestoreBackup,
		"/api/admin/users":  handlers.AdminUserResource,
		"/api/admin/users/": handlers.AdminUserResource,
	}
	for path, handler := range admin {
		mux.Handle(path, handlers.RequireAdmin(handler))
	}

	applog.Debug(context.Background(), "http routes registered")
	return mux
}
