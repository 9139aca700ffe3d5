package handlers

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"precifica/internal/costing"
	applog "precifica/internal/log"
	"precifica/models"
)

// utf8BOM makes the CSV open correctly in spreadsheet applications that
// guess the encoding.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

func beginCSV(w http.ResponseWriter, filename string) *csv.Writer {
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(utf8BOM)
	return csv.NewWriter(w)
}

func formatAmount(value float64) string {
	return fmt.Sprintf("%.2f", value)
}

// ExportIngredientsCSV streams the ingredient catalog as CSV.
func ExportIngredientsCSV(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var ingredients []models.Ingredient
	if err := database.WithContext(ctx).Order("name asc").Find(&ingredients).Error; err != nil {
		applog.Error(ctx, "failed to export ingredients", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writer := beginCSV(w, "ingredientes.csv")
	writer.Write([]string{"nome", "categoria", "marca", "quantidade_embalagem", "unidade", "preco_embalagem", "preco_unitario"})
	for _, ingredient := range ingredients {
		writer.Write([]string{
			ingredient.Name,
			ingredient.Category,
			ingredient.Brand,
			formatAmount(ingredient.PackageQuantity),
			ingredient.Unit,
			formatAmount(ingredient.PackagePrice),
			fmt.Sprintf("%.4f", ingredient.UnitPrice()),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		applog.Error(ctx, "failed to write ingredient csv", "error", err)
	}
}

// ExportPriceHistoryCSV streams the full price history as CSV, newest first.
func ExportPriceHistoryCSV(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var rows []models.PriceHistory
	if err := database.WithContext(ctx).Order("created_at desc, id desc").Find(&rows).Error; err != nil {
		applog.Error(ctx, "failed to export price history", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writer := beginCSV(w, "historico-de-precos.csv")
	writer.Write([]string{"data", "tipo_item", "item", "preco_anterior", "preco_novo", "tipo_mudanca"})
	for _, row := range rows {
		writer.Write([]string{
			row.CreatedAt.Format(time.RFC3339),
			row.ItemType,
			row.ItemName,
			formatAmount(row.OldPrice),
			formatAmount(row.NewPrice),
			row.ChangeType,
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		applog.Error(ctx, "failed to write price history csv", "error", err)
	}
}

// ExportProductsXLSX builds a spreadsheet of the product catalog with the
// cost breakdown per product.
func ExportProductsXLSX(w http.ResponseWriter, r *http.Request) {
	if database == nil {
		writeJSONError(w, http.StatusServiceUnavailable, msgUnavailable)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	var products []models.Product
	if err := database.WithContext(ctx).Order("name asc").Find(&products).Error; err != nil {
		applog.Error(ctx, "failed to export products", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	costs, err := costing.New(database).AllProductCosts(ctx)
	if err != nil {
		applog.Error(ctx, "failed to evaluate product costs", "error", err)
		writeJSONError(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	workbook := excelize.NewFile()
	defer workbook.Close()

	const sheet = "Produtos"
	workbook.SetSheetName("Sheet1", sheet)

	headers := []string{"Nome", "Categoria", "Margem (%)", "Custo de ingredientes", "Rateio de custos fixos", "Custo total", "Preço sugerido", "Preço de venda"}
	for column, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(column+1, 1)
		workbook.SetCellValue(sheet, cell, header)
	}

	for row, product := range products {
		cost := costs[product.ID]
		values := []any{
			product.Name,
			product.Category,
			product.MarginPercentage,
			cost.IngredientsCost,
			cost.FixedCostShare,
			cost.TotalCost,
			cost.SuggestedPrice,
			product.SalePrice,
		}
		for column, value := range values {
			cell, _ := excelize.CoordinatesToCellName(column+1, row+2)
			workbook.SetCellValue(sheet, cell, value)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="produtos.xlsx"`)
	if err := workbook.Write(w); err != nil {
		applog.Error(ctx, "failed to write product workbook", "error", err)
	}
}
