package main

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ledongthuc/pdf"
	"gorm.io/gorm"

	"precifica/internal/config"
	"precifica/internal/costing"
	"precifica/internal/db"
	"precifica/models"
)

var (
	cleanWhitespace = regexp.MustCompile(`\s+`)
	// "Farinha de Trigo 5kg R$ 12,50" or "Açúcar Cristal 2 kg 8.90"
	priceLinePattern = regexp.MustCompile(`(?i)^(.+?)\s+([\d.,]+)\s*(kg|g|mg|l|ml|un)\b\s+R?\$?\s*([\d.,]+)$`)
)

// priceRecord is one row of a supplier price list.
type priceRecord struct {
	Name            string
	Category        string
	Brand           string
	PackageQuantity float64
	Unit            string
	PackagePrice    float64
}

func main() {
	godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: import_ingredients <price-list.csv|price-list.pdf>")
		os.Exit(2)
	}

	if err := run(os.Args[1]); err != nil {
		fmt.Fprintf(os.Stderr, "import failed: %v\n", err)
		os.Exit(1)
	}
}

func run(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("price list path must not be empty")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("locate price list: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	database, err := db.Initialize(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(database); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	records, err := readPriceList(path)
	if err != nil {
		return fmt.Errorf("read price list: %w", err)
	}
	if len(records) == 0 {
		return errors.New("price list has no usable rows")
	}

	created, updated := 0, 0
	for idx, record := range records {
		if err := database.Transaction(func(tx *gorm.DB) error {
			isNew, err := upsertIngredient(tx, record)
			if err != nil {
				return err
			}
			if isNew {
				created++
			} else {
				updated++
			}
			return nil
		}); err != nil {
			return fmt.Errorf("row %d (%s): %w", idx+1, record.Name, err)
		}
	}

	fmt.Fprintf(os.Stdout, "Imported %d ingredients (%d new, %d updated) from %s\n",
		created+updated, created, updated, filepath.Base(path))
	return nil
}

func upsertIngredient(tx *gorm.DB, record priceRecord) (bool, error) {
	var existing models.Ingredient
	err := tx.Where("lower(name) = ?", strings.ToLower(record.Name)).First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		ingredient := models.Ingredient{
			Name:            record.Name,
			Category:        record.Category,
			Brand:           record.Brand,
			PackageQuantity: record.PackageQuantity,
			Unit:            record.Unit,
			PackagePrice:    record.PackagePrice,
		}
		return true, tx.Create(&ingredient).Error
	case err != nil:
		return false, fmt.Errorf("find ingredient %q: %w", record.Name, err)
	}

	oldPrice := existing.PackagePrice
	updates := map[string]any{
		"package_quantity": record.PackageQuantity,
		"unit":             record.Unit,
		"package_price":    record.PackagePrice,
	}
	if record.Category != "" {
		updates["category"] = record.Category
	}
	if record.Brand != "" {
		updates["brand"] = record.Brand
	}
	if err := tx.Model(&existing).Updates(updates).Error; err != nil {
		return false, fmt.Errorf("update ingredient %q: %w", record.Name, err)
	}

	recorder := costing.NewRecorder(tx)
	ingredientID := existing.ID
	if err := recorder.RecordEntityChange(tx.Statement.Context, models.HistoryItemIngredient,
		existing.Name, oldPrice, record.PackagePrice, models.ChangeTypeIngredientImport, nil, &ingredientID); err != nil {
		return false, fmt.Errorf("record price change for %q: %w", record.Name, err)
	}
	return false, nil
}

func readPriceList(path string) ([]priceRecord, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(path)
	case ".pdf":
		return readPDF(path)
	default:
		return nil, fmt.Errorf("unsupported price list format %q", filepath.Ext(path))
	}
}

func readCSV(path string) ([]priceRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, errors.New("csv needs a header row and at least one data row")
	}

	columns := make(map[string]int, len(rows[0]))
	for idx, key := range rows[0] {
		columns[normalizeHeader(key)] = idx
	}
	nameIdx, ok := findColumn(columns, "nome", "name", "ingrediente")
	if !ok {
		return nil, errors.New("csv is missing a name column")
	}
	quantityIdx, ok := findColumn(columns, "quantidade", "quantidade_embalagem", "quantity")
	if !ok {
		return nil, errors.New("csv is missing a quantity column")
	}
	priceIdx, ok := findColumn(columns, "preco", "preco_embalagem", "price", "valor")
	if !ok {
		return nil, errors.New("csv is missing a price column")
	}
	unitIdx, hasUnit := findColumn(columns, "unidade", "unit")
	categoryIdx, hasCategory := findColumn(columns, "categoria", "category")
	brandIdx, hasBrand := findColumn(columns, "marca", "brand")

	records := make([]priceRecord, 0, len(rows)-1)
	for _, row := range rows[1:] {
		name := cellAt(row, nameIdx)
		if name == "" {
			continue
		}
		record := priceRecord{
			Name:            cleanWhitespace.ReplaceAllString(name, " "),
			PackageQuantity: parseAmount(cellAt(row, quantityIdx)),
			PackagePrice:    parseAmount(cellAt(row, priceIdx)),
			Unit:            "un",
		}
		if hasUnit {
			if unit := strings.ToLower(cellAt(row, unitIdx)); unit != "" {
				record.Unit = unit
			}
		}
		if hasCategory {
			record.Category = cellAt(row, categoryIdx)
		}
		if hasBrand {
			record.Brand = cellAt(row, brandIdx)
		}
		if record.PackageQuantity <= 0 || record.PackagePrice <= 0 {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func readPDF(path string) ([]priceRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text, err := extractTextFromPDF(data)
	if err != nil {
		return nil, err
	}
	return parsePriceLines(text), nil
}

func extractTextFromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	var builder strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		builder.WriteString(text)
		builder.WriteString("\n")
	}
	return builder.String(), nil
}

// parsePriceLines scans free-form text for lines shaped like
// "<name> <quantity><unit> <price>".
func parsePriceLines(text string) []priceRecord {
	var records []priceRecord
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(cleanWhitespace.ReplaceAllString(line, " "))
		if line == "" {
			continue
		}
		match := priceLinePattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		record := priceRecord{
			Name:            strings.TrimSpace(match[1]),
			PackageQuantity: parseAmount(match[2]),
			Unit:            strings.ToLower(match[3]),
			PackagePrice:    parseAmount(match[4]),
		}
		if record.Name == "" || record.PackageQuantity <= 0 || record.PackagePrice <= 0 {
			continue
		}
		records = append(records, record)
	}
	return records
}

// parseAmount accepts both "1.234,56" and "1234.56".
func parseAmount(value string) float64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if strings.Contains(value, ",") {
		value = strings.ReplaceAll(value, ".", "")
		value = strings.ReplaceAll(value, ",", ".")
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

func normalizeHeader(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func findColumn(columns map[string]int, names ...string) (int, bool) {
	for _, name := range names {
		if idx, ok := columns[name]; ok {
			return idx, true
		}
	}
	return 0, false
}

func cellAt(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
