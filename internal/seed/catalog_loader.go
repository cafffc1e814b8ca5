package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/store"
)

// MedicineWriter stores catalog rows.
type MedicineWriter interface {
	Create(ctx context.Context, m domain.Medicine) (domain.Medicine, error)
}

// Report summarizes an import.
type Report struct {
	Inserted int      `json:"inserted"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

var header = []string{"name", "generic_name", "manufacturer", "form", "price", "stock", "expiry_date"}

// ImportMedicines reads a catalog CSV with the columns
// name,generic_name,manufacturer,form,price,stock,expiry_date into companyID's
// catalog. Rows that fail to parse or already exist are skipped and reported.
func ImportMedicines(ctx context.Context, w MedicineWriter, companyID int64, r io.Reader) (Report, error) {
	var report Report

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	// Skip header
	first, err := reader.Read()
	if err != nil {
		return report, fmt.Errorf("read catalog header: %w", err)
	}
	if len(first) < 5 || !strings.EqualFold(strings.TrimSpace(first[0]), header[0]) {
		return report, fmt.Errorf("catalog header must start with %s", strings.Join(header[:5], ","))
	}

	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			report.skip(line, err)
			continue
		}
		med, err := parseRow(record)
		if err != nil {
			report.skip(line, err)
			continue
		}
		med.CompanyID = companyID
		if _, err := w.Create(ctx, med); err != nil {
			if errors.Is(err, store.ErrConflict) {
				report.Skipped++
				continue
			}
			return report, fmt.Errorf("line %d: %w", line, err)
		}
		report.Inserted++
	}
	return report, nil
}

func (r *Report) skip(line int, err error) {
	r.Skipped++
	r.Errors = append(r.Errors, fmt.Sprintf("line %d: %v", line, err))
}

func field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func parseRow(record []string) (domain.Medicine, error) {
	med := domain.Medicine{
		Name:         field(record, 0),
		GenericName:  field(record, 1),
		Manufacturer: field(record, 2),
		Form:         field(record, 3),
	}
	if med.Name == "" {
		return med, errors.New("name is required")
	}
	price, err := decimal.NewFromString(field(record, 4))
	if err != nil || price.IsNegative() {
		return med, fmt.Errorf("invalid price %q", field(record, 4))
	}
	med.Price = price
	if raw := field(record, 5); raw != "" {
		stock, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || stock < 0 {
			return med, fmt.Errorf("invalid stock %q", raw)
		}
		med.Stock = stock
	}
	if raw := field(record, 6); raw != "" {
		if _, err := store.ParseDate(raw, false); err != nil {
			return med, err
		}
		med.ExpiryDate = &raw
	}
	return med, nil
}

// LoadMedicines imports the CSV at path. A missing file is logged and ignored.
func LoadMedicines(ctx context.Context, w MedicineWriter, companyID int64, path string, logger *zap.Logger) {
	file, err := os.Open(path)
	if err != nil {
		logger.Warn("unable to load medicine catalog", zap.String("path", path), zap.Error(err))
		return
	}
	defer file.Close()

	report, err := ImportMedicines(ctx, w, companyID, file)
	if err != nil {
		logger.Error("medicine catalog import failed", zap.String("path", path), zap.Error(err))
		return
	}
	logger.Info("seeded medicine catalog",
		zap.Int64("company_id", companyID),
		zap.Int("rows", report.Inserted),
		zap.Int("skipped", report.Skipped))
}

// ExportMedicines writes meds as a catalog CSV that ImportMedicines reads back.
func ExportMedicines(w io.Writer, meds []domain.Medicine) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("write catalog header: %w", err)
	}
	for _, m := range meds {
		expiry := ""
		if m.ExpiryDate != nil {
			expiry = *m.ExpiryDate
		}
		record := []string{m.Name, m.GenericName, m.Manufacturer, m.Form, m.Price.String(), strconv.FormatInt(m.Stock, 10), expiry}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write medicine %s: %w", m.ID, err)
		}
	}
	writer.Flush()
	return writer.Error()
}
