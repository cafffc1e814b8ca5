package seed

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmalink/m/domain"
	"pharmalink/m/internal/store"
)

type memoryWriter struct {
	rows []domain.Medicine
}

func (m *memoryWriter) Create(ctx context.Context, med domain.Medicine) (domain.Medicine, error) {
	for _, existing := range m.rows {
		if existing.Name == med.Name {
			return med, store.ErrConflict
		}
	}
	m.rows = append(m.rows, med)
	return med, nil
}

func TestImportMedicines(t *testing.T) {
	csv := `name,generic_name,manufacturer,form,price,stock,expiry_date
Panadol,Paracetamol,GSK,tablet,12.50,40,2027-01-31
Brufen,Ibuprofen,Abbott,tablet,8,,
Panadol,Paracetamol,GSK,tablet,12.50,40,
,nameless,,,1,1,
Broken,,,,-3,1,
Late,,,,1,1,31/01/2027
`
	w := &memoryWriter{}

	report, err := ImportMedicines(context.Background(), w, 4, strings.NewReader(csv))
	require.NoError(t, err)

	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 4, report.Skipped)
	assert.Len(t, report.Errors, 3)
	require.Len(t, w.rows, 2)
	assert.Equal(t, int64(4), w.rows[0].CompanyID)
	assert.Equal(t, "12.5", w.rows[0].Price.String())
	require.NotNil(t, w.rows[0].ExpiryDate)
	assert.Equal(t, "2027-01-31", *w.rows[0].ExpiryDate)
	assert.Zero(t, w.rows[1].Stock)
}

func TestImportMedicines_BadHeader(t *testing.T) {
	_, err := ImportMedicines(context.Background(), &memoryWriter{}, 1, strings.NewReader("brand,price\nx,1\n"))
	assert.Error(t, err)
}

func TestExportMedicines_ReadsBack(t *testing.T) {
	expiry := "2027-01-31"
	meds := []domain.Medicine{
		{ID: "m1", Name: "Panadol, Extra", GenericName: "Paracetamol", Manufacturer: "GSK", Form: "tablet", Price: decimal.RequireFromString("12.5"), Stock: 40, ExpiryDate: &expiry},
		{ID: "m2", Name: `Brufen "400"`, Price: decimal.NewFromInt(8)},
	}

	var buf bytes.Buffer
	require.NoError(t, ExportMedicines(&buf, meds))
	assert.True(t, strings.HasPrefix(buf.String(), "name,generic_name,manufacturer,form,price,stock,expiry_date\n"))

	w := &memoryWriter{}
	report, err := ImportMedicines(context.Background(), w, 4, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Inserted)
	require.Len(t, w.rows, 2)
	assert.Equal(t, "Panadol, Extra", w.rows[0].Name)
	assert.True(t, meds[0].Price.Equal(w.rows[0].Price))
	require.NotNil(t, w.rows[0].ExpiryDate)
	assert.Equal(t, expiry, *w.rows[0].ExpiryDate)
	assert.Equal(t, `Brufen "400"`, w.rows[1].Name)
	assert.Nil(t, w.rows[1].ExpiryDate)
}
