package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmalink/m/domain"
	"pharmalink/m/internal/database"
	"pharmalink/m/internal/migrations"
	"pharmalink/m/internal/store"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(db))
	h := New(db, Options{Secret: "test-secret"}, nil)
	return &testServer{t: t, handler: h.Router()}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (s *testServer) register(body map[string]any) authResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/auth/register", "", body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authResponse](s.t, rec)
}

func (s *testServer) registerCompany(name, supplierType string) authResponse {
	return s.register(map[string]any{
		"name":          name,
		"email":         strings.ToLower(strings.ReplaceAll(name, " ", "")) + "@supplier.test",
		"password":      "secret",
		"role":          domain.RoleCompany,
		"company_name":  name,
		"supplier_type": supplierType,
	})
}

func (s *testServer) registerPharmacy() authResponse {
	return s.register(map[string]any{
		"name":     "Corner Pharmacy",
		"email":    "corner@pharmacy.test",
		"password": "secret",
		"role":     domain.RolePharmacy,
	})
}

func (s *testServer) createMedicine(token, name, price string, stock int64) domain.Medicine {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/medicines", token, map[string]any{"name": name, "price": price, "stock": stock})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.Medicine](s.t, rec)
}

func (s *testServer) createDiscount(token string, body map[string]any) domain.DiscountRule {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/discounts", token, body)
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[domain.DiscountRule](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RegisterLoginAndReset(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	require.NotNil(t, company.Company)
	assert.NotEmpty(t, company.Token)
	assert.Empty(t, company.User.Password)
	require.NotNil(t, company.User.CompanyID)
	assert.Equal(t, company.Company.ID, *company.User.CompanyID)

	rec := s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Again", "email": "nilepharma@supplier.test", "password": "x", "role": domain.RolePharmacy,
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "No Company", "email": "nc@supplier.test", "password": "x", "role": domain.RoleCompany,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/register", "", map[string]any{
		"name": "Root", "email": "root@supplier.test", "password": "x", "role": domain.RoleAdmin,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "NilePharma@supplier.test", "password": "secret"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "nilepharma@supplier.test", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/reset-password", company.Token, map[string]any{"new_password": "changed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "nilepharma@supplier.test", "password": "changed"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAuth_RejectsMissingOrBadToken(t *testing.T) {
	s := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/companies", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/companies", "not-a-jwt", nil).Code)
}

func TestDiscounts_Validation(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	other := s.registerCompany("Delta Labs", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()
	foreign := s.createMedicine(other.Token, "Aspirin", "3", 10)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"unknown type", map[string]any{"discount_type": "bogus", "name": "x"}},
		{"missing name", map[string]any{"discount_type": "percentage", "percentage": "10"}},
		{"zero percentage", map[string]any{"discount_type": "percentage", "name": "x", "percentage": "0"}},
		{"percentage above 100", map[string]any{"discount_type": "percentage", "name": "x", "percentage": "150"}},
		{"missing get quantity", map[string]any{"discount_type": "buy_get", "name": "x", "buy_quantity": 2}},
		{"huge get quantity", map[string]any{"discount_type": "buy_get", "name": "x", "buy_quantity": 1, "get_quantity": int64(math.MaxInt64 / 2)}},
		{"end before start", map[string]any{"discount_type": "percentage", "name": "x", "percentage": "5", "start_date": "2030-02-01", "end_date": "2030-01-01"}},
		{"bad date", map[string]any{"discount_type": "percentage", "name": "x", "percentage": "5", "start_date": "tomorrow"}},
		{"foreign medicine", map[string]any{"discount_type": "percentage", "name": "x", "percentage": "5", "medicine_id": foreign.ID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/discounts", company.Token, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	rec := s.do(http.MethodPost, "/discounts", pharmacy.Token, map[string]any{"discount_type": "percentage", "name": "x", "percentage": "5"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	warehouse := s.registerCompany("Central Warehouse", domain.SupplierWarehouse)
	rec = s.do(http.MethodPost, "/discounts", warehouse.Token, map[string]any{"discount_type": "percentage", "name": "x", "percentage": "5"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestDiscounts_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	other := s.registerCompany("Delta Labs", domain.SupplierCompany)

	rule := s.createDiscount(company.Token, map[string]any{
		"discount_type": "percentage", "name": "Spring", "percentage": "10", "end_date": "2099-12-31",
	})
	assert.True(t, rule.IsActive)
	require.NotNil(t, rule.EndDate)
	assert.Equal(t, 23, rule.EndDate.Hour())

	rec := s.do(http.MethodPut, "/discounts/"+rule.ID.String(), company.Token, map[string]any{
		"discount_type": "percentage", "name": "Spring+", "percentage": "12.5",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[domain.DiscountRule](t, rec)
	assert.Equal(t, "Spring+", updated.Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(updated.Percentage.Decimal))

	rec = s.do(http.MethodPost, "/discounts/"+rule.ID.String()+"/toggle", other.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, "/discounts/"+rule.ID.String()+"/toggle", company.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode[map[string]any](t, rec)["is_active"])

	rec = s.do(http.MethodGet, "/discounts?active=true", company.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.DiscountRule](t, rec))

	rec = s.do(http.MethodDelete, "/discounts/"+rule.ID.String(), other.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodDelete, "/discounts/"+rule.ID.String(), company.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, "/discounts", company.Token, nil)
	assert.Empty(t, decode[[]domain.DiscountRule](t, rec))
}

func TestCompanies_DetailListsOnlyValidDiscounts(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()
	s.createMedicine(company.Token, "Paracetamol", "10", 100)

	current := s.createDiscount(company.Token, map[string]any{"discount_type": "percentage", "name": "Now", "percentage": "5"})
	s.createDiscount(company.Token, map[string]any{"discount_type": "percentage", "name": "Old", "percentage": "5", "end_date": "2000-01-01"})
	s.createDiscount(company.Token, map[string]any{"discount_type": "percentage", "name": "Later", "percentage": "5", "start_date": "2999-01-01"})
	s.createDiscount(company.Token, map[string]any{"discount_type": "percentage", "name": "Off", "percentage": "5", "is_active": false})

	rec := s.do(http.MethodGet, "/companies/"+itoa(company.Company.ID), pharmacy.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	detail := decode[domain.CompanyDetail](t, rec)
	assert.Equal(t, "Nile Pharma", detail.Name)
	require.Len(t, detail.Medicines, 1)
	require.Len(t, detail.Discounts, 1)
	assert.Equal(t, current.ID, detail.Discounts[0].ID)

	rec = s.do(http.MethodGet, "/companies?type=warehouse", pharmacy.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[[]domain.Company](t, rec))

	rec = s.do(http.MethodGet, "/companies/999", pharmacy.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMedicines_UpdateSearchAndImport(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	other := s.registerCompany("Delta Labs", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()

	med := s.createMedicine(company.Token, "Paracetamol", "10", 100)

	rec := s.do(http.MethodPost, "/medicines", company.Token, map[string]any{"name": "Paracetamol", "price": "11", "stock": 1})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/medicines", company.Token, map[string]any{"name": "Bad", "price": "-1", "stock": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/medicines", pharmacy.Token, map[string]any{"name": "Nope", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	body := map[string]any{"name": "Paracetamol 500", "price": "12", "stock": 80, "expiry_date": "2030-06-30"}
	rec = s.do(http.MethodPut, "/medicines/"+med.ID.String(), other.Token, body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = s.do(http.MethodPut, "/medicines/"+med.ID.String(), company.Token, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	csv := "name,generic_name,manufacturer,form,price,stock,expiry_date\n" +
		"Ibuprofen,ibuprofen,Acme,tablet,4.50,30,\n" +
		"Paracetamol 500,paracetamol,Acme,tablet,12,5,\n"
	req := httptest.NewRequest(http.MethodPost, "/medicines/import", strings.NewReader(csv))
	req.Header.Set("Content-Type", "text/csv")
	req.Header.Set("Authorization", "Bearer "+company.Token)
	imp := httptest.NewRecorder()
	s.handler.ServeHTTP(imp, req)
	require.Equal(t, http.StatusOK, imp.Code, imp.Body.String())
	assert.Contains(t, imp.Body.String(), `"inserted":1`)

	rec = s.do(http.MethodGet, "/companies/"+itoa(company.Company.ID)+"/medicines?query=para", pharmacy.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[[]domain.Medicine](t, rec)
	require.Len(t, found, 1)
	assert.Equal(t, "Paracetamol 500", found[0].Name)
	assert.Equal(t, int64(80), found[0].Stock)
	assert.True(t, decimal.NewFromInt(12).Equal(found[0].Price))
}

func TestOrders_QuoteSubmitAndStatus(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()

	para := s.createMedicine(company.Token, "Paracetamol", "10", 100)
	ibu := s.createMedicine(company.Token, "Ibuprofen", "4", 100)
	s.createDiscount(company.Token, map[string]any{
		"discount_type": "percentage", "name": "Para 10", "percentage": "10", "medicine_id": para.ID,
	})
	s.createDiscount(company.Token, map[string]any{
		"discount_type": "buy_get", "name": "Ibu 2+1", "buy_quantity": 2, "get_quantity": 1, "medicine_id": ibu.ID,
	})

	cart := map[string]any{
		"company_id": company.Company.ID,
		"items": []map[string]any{
			{"medicine_id": para.ID, "quantity": 5},
			{"medicine_id": ibu.ID, "quantity": 4},
		},
	}

	rec := s.do(http.MethodPost, "/orders/quote", company.Token, cart)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/orders/quote", pharmacy.Token, cart)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var quote struct {
		Discounts struct {
			TotalDiscount          decimal.Decimal `json:"total_discount"`
			FinalAmount            decimal.Decimal `json:"final_amount"`
			OriginalAmount         decimal.Decimal `json:"original_amount"`
			MedicinesWithDiscounts []struct {
				ID            domain.ID `json:"id"`
				FreeQuantity  int64     `json:"free_quantity"`
				TotalQuantity int64     `json:"total_quantity"`
			} `json:"medicines_with_discounts"`
		} `json:"discounts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &quote))
	assert.True(t, decimal.NewFromInt(66).Equal(quote.Discounts.OriginalAmount))
	assert.True(t, decimal.NewFromInt(5).Equal(quote.Discounts.TotalDiscount))
	assert.True(t, decimal.NewFromInt(61).Equal(quote.Discounts.FinalAmount))
	require.Len(t, quote.Discounts.MedicinesWithDiscounts, 2)
	assert.Equal(t, int64(2), quote.Discounts.MedicinesWithDiscounts[1].FreeQuantity)
	assert.Equal(t, int64(6), quote.Discounts.MedicinesWithDiscounts[1].TotalQuantity)

	rec = s.do(http.MethodPost, "/orders", pharmacy.Token, cart)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "payment method is required")

	cart["payment_method"] = "cash"
	rec = s.do(http.MethodPost, "/orders", pharmacy.Token, cart)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[createOrderResponse](t, rec)
	order := created.Order
	assert.Equal(t, domain.OrderPending, order.Status)
	assert.True(t, decimal.NewFromInt(61).Equal(order.FinalAmount))
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(6), order.Items[1].Quantity)
	assert.Equal(t, int64(4), order.Items[1].OriginalQuantity)

	rec = s.do(http.MethodGet, "/companies/"+itoa(company.Company.ID)+"/medicines", pharmacy.Token, nil)
	stock := map[domain.ID]int64{}
	for _, m := range decode[[]domain.Medicine](t, rec) {
		stock[m.ID] = m.Stock
	}
	assert.Equal(t, int64(95), stock[para.ID])
	assert.Equal(t, int64(94), stock[ibu.ID])

	rec = s.do(http.MethodGet, "/notifications", company.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Notification](t, rec), 1)

	for _, token := range []string{pharmacy.Token, company.Token} {
		rec = s.do(http.MethodGet, "/orders", token, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]domain.Order](t, rec), 1)
		rec = s.do(http.MethodGet, "/orders/"+order.ID.String(), token, nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	path := "/orders/" + order.ID.String() + "/status"
	rec = s.do(http.MethodPut, path, pharmacy.Token, map[string]any{"status": "approved"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, path, company.Token, map[string]any{"status": "approved"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.OrderApproved, decode[domain.Order](t, rec).Status)

	rec = s.do(http.MethodGet, "/notifications?unread=true", pharmacy.Token, nil)
	notes := decode[[]domain.Notification](t, rec)
	require.Len(t, notes, 1)
	rec = s.do(http.MethodPost, "/notifications/"+itoa(notes[0].ID)+"/read", pharmacy.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, "/notifications?unread=true", pharmacy.Token, nil)
	assert.Empty(t, decode[[]domain.Notification](t, rec))

	rec = s.do(http.MethodPut, path, pharmacy.Token, map[string]any{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, path, company.Token, map[string]any{"status": "rejected"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, path, company.Token, map[string]any{"status": "delivered"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOrders_CancelReleasesStock(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()
	other := s.registerCompany("Delta Labs", domain.SupplierCompany)
	med := s.createMedicine(company.Token, "Paracetamol", "10", 10)

	cart := map[string]any{
		"company_id":     company.Company.ID,
		"payment_method": "cash",
		"items":          []map[string]any{{"medicine_id": med.ID, "quantity": 11}},
	}
	rec := s.do(http.MethodPost, "/orders", pharmacy.Token, cart)
	assert.Equal(t, http.StatusConflict, rec.Code)

	cart["items"] = []map[string]any{{"medicine_id": med.ID, "quantity": 4}}
	rec = s.do(http.MethodPost, "/orders", pharmacy.Token, cart)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[createOrderResponse](t, rec).Order

	rec = s.do(http.MethodGet, "/orders/"+order.ID.String(), other.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPut, "/orders/"+order.ID.String()+"/status", pharmacy.Token, map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/companies/"+itoa(company.Company.ID)+"/medicines", pharmacy.Token, nil)
	meds := decode[[]domain.Medicine](t, rec)
	require.Len(t, meds, 1)
	assert.Equal(t, int64(10), meds[0].Stock)

	rec = s.do(http.MethodGet, "/notifications", company.Token, nil)
	assert.Len(t, decode[[]domain.Notification](t, rec), 2)
}

func itoa(n int64) string {
	return strconv.FormatInt(n, 10)
}

func TestMedicines_DeleteRemovesTargetedDiscounts(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	other := s.registerCompany("Delta Labs", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()

	med := s.createMedicine(company.Token, "Paracetamol", "10", 100)
	s.createDiscount(company.Token, map[string]any{
		"discount_type": "percentage", "name": "Para 10", "percentage": "10", "medicine_id": med.ID,
	})

	// Prime the rule cache so deletion has to invalidate it.
	rec := s.do(http.MethodGet, "/companies/"+itoa(company.Company.ID), pharmacy.Token, nil)
	require.Len(t, decode[domain.CompanyDetail](t, rec).Discounts, 1)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodDelete, "/medicines/"+med.ID.String(), pharmacy.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/medicines/"+med.ID.String(), other.Token, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(http.MethodDelete, "/medicines/"+med.ID.String(), company.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/medicines/"+med.ID.String(), company.Token, nil).Code)

	rec = s.do(http.MethodGet, "/companies/"+itoa(company.Company.ID), pharmacy.Token, nil)
	detail := decode[domain.CompanyDetail](t, rec)
	assert.Empty(t, detail.Medicines)
	assert.Empty(t, detail.Discounts)
}

func TestMedicines_ExportMatchesImportFormat(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()
	s.createMedicine(company.Token, "Paracetamol", "10.50", 100)
	s.createMedicine(company.Token, "Ibuprofen", "4", 7)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/medicines/export", pharmacy.Token, nil).Code)

	rec := s.do(http.MethodGet, "/medicines/export", company.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "medicines_export_")
	assert.Equal(t,
		"name,generic_name,manufacturer,form,price,stock,expiry_date\n"+
			"Ibuprofen,,,,4,7,\n"+
			"Paracetamol,,,,10.5,100,\n",
		rec.Body.String())
}

func TestMedicines_Alerts(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()

	today := time.Now().UTC()
	for name, body := range map[string]map[string]any{
		"expired":  {"price": "1", "stock": 100, "expiry_date": today.AddDate(0, 0, -3).Format("2006-01-02")},
		"soon":     {"price": "1", "stock": 100, "expiry_date": today.AddDate(0, 0, 10).Format("2006-01-02")},
		"fine":     {"price": "1", "stock": 100, "expiry_date": today.AddDate(1, 0, 0).Format("2006-01-02")},
		"lowstock": {"price": "1", "stock": 5},
	} {
		body["name"] = name
		rec := s.do(http.MethodPost, "/medicines", company.Token, body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/medicines/alerts", pharmacy.Token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/medicines/alerts?days=-1", company.Token, nil).Code)

	rec := s.do(http.MethodGet, "/medicines/alerts", company.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	alerts := decode[store.StockAlerts](t, rec)
	assert.Equal(t, int64(4), alerts.MedicineCount)
	require.Len(t, alerts.Expired, 1)
	assert.Equal(t, "expired", alerts.Expired[0].Name)
	require.Len(t, alerts.ExpiringSoon, 1)
	assert.Equal(t, "soon", alerts.ExpiringSoon[0].Name)
	require.Len(t, alerts.LowStock, 1)
	assert.Equal(t, "lowstock", alerts.LowStock[0].Name)

	rec = s.do(http.MethodGet, "/medicines/alerts?days=5&low_stock=200", company.Token, nil)
	alerts = decode[store.StockAlerts](t, rec)
	assert.Empty(t, alerts.ExpiringSoon)
	assert.Len(t, alerts.LowStock, 4)
}

func TestOrders_Reports(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()
	med := s.createMedicine(company.Token, "Paracetamol", "10", 100)
	s.createDiscount(company.Token, map[string]any{"discount_type": "percentage", "name": "All 10", "percentage": "10"})

	var ids []string
	for _, quantity := range []int64{5, 3} {
		rec := s.do(http.MethodPost, "/orders", pharmacy.Token, map[string]any{
			"company_id":     company.Company.ID,
			"payment_method": "cash",
			"items":          []map[string]any{{"medicine_id": med.ID, "quantity": quantity}},
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		ids = append(ids, decode[createOrderResponse](t, rec).Order.ID.String())
	}
	rec := s.do(http.MethodPut, "/orders/"+ids[1]+"/status", pharmacy.Token, map[string]any{"status": "cancelled"})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/orders/reports", pharmacy.Token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/orders/reports?start_date=yesterday", company.Token, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/orders/reports?start_date=2030-02-01&end_date=2030-01-01", company.Token, nil).Code)

	rec = s.do(http.MethodGet, "/orders/reports", company.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode[orderReport](t, rec)
	assert.Nil(t, report.Range)
	for _, totals := range []store.OrderTotals{report.Daily, report.Monthly} {
		assert.Equal(t, int64(2), totals.OrderCount)
		assert.Equal(t, int64(1), totals.ByStatus[domain.OrderCancelled])
		assert.True(t, decimal.NewFromInt(50).Equal(totals.OriginalAmount), totals.OriginalAmount.String())
		assert.True(t, decimal.NewFromInt(5).Equal(totals.TotalDiscount))
		assert.True(t, decimal.NewFromInt(45).Equal(totals.FinalAmount))
	}

	rec = s.do(http.MethodGet, "/orders/reports?start_date=2000-01-01&end_date=2000-12-31", company.Token, nil)
	report = decode[orderReport](t, rec)
	require.NotNil(t, report.Range)
	assert.Zero(t, report.Range.OrderCount)
}

func TestOrders_QuoteRejectsBonusBeyondStock(t *testing.T) {
	s := newTestServer(t)
	company := s.registerCompany("Nile Pharma", domain.SupplierCompany)
	pharmacy := s.registerPharmacy()
	med := s.createMedicine(company.Token, "Ibuprofen", "4", 10)
	s.createDiscount(company.Token, map[string]any{
		"discount_type": "buy_get", "name": "2+1", "buy_quantity": 2, "get_quantity": 1, "medicine_id": med.ID,
	})

	cart := map[string]any{
		"company_id": company.Company.ID,
		"items":      []map[string]any{{"medicine_id": med.ID, "quantity": 8}},
	}
	rec := s.do(http.MethodPost, "/orders/quote", pharmacy.Token, cart)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "including 4 free")

	cart["items"] = []map[string]any{{"medicine_id": med.ID, "quantity": 6}}
	rec = s.do(http.MethodPost, "/orders/quote", pharmacy.Token, cart)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}
