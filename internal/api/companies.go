package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/discount"
	"pharmalink/m/internal/seed"
	"pharmalink/m/internal/store"
)

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.companies.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, companies)
}

// getCompany returns a supplier with its catalog and the discounts valid right now.
func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	company, err := h.companies.Get(r.Context(), id)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	medicines, err := h.medicines.ListForCompany(r.Context(), id, "")
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	detail := domain.CompanyDetail{Company: company, Medicines: medicines, Discounts: []domain.DiscountRule{}}
	if company.Type != domain.SupplierWarehouse {
		rules, err := h.ruleCache.Get(r.Context(), id)
		if err != nil {
			h.respondFailure(w, r, err)
			return
		}
		now := h.now()
		for _, rule := range rules {
			if discount.IsDiscountValid(rule, now) {
				detail.Discounts = append(detail.Discounts, rule)
			}
		}
	}
	respondJSON(w, http.StatusOK, detail)
}

func (h *Handler) searchMedicines(w http.ResponseWriter, r *http.Request) {
	id, err := int64Param(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid company id")
		return
	}
	medicines, err := h.medicines.ListForCompany(r.Context(), id, r.URL.Query().Get("query"))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, medicines)
}

type medicineRequest struct {
	Name         string          `json:"name"`
	GenericName  string          `json:"generic_name"`
	Manufacturer string          `json:"manufacturer"`
	Form         string          `json:"form"`
	Price        decimal.Decimal `json:"price"`
	Stock        int64           `json:"stock"`
	ExpiryDate   string          `json:"expiry_date"`
}

func (req medicineRequest) medicine(companyID int64) (domain.Medicine, string) {
	if strings.TrimSpace(req.Name) == "" {
		return domain.Medicine{}, "name is required"
	}
	if req.Price.IsNegative() {
		return domain.Medicine{}, "price must not be negative"
	}
	if req.Stock < 0 {
		return domain.Medicine{}, "stock must not be negative"
	}
	m := domain.Medicine{
		CompanyID:    companyID,
		Name:         strings.TrimSpace(req.Name),
		GenericName:  req.GenericName,
		Manufacturer: req.Manufacturer,
		Form:         req.Form,
		Price:        req.Price,
		Stock:        req.Stock,
	}
	if expiry := strings.TrimSpace(req.ExpiryDate); expiry != "" {
		if _, err := store.ParseDate(expiry, false); err != nil {
			return domain.Medicine{}, "expiry_date must be in YYYY-MM-DD format"
		}
		m.ExpiryDate = &expiry
	}
	return m, ""
}

func (h *Handler) createMedicine(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, problem := req.medicine(companyID)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}
	created, err := h.medicines.Create(r.Context(), m)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateMedicine(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	var req medicineRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	m, problem := req.medicine(companyID)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}
	m.ID = idParam(r, "id")
	if err := h.medicines.Update(r.Context(), m); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// importMedicines accepts a catalog CSV as the request body.
func (h *Handler) importMedicines(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	report, err := seed.ImportMedicines(r.Context(), h.medicines, companyID, http.MaxBytesReader(w, r.Body, 5<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) deleteMedicine(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	if err := h.medicines.Delete(r.Context(), companyID, idParam(r, "id")); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	// Rules that targeted the medicine were removed with it.
	h.ruleCache.Invalidate(companyID)
	w.WriteHeader(http.StatusNoContent)
}

// exportMedicines streams the caller's catalog in the import CSV format.
func (h *Handler) exportMedicines(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	medicines, err := h.medicines.ListForCompany(r.Context(), companyID, "")
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	filename := fmt.Sprintf("medicines_export_%s.csv", h.now().UTC().Format(dateOnly))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	if err := seed.ExportMedicines(w, medicines); err != nil {
		h.logger.Warn("catalog export interrupted", zap.Int64("company_id", companyID), zap.Error(err))
	}
}

const (
	defaultExpiryDays = 30
	defaultLowStock   = 50
)

func (h *Handler) medicineAlerts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	days, err := positiveQuery(r, "days", defaultExpiryDays)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	lowStock, err := positiveQuery(r, "low_stock", defaultLowStock)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	alerts, err := h.medicines.Alerts(r.Context(), companyID, today, days, int64(lowStock))
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// positiveQuery reads a positive integer query parameter, falling back to def
// when it is absent.
func positiveQuery(r *http.Request, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return n, nil
}
