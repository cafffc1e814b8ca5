package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"pharmalink/m/domain"
	"pharmalink/m/internal/discount"
	"pharmalink/m/internal/store"
)

var hundred = decimal.NewFromInt(100)

type discountRequest struct {
	DiscountType   domain.DiscountType `json:"discount_type"`
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Percentage     decimal.NullDecimal `json:"percentage"`
	MinOrderAmount decimal.NullDecimal `json:"min_order_amount"`
	BuyQuantity    *int64              `json:"buy_quantity"`
	GetQuantity    *int64              `json:"get_quantity"`
	MedicineID     domain.ID           `json:"medicine_id"`
	IsActive       *bool               `json:"is_active"`
	StartDate      string              `json:"start_date"`
	EndDate        string              `json:"end_date"`
}

// rule validates req and turns it into a rule owned by companyID. The
// returned message is empty when req is acceptable.
func (h *Handler) rule(r *http.Request, companyID int64, req discountRequest) (domain.DiscountRule, string) {
	if !req.DiscountType.Valid() {
		return domain.DiscountRule{}, "discount_type must be percentage or buy_get"
	}
	if strings.TrimSpace(req.Name) == "" {
		return domain.DiscountRule{}, "name is required"
	}

	rule := domain.DiscountRule{
		CompanyID:    companyID,
		DiscountType: req.DiscountType,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		IsActive:     true,
		MedicineID:   req.MedicineID.Canonical(),
	}
	if req.IsActive != nil {
		rule.IsActive = *req.IsActive
	}

	switch req.DiscountType {
	case domain.DiscountPercentage:
		if !req.Percentage.Valid || !req.Percentage.Decimal.IsPositive() || req.Percentage.Decimal.GreaterThan(hundred) {
			return rule, "percentage must be greater than 0 and at most 100"
		}
		rule.Percentage = req.Percentage
		if req.MinOrderAmount.Valid {
			if req.MinOrderAmount.Decimal.IsNegative() {
				return rule, "min_order_amount must not be negative"
			}
			rule.MinOrderAmount = req.MinOrderAmount
		}
	case domain.DiscountBuyGet:
		if req.BuyQuantity == nil || *req.BuyQuantity <= 0 || req.GetQuantity == nil || *req.GetQuantity <= 0 {
			return rule, "buy_quantity and get_quantity must be positive"
		}
		if *req.BuyQuantity > discount.MaxBuyGetQuantity || *req.GetQuantity > discount.MaxBuyGetQuantity {
			return rule, fmt.Sprintf("buy_quantity and get_quantity must be at most %d", discount.MaxBuyGetQuantity)
		}
		rule.BuyQuantity, rule.GetQuantity = req.BuyQuantity, req.GetQuantity
	}

	var err error
	if rule.StartDate, err = store.ParseDate(strings.TrimSpace(req.StartDate), false); err != nil {
		return rule, "start_date: " + err.Error()
	}
	if rule.EndDate, err = store.ParseDate(strings.TrimSpace(req.EndDate), true); err != nil {
		return rule, "end_date: " + err.Error()
	}
	if rule.StartDate != nil && rule.EndDate != nil && rule.EndDate.Before(*rule.StartDate) {
		return rule, "end_date must not be before start_date"
	}

	if !rule.MedicineID.IsZero() {
		m, err := h.medicines.Get(r.Context(), rule.MedicineID)
		if err != nil || m.CompanyID != companyID {
			return rule, "medicine_id does not belong to this company"
		}
	}
	return rule, ""
}

func (h *Handler) companyAllowsDiscounts(w http.ResponseWriter, r *http.Request, companyID int64) bool {
	company, err := h.companies.Get(r.Context(), companyID)
	if err != nil {
		h.respondFailure(w, r, err)
		return false
	}
	if company.Type == domain.SupplierWarehouse {
		respondError(w, http.StatusForbidden, "warehouses cannot publish discounts")
		return false
	}
	return true
}

func (h *Handler) listDiscounts(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	rules, err := h.rules.ListForCompany(r.Context(), companyID, r.URL.Query().Get("active") == "true")
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, rules)
}

func (h *Handler) createDiscount(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok || !h.companyAllowsDiscounts(w, r, companyID) {
		return
	}
	var req discountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, problem := h.rule(r, companyID, req)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}
	created, err := h.rules.Create(r.Context(), rule)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.ruleCache.Invalidate(companyID)
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateDiscount(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	rule, problem := h.rule(r, companyID, req)
	if problem != "" {
		respondError(w, http.StatusBadRequest, problem)
		return
	}
	rule.ID = idParam(r, "id")
	if err := h.rules.Update(r.Context(), rule); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.ruleCache.Invalidate(companyID)
	updated, err := h.rules.Get(r.Context(), rule.ID)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) toggleDiscount(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	id := idParam(r, "id")
	current, err := h.rules.Get(r.Context(), id)
	if err == nil && current.CompanyID != companyID {
		err = store.ErrNotFound
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if err := h.rules.SetActive(r.Context(), companyID, id, !current.IsActive); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.ruleCache.Invalidate(companyID)
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "is_active": !current.IsActive})
}

func (h *Handler) deleteDiscount(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	err := h.rules.Delete(r.Context(), companyID, idParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, "discount not found")
		return
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.ruleCache.Invalidate(companyID)
	w.WriteHeader(http.StatusNoContent)
}
