package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/checkout"
	"pharmalink/m/internal/discount"
	"pharmalink/m/internal/store"
)

type createOrderResponse struct {
	Order     domain.OrderDetail `json:"order"`
	Discounts discount.Result    `json:"discounts"`
}

// quoteOrder returns the discounted order summary for a cart.
func (h *Handler) quoteOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	quote, err := h.checkout.Quote(r.Context(), req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, quote)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	if !h.requireRole(w, r, domain.RolePharmacy) {
		return
	}
	var req checkout.Request
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	order, res, err := h.checkout.Submit(r.Context(), userIDFromContext(r), req)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, createOrderResponse{Order: order, Discounts: res})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var (
		orders []domain.Order
		err    error
	)
	switch roleFromContext(r) {
	case domain.RolePharmacy:
		orders, err = h.orders.ListForPharmacy(r.Context(), userIDFromContext(r))
	case domain.RoleCompany:
		companyID, ok := h.requireCompany(w, r)
		if !ok {
			return
		}
		orders, err = h.orders.ListForCompany(r.Context(), companyID)
	default:
		respondError(w, http.StatusForbidden, "insufficient permissions")
		return
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

// canSee reports whether the caller is a party to order.
func canSee(r *http.Request, order domain.Order) bool {
	switch roleFromContext(r) {
	case domain.RolePharmacy:
		return order.PharmacyID == userIDFromContext(r)
	case domain.RoleCompany:
		return order.CompanyID == companyIDFromContext(r)
	case domain.RoleAdmin:
		return true
	}
	return false
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.Get(r.Context(), idParam(r, "id"))
	if err == nil && !canSee(r, order.Order) {
		err = store.ErrNotFound
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, order)
}

// Statuses each side of an order may set.
var statusesByRole = map[string][]string{
	domain.RoleCompany:  {domain.OrderApproved, domain.OrderRejected, domain.OrderDelivered},
	domain.RolePharmacy: {domain.OrderCancelled},
}

func allowedStatus(role, status string) bool {
	for _, s := range statusesByRole[role] {
		if s == status {
			return true
		}
	}
	return false
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &payload); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	status := strings.ToLower(strings.TrimSpace(payload.Status))
	role := roleFromContext(r)
	if !allowedStatus(role, status) {
		respondError(w, http.StatusForbidden, fmt.Sprintf("%s cannot set status %q", role, status))
		return
	}

	id := idParam(r, "id")
	current, err := h.orders.Get(r.Context(), id)
	if err == nil && !canSee(r, current.Order) {
		err = store.ErrNotFound
	}
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}

	// Pharmacies may only withdraw orders the supplier has not acted on.
	if role == domain.RolePharmacy && current.Status != domain.OrderPending {
		respondError(w, http.StatusConflict, "only pending orders can be cancelled")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.respondFailure(w, r, err)
		return
	}
	h.notifyCounterpart(r, order)
	respondJSON(w, http.StatusOK, order)
}

func (h *Handler) notifyCounterpart(r *http.Request, order domain.Order) {
	recipient := order.PharmacyID
	if roleFromContext(r) == domain.RolePharmacy {
		company, err := h.companies.Get(r.Context(), order.CompanyID)
		if err != nil || company.OwnerID == nil {
			return
		}
		recipient = *company.OwnerID
	}
	title := "Order " + order.Status
	body := fmt.Sprintf("Order %s is now %s", order.ID, order.Status)
	if err := h.notifications.Notify(r.Context(), recipient, title, body); err != nil {
		h.logger.Warn("status notification failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

const dateOnly = "2006-01-02"

type orderReport struct {
	Daily   store.OrderTotals  `json:"daily"`
	Monthly store.OrderTotals  `json:"monthly"`
	Range   *store.OrderTotals `json:"range,omitempty"`
}

// orderReports summarizes the orders a company received today, this month
// and, when start_date or end_date is given, in that window.
func (h *Handler) orderReports(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.requireCompany(w, r)
	if !ok {
		return
	}
	bounds := map[string]string{}
	for _, name := range []string{"start_date", "end_date"} {
		value := strings.TrimSpace(r.URL.Query().Get(name))
		if value == "" {
			continue
		}
		if _, err := time.Parse(dateOnly, value); err != nil {
			respondError(w, http.StatusBadRequest, name+" must be in YYYY-MM-DD format")
			return
		}
		bounds[name] = value
	}
	if start, end := bounds["start_date"], bounds["end_date"]; start != "" && end != "" && end < start {
		respondError(w, http.StatusBadRequest, "end_date must not be before start_date")
		return
	}

	now := h.now().UTC()
	today := now.Format(dateOnly)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).Format(dateOnly)

	var report orderReport
	var err error
	if report.Daily, err = h.orders.Totals(r.Context(), companyID, today, today); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if report.Monthly, err = h.orders.Totals(r.Context(), companyID, monthStart, today); err != nil {
		h.respondFailure(w, r, err)
		return
	}
	if len(bounds) > 0 {
		rng, err := h.orders.Totals(r.Context(), companyID, bounds["start_date"], bounds["end_date"])
		if err != nil {
			h.respondFailure(w, r, err)
			return
		}
		report.Range = &rng
	}
	respondJSON(w, http.StatusOK, report)
}
