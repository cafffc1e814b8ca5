// Package checkout prices carts against a supplier's discount rules and
// turns the result into persisted orders.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pharmalink/m/domain"
	"pharmalink/m/internal/cart"
	"pharmalink/m/internal/discount"
)

var ErrPaymentMethodRequired = errors.New("payment_method is required")

type Companies interface {
	Get(ctx context.Context, id int64) (domain.Company, error)
}

type Catalog interface {
	ListForCompany(ctx context.Context, companyID int64, query string) ([]domain.Medicine, error)
}

// RuleProvider returns the rules a company currently publishes.
type RuleProvider interface {
	Get(ctx context.Context, companyID int64) ([]domain.DiscountRule, error)
}

type OrderWriter interface {
	Create(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.OrderDetail, error)
}

// Notifier delivers a message to a user. It is optional.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, body string) error
}

type Request struct {
	CompanyID     int64            `json:"company_id"`
	Items         []cart.Selection `json:"items"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes"`
}

type Quote struct {
	Company domain.Company  `json:"company"`
	Result  discount.Result `json:"discounts"`
}

type Service struct {
	companies Companies
	catalog   Catalog
	rules     RuleProvider
	orders    OrderWriter
	notifier  Notifier
	engine    *discount.Engine
	logger    *zap.Logger
}

// New wires a checkout service. notifier may be nil.
func New(companies Companies, catalog Catalog, rules RuleProvider, orders OrderWriter, notifier Notifier, engine *discount.Engine, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if engine == nil {
		engine = discount.NewEngine(discount.WithLogger(logger))
	}
	return &Service{
		companies: companies,
		catalog:   catalog,
		rules:     rules,
		orders:    orders,
		notifier:  notifier,
		engine:    engine,
		logger:    logger,
	}
}

// Quote prices req without persisting anything: the order summary a pharmacy
// sees before confirming.
func (s *Service) Quote(ctx context.Context, req Request) (Quote, error) {
	company, err := s.companies.Get(ctx, req.CompanyID)
	if err != nil {
		return Quote{}, fmt.Errorf("company %d: %w", req.CompanyID, err)
	}
	catalog, err := s.catalog.ListForCompany(ctx, company.ID, "")
	if err != nil {
		return Quote{}, err
	}
	items, total, err := cart.Build(req.Items, catalog)
	if err != nil {
		return Quote{}, err
	}

	// Warehouses publish no promotions.
	var rules []domain.DiscountRule
	if company.Type != domain.SupplierWarehouse {
		if rules, err = s.rules.Get(ctx, company.ID); err != nil {
			return Quote{}, fmt.Errorf("load discounts: %w", err)
		}
	}

	res := s.engine.Apply(items, rules, total)
	// Bonus units leave the warehouse too, so the order must fit them.
	if err := cart.CheckStock(res.MedicinesWithDiscounts, catalog); err != nil {
		return Quote{}, err
	}
	return Quote{Company: company, Result: res}, nil
}

// Submit quotes req and persists the order placed by pharmacyID.
func (s *Service) Submit(ctx context.Context, pharmacyID int64, req Request) (domain.OrderDetail, discount.Result, error) {
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.PaymentMethod == "" {
		return domain.OrderDetail{}, discount.Result{}, ErrPaymentMethodRequired
	}
	quote, err := s.Quote(ctx, req)
	if err != nil {
		return domain.OrderDetail{}, discount.Result{}, err
	}
	res := quote.Result

	order := domain.Order{
		PharmacyID:     pharmacyID,
		CompanyID:      quote.Company.ID,
		Status:         domain.OrderPending,
		PaymentMethod:  req.PaymentMethod,
		SupplierType:   quote.Company.Type,
		OriginalAmount: res.OriginalAmount,
		TotalDiscount:  res.TotalDiscount,
		FinalAmount:    res.FinalAmount,
		Notes:          strings.TrimSpace(req.Notes),
	}
	detail, err := s.orders.Create(ctx, order, OrderItems(res))
	if err != nil {
		return domain.OrderDetail{}, res, err
	}

	s.logger.Info("order created",
		zap.String("order_id", detail.ID.String()),
		zap.Int64("pharmacy_id", pharmacyID),
		zap.Int64("company_id", quote.Company.ID),
		zap.String("final_amount", res.FinalAmount.String()),
		zap.Int64("free_units", res.FreeUnits()))

	s.notifyCompany(ctx, quote.Company, detail)
	return detail, res, nil
}

func (s *Service) notifyCompany(ctx context.Context, company domain.Company, order domain.OrderDetail) {
	if s.notifier == nil || company.OwnerID == nil {
		return
	}
	body := fmt.Sprintf("Order %s with %d items, total %s", order.ID, len(order.Items), order.FinalAmount.StringFixed(2))
	if err := s.notifier.Notify(ctx, *company.OwnerID, "New order received", body); err != nil {
		s.logger.Warn("order notification failed", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

// OrderItems converts the engine's annotated lines into order rows. Bonus
// units are part of the delivered quantity but not of the price.
func OrderItems(res discount.Result) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(res.MedicinesWithDiscounts))
	for _, line := range res.MedicinesWithDiscounts {
		items = append(items, domain.OrderItem{
			MedicineID:       line.ID,
			MedicineName:     line.Name,
			Quantity:         line.TotalQuantity,
			OriginalQuantity: line.OriginalQuantity,
			FreeQuantity:     line.FreeQuantity,
			UnitPrice:        line.UnitPrice,
			TotalPrice:       line.DiscountedTotal,
			DiscountAmount:   line.DiscountAmount,
		})
	}
	return items
}
