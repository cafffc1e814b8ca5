package discount

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmalink/m/domain"
)

var hundred = decimal.NewFromInt(100)

// MaxBuyGetQuantity bounds the buy and get counts of a buy_get rule.
const MaxBuyGetQuantity = 1_000_000

// Engine applies discount rules to carts. It keeps no state between calls
// and is safe for concurrent use.
type Engine struct {
	logger *zap.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used to report skipped rules.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the evaluation instant used for rule validity.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine returns an engine that logs nowhere and reads the wall clock
// unless opts say otherwise.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply runs ApplyDiscounts at the engine's current time and logs every rule
// it had to leave out.
func (e *Engine) Apply(cart []LineItem, rules []domain.DiscountRule, orderTotal decimal.Decimal) Result {
	res := ApplyDiscounts(cart, rules, orderTotal, e.now())
	for _, s := range res.Skipped {
		e.logger.Debug("discount rule skipped",
			zap.String("rule_id", s.RuleID.String()),
			zap.String("reason", s.Reason))
	}
	e.logger.Debug("discounts applied",
		zap.Int("items", len(cart)),
		zap.Int("rules", len(rules)),
		zap.Int("applied", len(res.AppliedDiscounts)),
		zap.String("total_discount", res.TotalDiscount.String()),
		zap.String("final_amount", res.FinalAmount.String()))
	return res
}

// ApplyDiscounts computes the discounted order for cart under rules at
// instant now. orderTotal is the pre-discount sum supplied by the caller.
//
// Rules are evaluated in four passes: item percentage, item buy-get, order
// percentage, order buy-get. Only percentage rules contribute to
// TotalDiscount; buy-get rules grant bonus units instead.
func ApplyDiscounts(cart []LineItem, rules []domain.DiscountRule, orderTotal decimal.Decimal, now time.Time) Result {
	items := make([]LineItem, len(cart))
	for i, item := range cart {
		items[i] = prepare(item)
	}

	res := Result{
		AppliedDiscounts:       []AppliedDiscount{},
		TotalDiscount:          decimal.Zero,
		FinalAmount:            orderTotal,
		OriginalAmount:         orderTotal,
		MedicinesWithDiscounts: items,
	}
	if len(rules) == 0 {
		return res
	}

	var itemPct, itemBuyGet, orderPct, orderBuyGet []domain.DiscountRule
	for _, rule := range rules {
		if reason, ok := validity(rule, now); !ok {
			res.skip(rule, reason)
			continue
		}
		if reason, ok := applicable(rule); !ok {
			res.skip(rule, reason)
			continue
		}
		switch {
		case rule.DiscountType == domain.DiscountPercentage && rule.ItemScoped():
			itemPct = append(itemPct, rule)
		case rule.DiscountType == domain.DiscountBuyGet && rule.ItemScoped():
			itemBuyGet = append(itemBuyGet, rule)
		case rule.DiscountType == domain.DiscountPercentage:
			orderPct = append(orderPct, rule)
		default:
			orderBuyGet = append(orderBuyGet, rule)
		}
	}

	for _, rule := range itemPct {
		res.applyItemPercentage(rule)
	}
	for _, rule := range itemBuyGet {
		res.applyItemBuyGet(rule)
	}
	for _, rule := range orderPct {
		res.applyOrderPercentage(rule, orderTotal)
	}
	for _, rule := range orderBuyGet {
		res.applyGeneralBuyGet(rule)
	}

	res.FinalAmount = orderTotal.Sub(res.TotalDiscount)
	if res.FinalAmount.IsNegative() {
		res.FinalAmount = decimal.Zero
	}
	return res
}

func prepare(item LineItem) LineItem {
	item.ID = item.ID.Canonical()
	item.DiscountAmount = decimal.Zero
	item.DiscountedTotal = item.Total
	item.Discounted = false
	item.FreeQuantity = 0
	item.OriginalQuantity = item.Quantity
	item.TotalQuantity = item.Quantity
	return item
}

// applicable checks that a rule carries the fields its type needs.
func applicable(rule domain.DiscountRule) (string, bool) {
	switch rule.DiscountType {
	case domain.DiscountPercentage:
		if !rule.Percentage.Valid {
			return "percentage missing", false
		}
		if !rule.Percentage.Decimal.IsPositive() {
			return "percentage must be positive", false
		}
		if rule.Percentage.Decimal.GreaterThan(hundred) {
			return "percentage above 100", false
		}
	case domain.DiscountBuyGet:
		if rule.BuyQuantity == nil || *rule.BuyQuantity <= 0 {
			return "buy quantity missing", false
		}
		if rule.GetQuantity == nil || *rule.GetQuantity <= 0 {
			return "get quantity missing", false
		}
		if *rule.BuyQuantity > MaxBuyGetQuantity || *rule.GetQuantity > MaxBuyGetQuantity {
			return fmt.Sprintf("buy/get quantity above %d", MaxBuyGetQuantity), false
		}
	default:
		return fmt.Sprintf("unknown discount type %q", rule.DiscountType), false
	}
	return "", true
}

func (r *Result) skip(rule domain.DiscountRule, reason string) {
	r.Skipped = append(r.Skipped, SkippedRule{RuleID: rule.ID, Reason: reason})
}

func (r *Result) applyItemPercentage(rule domain.DiscountRule) {
	pct := rule.Percentage.Decimal
	for i := range r.MedicinesWithDiscounts {
		item := &r.MedicinesWithDiscounts[i]
		if !item.ID.Same(rule.MedicineID) {
			continue
		}
		amount := item.Total.Mul(pct).Div(hundred)
		item.DiscountAmount = item.DiscountAmount.Add(amount)
		item.DiscountedTotal = decimal.Max(decimal.Zero, item.Total.Sub(item.DiscountAmount))
		item.Discounted = true

		r.AppliedDiscounts = append(r.AppliedDiscounts, AppliedDiscount{
			Kind:       KindMedicine,
			Rule:       rule,
			Medicine:   item.Name,
			MedicineID: item.ID,
			Amount:     amount,
		})
		r.TotalDiscount = r.TotalDiscount.Add(amount)
	}
}

func (r *Result) applyItemBuyGet(rule domain.DiscountRule) {
	buy, get := *rule.BuyQuantity, *rule.GetQuantity
	for i := range r.MedicinesWithDiscounts {
		item := &r.MedicinesWithDiscounts[i]
		if !item.ID.Same(rule.MedicineID) {
			continue
		}
		free, ok, err := bonus(item.Quantity, buy, get)
		if err != nil {
			r.skip(rule, err.Error())
			continue
		}
		if !ok {
			continue
		}
		grant(item, free)
		r.AppliedDiscounts = append(r.AppliedDiscounts, AppliedDiscount{
			Kind:         KindBuyGet,
			Rule:         rule,
			Medicine:     item.Name,
			MedicineID:   item.ID,
			Amount:       decimal.Zero,
			Description:  buyGetDescription(buy, get),
			FreeQuantity: free,
		})
	}
}

func (r *Result) applyOrderPercentage(rule domain.DiscountRule, orderTotal decimal.Decimal) {
	if rule.MinOrderAmount.Valid && orderTotal.LessThan(rule.MinOrderAmount.Decimal) {
		return
	}
	amount := orderTotal.Mul(rule.Percentage.Decimal).Div(hundred)
	r.AppliedDiscounts = append(r.AppliedDiscounts, AppliedDiscount{
		Kind:   KindOrder,
		Rule:   rule,
		Amount: amount,
	})
	r.TotalDiscount = r.TotalDiscount.Add(amount)
}

// applyGeneralBuyGet applies an order-wide buy-get rule to every line and
// records a single summary entry for it.
func (r *Result) applyGeneralBuyGet(rule domain.DiscountRule) {
	buy, get := *rule.BuyQuantity, *rule.GetQuantity
	var touched []domain.ID
	overflowed := false
	for i := range r.MedicinesWithDiscounts {
		item := &r.MedicinesWithDiscounts[i]
		free, ok, err := bonus(item.Quantity, buy, get)
		if err != nil {
			if !overflowed {
				r.skip(rule, err.Error())
				overflowed = true
			}
			continue
		}
		if !ok {
			continue
		}
		touched = append(touched, item.ID)
		grant(item, free)
	}
	if len(touched) == 0 {
		return
	}
	r.AppliedDiscounts = append(r.AppliedDiscounts, AppliedDiscount{
		Kind:        KindBuyGet,
		Rule:        rule,
		Amount:      decimal.Zero,
		Description: buyGetDescription(buy, get) + " (all medicines)",
		IsGeneral:   true,
		Items:       touched,
	})
}

// bonus returns the free units quantity earns under buy X get Y. ok is false
// below the threshold; err is set when the result does not fit in an int64.
func bonus(quantity, buy, get int64) (free int64, ok bool, err error) {
	if quantity < buy {
		return 0, false, nil
	}
	sets := quantity / buy
	if get > math.MaxInt64/sets {
		return 0, false, fmt.Errorf("bonus for quantity %d overflows", quantity)
	}
	free = sets * get
	if free > math.MaxInt64-quantity {
		return 0, false, fmt.Errorf("bonus for quantity %d overflows", quantity)
	}
	return free, true, nil
}

// grant sets the item's bonus, keeping the richer one when a previous rule
// already granted units.
func grant(item *LineItem, free int64) {
	if free <= item.FreeQuantity {
		return
	}
	item.FreeQuantity = free
	item.OriginalQuantity = item.Quantity
	item.TotalQuantity = item.Quantity + free
}

func buyGetDescription(buy, get int64) string {
	return fmt.Sprintf("buy %d get %d free", buy, get)
}
