package store

import (
	"context"
	"sync"
	"time"

	"pharmalink/m/domain"
)

// RuleSource lists the rules a company publishes.
type RuleSource interface {
	ListForCompany(ctx context.Context, companyID int64, activeOnly bool) ([]domain.DiscountRule, error)
}

type cachedRules struct {
	rules   []domain.DiscountRule
	fetched time.Time
}

// RuleCache keeps the latest active rules per company. Entries older than
// the TTL are refreshed on Get; writers call Invalidate after changing rules.
type RuleCache struct {
	src RuleSource
	ttl time.Duration
	now func() time.Time

	mu      sync.RWMutex
	entries map[int64]cachedRules
}

func NewRuleCache(src RuleSource, ttl time.Duration) *RuleCache {
	return &RuleCache{
		src:     src,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]cachedRules),
	}
}

// Get returns the cached rules for companyID, fetching them when absent or stale.
func (c *RuleCache) Get(ctx context.Context, companyID int64) ([]domain.DiscountRule, error) {
	c.mu.RLock()
	entry, ok := c.entries[companyID]
	c.mu.RUnlock()
	if ok && (c.ttl <= 0 || c.now().Sub(entry.fetched) < c.ttl) {
		return clone(entry.rules), nil
	}
	return c.Refresh(ctx, companyID)
}

// Refresh reloads companyID's rules from the source.
func (c *RuleCache) Refresh(ctx context.Context, companyID int64) ([]domain.DiscountRule, error) {
	rules, err := c.src.ListForCompany(ctx, companyID, true)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[companyID] = cachedRules{rules: rules, fetched: c.now()}
	c.mu.Unlock()
	return clone(rules), nil
}

func (c *RuleCache) Invalidate(companyID int64) {
	c.mu.Lock()
	delete(c.entries, companyID)
	c.mu.Unlock()
}

func clone(rules []domain.DiscountRule) []domain.DiscountRule {
	out := make([]domain.DiscountRule, len(rules))
	copy(out, rules)
	return out
}
