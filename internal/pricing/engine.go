package pricing

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Engine evaluates the live rule set against a product context and produces a
// price quote. Evaluation is read-only and side-effect free: the same inputs
// at the same instant always produce the same quote.
type Engine struct {
	store *Store
}

func NewEngine(store *Store) *Engine {
	return &Engine{store: store}
}

// ruleEffect is the resolved action of one matched rule: either a discount
// expressed as a percent of the original price, or a surge multiplier.
type ruleEffect struct {
	surge      bool
	percent    float64 // discount percent of original price
	multiplier float64 // surge multiplier, expected > 1
}

// resolveEffect maps a rule onto its effect. The switch over kinds is
// exhaustive; an unknown kind (possible only if stored data predates a code
// change) resolves to nothing.
func resolveEffect(rule *PricingRule, originalPrice float64) (ruleEffect, bool) {
	discount := func() (ruleEffect, bool) {
		if rule.DiscountPercent != nil {
			return ruleEffect{percent: *rule.DiscountPercent}, true
		}
		if rule.DiscountAmount != nil && originalPrice > 0 {
			return ruleEffect{percent: *rule.DiscountAmount / originalPrice * 100}, true
		}
		return ruleEffect{}, false
	}

	switch rule.Kind {
	case KindFlashSale, KindTimeBased, KindBulkDiscount, KindHappyHour:
		return discount()
	case KindDemandSurge:
		if rule.Multiplier != nil {
			return ruleEffect{surge: true, multiplier: *rule.Multiplier}, true
		}
		return ruleEffect{}, false
	case KindLowStock:
		if rule.Multiplier != nil {
			return ruleEffect{surge: true, multiplier: *rule.Multiplier}, true
		}
		return discount()
	default:
		log.Warn().Str("rule_id", rule.RuleID).Str("kind", rule.Kind).Msg("skipping rule with unknown kind")
		return ruleEffect{}, false
	}
}

func ruleLabel(kind string) string {
	switch kind {
	case KindFlashSale:
		return "Flash Sale"
	case KindDemandSurge:
		return "High Demand"
	case KindLowStock:
		return "Low Stock"
	case KindTimeBased:
		return "Limited Time"
	case KindBulkDiscount:
		return "Bulk Discount"
	case KindHappyHour:
		return "Happy Hour"
	default:
		return kind
	}
}

// matches reports whether a rule applies to the given context at the given
// instant. Conditions gated on a signal the caller did not supply fail.
func matches(rule *PricingRule, now time.Time, quantity int, stockLevel, viewerCount *int) bool {
	if rule.StartTime != nil && now.Before(*rule.StartTime) {
		return false
	}
	if rule.EndTime != nil && now.After(*rule.EndTime) {
		return false
	}
	if rule.MinQuantity != nil && quantity < *rule.MinQuantity {
		return false
	}

	c := rule.Conditions
	if c == nil {
		return true
	}

	if c.MinViewers != nil {
		if viewerCount == nil || *viewerCount < *c.MinViewers {
			return false
		}
	}
	if c.MaxStock != nil {
		if stockLevel == nil || *stockLevel > *c.MaxStock {
			return false
		}
	}
	if len(c.DaysOfWeek) > 0 {
		day := int(now.Weekday())
		found := false
		for _, d := range c.DaysOfWeek {
			if d == day {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if c.HourStart != nil && c.HourEnd != nil {
		hour := now.Hour()
		if hour < *c.HourStart || hour >= *c.HourEnd {
			return false
		}
	}

	return true
}

// GetPrice computes the effective price for a product context. Matched rules
// apply in priority order: discounts compound multiplicatively against the
// running price, surges multiply it up. The reported discount percent is
// derived from the compounded discount factor alone, so it always agrees
// with what discount rules did to the price, and it is capped at
// MaxTotalDiscountPercent: beyond the cap the price is forced to the floor.
func (e *Engine) GetPrice(productID string, originalPrice float64, category string, quantity int, stockLevel, viewerCount *int) (*PriceQuote, error) {
	if quantity < 1 {
		quantity = 1
	}

	rules, err := e.store.ListActiveRules(productID, category)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules for evaluation: %w", err)
	}

	now := time.Now()
	quote := &PriceQuote{
		ProductID:      productID,
		OriginalPrice:  originalPrice,
		CurrentPrice:   originalPrice,
		AppliedRuleIDs: []string{},
		Timestamp:      now,
	}

	price := originalPrice
	discountFactor := 1.0
	var reasons []string

	// ListActiveRules already orders by priority descending with stable ties.
	for i := range rules {
		rule := &rules[i]
		if !matches(rule, now, quantity, stockLevel, viewerCount) {
			continue
		}

		effect, ok := resolveEffect(rule, originalPrice)
		if !ok {
			continue
		}

		if effect.surge {
			price *= effect.multiplier
			reasons = append(reasons, fmt.Sprintf("%s: %.0f%% surge", ruleLabel(rule.Kind), (effect.multiplier-1)*100))
		} else {
			price *= 1 - effect.percent/100
			discountFactor *= 1 - effect.percent/100
			reasons = append(reasons, fmt.Sprintf("%s: %.0f%% off", ruleLabel(rule.Kind), effect.percent))
		}

		quote.AppliedRuleIDs = append(quote.AppliedRuleIDs, rule.RuleID)
		if rule.EndTime != nil && (quote.ExpiresAt == nil || rule.EndTime.Before(*quote.ExpiresAt)) {
			quote.ExpiresAt = rule.EndTime
		}
	}

	discountPercent := (1 - discountFactor) * 100
	if discountPercent > MaxTotalDiscountPercent {
		discountPercent = MaxTotalDiscountPercent
		price = originalPrice * (1 - MaxTotalDiscountPercent/100)
	}

	quote.CurrentPrice = math.Round(price*100) / 100
	quote.DiscountPercent = math.Round(discountPercent*100) / 100
	quote.Reason = strings.Join(reasons, " + ")

	log.Debug().
		Str("product_id", productID).
		Float64("original_price", quote.OriginalPrice).
		Float64("current_price", quote.CurrentPrice).
		Float64("discount_percent", quote.DiscountPercent).
		Int("rules_applied", len(quote.AppliedRuleIDs)).
		Msg("price quote computed")

	return quote, nil
}
