package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrInvalidRule marks a rule definition rejected by validation. Nothing is
// persisted when validation fails.
var ErrInvalidRule = errors.New("invalid pricing rule")

// Store holds pricing rule definitions. Admin CRUD runs through it; the
// engine only reads. When a rule cache is attached, active-rule reads go
// through it and every mutation invalidates it.
type Store struct {
	db    *gorm.DB
	cache *RuleCache
}

func NewStore(db *gorm.DB, cache *RuleCache) *Store {
	return &Store{db: db, cache: cache}
}

// CreateRule validates and persists a new rule.
func (s *Store) CreateRule(rule *PricingRule) error {
	rule.RuleID = "RULE_" + uuid.New().String()
	rule.CreatedAt = time.Now()
	rule.UpdatedAt = time.Now()

	if err := validateRule(rule); err != nil {
		return err
	}

	if err := s.db.Create(rule).Error; err != nil {
		return fmt.Errorf("failed to create pricing rule: %w", err)
	}

	log.Info().
		Str("rule_id", rule.RuleID).
		Str("kind", rule.Kind).
		Int("priority", rule.Priority).
		Msg("pricing rule created")

	s.invalidateCache()
	return nil
}

// GetRule retrieves a rule by its ID.
func (s *Store) GetRule(ruleID string) (*PricingRule, error) {
	var rule PricingRule
	if err := s.db.Where("rule_id = ?", ruleID).First(&rule).Error; err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpdateRule applies a partial patch to an existing rule. The patched rule is
// validated as a whole before anything is saved.
func (s *Store) UpdateRule(ruleID string, patch *RulePatch) (*PricingRule, error) {
	rule, err := s.GetRule(ruleID)
	if err != nil {
		return nil, err
	}

	applyPatch(rule, patch)
	rule.UpdatedAt = time.Now()

	if err := validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.db.Save(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to update pricing rule: %w", err)
	}

	log.Info().Str("rule_id", ruleID).Msg("pricing rule updated")

	s.invalidateCache()
	return rule, nil
}

// DeleteRule removes a rule.
func (s *Store) DeleteRule(ruleID string) error {
	rule, err := s.GetRule(ruleID)
	if err != nil {
		return err
	}

	if err := s.db.Unscoped().Delete(rule).Error; err != nil {
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}

	log.Info().Str("rule_id", ruleID).Msg("pricing rule deleted")

	s.invalidateCache()
	return nil
}

// ToggleRule flips a rule's active flag and returns the updated rule.
func (s *Store) ToggleRule(ruleID string) (*PricingRule, error) {
	rule, err := s.GetRule(ruleID)
	if err != nil {
		return nil, err
	}

	rule.IsActive = !rule.IsActive
	rule.UpdatedAt = time.Now()

	if err := s.db.Save(rule).Error; err != nil {
		return nil, fmt.Errorf("failed to toggle pricing rule: %w", err)
	}

	log.Info().
		Str("rule_id", ruleID).
		Bool("is_active", rule.IsActive).
		Msg("pricing rule toggled")

	s.invalidateCache()
	return rule, nil
}

// ListRules returns every rule, active or not, highest priority first.
func (s *Store) ListRules() ([]PricingRule, error) {
	var rules []PricingRule
	if err := s.db.
		Order("priority DESC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	return rules, nil
}

// ListActiveRules returns active rules whose scope covers the given product
// and category, ordered by priority descending with stable ties. Empty scope
// fields on a rule match anything.
func (s *Store) ListActiveRules(productID, category string) ([]PricingRule, error) {
	if s.cache != nil {
		if rules, ok := s.cache.GetActive(context.Background(), productID, category); ok {
			return rules, nil
		}
	}

	var rules []PricingRule
	if err := s.db.
		Where("is_active = ?", true).
		Where("product_id = '' OR product_id = ?", productID).
		Where("category = '' OR category = ?", category).
		Order("priority DESC, created_at ASC").
		Find(&rules).Error; err != nil {
		return nil, fmt.Errorf("failed to list active pricing rules: %w", err)
	}

	if s.cache != nil {
		s.cache.SetActive(context.Background(), productID, category, rules)
	}
	return rules, nil
}

func (s *Store) invalidateCache() {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to invalidate rule cache")
	}
}

// validateRule rejects definitions that could never evaluate sensibly. The
// caller persists nothing when an error is returned.
func validateRule(rule *PricingRule) error {
	switch rule.Kind {
	case KindFlashSale, KindTimeBased, KindBulkDiscount, KindHappyHour:
		if rule.DiscountPercent == nil && rule.DiscountAmount == nil {
			return fmt.Errorf("%w: %s rule needs a discount percent or amount", ErrInvalidRule, rule.Kind)
		}
		if rule.Multiplier != nil {
			return fmt.Errorf("%w: %s rule cannot carry a multiplier", ErrInvalidRule, rule.Kind)
		}
	case KindDemandSurge:
		if rule.Multiplier == nil {
			return fmt.Errorf("%w: demand_surge rule needs a multiplier", ErrInvalidRule)
		}
		if rule.DiscountPercent != nil || rule.DiscountAmount != nil {
			return fmt.Errorf("%w: demand_surge rule cannot carry a discount", ErrInvalidRule)
		}
	case KindLowStock:
		// low_stock carries either a discount or a multiplier, never both.
		hasDiscount := rule.DiscountPercent != nil || rule.DiscountAmount != nil
		if hasDiscount == (rule.Multiplier != nil) {
			return fmt.Errorf("%w: low_stock rule needs exactly one of discount or multiplier", ErrInvalidRule)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRule, rule.Kind)
	}

	if rule.DiscountPercent != nil {
		if *rule.DiscountPercent < 0 || *rule.DiscountPercent > 100 {
			return fmt.Errorf("%w: discount percent must be between 0 and 100", ErrInvalidRule)
		}
	}
	if rule.DiscountAmount != nil && *rule.DiscountAmount < 0 {
		return fmt.Errorf("%w: discount amount must not be negative", ErrInvalidRule)
	}
	if rule.Multiplier != nil && *rule.Multiplier <= 0 {
		return fmt.Errorf("%w: multiplier must be positive", ErrInvalidRule)
	}
	if rule.MinQuantity != nil && *rule.MinQuantity < 1 {
		return fmt.Errorf("%w: minimum quantity must be at least 1", ErrInvalidRule)
	}
	if rule.StartTime != nil && rule.EndTime != nil && !rule.StartTime.Before(*rule.EndTime) {
		return fmt.Errorf("%w: start time must be before end time", ErrInvalidRule)
	}

	if c := rule.Conditions; c != nil {
		for _, day := range c.DaysOfWeek {
			if day < 0 || day > 6 {
				return fmt.Errorf("%w: days of week must be between 0 and 6", ErrInvalidRule)
			}
		}
		if (c.HourStart == nil) != (c.HourEnd == nil) {
			return fmt.Errorf("%w: hour window needs both start and end", ErrInvalidRule)
		}
		if c.HourStart != nil {
			if *c.HourStart < 0 || *c.HourStart > 23 || *c.HourEnd < 1 || *c.HourEnd > 24 || *c.HourStart >= *c.HourEnd {
				return fmt.Errorf("%w: hour window must satisfy 0 <= start < end <= 24", ErrInvalidRule)
			}
		}
		if c.MinViewers != nil && *c.MinViewers < 0 {
			return fmt.Errorf("%w: minimum viewers must not be negative", ErrInvalidRule)
		}
		if c.MaxStock != nil && *c.MaxStock < 0 {
			return fmt.Errorf("%w: maximum stock must not be negative", ErrInvalidRule)
		}
	}

	return nil
}

func applyPatch(rule *PricingRule, patch *RulePatch) {
	if patch.Kind != nil {
		rule.Kind = *patch.Kind
	}
	if patch.ProductID != nil {
		rule.ProductID = *patch.ProductID
	}
	if patch.Category != nil {
		rule.Category = *patch.Category
	}
	if patch.DiscountPercent != nil {
		rule.DiscountPercent = patch.DiscountPercent
	}
	if patch.DiscountAmount != nil {
		rule.DiscountAmount = patch.DiscountAmount
	}
	if patch.Multiplier != nil {
		rule.Multiplier = patch.Multiplier
	}
	if patch.MinQuantity != nil {
		rule.MinQuantity = patch.MinQuantity
	}
	if patch.StartTime != nil {
		rule.StartTime = patch.StartTime
	}
	if patch.EndTime != nil {
		rule.EndTime = patch.EndTime
	}
	if patch.IsActive != nil {
		rule.IsActive = *patch.IsActive
	}
	if patch.Priority != nil {
		rule.Priority = *patch.Priority
	}
	if patch.Conditions != nil {
		rule.Conditions = patch.Conditions
	}
}
