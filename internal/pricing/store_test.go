package pricing

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&PricingRule{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewStore(db, nil)
}

func TestCreateRuleAssignsID(t *testing.T) {
	store := newTestStore(t)

	rule := &PricingRule{
		Kind:            KindFlashSale,
		ProductID:       "PROD_1",
		DiscountPercent: floatPtr(15),
		IsActive:        true,
	}
	if err := store.CreateRule(rule); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if !strings.HasPrefix(rule.RuleID, "RULE_") {
		t.Errorf("expected RULE_ prefix, got %s", rule.RuleID)
	}

	fetched, err := store.GetRule(rule.RuleID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Kind != KindFlashSale || *fetched.DiscountPercent != 15 {
		t.Errorf("fetched rule does not match: %+v", fetched)
	}
}

func TestCreateRuleValidation(t *testing.T) {
	store := newTestStore(t)

	cases := []struct {
		name string
		rule *PricingRule
	}{
		{"unknown kind", &PricingRule{Kind: "mystery", DiscountPercent: floatPtr(10)}},
		{"discount kind without value", &PricingRule{Kind: KindFlashSale}},
		{"discount kind with multiplier", &PricingRule{Kind: KindHappyHour, DiscountPercent: floatPtr(10), Multiplier: floatPtr(1.2)}},
		{"surge without multiplier", &PricingRule{Kind: KindDemandSurge}},
		{"surge with discount", &PricingRule{Kind: KindDemandSurge, Multiplier: floatPtr(1.2), DiscountPercent: floatPtr(10)}},
		{"low stock with both", &PricingRule{Kind: KindLowStock, DiscountPercent: floatPtr(10), Multiplier: floatPtr(1.2)}},
		{"low stock with neither", &PricingRule{Kind: KindLowStock}},
		{"percent above 100", &PricingRule{Kind: KindFlashSale, DiscountPercent: floatPtr(150)}},
		{"negative percent", &PricingRule{Kind: KindFlashSale, DiscountPercent: floatPtr(-5)}},
		{"negative amount", &PricingRule{Kind: KindFlashSale, DiscountAmount: floatPtr(-1)}},
		{"zero multiplier", &PricingRule{Kind: KindDemandSurge, Multiplier: floatPtr(0)}},
		{"zero min quantity", &PricingRule{Kind: KindBulkDiscount, DiscountPercent: floatPtr(10), MinQuantity: intPtr(0)}},
		{"bad day of week", &PricingRule{Kind: KindFlashSale, DiscountPercent: floatPtr(10), Conditions: &RuleConditions{DaysOfWeek: []int{7}}}},
		{"one-sided hour window", &PricingRule{Kind: KindHappyHour, DiscountPercent: floatPtr(10), Conditions: &RuleConditions{HourStart: intPtr(17)}}},
		{"inverted hour window", &PricingRule{Kind: KindHappyHour, DiscountPercent: floatPtr(10), Conditions: &RuleConditions{HourStart: intPtr(20), HourEnd: intPtr(18)}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := store.CreateRule(tc.rule)
			if !errors.Is(err, ErrInvalidRule) {
				t.Errorf("expected ErrInvalidRule, got %v", err)
			}
		})
	}

	// Nothing persisted from the rejected definitions
	rules, err := store.ListRules()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rules) != 0 {
		t.Errorf("expected empty store, got %d rules", len(rules))
	}
}

func TestCreateRuleInvertedWindowRejected(t *testing.T) {
	store := newTestStore(t)

	start := time.Now().Add(2 * time.Hour)
	end := time.Now().Add(time.Hour)
	rule := &PricingRule{
		Kind:            KindTimeBased,
		DiscountPercent: floatPtr(10),
		StartTime:       &start,
		EndTime:         &end,
	}
	if err := store.CreateRule(rule); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule for inverted window, got %v", err)
	}
}

func TestUpdateRulePartialPatch(t *testing.T) {
	store := newTestStore(t)

	rule := &PricingRule{
		Kind:            KindFlashSale,
		ProductID:       "PROD_1",
		DiscountPercent: floatPtr(15),
		IsActive:        true,
		Priority:        5,
	}
	if err := store.CreateRule(rule); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	updated, err := store.UpdateRule(rule.RuleID, &RulePatch{
		DiscountPercent: floatPtr(30),
		Priority:        intPtr(9),
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// Patched fields change, the rest stay
	if *updated.DiscountPercent != 30 || updated.Priority != 9 {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.ProductID != "PROD_1" || updated.Kind != KindFlashSale || !updated.IsActive {
		t.Errorf("unpatched fields changed: %+v", updated)
	}
}

func TestUpdateRuleRejectsInvalidResult(t *testing.T) {
	store := newTestStore(t)

	rule := &PricingRule{
		Kind:            KindFlashSale,
		ProductID:       "PROD_1",
		DiscountPercent: floatPtr(15),
		IsActive:        true,
	}
	if err := store.CreateRule(rule); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Patching a discount rule into a surge shape must fail as a whole
	if _, err := store.UpdateRule(rule.RuleID, &RulePatch{Multiplier: floatPtr(1.5)}); !errors.Is(err, ErrInvalidRule) {
		t.Fatalf("expected ErrInvalidRule, got %v", err)
	}

	// Stored rule untouched after the rejected patch
	fetched, err := store.GetRule(rule.RuleID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Multiplier != nil {
		t.Errorf("rejected patch was persisted: %+v", fetched)
	}
}

func TestDeleteRule(t *testing.T) {
	store := newTestStore(t)

	rule := &PricingRule{
		Kind:            KindFlashSale,
		DiscountPercent: floatPtr(15),
	}
	if err := store.CreateRule(rule); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.DeleteRule(rule.RuleID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.GetRule(rule.RuleID); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected record not found after delete, got %v", err)
	}
}

func TestToggleRule(t *testing.T) {
	store := newTestStore(t)

	rule := &PricingRule{
		Kind:            KindFlashSale,
		DiscountPercent: floatPtr(15),
		IsActive:        true,
	}
	if err := store.CreateRule(rule); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	toggled, err := store.ToggleRule(rule.RuleID)
	if err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if toggled.IsActive {
		t.Error("expected rule disabled after toggle")
	}

	toggled, err = store.ToggleRule(rule.RuleID)
	if err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if !toggled.IsActive {
		t.Error("expected rule enabled after second toggle")
	}
}

func TestListActiveRulesScopeAndOrder(t *testing.T) {
	store := newTestStore(t)

	mk := func(kind, productID, category string, priority int, active bool) *PricingRule {
		rule := &PricingRule{
			Kind:            kind,
			ProductID:       productID,
			Category:        category,
			DiscountPercent: floatPtr(10),
			IsActive:        active,
			Priority:        priority,
		}
		if err := store.CreateRule(rule); err != nil {
			t.Fatalf("create failed: %v", err)
		}
		return rule
	}

	global := mk(KindFlashSale, "", "", 1, true)
	forProduct := mk(KindTimeBased, "PROD_1", "", 9, true)
	forCategory := mk(KindHappyHour, "", "apparel", 5, true)
	mk(KindFlashSale, "PROD_2", "", 9, true)        // other product
	mk(KindFlashSale, "", "electronics", 9, true)   // other category
	mk(KindFlashSale, "PROD_1", "", 10, false)      // inactive

	rules, err := store.ListActiveRules("PROD_1", "apparel")
	if err != nil {
		t.Fatalf("list active failed: %v", err)
	}

	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d: %+v", len(rules), rules)
	}

	// Priority descending
	want := []string{forProduct.RuleID, forCategory.RuleID, global.RuleID}
	for i, id := range want {
		if rules[i].RuleID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, rules[i].RuleID)
		}
	}
}

func TestListRulesIncludesInactive(t *testing.T) {
	store := newTestStore(t)

	active := &PricingRule{Kind: KindFlashSale, DiscountPercent: floatPtr(10), IsActive: true}
	inactive := &PricingRule{Kind: KindFlashSale, DiscountPercent: floatPtr(10), IsActive: false}
	if err := store.CreateRule(active); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := store.CreateRule(inactive); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	rules, err := store.ListRules()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(rules) != 2 {
		t.Errorf("expected 2 rules, got %d", len(rules))
	}
}
