package pricing

import (
	"time"

	"gorm.io/gorm"
)

// Rule kinds. Discount kinds multiply the running price down by a percentage
// of the original price; surge kinds multiply it up. low_stock swings both
// ways depending on whether it carries a discount or a multiplier.
const (
	KindFlashSale    = "flash_sale"
	KindDemandSurge  = "demand_surge"
	KindLowStock     = "low_stock"
	KindTimeBased    = "time_based"
	KindBulkDiscount = "bulk_discount"
	KindHappyHour    = "happy_hour"
)

// MaxTotalDiscountPercent is the hard safety ceiling on the reported discount,
// regardless of how many rules fire.
const MaxTotalDiscountPercent = 70.0

// RuleConditions gates a rule on live signals. A condition whose signal is
// absent at evaluation time fails, it does not pass by default.
type RuleConditions struct {
	MinViewers *int  `json:"min_viewers,omitempty"`
	MaxStock   *int  `json:"max_stock,omitempty"`
	DaysOfWeek []int `json:"days_of_week,omitempty"` // 0 = Sunday .. 6 = Saturday
	HourStart  *int  `json:"hour_start,omitempty"`
	HourEnd    *int  `json:"hour_end,omitempty"`
}

type PricingRule struct {
	gorm.Model      `json:"-"`
	RuleID          string          `gorm:"uniqueIndex" json:"rule_id"`
	Kind            string          `json:"kind"`
	ProductID       string          `gorm:"index" json:"product_id,omitempty"` // empty = any product
	Category        string          `gorm:"index" json:"category,omitempty"`   // empty = any category
	DiscountPercent *float64        `json:"discount_percent,omitempty"`
	DiscountAmount  *float64        `json:"discount_amount,omitempty"`
	Multiplier      *float64        `json:"multiplier,omitempty"`
	MinQuantity     *int            `json:"min_quantity,omitempty"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	IsActive        bool            `json:"is_active"`
	Priority        int             `json:"priority"`
	Conditions      *RuleConditions `gorm:"serializer:json" json:"conditions,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// RulePatch is a partial update for a rule. Nil fields are left untouched.
type RulePatch struct {
	Kind            *string         `json:"kind,omitempty"`
	ProductID       *string         `json:"product_id,omitempty"`
	Category        *string         `json:"category,omitempty"`
	DiscountPercent *float64        `json:"discount_percent,omitempty"`
	DiscountAmount  *float64        `json:"discount_amount,omitempty"`
	Multiplier      *float64        `json:"multiplier,omitempty"`
	MinQuantity     *int            `json:"min_quantity,omitempty"`
	StartTime       *time.Time      `json:"start_time,omitempty"`
	EndTime         *time.Time      `json:"end_time,omitempty"`
	IsActive        *bool           `json:"is_active,omitempty"`
	Priority        *int            `json:"priority,omitempty"`
	Conditions      *RuleConditions `json:"conditions,omitempty"`
}

// PriceQuote is the computed price for one product/context combination. It is
// transient: computed per request, never persisted.
type PriceQuote struct {
	ProductID       string     `json:"product_id"`
	OriginalPrice   float64    `json:"original_price"`
	CurrentPrice    float64    `json:"current_price"`
	DiscountPercent float64    `json:"discount_percent"`
	AppliedRuleIDs  []string   `json:"applied_rule_ids"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	Reason          string     `json:"reason,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
}
