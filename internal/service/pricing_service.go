package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"rentacar/internal/db"
	"rentacar/internal/entities"
	apperrors "rentacar/internal/errors"
)

// PricingRuleSource is the read-only lookup the resolver needs.
type PricingRuleSource interface {
	ActiveRulesForDate(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error)
}

// PricingService resolves the applicable pricing rule for a car type
// and rental window and computes the tiered charge. Pure computation
// over fetched reference data; no side effects.
type PricingService struct {
	rules PricingRuleSource
}

func NewPricingService(rules PricingRuleSource) *PricingService {
	return &PricingService{rules: rules}
}

// RentalDays returns the number of chargeable days in [start, end),
// rounding partial days up, minimum 1.
func RentalDays(start, end time.Time) int {
	d := end.Sub(start)
	days := int(d.Hours() / 24)
	if d.Hours() > float64(days*24) {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// Quote resolves the price for carTypeID over [start, end). Pricing is
// anchored to the start date: the single rule whose validity window
// contains start applies to the whole rental. When overlapping active
// rules exist the one with the latest validFrom wins.
func (s *PricingService) Quote(ctx context.Context, carTypeID int, start, end time.Time) (*entities.Quote, error) {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, apperrors.ErrInvalidDateRange
	}

	rules, err := s.rules.ActiveRulesForDate(ctx, carTypeID, start)
	if err != nil {
		return nil, fmt.Errorf("error fetching pricing rules: %w", err)
	}
	if len(rules) == 0 {
		return nil, apperrors.ErrPricingUnavailable
	}
	rule := rules[0]

	days := RentalDays(start, end)
	subtotal := tieredSubtotal(rule, days)

	multiplier := rule.SeasonalMultiplier
	if multiplier <= 0 {
		multiplier = 1.0
	}
	subtotal = round2(subtotal * multiplier)

	return &entities.Quote{
		CarTypeID:  carTypeID,
		DailyRate:  rule.BaseDailyRate,
		RentalDays: days,
		Subtotal:   subtotal,
	}, nil
}

// tieredSubtotal combines monthly, weekly and daily rates. Monthly and
// weekly tiers apply only when the corresponding rate is configured.
func tieredSubtotal(rule db.PricingRule, days int) float64 {
	if days >= 30 && rule.MonthlyRate != nil {
		months := days / 30
		rem := days % 30
		weeks := rem / 7
		remDays := rem % 7
		subtotal := *rule.MonthlyRate * float64(months)
		if rule.WeeklyRate != nil {
			subtotal += *rule.WeeklyRate * float64(weeks)
		} else {
			subtotal += rule.BaseDailyRate * float64(weeks*7)
		}
		return subtotal + rule.BaseDailyRate*float64(remDays)
	}
	if days >= 7 && rule.WeeklyRate != nil {
		weeks := days / 7
		remDays := days % 7
		return *rule.WeeklyRate*float64(weeks) + rule.BaseDailyRate*float64(remDays)
	}
	return rule.BaseDailyRate * float64(days)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
