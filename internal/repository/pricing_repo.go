package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"rentacar/internal/db"
)

type PricingRuleRepository struct {
	DB *sql.DB
}

func NewPricingRuleRepository(database *sql.DB) *PricingRuleRepository {
	return &PricingRuleRepository{DB: database}
}

// ActiveRulesForDate returns the active pricing rules for the car type
// whose validity window contains the given date, most recent
// valid_from first. Well-formed data yields at most one row; ordering
// makes the overlap tie-break deterministic. The parameter is cast to
// DATE so a start carrying a time-of-day still matches on the last
// valid day of a rule.
func (r *PricingRuleRepository) ActiveRulesForDate(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
	query := `
		SELECT id, car_type_id, base_daily_rate, weekly_rate, monthly_rate, weekend_rate,
		       COALESCE(seasonal_multiplier, 1.0), valid_from, valid_to, active
		FROM pricing_rules
		WHERE car_type_id = $1
		  AND active = TRUE
		  AND valid_from <= $2::date
		  AND valid_to >= $2::date
		ORDER BY valid_from DESC`
	rows, err := r.DB.QueryContext(ctx, query, carTypeID, date)
	if err != nil {
		return nil, fmt.Errorf("error querying pricing rules for car type %d: %w", carTypeID, err)
	}
	defer rows.Close()

	var rules []db.PricingRule
	for rows.Next() {
		var rule db.PricingRule
		var weekly, monthly, weekend sql.NullFloat64
		if err := rows.Scan(&rule.ID, &rule.CarTypeID, &rule.BaseDailyRate, &weekly, &monthly, &weekend,
			&rule.SeasonalMultiplier, &rule.ValidFrom, &rule.ValidTo, &rule.Active); err != nil {
			return nil, fmt.Errorf("error scanning pricing rule: %w", err)
		}
		if weekly.Valid {
			v := weekly.Float64
			rule.WeeklyRate = &v
		}
		if monthly.Valid {
			v := monthly.Float64
			rule.MonthlyRate = &v
		}
		if weekend.Valid {
			v := weekend.Float64
			rule.WeekendRate = &v
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *PricingRuleRepository) Insert(ctx context.Context, rule *db.PricingRule) error {
	query := `
		INSERT INTO pricing_rules
		(car_type_id, base_daily_rate, weekly_rate, monthly_rate, weekend_rate, seasonal_multiplier, valid_from, valid_to, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`
	return r.DB.QueryRowContext(ctx, query,
		rule.CarTypeID, rule.BaseDailyRate, rule.WeeklyRate, rule.MonthlyRate, rule.WeekendRate,
		rule.SeasonalMultiplier, rule.ValidFrom, rule.ValidTo, rule.Active,
	).Scan(&rule.ID)
}

// Deactivate flips a rule off without deleting it; historical quotes
// remain reproducible.
func (r *PricingRuleRepository) Deactivate(ctx context.Context, id int) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE pricing_rules SET active = FALSE WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *PricingRuleRepository) ListByCarType(ctx context.Context, carTypeID int) ([]db.PricingRule, error) {
	query := `
		SELECT id, car_type_id, base_daily_rate, weekly_rate, monthly_rate, weekend_rate,
		       COALESCE(seasonal_multiplier, 1.0), valid_from, valid_to, active
		FROM pricing_rules
		WHERE car_type_id = $1
		ORDER BY valid_from DESC`
	rows, err := r.DB.QueryContext(ctx, query, carTypeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []db.PricingRule
	for rows.Next() {
		var rule db.PricingRule
		var weekly, monthly, weekend sql.NullFloat64
		if err := rows.Scan(&rule.ID, &rule.CarTypeID, &rule.BaseDailyRate, &weekly, &monthly, &weekend,
			&rule.SeasonalMultiplier, &rule.ValidFrom, &rule.ValidTo, &rule.Active); err != nil {
			return nil, err
		}
		if weekly.Valid {
			v := weekly.Float64
			rule.WeeklyRate = &v
		}
		if monthly.Valid {
			v := monthly.Float64
			rule.MonthlyRate = &v
		}
		if weekend.Valid {
			v := weekend.Float64
			rule.WeekendRate = &v
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}
