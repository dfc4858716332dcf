package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"rentacar/internal/db"
	apperrors "rentacar/internal/errors"
)

type rulesMock struct {
	rulesFn func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error)
}

func (m *rulesMock) ActiveRulesForDate(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
	return m.rulesFn(ctx, carTypeID, date)
}

func fptr(v float64) *float64 { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestRentalDays(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		hours int
		want  int
	}{
		{name: "exact days", start: "2026-06-01", end: "2026-06-05", want: 4},
		{name: "single day", start: "2026-06-01", end: "2026-06-02", want: 1},
		{name: "partial day rounds up", start: "2026-06-01", end: "2026-06-05", hours: 6, want: 5},
		{name: "under a day charges one", start: "2026-06-01", end: "2026-06-01", hours: 3, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			end := day(tt.end).Add(time.Duration(tt.hours) * time.Hour)
			require.Equal(t, tt.want, RentalDays(day(tt.start), end))
		})
	}
}

func TestQuote_TieredRates(t *testing.T) {
	tests := []struct {
		name string
		rule db.PricingRule
		days int
		want float64
	}{
		{
			name: "daily only",
			rule: db.PricingRule{BaseDailyRate: 200},
			days: 4,
			want: 800,
		},
		{
			name: "weekly tier plus daily remainder",
			rule: db.PricingRule{BaseDailyRate: 200, WeeklyRate: fptr(1300)},
			days: 10,
			want: 1900, // 1 week + 3 days
		},
		{
			name: "weekly rate ignored under seven days",
			rule: db.PricingRule{BaseDailyRate: 200, WeeklyRate: fptr(1300)},
			days: 6,
			want: 1200,
		},
		{
			name: "monthly tier with weekly and daily remainder",
			rule: db.PricingRule{BaseDailyRate: 150, WeeklyRate: fptr(900), MonthlyRate: fptr(3000)},
			days: 40, // 1 month + 1 week + 3 days
			want: 3000 + 900 + 450,
		},
		{
			name: "monthly remainder falls back to daily without weekly rate",
			rule: db.PricingRule{BaseDailyRate: 150, MonthlyRate: fptr(3000)},
			days: 40,
			want: 3000 + 150*10,
		},
		{
			name: "seasonal multiplier applies to the whole subtotal",
			rule: db.PricingRule{BaseDailyRate: 100, SeasonalMultiplier: 1.25},
			days: 4,
			want: 500,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewPricingService(&rulesMock{
				rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
					return []db.PricingRule{tt.rule}, nil
				},
			})
			start := day("2026-06-01")
			q, err := s.Quote(context.Background(), 1, start, start.AddDate(0, 0, tt.days))
			require.NoError(t, err)
			require.Equal(t, tt.days, q.RentalDays)
			require.Equal(t, tt.want, q.Subtotal)
		})
	}
}

func TestQuote_FinalValidDayWithTimeOfDay(t *testing.T) {
	// Rule validity is a calendar-date window. A start carrying a
	// time-of-day on the rule's last valid day still resolves, matching
	// the DATE cast in the store query.
	rule := db.PricingRule{
		BaseDailyRate: 200,
		ValidFrom:     day("2026-06-01"),
		ValidTo:       day("2026-06-30"),
	}
	s := NewPricingService(&rulesMock{
		rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
			d := date.Truncate(24 * time.Hour)
			if d.Before(rule.ValidFrom) || d.After(rule.ValidTo) {
				return nil, nil
			}
			return []db.PricingRule{rule}, nil
		},
	})
	start := day("2026-06-30").Add(15 * time.Hour)
	q, err := s.Quote(context.Background(), 1, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Equal(t, float64(400), q.Subtotal)
}

func TestQuote_Deterministic(t *testing.T) {
	s := NewPricingService(&rulesMock{
		rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
			return []db.PricingRule{{BaseDailyRate: 200, WeeklyRate: fptr(1300)}}, nil
		},
	})
	first, err := s.Quote(context.Background(), 1, day("2026-06-01"), day("2026-06-11"))
	require.NoError(t, err)
	second, err := s.Quote(context.Background(), 1, day("2026-06-01"), day("2026-06-11"))
	require.NoError(t, err)
	require.Equal(t, first.Subtotal, second.Subtotal)
}

func TestQuote_LatestValidFromWins(t *testing.T) {
	// The store returns rules ordered by valid_from descending; the
	// resolver takes the first.
	s := NewPricingService(&rulesMock{
		rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
			return []db.PricingRule{
				{BaseDailyRate: 250, ValidFrom: day("2026-06-01")},
				{BaseDailyRate: 200, ValidFrom: day("2026-01-01")},
			}, nil
		},
	})
	q, err := s.Quote(context.Background(), 1, day("2026-06-10"), day("2026-06-12"))
	require.NoError(t, err)
	require.Equal(t, float64(500), q.Subtotal)
}

func TestQuote_Errors(t *testing.T) {
	t.Run("no active rule", func(t *testing.T) {
		s := NewPricingService(&rulesMock{
			rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
				return nil, nil
			},
		})
		_, err := s.Quote(context.Background(), 1, day("2026-06-01"), day("2026-06-05"))
		require.ErrorIs(t, err, apperrors.ErrPricingUnavailable)
	})

	t.Run("invalid date range", func(t *testing.T) {
		s := NewPricingService(&rulesMock{
			rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
				t.Fatal("rules must not be fetched for an invalid range")
				return nil, nil
			},
		})
		_, err := s.Quote(context.Background(), 1, day("2026-06-05"), day("2026-06-01"))
		require.ErrorIs(t, err, apperrors.ErrInvalidDateRange)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		boom := errors.New("db down")
		s := NewPricingService(&rulesMock{
			rulesFn: func(ctx context.Context, carTypeID int, date time.Time) ([]db.PricingRule, error) {
				return nil, boom
			},
		})
		_, err := s.Quote(context.Background(), 1, day("2026-06-01"), day("2026-06-05"))
		require.ErrorIs(t, err, boom)
	})
}
