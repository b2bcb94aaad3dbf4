package fines_test

import (
	"testing"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/core/fines"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func line(label string, amount int64) domain.FineLine {
	return domain.FineLine{Label: label, Amount: decimal.NewFromInt(amount)}
}

func TestCompute_Scenarios(t *testing.T) {
	price := decimal.NewFromInt(300)
	policy := domain.DefaultFinePolicy()

	tests := []struct {
		name      string
		due       time.Time
		damage    domain.Damage
		want      domain.FineBreakdown
		wantTotal int64
	}{
		{
			name:   "late and undamaged still charges the missing fee",
			due:    now.AddDate(0, 0, -10),
			damage: domain.DamageNone,
			want: domain.FineBreakdown{
				line("Missing book fee (200%)", 600),
				line("Late fee (10 days × 50)", 500),
			},
			wantTotal: 1100,
		},
		{
			name:      "on time with small damage",
			due:       now.AddDate(0, 0, 3),
			damage:    domain.DamageSmall,
			want:      domain.FineBreakdown{line("Small damage (10%)", 30)},
			wantTotal: 30,
		},
		{
			name:   "lost and late",
			due:    now.AddDate(0, 0, -5),
			damage: domain.DamageLost,
			want: domain.FineBreakdown{
				line("Lost/Missing book (200%)", 600),
				line("Late fee (5 days × 50)", 250),
			},
			wantTotal: 850,
		},
		{
			name:      "lost on time",
			due:       now.Add(time.Hour),
			damage:    domain.DamageLost,
			want:      domain.FineBreakdown{line("Lost/Missing book (200%)", 600)},
			wantTotal: 600,
		},
		{
			name:   "late with large damage",
			due:    now.AddDate(0, 0, -1),
			damage: domain.DamageLarge,
			want: domain.FineBreakdown{
				line("Missing book fee (200%)", 600),
				line("Late fee (1 days × 50)", 50),
				line("Large damage (50%)", 150),
			},
			wantTotal: 800,
		},
		{
			name:      "on time and undamaged",
			due:       now,
			damage:    domain.DamageNone,
			want:      domain.FineBreakdown{},
			wantTotal: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := fines.Compute(tt.due, now, price, tt.damage, policy)
			require.NoError(t, err)
			require.Len(t, res.Breakdown, len(tt.want))
			for i := range tt.want {
				assert.Equal(t, tt.want[i].Label, res.Breakdown[i].Label)
				assert.True(t, tt.want[i].Amount.Equal(res.Breakdown[i].Amount), "line %d: want %s got %s", i, tt.want[i].Amount, res.Breakdown[i].Amount)
			}
			assert.True(t, decimal.NewFromInt(tt.wantTotal).Equal(res.Total), "total %s", res.Total)
		})
	}
}

func TestCompute_UnknownDamage(t *testing.T) {
	_, err := fines.Compute(now, now, decimal.NewFromInt(1), domain.Damage(0), domain.DefaultFinePolicy())
	assert.Error(t, err)
}

func TestCompute_PolicyDrivesLabels(t *testing.T) {
	policy := domain.FinePolicy{
		LateFeePerDay:           decimal.RequireFromString("7.5"),
		MissingOrLostMultiplier: decimal.RequireFromString("1.5"),
		SmallDamageFraction:     decimal.RequireFromString("0.25"),
		LargeDamageFraction:     decimal.RequireFromString("0.75"),
	}
	res, err := fines.Compute(now.AddDate(0, 0, -2), now, decimal.NewFromInt(100), domain.DamageSmall, policy)
	require.NoError(t, err)

	labels := []string{}
	for _, l := range res.Breakdown {
		labels = append(labels, l.Label)
	}
	assert.Equal(t, []string{"Missing book fee (150%)", "Late fee (2 days × 7.5)", "Small damage (25%)"}, labels)
	assert.True(t, decimal.NewFromInt(190).Equal(res.Total))
}

func TestCompute_RoundsLinesToCurrencyScale(t *testing.T) {
	price := decimal.RequireFromString("12.35")
	policy := domain.DefaultFinePolicy()

	res, err := fines.Compute(now.AddDate(0, 0, 1), now, price, domain.DamageSmall, policy)
	require.NoError(t, err)
	require.Len(t, res.Breakdown, 1)
	assert.Equal(t, "1.24", res.Breakdown[0].Amount.String())
	assert.Equal(t, "1.24", res.Total.String())

	res, err = fines.Compute(now.AddDate(0, 0, -3), now, decimal.RequireFromString("10.333"), domain.DamageLarge, policy)
	require.NoError(t, err)
	for _, l := range res.Breakdown {
		assert.LessOrEqual(t, -l.Amount.Exponent(), int32(fines.CurrencyScale), l.Label)
	}
	assert.True(t, res.Breakdown.Sum().Equal(res.Total))
	assert.True(t, res.Total.Equal(res.Total.Round(fines.CurrencyScale)), "total %s", res.Total)
}

func TestDaysLate(t *testing.T) {
	due := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(0), fines.DaysLate(due, due))
	assert.Equal(t, int64(0), fines.DaysLate(due, due.Add(-time.Hour)))
	assert.Equal(t, int64(1), fines.DaysLate(due, due.Add(time.Second)))
	assert.Equal(t, int64(1), fines.DaysLate(due, due.Add(24*time.Hour)))
	assert.Equal(t, int64(2), fines.DaysLate(due, due.Add(24*time.Hour+time.Nanosecond)))
}

func damageGen() *rapid.Generator[domain.Damage] {
	return rapid.SampledFrom([]domain.Damage{domain.DamageNone, domain.DamageSmall, domain.DamageLarge, domain.DamageLost})
}

func TestCompute_Properties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		offset := time.Duration(rapid.Int64Range(-90*24*int64(time.Hour), 90*24*int64(time.Hour)).Draw(t, "offset"))
		price := decimal.New(rapid.Int64Range(0, 10_000_000).Draw(t, "millis"), -3)
		damage := damageGen().Draw(t, "damage")
		due := now.Add(offset)
		policy := domain.DefaultFinePolicy()

		first, err := fines.Compute(due, now, price, damage, policy)
		if err != nil {
			t.Fatalf("compute: %v", err)
		}
		second, _ := fines.Compute(due, now, price, damage, policy)

		if !first.Total.Equal(second.Total) || len(first.Breakdown) != len(second.Breakdown) {
			t.Fatalf("not deterministic: %v vs %v", first, second)
		}
		if !first.Breakdown.Sum().Equal(first.Total) {
			t.Fatalf("breakdown sums to %s, total %s", first.Breakdown.Sum(), first.Total)
		}
		if !first.Total.Equal(first.Total.Round(fines.CurrencyScale)) {
			t.Fatalf("total %s has more than %d decimal places", first.Total, fines.CurrencyScale)
		}
		if first.Total.IsNegative() {
			t.Fatalf("negative total %s", first.Total)
		}
		if first.DaysLate == 0 && damage == domain.DamageNone && len(first.Breakdown) != 0 {
			t.Fatalf("on-time undamaged return charged %v", first.Breakdown)
		}
		if damage == domain.DamageLost && len(first.Breakdown) == 0 {
			t.Fatalf("lost copy produced no charge")
		}
	})
}
