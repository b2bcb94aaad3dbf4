package mapping

import (
	"testing"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/core/fines"
	"github.com/SscSPs/book_lending_app/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeFineBreakdown_AmountsAreNumbers(t *testing.T) {
	raw, err := EncodeFineBreakdown(domain.FineBreakdown{
		{Label: "Missing book fee (200%)", Amount: decimal.NewFromInt(600)},
		{Label: "Late fee (10 days × 50)", Amount: decimal.NewFromInt(500)},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `[{"label":"Missing book fee (200%)","amount":600},{"label":"Late fee (10 days × 50)","amount":500}]`, string(raw))
}

func TestEncodeFineBreakdown_NilIsEmptyArray(t *testing.T) {
	raw, err := EncodeFineBreakdown(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(raw))
}

func TestDecodeFineBreakdown(t *testing.T) {
	fb, err := DecodeFineBreakdown([]byte(`[{"label":"Small damage (10%)","amount":27.55}]`))
	require.NoError(t, err)
	require.Len(t, fb, 1)
	assert.Equal(t, "Small damage (10%)", fb[0].Label)
	assert.True(t, fb[0].Amount.Equal(decimal.RequireFromString("27.55")))

	fb, err = DecodeFineBreakdown(nil)
	require.NoError(t, err)
	assert.Empty(t, fb)

	_, err = DecodeFineBreakdown([]byte(`{"label":`))
	assert.Error(t, err)

	_, err = DecodeFineBreakdown([]byte(`[{"amount":1}]`))
	assert.Error(t, err)
}

func TestBorrowingRowConversion(t *testing.T) {
	approvedAt := time.Date(2024, 4, 10, 8, 0, 0, 0, time.UTC)
	damage := domain.DamageLarge
	group := "club"
	d := domain.Borrowing{
		BorrowingID:          "b1",
		ItemID:               "i1",
		BorrowerID:           "u1",
		Mode:                 domain.ModeGroup,
		GroupID:              &group,
		BorrowedAt:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		DueDate:              time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC),
		Status:               domain.StatusReturnApproved,
		ReturnApprovedAt:     &approvedAt,
		DamageClassification: &damage,
		Fine:                 decimal.NewFromInt(150),
		SettledFee:           decimal.Zero,
		FineBreakdown:        domain.FineBreakdown{{Label: "Large damage (50%)", Amount: decimal.NewFromInt(150)}},
		UpdatedAt:            approvedAt,
	}

	m, err := ToModelBorrowing(d)
	require.NoError(t, err)
	assert.Equal(t, "GROUP", m.Mode)
	assert.Equal(t, "RETURN_APPROVED", m.Status)
	require.NotNil(t, m.DamageClassification)
	assert.Equal(t, "LARGE", *m.DamageClassification)

	back, err := ToDomainBorrowing(m)
	require.NoError(t, err)
	assert.Equal(t, d.Status, back.Status)
	assert.Equal(t, d.Mode, back.Mode)
	assert.Equal(t, *d.DamageClassification, *back.DamageClassification)
	require.Len(t, back.FineBreakdown, 1)
	assert.True(t, back.FineBreakdown.Sum().Equal(back.Fine))
}

func TestToDomainBorrowing_RejectsUnknownEnums(t *testing.T) {
	_, err := ToDomainBorrowing(models.Borrowing{Mode: "INDIVIDUAL", Status: "OVERDUE"})
	assert.Error(t, err)

	bad := "SCUFFED"
	_, err = ToDomainBorrowing(models.Borrowing{Mode: "INDIVIDUAL", Status: "ACTIVE", DamageClassification: &bad})
	assert.Error(t, err)
}

func TestBorrowingRow_BreakdownSumsToStoredFine(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	res, err := fines.Compute(now.AddDate(0, 0, -4), now, decimal.RequireFromString("12.35"), domain.DamageSmall, domain.DefaultFinePolicy())
	require.NoError(t, err)

	damage := domain.DamageSmall
	d := domain.Borrowing{
		BorrowingID:          "b2",
		ItemID:               "i1",
		BorrowerID:           "u1",
		Mode:                 domain.ModeIndividual,
		Status:               domain.StatusReturnApproved,
		DamageClassification: &damage,
		Fine:                 res.Total,
		FineBreakdown:        res.Breakdown,
	}
	m, err := ToModelBorrowing(d)
	require.NoError(t, err)

	// what a NUMERIC(12,2) column keeps
	stored := m.Fine.Round(fines.CurrencyScale)
	assert.True(t, stored.Equal(m.Fine), "fine %s loses precision on write", m.Fine)

	m.Fine = stored
	back, err := ToDomainBorrowing(m)
	require.NoError(t, err)
	assert.True(t, back.FineBreakdown.Sum().Equal(back.Fine), "breakdown %s, fine %s", back.FineBreakdown.Sum(), back.Fine)
}
