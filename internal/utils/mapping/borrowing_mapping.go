package mapping

import (
	"fmt"
	"time"

	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/models"
	jsoniter "github.com/json-iterator/go"
)

// breakdownJSON honours json.Marshaler, so amounts stay JSON numbers.
var breakdownJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// EncodeFineBreakdown renders a breakdown as the JSONB array stored with the borrowing.
func EncodeFineBreakdown(fb domain.FineBreakdown) ([]byte, error) {
	if fb == nil {
		fb = domain.FineBreakdown{}
	}
	raw, err := breakdownJSON.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("encoding fine breakdown: %w", err)
	}
	return raw, nil
}

// DecodeFineBreakdown parses a stored breakdown. NULL and empty input decode to an empty breakdown.
func DecodeFineBreakdown(raw []byte) (domain.FineBreakdown, error) {
	fb := domain.FineBreakdown{}
	if len(raw) == 0 {
		return fb, nil
	}
	if !breakdownJSON.Valid(raw) {
		return nil, fmt.Errorf("stored fine breakdown is not valid JSON")
	}
	if err := breakdownJSON.Unmarshal(raw, &fb); err != nil {
		return nil, fmt.Errorf("decoding fine breakdown: %w", err)
	}
	for i, l := range fb {
		if l.Label == "" {
			return nil, fmt.Errorf("fine breakdown line %d has no label", i)
		}
	}
	return fb, nil
}

// ToModelBorrowing converts a domain.Borrowing to its row shape.
func ToModelBorrowing(d domain.Borrowing) (models.Borrowing, error) {
	breakdown, err := EncodeFineBreakdown(d.FineBreakdown)
	if err != nil {
		return models.Borrowing{}, err
	}
	m := models.Borrowing{
		BorrowingID:       d.BorrowingID,
		ItemID:            d.ItemID,
		BorrowerID:        d.BorrowerID,
		Mode:              d.Mode.String(),
		GroupID:           d.GroupID,
		BorrowedAt:        d.BorrowedAt,
		DueDate:           d.DueDate,
		Status:            d.Status.String(),
		ReturnRequestedAt: d.ReturnRequestedAt,
		ReturnApprovedAt:  d.ReturnApprovedAt,
		ReturnedAt:        d.ReturnedAt,
		Fine:              d.Fine,
		SettledFee:        d.SettledFee,
		FineBreakdown:     breakdown,
		UpdatedAt:         d.UpdatedAt,
	}
	if d.DamageClassification != nil {
		s := d.DamageClassification.String()
		m.DamageClassification = &s
	}
	return m, nil
}

// ToDomainBorrowing converts a stored row back to a domain.Borrowing.
func ToDomainBorrowing(m models.Borrowing) (domain.Borrowing, error) {
	mode, err := domain.ParseBorrowingMode(m.Mode)
	if err != nil {
		return domain.Borrowing{}, err
	}
	status, err := domain.ParseBorrowingStatus(m.Status)
	if err != nil {
		return domain.Borrowing{}, err
	}
	breakdown, err := DecodeFineBreakdown(m.FineBreakdown)
	if err != nil {
		return domain.Borrowing{}, err
	}
	d := domain.Borrowing{
		BorrowingID:       m.BorrowingID,
		ItemID:            m.ItemID,
		BorrowerID:        m.BorrowerID,
		Mode:              mode,
		GroupID:           m.GroupID,
		BorrowedAt:        m.BorrowedAt.UTC(),
		DueDate:           m.DueDate.UTC(),
		Status:            status,
		ReturnRequestedAt: utcPtr(m.ReturnRequestedAt),
		ReturnApprovedAt:  utcPtr(m.ReturnApprovedAt),
		ReturnedAt:        utcPtr(m.ReturnedAt),
		Fine:              m.Fine,
		SettledFee:        m.SettledFee,
		FineBreakdown:     breakdown,
		UpdatedAt:         m.UpdatedAt.UTC(),
	}
	if m.DamageClassification != nil {
		dmg, err := domain.ParseDamage(*m.DamageClassification)
		if err != nil {
			return domain.Borrowing{}, err
		}
		d.DamageClassification = &dmg
	}
	return d, nil
}

// ToDomainBorrowings converts a slice of rows.
func ToDomainBorrowings(ms []models.Borrowing) ([]domain.Borrowing, error) {
	out := make([]domain.Borrowing, 0, len(ms))
	for _, m := range ms {
		d, err := ToDomainBorrowing(m)
		if err != nil {
			return nil, fmt.Errorf("borrowing %s: %w", m.BorrowingID, err)
		}
		out = append(out, d)
	}
	return out, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
