package mapping

import (
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/SscSPs/book_lending_app/internal/models"
)

// ToDomainItem converts a models.Item to a domain.Item
func ToDomainItem(m models.Item) domain.Item {
	return domain.Item{
		ItemID:          m.ItemID,
		Title:           m.Title,
		Author:          m.Author,
		TotalCopies:     m.TotalCopies,
		AvailableCopies: m.AvailableCopies,
		UnitPrice:       m.UnitPrice,
	}
}

// ToDomainBorrower converts a models.Borrower to a domain.Borrower
func ToDomainBorrower(m models.Borrower) (domain.Borrower, error) {
	role, err := domain.ParseBorrowerRole(m.Role)
	if err != nil {
		return domain.Borrower{}, err
	}
	return domain.Borrower{
		BorrowerID: m.BorrowerID,
		Name:       m.Name,
		Email:      m.Email,
		Role:       role,
	}, nil
}

// ToDomainGroup converts a models.Group and its member ids to a domain.Group
func ToDomainGroup(m models.Group, memberIDs []string) domain.Group {
	if memberIDs == nil {
		memberIDs = []string{}
	}
	return domain.Group{GroupID: m.GroupID, Name: m.Name, MemberIDs: memberIDs}
}

// ToDomainFinePolicy converts the stored policy row.
func ToDomainFinePolicy(m models.FinePolicy) domain.FinePolicy {
	return domain.FinePolicy{
		LateFeePerDay:           m.LateFeePerDay,
		MissingOrLostMultiplier: m.MissingOrLostMultiplier,
		SmallDamageFraction:     m.SmallDamageFraction,
		LargeDamageFraction:     m.LargeDamageFraction,
	}
}
