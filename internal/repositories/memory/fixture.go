package memory

import (
	"github.com/SscSPs/book_lending_app/internal/core/domain"
	"github.com/shopspring/decimal"
)

// SeedFixture loads a small catalog and directory for local development.
func SeedFixture(s *Store) {
	s.PutItem(domain.Item{ItemID: "item-go", Title: "The Go Programming Language", Author: "Donovan & Kernighan",
		TotalCopies: 3, AvailableCopies: 3, UnitPrice: decimal.NewFromInt(300)})
	s.PutItem(domain.Item{ItemID: "item-ddia", Title: "Designing Data-Intensive Applications", Author: "Kleppmann",
		TotalCopies: 1, AvailableCopies: 1, UnitPrice: decimal.NewFromInt(450)})
	s.PutItem(domain.Item{ItemID: "item-sicp", Title: "Structure and Interpretation of Computer Programs", Author: "Abelson & Sussman",
		TotalCopies: 2, AvailableCopies: 2, UnitPrice: decimal.RequireFromString("275.50")})

	s.PutBorrower(domain.Borrower{BorrowerID: "staff-1", Name: "Ada Librarian", Email: "ada@library.test", Role: domain.RoleStaff})
	s.PutBorrower(domain.Borrower{BorrowerID: "member-1", Name: "Ben Reader", Email: "ben@library.test", Role: domain.RoleMember})
	s.PutBorrower(domain.Borrower{BorrowerID: "member-2", Name: "Cleo Reader", Email: "cleo@library.test", Role: domain.RoleMember})

	s.PutGroup(domain.Group{GroupID: "group-1", Name: "Reading Circle", MemberIDs: []string{"member-1", "member-2"}})
}
