package stock

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Book is a catalog title together with its two stock counters.
// TotalQuantity and AvailableCopies are only ever changed through AdjustAvailable and AdjustTotal.
type Book struct {
	ID              uuid.UUID
	Title           string
	Author          string
	ISBN            string
	TotalQuantity   int
	AvailableCopies int
}

// NewBook builds a Book as delivered by the catalog: every copy is on the shelf.
func NewBook(id uuid.UUID, title, author, isbn string, totalQuantity int) (Book, error) {
	if id == uuid.Nil {
		return Book{}, ErrNilID
	}

	if strings.TrimSpace(title) == "" {
		return Book{}, ErrEmptyBookTitle
	}

	if totalQuantity < 1 {
		return Book{}, ErrInvalidTotalQuantity
	}

	return Book{
		ID:              id,
		Title:           strings.TrimSpace(title),
		Author:          strings.TrimSpace(author),
		ISBN:            strings.TrimSpace(isbn),
		TotalQuantity:   totalQuantity,
		AvailableCopies: totalQuantity,
	}, nil
}

// CheckInvariant verifies 0 <= AvailableCopies <= TotalQuantity.
func (b Book) CheckInvariant() error {
	if b.TotalQuantity < 0 || b.AvailableCopies < 0 || b.AvailableCopies > b.TotalQuantity {
		return fmt.Errorf(
			"%w: book %s has %d of %d copies available",
			ErrInvariantViolation, b.ID, b.AvailableCopies, b.TotalQuantity,
		)
	}

	return nil
}

// AdjustAvailable returns the book with AvailableCopies moved by delta.
// The book is returned unchanged together with ErrInvariantViolation if the result leaves [0, TotalQuantity].
func (b Book) AdjustAvailable(delta int) (Book, error) {
	adjusted := b
	adjusted.AvailableCopies += delta

	if err := adjusted.CheckInvariant(); err != nil {
		return b, err
	}

	return adjusted, nil
}

// AdjustTotal moves both counters together, flooring each at zero. It is used for write-offs only.
func (b Book) AdjustTotal(deltaTotal, deltaAvailable int) (Book, error) {
	adjusted := b
	adjusted.TotalQuantity = max(0, b.TotalQuantity+deltaTotal)
	adjusted.AvailableCopies = max(0, b.AvailableCopies+deltaAvailable)

	if err := adjusted.CheckInvariant(); err != nil {
		return b, err
	}

	return adjusted, nil
}

// LentCopies is the number of copies currently out on loan.
func (b Book) LentCopies() int {
	return b.TotalQuantity - b.AvailableCopies
}
