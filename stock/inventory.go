package stock

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionType distinguishes the yearly stocktake from spot checks.
type SessionType string

const (
	SessionAnnual SessionType = "annual"
	SessionAdhoc  SessionType = "adhoc"
)

// Valid reports whether t is a known SessionType.
func (t SessionType) Valid() bool {
	return t == SessionAnnual || t == SessionAdhoc
}

// SessionStatus is in_progress until the session is completed, which is terminal.
type SessionStatus string

const (
	SessionInProgress SessionStatus = "in_progress"
	SessionCompleted  SessionStatus = "completed"
)

// ItemStatus is pending until a found quantity is recorded.
type ItemStatus string

const (
	ItemPending     ItemStatus = "pending"
	ItemChecked     ItemStatus = "checked"
	ItemDiscrepancy ItemStatus = "discrepancy"
)

// Valid reports whether s is a known ItemStatus.
func (s ItemStatus) Valid() bool {
	return s == ItemPending || s == ItemChecked || s == ItemDiscrepancy
}

// InventorySession is one physical count of the whole catalog.
type InventorySession struct {
	ID        uuid.UUID
	Name      string
	Type      SessionType
	StartDate Timestamp
	EndDate   *Timestamp
	Status    SessionStatus
	Notes     string
}

// InventoryItem compares the recorded stock of one book, frozen at session start, with what was found on the shelf.
type InventoryItem struct {
	ID               uuid.UUID
	SessionID        uuid.UUID
	BookID           uuid.UUID
	ExpectedQuantity int
	FoundQuantity    *int
	Status           ItemStatus
	Notes            string
}

// InventoryStats summarizes the items of one session.
type InventoryStats struct {
	Total       int
	Checked     int
	Discrepancy int
	Pending     int
}

// SessionRequest carries the caller's input for starting a session.
type SessionRequest struct {
	Name  string
	Type  SessionType
	Notes string
}

// Validate checks the request before any transaction is opened.
func (r SessionRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptySessionName
	}

	if !r.Type.Valid() {
		return ErrInvalidSessionType
	}

	return nil
}

// NewInventorySession builds the session and snapshots every book into one pending item.
// newID is called once per item.
func NewInventorySession(
	id uuid.UUID,
	request SessionRequest,
	books []Book,
	now time.Time,
	newID func() uuid.UUID,
) (InventorySession, []InventoryItem) {

	session := InventorySession{
		ID:        id,
		Name:      strings.TrimSpace(request.Name),
		Type:      request.Type,
		StartDate: ToTimestamp(now),
		Status:    SessionInProgress,
		Notes:     request.Notes,
	}

	items := make([]InventoryItem, 0, len(books))
	for _, book := range books {
		items = append(items, InventoryItem{
			ID:               newID(),
			SessionID:        id,
			BookID:           book.ID,
			ExpectedQuantity: book.TotalQuantity,
			Status:           ItemPending,
		})
	}

	return session, items
}

// IsOpen reports whether items of the session may still be checked.
func (s InventorySession) IsOpen() bool {
	return s.Status == SessionInProgress
}

// Complete freezes the session.
func (s InventorySession) Complete(now time.Time) (InventorySession, error) {
	if s.Status == SessionCompleted {
		return s, ErrSessionAlreadyClosed
	}

	endDate := ToTimestamp(now)
	s.Status = SessionCompleted
	s.EndDate = &endDate

	return s, nil
}

// Check records the found quantity and derives checked or discrepancy.
// The owning session must be passed so a completed session rejects the change.
func (i InventoryItem) Check(session InventorySession, foundQuantity int, notes string) (InventoryItem, error) {
	if !session.IsOpen() {
		return i, ErrSessionClosed
	}

	if foundQuantity < 0 {
		return i, ErrNegativeFoundQuantity
	}

	i.FoundQuantity = &foundQuantity
	i.Notes = notes
	i.Status = deriveItemStatus(i.ExpectedQuantity, foundQuantity)

	return i, nil
}

// Shortfall is the number of copies missing from the shelf, zero when nothing is missing or nothing was counted.
func (i InventoryItem) Shortfall() int {
	if i.FoundQuantity == nil || *i.FoundQuantity >= i.ExpectedQuantity {
		return 0
	}

	return i.ExpectedQuantity - *i.FoundQuantity
}

func deriveItemStatus(expected, found int) ItemStatus {
	if found == expected {
		return ItemChecked
	}

	return ItemDiscrepancy
}

// ComputeInventoryStats counts items per status.
func ComputeInventoryStats(items []InventoryItem) InventoryStats {
	stats := InventoryStats{Total: len(items)}

	for _, item := range items {
		switch item.Status {
		case ItemChecked:
			stats.Checked++
		case ItemDiscrepancy:
			stats.Discrepancy++
		case ItemPending:
			stats.Pending++
		}
	}

	return stats
}
