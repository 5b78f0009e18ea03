package memoryengine

import (
	"cmp"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/shelfstock/stock"
)

// state holds every row of the library. Values are replaced on update, never mutated in place,
// so copying the maps is enough to isolate a transaction.
type state struct {
	Books    map[uuid.UUID]stock.Book             `json:"books"`
	Loans    map[uuid.UUID]stock.Loan             `json:"loans"`
	Sessions map[uuid.UUID]stock.InventorySession `json:"inventory_sessions"`
	Items    map[uuid.UUID]stock.InventoryItem    `json:"inventory_items"`
	Issues   map[uuid.UUID]stock.BookIssue        `json:"book_issues"`
}

func newState() state {
	return state{
		Books:    map[uuid.UUID]stock.Book{},
		Loans:    map[uuid.UUID]stock.Loan{},
		Sessions: map[uuid.UUID]stock.InventorySession{},
		Items:    map[uuid.UUID]stock.InventoryItem{},
		Issues:   map[uuid.UUID]stock.BookIssue{},
	}
}

func (s state) clone() state {
	return state{
		Books:    maps.Clone(s.Books),
		Loans:    maps.Clone(s.Loans),
		Sessions: maps.Clone(s.Sessions),
		Items:    maps.Clone(s.Items),
		Issues:   maps.Clone(s.Issues),
	}
}

// normalize replaces nil maps of a decoded snapshot.
func (s *state) normalize() {
	if s.Books == nil {
		s.Books = map[uuid.UUID]stock.Book{}
	}
	if s.Loans == nil {
		s.Loans = map[uuid.UUID]stock.Loan{}
	}
	if s.Sessions == nil {
		s.Sessions = map[uuid.UUID]stock.InventorySession{}
	}
	if s.Items == nil {
		s.Items = map[uuid.UUID]stock.InventoryItem{}
	}
	if s.Issues == nil {
		s.Issues = map[uuid.UUID]stock.BookIssue{}
	}
}

func (s state) books() []stock.Book {
	books := slices.Collect(maps.Values(s.Books))
	slices.SortFunc(books, func(a, b stock.Book) int {
		return cmp.Or(cmp.Compare(a.Title, b.Title), compareIDs(a.ID, b.ID))
	})

	return books
}

// loans returns the matching loans, newest loan date first.
func (s state) loans(filter stock.LoanFilter) []stock.Loan {
	loans := make([]stock.Loan, 0)
	for _, loan := range s.Loans {
		if filter.Matches(loan) {
			loans = append(loans, loan)
		}
	}

	slices.SortFunc(loans, func(a, b stock.Loan) int {
		return cmp.Or(b.LoanDate.Compare(a.LoanDate), compareIDs(b.ID, a.ID))
	})

	if filter.Limit() > 0 && len(loans) > filter.Limit() {
		loans = loans[:filter.Limit()]
	}

	return loans
}

func (s state) countOpenLoans(match func(stock.Loan) bool) int {
	count := 0
	for _, loan := range s.Loans {
		if loan.IsOpen() && match(loan) {
			count++
		}
	}

	return count
}

func (s state) openSession() (stock.InventorySession, bool) {
	for _, session := range s.Sessions {
		if session.IsOpen() {
			return session, true
		}
	}

	return stock.InventorySession{}, false
}

func (s state) items(sessionID uuid.UUID, status stock.ItemStatus) []stock.InventoryItem {
	items := make([]stock.InventoryItem, 0)
	for _, item := range s.Items {
		if item.SessionID == sessionID && (status == "" || item.Status == status) {
			items = append(items, item)
		}
	}

	slices.SortFunc(items, func(a, b stock.InventoryItem) int {
		return compareIDs(a.ID, b.ID)
	})

	return items
}

// openIssues returns open issues oldest first; uuid.Nil matches every book.
func (s state) openIssues(bookID uuid.UUID) []stock.BookIssue {
	issues := make([]stock.BookIssue, 0)
	for _, issue := range s.Issues {
		if issue.Status == stock.IssueOpen && (bookID == uuid.Nil || issue.BookID == bookID) {
			issues = append(issues, issue)
		}
	}

	slices.SortFunc(issues, func(a, b stock.BookIssue) int {
		return cmp.Or(a.ReportDate.Compare(b.ReportDate), compareIDs(a.ID, b.ID))
	})

	return issues
}

// removeBook deletes the book with its loans and issues, like the ON DELETE CASCADE of the SQL schema.
// Inventory items stay so completed sessions keep their stats.
func (s state) removeBook(bookID uuid.UUID) {
	delete(s.Books, bookID)

	maps.DeleteFunc(s.Loans, func(_ uuid.UUID, loan stock.Loan) bool { return loan.BookID == bookID })
	maps.DeleteFunc(s.Issues, func(_ uuid.UUID, issue stock.BookIssue) bool { return issue.BookID == bookID })
}

func compareIDs(a, b uuid.UUID) int {
	return slices.Compare(a[:], b[:])
}
