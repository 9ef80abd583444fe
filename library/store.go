package library

import (
	"context"
	"time"
)

// CatalogStore reads book rows and moves copies in and out of circulation.
type CatalogStore interface {
	// FindBookByTitle matches the title exactly, ignoring case.
	// Returns an error wrapping ErrBookNotFound when there is no such title.
	FindBookByTitle(ctx context.Context, title string) (*Book, error)
	SearchBooks(ctx context.Context, q BookQuery) ([]*Book, error)
	BooksByAuthor(ctx context.Context, author string) ([]*Book, error)
	BooksByGenre(ctx context.Context, genre string) ([]*Book, error)
	AvailableBooks(ctx context.Context) ([]*Book, error)

	// TakeCopy decrements the available copies of a book, failing with
	// ErrBookUnavailable when none are left.
	TakeCopy(ctx context.Context, bookID int64) error
	// PutBackCopy increments the available copies of a book. It never raises
	// the count above the total.
	PutBackCopy(ctx context.Context, bookID int64) error
}

// UserDirectory looks up registered users.
type UserDirectory interface {
	// UsersByName returns users whose full name or first name equals name,
	// ignoring case, in no particular order.
	UsersByName(ctx context.Context, name string) ([]*User, error)
}

// LedgerEntry is an active loan joined with the borrowed title.
type LedgerEntry struct {
	Loan
	Title string
}

// LoanLedger records loans and their returns.
type LoanLedger interface {
	// ActiveLoan returns the most recent unreturned loan of the pair, or an
	// error wrapping ErrNoActiveLoan.
	ActiveLoan(ctx context.Context, userID, bookID int64) (*Loan, error)
	// InsertLoan appends a loan. Fails with ErrDuplicateActiveLoan when the
	// pair already has an active loan.
	InsertLoan(ctx context.Context, loan *Loan) (*Loan, error)
	MarkReturned(ctx context.Context, loanID int64, at time.Time) error
	ActiveLoansByUser(ctx context.Context, userID int64) ([]*LedgerEntry, error)
}

// Tx is the view of the store available inside one transaction.
type Tx interface {
	CatalogStore
	UserDirectory
	LoanLedger
}

// Store is the backing store of the library: catalog, users and ledger.
type Store interface {
	Tx

	// Atomically runs fn in one store transaction. The transaction commits
	// only when fn returns nil.
	Atomically(ctx context.Context, fn func(tx Tx) error) error

	AddBook(ctx context.Context, book *Book) (int64, error)
	AddUser(ctx context.Context, name, passwordHash string) (int64, error)
	SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error
	GetAllBooks(ctx context.Context) ([]*Book, error)
	GetAllUsers(ctx context.Context) ([]*User, error)

	Close() error
}
