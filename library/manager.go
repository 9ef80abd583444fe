package library

import (
	"errors"
	"fmt"
	"time"
)

// DefaultLoanDays is the loan duration used when a borrow request omits it.
const DefaultLoanDays = 14

const (
	logMsgBorrowed        = "book borrowed"
	logMsgReturned        = "book returned"
	logMsgReturnedLate    = "book returned late"
	logMsgOperationFailed = "library operation failed"
	logMsgBookAdded       = "book added"
	logMsgUserAdded       = "user added"
	logAttrOperation      = "operation"
	logAttrError          = "error"
	logAttrErrorKind      = "error_kind"
	logAttrLoanID         = "loan_id"
	logAttrBookID         = "book_id"
	logAttrUserID         = "user_id"
	logAttrTitle          = "title"
	logAttrDaysLate       = "days_late"
	logAttrDueDate        = "due_date"
)

// Logger receives operational messages from the manager. *slog.Logger
// satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Option configures a LibraryManager.
type Option func(*LibraryManager) error

// WithLogger sets the logger. Without one the manager is silent.
func WithLogger(logger Logger) Option {
	return func(lm *LibraryManager) error {
		lm.logger = logger
		return nil
	}
}

// WithClock replaces the wall clock, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(lm *LibraryManager) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		lm.now = now
		return nil
	}
}

// WithDefaultLoanDays sets the duration used when Borrow gets 0 days.
func WithDefaultLoanDays(days int) Option {
	return func(lm *LibraryManager) error {
		if days < 1 {
			return fmt.Errorf("default loan days must be at least 1, got %d", days)
		}
		lm.defaultDays = days
		return nil
	}
}

// WithLocation sets the time zone in which patron-facing dates are rendered.
func WithLocation(loc *time.Location) Option {
	return func(lm *LibraryManager) error {
		if loc == nil {
			return errors.New("location cannot be nil")
		}
		lm.loc = loc
		return nil
	}
}

// LibraryManager implements the library operations on top of a Store.
type LibraryManager struct {
	store       Store
	logger      Logger
	now         func() time.Time
	defaultDays int
	loc         *time.Location
}

// NewLibraryManager opens (or creates) the SQLite database at dbPath.
func NewLibraryManager(dbPath string, opts ...Option) (*LibraryManager, error) {
	db, err := NewDatabase(dbPath)
	if err != nil {
		return nil, err
	}
	lm, err := NewLibraryManagerFromStore(db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return lm, nil
}

// NewLibraryManagerFromStore wraps an already opened store. The manager takes
// ownership of it and closes it in Close.
func NewLibraryManagerFromStore(store Store, opts ...Option) (*LibraryManager, error) {
	lm := &LibraryManager{
		store:       store,
		now:         time.Now,
		defaultDays: DefaultLoanDays,
		loc:         time.Local,
	}
	for _, opt := range opts {
		if err := opt(lm); err != nil {
			return nil, err
		}
	}
	return lm, nil
}

// Close closes the underlying store.
func (lm *LibraryManager) Close() error { return lm.store.Close() }

// DefaultLoanDays reports the configured default loan duration.
func (lm *LibraryManager) DefaultLoanDays() int { return lm.defaultDays }

// date converts a stored UTC timestamp for display.
func (lm *LibraryManager) date(t time.Time) Date { return Date(t.In(lm.loc)) }

// fail classifies err and logs it at the level its kind deserves.
func (lm *LibraryManager) fail(op string, err error) error {
	libErr := classify(err)
	if lm.logger != nil {
		if libErr.Kind == ErrStorage {
			lm.logger.Error(logMsgOperationFailed, logAttrOperation, op, logAttrError, err.Error())
		} else {
			lm.logger.Debug(logMsgOperationFailed, logAttrOperation, op, logAttrErrorKind, libErr.Code())
		}
	}
	return libErr
}

func (lm *LibraryManager) info(msg string, args ...any) {
	if lm.logger != nil {
		lm.logger.Info(msg, args...)
	}
}

func (lm *LibraryManager) warn(msg string, args ...any) {
	if lm.logger != nil {
		lm.logger.Warn(msg, args...)
	}
}

// daysBetween returns the whole days from a to b, rounded toward negative
// infinity.
func daysBetween(a, b time.Time) int {
	const day = 24 * time.Hour
	d := b.Sub(a)
	days := int(d / day)
	if d%day < 0 {
		days--
	}
	return days
}
