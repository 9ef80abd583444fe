package library

import "time"

// Book represents a catalog title and its copy counts.
// Available mirrors AvailableCopies > 0 and is maintained by the store.
type Book struct {
	ID              int64  `db:"id" json:"id"`
	Title           string `db:"titulo" json:"titulo"`
	Author          string `db:"autor" json:"autor"`
	Genre           string `db:"genero" json:"genero"`
	ISBN            string `db:"isbn" json:"isbn"`
	TotalCopies     int    `db:"exemplares_total" json:"exemplares_total"`
	AvailableCopies int    `db:"exemplares_disponiveis" json:"exemplares_disponiveis"`
	Available       bool   `db:"disponibilidade" json:"disponibilidade"`
}

// User represents a registered library user.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Name         string `db:"nome" json:"nome"`
	PasswordHash string `db:"senha_hash" json:"-"` // Don't serialize password hash
}

// HasPassword reports whether the user was registered with a password.
func (u *User) HasPassword() bool { return u.PasswordHash != "" }

// Loan is one row of the loan ledger. ReturnedAt is nil while the loan is active.
type Loan struct {
	ID         int64
	UserID     int64
	BookID     int64
	LoanDate   time.Time
	DueDate    time.Time
	Returned   bool
	ReturnedAt *time.Time
}

// BookQuery selects catalog entries by title and/or author.
type BookQuery struct {
	Title  string
	Author string
}

// BookMatch is a search or suggestion hit.
type BookMatch struct {
	Title           string `json:"titulo"`
	Author          string `json:"autor,omitempty"`
	Available       bool   `json:"disponibilidade"`
	AvailableCopies int    `json:"exemplares_disponiveis"`
}

// BookSummary is one line of the available-books listing.
type BookSummary struct {
	Title           string `json:"titulo"`
	Author          string `json:"autor"`
	ISBN            string `json:"isbn"`
	AvailableCopies int    `json:"exemplares_disponiveis"`
	TotalCopies     int    `json:"exemplares_total"`
}

// LoanConfirmation is returned by a successful Borrow.
type LoanConfirmation struct {
	LoanID   int64  `json:"id_emprestimo"`
	Title    string `json:"livro"`
	User     string `json:"usuario"`
	LoanDate Date   `json:"data_emprestimo"`
	DueDate  Date   `json:"data_devolucao"`
	Days     int    `json:"dias_emprestimo"`
}

// Receipt is returned by a successful Return.
type Receipt struct {
	LoanID     int64  `json:"id_emprestimo"`
	Title      string `json:"livro"`
	User       string `json:"usuario"`
	LoanDate   Date   `json:"data_emprestimo"`
	DueDate    Date   `json:"data_devolucao_prevista"`
	ReturnedAt Date   `json:"data_devolucao_real"`
	DaysLate   int    `json:"atraso_dias"`
}

// Late reports whether the book came back after its due date.
func (r *Receipt) Late() bool { return r.DaysLate > 0 }

// Date is a calendar date rendered as dd/mm/yyyy in tool results.
type Date time.Time

const dateLayout = "02/01/2006"

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + time.Time(d).Format(dateLayout) + `"`), nil
}

// String returns the date as dd/mm/yyyy.
func (d Date) String() string { return time.Time(d).Format(dateLayout) }

// Time returns the underlying timestamp.
func (d Date) Time() time.Time { return time.Time(d) }

// Loan status labels.
const (
	StatusOnTrack = "on track"
	StatusOverdue = "overdue"
)

// LoanStatus describes one active loan of a user.
type LoanStatus struct {
	LoanID        int64  `json:"id_emprestimo"`
	Title         string `json:"livro"`
	LoanDate      Date   `json:"data_emprestimo"`
	DueDate       Date   `json:"data_devolucao"`
	DaysRemaining int    `json:"dias_restantes"`
	Status        string `json:"status"`
}

// UserLoans is the result of QueryUserLoans.
type UserLoans struct {
	User  string       `json:"usuario"`
	Loans []LoanStatus `json:"emprestimos"`
}
