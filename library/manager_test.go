package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

const day = 24 * time.Hour

func newManager(t *testing.T, opts ...Option) (*LibraryManager, *Database, *fakeClock) {
	t.Helper()
	db := tempDB(t)
	seedCatalog(t, db)
	clock := &fakeClock{now: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now), WithLocation(time.UTC)}, opts...)
	mgr, err := NewLibraryManagerFromStore(db, opts...)
	require.NoError(t, err)
	return mgr, db, clock
}

func seedCatalog(t *testing.T, db *Database) {
	t.Helper()
	addBook(t, db, "O Senhor dos Anéis", "J.R.R. Tolkien", "Fantasia", 3, 2)
	addBook(t, db, "1984", "George Orwell", "Distopia", 2, 0)
	addBook(t, db, "Dom Casmurro", "Machado de Assis", "Romance", 4, 3)
	addBook(t, db, "Quincas Borba", "Machado de Assis", "Romance", 1, 1)
	addBook(t, db, "Harry Potter e a Pedra Filosofal", "J.K. Rowling", "Fantasia", 5, 4)
	addBook(t, db, "O Pequeno Príncipe", "Antoine de Saint-Exupéry", "Infantil", 6, 5)
	addUser(t, db, "Ana Souza")
	addUser(t, db, "Bob Almeida")
}

func copiesOf(t *testing.T, db *Database, title string) *Book {
	t.Helper()
	b, err := db.FindBookByTitle(context.Background(), title)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, b.AvailableCopies, 0)
	assert.LessOrEqual(t, b.AvailableCopies, b.TotalCopies)
	assert.Equal(t, b.AvailableCopies > 0, b.Available)
	return b
}

func TestBorrowAndReturnRoundTrip(t *testing.T) {
	mgr, db, clock := newManager(t)
	ctx := context.Background()
	start := clock.Now()

	conf, err := mgr.Borrow(ctx, "Dom Casmurro", "Ana", 14)
	require.NoError(t, err)
	assert.Equal(t, "Dom Casmurro", conf.Title)
	assert.Equal(t, "Ana Souza", conf.User)
	assert.Equal(t, 14, conf.Days)
	assert.True(t, conf.LoanDate.Time().Equal(start))
	assert.True(t, conf.DueDate.Time().Equal(start.Add(14*day)))
	assert.Equal(t, 2, copiesOf(t, db, "Dom Casmurro").AvailableCopies)

	_, err = mgr.Borrow(ctx, "Dom Casmurro", "Ana", 14)
	require.ErrorIs(t, err, ErrDuplicateActiveLoan)
	assert.Equal(t, 2, copiesOf(t, db, "Dom Casmurro").AvailableCopies)

	receipt, err := mgr.Return(ctx, "dom casmurro", "Ana Souza")
	require.NoError(t, err)
	assert.Equal(t, conf.LoanID, receipt.LoanID)
	assert.Equal(t, 0, receipt.DaysLate)
	assert.False(t, receipt.Late())
	assert.Empty(t, receipt.Notice())
	assert.Equal(t, 3, copiesOf(t, db, "Dom Casmurro").AvailableCopies)

	loans, err := mgr.QueryUserLoans(ctx, "Ana")
	require.NoError(t, err)
	assert.Empty(t, loans.Loans)

	_, err = mgr.Return(ctx, "Dom Casmurro", "Ana")
	require.ErrorIs(t, err, ErrNoActiveLoan)
	assert.Equal(t, 3, copiesOf(t, db, "Dom Casmurro").AvailableCopies)
}

func TestBorrowWithNoCopiesLeft(t *testing.T) {
	mgr, db, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.Borrow(ctx, "1984", "Bob", 14)
	require.ErrorIs(t, err, ErrBookUnavailable)

	var libErr *Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, "book_unavailable", libErr.Code())
	assert.Equal(t, "Livro '1984' não está disponível para empréstimo no momento.", libErr.Message)

	assert.Equal(t, 0, copiesOf(t, db, "1984").AvailableCopies)
	loans, err := mgr.QueryUserLoans(ctx, "Bob")
	require.NoError(t, err)
	assert.Empty(t, loans.Loans)
}

func TestBorrowFailures(t *testing.T) {
	mgr, db, _ := newManager(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		title string
		user  string
		days  int
		want  error
	}{
		{"empty title", "", "Ana", 14, ErrInvalidQuery},
		{"empty user", "Dom Casmurro", " ", 14, ErrInvalidQuery},
		{"negative duration", "Dom Casmurro", "Ana", -1, ErrInvalidQuery},
		{"unknown user", "Dom Casmurro", "Zé", 14, ErrUserNotFound},
		{"last name only", "Dom Casmurro", "Souza", 14, ErrUserNotFound},
		{"unknown book", "Memórias do Subsolo", "Ana", 14, ErrBookNotFound},
		{"partial title", "Dom", "Ana", 14, ErrBookNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mgr.Borrow(ctx, tt.title, tt.user, tt.days)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, 3, copiesOf(t, db, "Dom Casmurro").AvailableCopies)
}

func TestBorrowUsesDefaultDuration(t *testing.T) {
	mgr, _, clock := newManager(t, WithDefaultLoanDays(7))
	conf, err := mgr.Borrow(context.Background(), "Quincas Borba", "Bob", 0)
	require.NoError(t, err)
	assert.Equal(t, 7, conf.Days)
	assert.True(t, conf.DueDate.Time().Equal(clock.Now().Add(7*day)))
}

func TestReturnLateness(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		late    int
		notice  string
	}{
		{"early", 2 * day, 0, ""},
		{"on due date", 14 * day, 0, ""},
		{"same day after due", 14*day + 5*time.Hour, 0, ""},
		{"three days late", 17 * day, 3, "Livro devolvido com 3 dia(s) de atraso."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mgr, _, clock := newManager(t)
			ctx := context.Background()
			_, err := mgr.Borrow(ctx, "O Pequeno Príncipe", "Bob", 14)
			require.NoError(t, err)

			clock.Advance(tt.elapsed)
			receipt, err := mgr.Return(ctx, "O Pequeno Príncipe", "Bob")
			require.NoError(t, err)
			assert.Equal(t, tt.late, receipt.DaysLate)
			assert.Equal(t, tt.notice, receipt.Notice())
			assert.True(t, receipt.ReturnedAt.Time().Equal(clock.Now()))
		})
	}
}

func TestQueryUserLoans(t *testing.T) {
	mgr, _, clock := newManager(t)
	ctx := context.Background()

	_, err := mgr.Borrow(ctx, "Harry Potter e a Pedra Filosofal", "Ana", 14)
	require.NoError(t, err)
	_, err = mgr.Borrow(ctx, "O Senhor dos Anéis", "Ana", 7)
	require.NoError(t, err)

	loans, err := mgr.QueryUserLoans(ctx, "ana souza")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", loans.User)
	require.Len(t, loans.Loans, 2)
	assert.Equal(t, "O Senhor dos Anéis", loans.Loans[0].Title)
	assert.Equal(t, 7, loans.Loans[0].DaysRemaining)
	assert.Equal(t, 14, loans.Loans[1].DaysRemaining)

	clock.Advance(10 * day)
	loans, err = mgr.QueryUserLoans(ctx, "Ana")
	require.NoError(t, err)
	require.Len(t, loans.Loans, 2)
	assert.Equal(t, -3, loans.Loans[0].DaysRemaining)
	assert.Equal(t, StatusOverdue, loans.Loans[0].Status)
	assert.Equal(t, 4, loans.Loans[1].DaysRemaining)
	assert.Equal(t, StatusOnTrack, loans.Loans[1].Status)

	_, err = mgr.QueryUserLoans(ctx, "Carla")
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserPrefixTieBreak(t *testing.T) {
	mgr, db, _ := newManager(t)
	ctx := context.Background()
	addUser(t, db, "Ana Maria")

	conf, err := mgr.Borrow(ctx, "Dom Casmurro", "ana", 14)
	require.NoError(t, err)
	assert.Equal(t, "Ana Maria", conf.User, "lowest full name wins among first-name matches")

	addUser(t, db, "Ana")
	conf, err = mgr.Borrow(ctx, "Quincas Borba", "ANA", 14)
	require.NoError(t, err)
	assert.Equal(t, "Ana", conf.User, "exact full-name match wins")
}

func TestConcurrentBorrowOfLastCopy(t *testing.T) {
	mgr, db, _ := newManager(t)
	ctx := context.Background()
	addBook(t, db, "Memórias Póstumas de Brás Cubas", "Machado de Assis", "Romance", 1, 1)

	const borrowers = 8
	names := make([]string, borrowers)
	for i := range names {
		names[i] = "Leitor " + string(rune('A'+i))
		addUser(t, db, names[i])
	}

	errs := make(chan error, borrowers)
	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			_, err := mgr.Borrow(ctx, "Memórias Póstumas de Brás Cubas", name, 14)
			errs <- err
		}(name)
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrBookUnavailable)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, copiesOf(t, db, "Memórias Póstumas de Brás Cubas").AvailableCopies)
}

func TestAccentedNamesIgnoreCase(t *testing.T) {
	mgr, db, _ := newManager(t)
	ctx := context.Background()
	addUser(t, db, "Érico Veríssimo")

	books, err := mgr.Search(ctx, BookQuery{Title: "O PEQUENO PRÍNCIPE"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "O Pequeno Príncipe", books[0].Title)

	conf, err := mgr.Borrow(ctx, "O SENHOR DOS ANÉIS", "érico", 14)
	require.NoError(t, err)
	assert.Equal(t, "Érico Veríssimo", conf.User)
	assert.Equal(t, "O Senhor dos Anéis", conf.Title)

	_, err = mgr.AddBook(ctx, Book{Title: "O PEQUENO PRÍNCIPE", Author: "Antoine de Saint-Exupéry", TotalCopies: 1, AvailableCopies: -1})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearch(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	books, err := mgr.Search(ctx, BookQuery{Title: "o senhor dos anéis"})
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, BookMatch{Title: "O Senhor dos Anéis", Author: "J.R.R. Tolkien", Available: true, AvailableCopies: 2}, books[0])

	books, err = mgr.Search(ctx, BookQuery{Author: "Machado de Assis"})
	require.NoError(t, err)
	assert.Len(t, books, 2)

	_, err = mgr.Search(ctx, BookQuery{Title: "1984", Author: "Tolkien"})
	require.ErrorIs(t, err, ErrBookNotFound)

	_, err = mgr.Search(ctx, BookQuery{Title: "  ", Author: ""})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSuggestions(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	books, err := mgr.SuggestByAuthor(ctx, "machado de assis", "Dom Casmurro")
	require.NoError(t, err)
	require.Len(t, books, 1)
	assert.Equal(t, "Quincas Borba", books[0].Title)

	books, err = mgr.SuggestByGenre(ctx, "FANTASIA", "")
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "Harry Potter e a Pedra Filosofal", books[0].Title)
	assert.Equal(t, "O Senhor dos Anéis", books[1].Title)

	books, err = mgr.SuggestByGenre(ctx, "Poesia", "")
	require.NoError(t, err)
	assert.Empty(t, books)

	_, err = mgr.SuggestByAuthor(ctx, "", "")
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestListAvailable(t *testing.T) {
	mgr, _, _ := newManager(t)
	books, err := mgr.ListAvailable(context.Background())
	require.NoError(t, err)

	titles := make([]string, 0, len(books))
	for _, b := range books {
		titles = append(titles, b.Title)
		assert.Positive(t, b.AvailableCopies)
	}
	assert.Equal(t, []string{
		"Dom Casmurro",
		"Harry Potter e a Pedra Filosofal",
		"O Pequeno Príncipe",
		"O Senhor dos Anéis",
		"Quincas Borba",
	}, titles)
}

func TestAuthenticateUser(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.AddUser(ctx, "Carla Mendes", "s3cret")
	require.NoError(t, err)

	require.NoError(t, mgr.AuthenticateUser(ctx, "Carla", "s3cret"))
	require.ErrorIs(t, mgr.AuthenticateUser(ctx, "Carla", "wrong"), ErrWrongPassword)
	require.NoError(t, mgr.AuthenticateUser(ctx, "Ana", "anything"), "users without a password always pass")
	require.ErrorIs(t, mgr.AuthenticateUser(ctx, "Zé", ""), ErrUserNotFound)

	require.NoError(t, mgr.ResetPassword(ctx, "Carla", "n3w"))
	require.ErrorIs(t, mgr.AuthenticateUser(ctx, "Carla", "s3cret"), ErrWrongPassword)
	require.NoError(t, mgr.AuthenticateUser(ctx, "Carla", "n3w"))
}

func TestAddBookDefaultsToAllCopiesOnShelf(t *testing.T) {
	mgr, db, _ := newManager(t)
	ctx := context.Background()

	_, err := mgr.AddBook(ctx, Book{Title: "Grande Sertão: Veredas", Author: "Guimarães Rosa", TotalCopies: 2, AvailableCopies: -1})
	require.NoError(t, err)
	assert.Equal(t, 2, copiesOf(t, db, "Grande Sertão: Veredas").AvailableCopies)

	_, err = mgr.AddBook(ctx, Book{Title: "Sagarana", Author: "Guimarães Rosa"})
	require.ErrorIs(t, err, ErrInvalidQuery)
}

func TestStorageFailureIsClassified(t *testing.T) {
	mgr, db, _ := newManager(t)
	require.NoError(t, db.Close())

	_, err := mgr.ListAvailable(context.Background())
	require.ErrorIs(t, err, ErrStorage)

	var libErr *Error
	require.ErrorAs(t, err, &libErr)
	assert.Equal(t, "storage_error", libErr.Code())
	assert.NotNil(t, errors.Unwrap(err), "cause must be preserved")
}

func TestOutcome(t *testing.T) {
	mgr, _, _ := newManager(t)
	ctx := context.Background()

	res := Outcome(mgr.Borrow(ctx, "Dom Casmurro", "Ana", 14))
	assert.True(t, res.OK())
	assert.Equal(t, "Empréstimo realizado com sucesso!", res.Message)
	assert.IsType(t, &LoanConfirmation{}, res.Details)

	res = Outcome(mgr.Borrow(ctx, "1984", "Ana", 14))
	assert.False(t, res.OK())
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "book_unavailable", res.ErrorKind)
	assert.Nil(t, res.Details)

	res = Failure(errors.New("disk on fire"))
	assert.Equal(t, "storage_error", res.ErrorKind)
}
