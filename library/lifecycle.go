package library

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

// Borrow lends one copy of the titled book to the named user for days days
// (0 means the default duration).
func (lm *LibraryManager) Borrow(ctx context.Context, title, userName string, days int) (*LoanConfirmation, error) {
	title, userName = strings.TrimSpace(title), strings.TrimSpace(userName)
	if title == "" || userName == "" {
		return nil, lm.fail("borrow", newError(ErrInvalidQuery, nil, "Informe o título do livro e o nome do usuário."))
	}
	if days < 0 {
		return nil, lm.fail("borrow", newError(ErrInvalidQuery, nil, "A duração do empréstimo deve ser de pelo menos 1 dia."))
	}
	if days == 0 {
		days = lm.defaultDays
	}

	var conf *LoanConfirmation
	err := lm.store.Atomically(ctx, func(tx Tx) error {
		user, err := resolveUser(ctx, tx, userName)
		if err != nil {
			return err
		}
		book, err := resolveBook(ctx, tx, title)
		if err != nil {
			return err
		}
		if !book.Available || book.AvailableCopies <= 0 {
			return unavailable(book.Title, nil)
		}

		_, err = tx.ActiveLoan(ctx, user.ID, book.ID)
		switch {
		case err == nil:
			return duplicateLoan(user.Name, book.Title, nil)
		case !errors.Is(err, ErrNoActiveLoan):
			return err
		}

		if err := tx.TakeCopy(ctx, book.ID); err != nil {
			if errors.Is(err, ErrBookUnavailable) {
				return unavailable(book.Title, err)
			}
			return err
		}

		now := lm.now()
		loan, err := tx.InsertLoan(ctx, &Loan{
			UserID:   user.ID,
			BookID:   book.ID,
			LoanDate: now,
			DueDate:  now.Add(time.Duration(days) * 24 * time.Hour),
		})
		if err != nil {
			if errors.Is(err, ErrDuplicateActiveLoan) {
				return duplicateLoan(user.Name, book.Title, err)
			}
			return err
		}

		conf = &LoanConfirmation{
			LoanID:   loan.ID,
			Title:    book.Title,
			User:     user.Name,
			LoanDate: lm.date(loan.LoanDate),
			DueDate:  lm.date(loan.DueDate),
			Days:     days,
		}
		return nil
	})
	if err != nil {
		return nil, lm.fail("borrow", err)
	}

	lm.info(logMsgBorrowed,
		logAttrLoanID, conf.LoanID,
		logAttrTitle, conf.Title,
		logAttrDueDate, conf.DueDate.String())
	return conf, nil
}

// Return closes the most recent active loan of the titled book by the named
// user and puts the copy back on the shelf.
func (lm *LibraryManager) Return(ctx context.Context, title, userName string) (*Receipt, error) {
	title, userName = strings.TrimSpace(title), strings.TrimSpace(userName)
	if title == "" || userName == "" {
		return nil, lm.fail("return", newError(ErrInvalidQuery, nil, "Informe o título do livro e o nome do usuário."))
	}

	var receipt *Receipt
	err := lm.store.Atomically(ctx, func(tx Tx) error {
		user, err := resolveUser(ctx, tx, userName)
		if err != nil {
			return err
		}
		book, err := resolveBook(ctx, tx, title)
		if err != nil {
			return err
		}

		loan, err := tx.ActiveLoan(ctx, user.ID, book.ID)
		if errors.Is(err, ErrNoActiveLoan) {
			return newError(ErrNoActiveLoan, nil,
				"Não foi encontrado empréstimo ativo do livro '%s' para o usuário '%s'.", book.Title, user.Name)
		}
		if err != nil {
			return err
		}

		now := lm.now()
		if err := tx.PutBackCopy(ctx, book.ID); err != nil {
			return err
		}
		if err := tx.MarkReturned(ctx, loan.ID, now); err != nil {
			return err
		}

		receipt = &Receipt{
			LoanID:     loan.ID,
			Title:      book.Title,
			User:       user.Name,
			LoanDate:   lm.date(loan.LoanDate),
			DueDate:    lm.date(loan.DueDate),
			ReturnedAt: lm.date(now),
			DaysLate:   max(0, daysBetween(loan.DueDate, now)),
		}
		return nil
	})
	if err != nil {
		return nil, lm.fail("return", err)
	}

	if receipt.Late() {
		lm.warn(logMsgReturnedLate, logAttrLoanID, receipt.LoanID, logAttrTitle, receipt.Title, logAttrDaysLate, receipt.DaysLate)
	} else {
		lm.info(logMsgReturned, logAttrLoanID, receipt.LoanID, logAttrTitle, receipt.Title)
	}
	return receipt, nil
}

// QueryUserLoans lists the active loans of the named user, soonest due first.
func (lm *LibraryManager) QueryUserLoans(ctx context.Context, userName string) (*UserLoans, error) {
	userName = strings.TrimSpace(userName)
	if userName == "" {
		return nil, lm.fail("loans", newError(ErrInvalidQuery, nil, "Informe o nome do usuário."))
	}

	user, err := resolveUser(ctx, lm.store, userName)
	if err != nil {
		return nil, lm.fail("loans", err)
	}
	entries, err := lm.store.ActiveLoansByUser(ctx, user.ID)
	if err != nil {
		return nil, lm.fail("loans", err)
	}

	now := lm.now()
	result := &UserLoans{User: user.Name, Loans: make([]LoanStatus, 0, len(entries))}
	for _, e := range entries {
		remaining := daysBetween(now, e.DueDate)
		status := StatusOnTrack
		if remaining < 0 {
			status = StatusOverdue
		}
		result.Loans = append(result.Loans, LoanStatus{
			LoanID:        e.ID,
			Title:         e.Title,
			LoanDate:      lm.date(e.LoanDate),
			DueDate:       lm.date(e.DueDate),
			DaysRemaining: remaining,
			Status:        status,
		})
	}
	return result, nil
}

// ListAvailable lists every title with at least one copy on the shelf,
// ordered by title.
func (lm *LibraryManager) ListAvailable(ctx context.Context) ([]BookSummary, error) {
	books, err := lm.store.AvailableBooks(ctx)
	if err != nil {
		return nil, lm.fail("available", err)
	}
	out := make([]BookSummary, 0, len(books))
	for _, b := range books {
		out = append(out, BookSummary{
			Title:           b.Title,
			Author:          b.Author,
			ISBN:            b.ISBN,
			AvailableCopies: b.AvailableCopies,
			TotalCopies:     b.TotalCopies,
		})
	}
	return out, nil
}

// resolveUser finds the user a patron refers to by full or first name. When
// several match, an exact full-name match wins, then the lowest lower-cased
// full name, then the lowest id.
func resolveUser(ctx context.Context, dir UserDirectory, name string) (*User, error) {
	candidates, err := dir.UsersByName(ctx, name)
	if err != nil {
		return nil, err
	}

	users := make([]*User, 0, len(candidates))
	for _, u := range candidates {
		if strings.EqualFold(u.Name, name) || strings.EqualFold(firstName(u.Name), name) {
			users = append(users, u)
		}
	}
	if len(users) == 0 {
		return nil, newError(ErrUserNotFound, nil, "Usuário '%s' não encontrado.", name)
	}

	slices.SortFunc(users, func(a, b *User) int {
		aExact, bExact := strings.EqualFold(a.Name, name), strings.EqualFold(b.Name, name)
		if aExact != bExact {
			if aExact {
				return -1
			}
			return 1
		}
		return cmp.Or(
			strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name)),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return users[0], nil
}

func firstName(full string) string {
	if fields := strings.Fields(full); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func resolveBook(ctx context.Context, catalog CatalogStore, title string) (*Book, error) {
	book, err := catalog.FindBookByTitle(ctx, title)
	if errors.Is(err, ErrBookNotFound) {
		return nil, newError(ErrBookNotFound, nil, "Livro '%s' não encontrado no acervo.", title)
	}
	return book, err
}

func unavailable(title string, cause error) *Error {
	return newError(ErrBookUnavailable, cause, "Livro '%s' não está disponível para empréstimo no momento.", title)
}

func duplicateLoan(user, title string, cause error) *Error {
	return newError(ErrDuplicateActiveLoan, cause, "Usuário '%s' já possui o livro '%s' emprestado.", user, title)
}
