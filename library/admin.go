package library

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrWrongPassword is returned by AuthenticateUser on a password mismatch.
var ErrWrongPassword = errors.New("invalid password")

// AddBook adds a title to the catalog. A negative AvailableCopies means "all
// copies on the shelf".
func (lm *LibraryManager) AddBook(ctx context.Context, book Book) (int64, error) {
	if book.TotalCopies < 1 {
		return 0, fmt.Errorf("%w: total copies must be at least 1", ErrInvalidQuery)
	}
	if book.AvailableCopies < 0 {
		book.AvailableCopies = book.TotalCopies
	}
	id, err := lm.store.AddBook(ctx, &book)
	if err != nil {
		return 0, err
	}
	lm.info(logMsgBookAdded, logAttrBookID, id, logAttrTitle, book.Title)
	return id, nil
}

// AddUser registers a user. An empty password leaves the account without one.
func (lm *LibraryManager) AddUser(ctx context.Context, name, password string) (int64, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return 0, err
	}
	id, err := lm.store.AddUser(ctx, name, hash)
	if err != nil {
		return 0, err
	}
	lm.info(logMsgUserAdded, logAttrUserID, id)
	return id, nil
}

// ResetPassword replaces the password of the named user.
func (lm *LibraryManager) ResetPassword(ctx context.Context, name, password string) error {
	user, err := lm.FindUser(ctx, name)
	if err != nil {
		return err
	}
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	return lm.store.SetPasswordHash(ctx, user.ID, hash)
}

// FindUser resolves a user the same way circulation does.
func (lm *LibraryManager) FindUser(ctx context.Context, name string) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, newError(ErrInvalidQuery, nil, "Informe o nome do usuário.")
	}
	user, err := resolveUser(ctx, lm.store, name)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// AuthenticateUser checks password against the stored hash of the named user.
// Users registered without a password always pass.
func (lm *LibraryManager) AuthenticateUser(ctx context.Context, name, password string) error {
	user, err := lm.FindUser(ctx, name)
	if err != nil {
		return err
	}
	if !user.HasPassword() {
		return nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return ErrWrongPassword
	}
	return nil
}

// ListBooks returns the whole catalog ordered by title.
func (lm *LibraryManager) ListBooks(ctx context.Context) ([]*Book, error) {
	return lm.store.GetAllBooks(ctx)
}

// ListUsers returns all users ordered by name.
func (lm *LibraryManager) ListUsers(ctx context.Context) ([]*User, error) {
	return lm.store.GetAllUsers(ctx)
}

func hashPassword(password string) (string, error) {
	if password == "" {
		return "", nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
