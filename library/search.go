package library

import (
	"context"
	"strings"
)

// Search looks books up by exact title and/or author, ignoring case. When
// both are given both must match.
func (lm *LibraryManager) Search(ctx context.Context, q BookQuery) ([]BookMatch, error) {
	q.Title, q.Author = strings.TrimSpace(q.Title), strings.TrimSpace(q.Author)
	if q.Title == "" && q.Author == "" {
		return nil, lm.fail("search", newError(ErrInvalidQuery, nil, "Informe o título ou o autor do livro."))
	}

	books, err := lm.store.SearchBooks(ctx, q)
	if err != nil {
		return nil, lm.fail("search", err)
	}
	if len(books) == 0 {
		what := q.Title
		if what == "" {
			what = q.Author
		}
		return nil, lm.fail("search", newError(ErrBookNotFound, nil, "Livro '%s' não encontrado no acervo.", what))
	}
	return matches(books, ""), nil
}

// SuggestByAuthor lists the books of author, leaving out exclude if set.
func (lm *LibraryManager) SuggestByAuthor(ctx context.Context, author, exclude string) ([]BookMatch, error) {
	author = strings.TrimSpace(author)
	if author == "" {
		return nil, lm.fail("suggest_author", newError(ErrInvalidQuery, nil, "Informe o nome do autor."))
	}
	books, err := lm.store.BooksByAuthor(ctx, author)
	if err != nil {
		return nil, lm.fail("suggest_author", err)
	}
	return matches(books, exclude), nil
}

// SuggestByGenre lists the books of genre, leaving out exclude if set.
func (lm *LibraryManager) SuggestByGenre(ctx context.Context, genre, exclude string) ([]BookMatch, error) {
	genre = strings.TrimSpace(genre)
	if genre == "" {
		return nil, lm.fail("suggest_genre", newError(ErrInvalidQuery, nil, "Informe o gênero literário."))
	}
	books, err := lm.store.BooksByGenre(ctx, genre)
	if err != nil {
		return nil, lm.fail("suggest_genre", err)
	}
	return matches(books, exclude), nil
}

func matches(books []*Book, exclude string) []BookMatch {
	exclude = strings.TrimSpace(exclude)
	out := make([]BookMatch, 0, len(books))
	for _, b := range books {
		if exclude != "" && strings.EqualFold(b.Title, exclude) {
			continue
		}
		out = append(out, BookMatch{
			Title:           b.Title,
			Author:          b.Author,
			Available:       b.Available,
			AvailableCopies: b.AvailableCopies,
		})
	}
	return out
}
