package tools

import (
	"context"
	"fmt"

	"library-assistant/library"
)

// Tool names understood by the agent definitions.
const (
	SearchBook      = "buscar_livro"
	BorrowBook      = "realizar_emprestimo"
	ReturnBook      = "devolver_livro"
	UserLoans       = "consultar_emprestimos_usuario"
	ListAvailable   = "listar_acervo_disponivel"
	SuggestByAuthor = "sugerir_livros_por_autor"
	SuggestByGenre  = "sugerir_livros_por_genero"
)

// Operations is the part of the library the tools drive.
// *library.LibraryManager implements it.
type Operations interface {
	Search(ctx context.Context, q library.BookQuery) ([]library.BookMatch, error)
	SuggestByAuthor(ctx context.Context, author, exclude string) ([]library.BookMatch, error)
	SuggestByGenre(ctx context.Context, genre, exclude string) ([]library.BookMatch, error)
	Borrow(ctx context.Context, title, userName string, days int) (*library.LoanConfirmation, error)
	Return(ctx context.Context, title, userName string) (*library.Receipt, error)
	QueryUserLoans(ctx context.Context, userName string) (*library.UserLoans, error)
	ListAvailable(ctx context.Context) ([]library.BookSummary, error)
}

type searchArgs struct {
	Title  string `json:"titulo,omitempty" jsonschema:"título exato do livro"`
	Author string `json:"autor,omitempty" jsonschema:"nome do autor"`
}

type borrowArgs struct {
	Title    string `json:"nome_livro" jsonschema:"título exato do livro a ser emprestado"`
	UserName string `json:"nome_usuario" jsonschema:"nome do usuário que solicita o empréstimo"`
	Days     int    `json:"dias_emprestimo,omitempty" jsonschema:"duração do empréstimo em dias; padrão 14"`
}

type returnArgs struct {
	Title    string `json:"nome_livro" jsonschema:"título do livro devolvido"`
	UserName string `json:"nome_usuario" jsonschema:"nome do usuário que devolve o livro"`
}

type userArgs struct {
	UserName string `json:"nome_usuario" jsonschema:"nome do usuário"`
}

type noArgs struct{}

type authorArgs struct {
	Author  string `json:"autor" jsonschema:"nome do autor"`
	Exclude string `json:"titulo_excluir,omitempty" jsonschema:"título que não deve ser sugerido"`
}

type genreArgs struct {
	Genre   string `json:"genero" jsonschema:"gênero literário"`
	Exclude string `json:"titulo_excluir,omitempty" jsonschema:"título que não deve ser sugerido"`
}

// NewLibraryRegistry registers every library tool against ops.
func NewLibraryRegistry(ops Operations, logger library.Logger) (*Registry, error) {
	r := NewRegistry(logger)
	for _, t := range libraryTools(ops) {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func libraryTools(ops Operations) []*Tool {
	return []*Tool{
		MustNewTool(SearchBook,
			"Busca um livro no acervo pelo título e/ou autor e informa se está disponível.",
			func(ctx context.Context, a searchArgs) library.Result {
				books, err := ops.Search(ctx, library.BookQuery{Title: a.Title, Author: a.Author})
				res := library.Outcome(books, err)
				if res.OK() {
					res.Message = fmt.Sprintf("%d livro(s) encontrado(s) no acervo.", len(books))
				}
				return res
			}),
		MustNewTool(BorrowBook,
			"Realiza o empréstimo de um livro para um usuário.",
			func(ctx context.Context, a borrowArgs) library.Result {
				return library.Outcome(ops.Borrow(ctx, a.Title, a.UserName, a.Days))
			}),
		MustNewTool(ReturnBook,
			"Processa a devolução de um livro emprestado e informa eventual atraso.",
			func(ctx context.Context, a returnArgs) library.Result {
				return library.Outcome(ops.Return(ctx, a.Title, a.UserName))
			}),
		MustNewTool(UserLoans,
			"Consulta os empréstimos ativos de um usuário e seus prazos de devolução.",
			func(ctx context.Context, a userArgs) library.Result {
				return library.Outcome(ops.QueryUserLoans(ctx, a.UserName))
			}),
		MustNewTool(ListAvailable,
			"Lista todos os livros disponíveis para empréstimo.",
			func(ctx context.Context, _ noArgs) library.Result {
				books, err := ops.ListAvailable(ctx)
				res := library.Outcome(books, err)
				if res.OK() {
					res.Message = fmt.Sprintf("%d livro(s) disponível(is) para empréstimo.", len(books))
				}
				return res
			}),
		MustNewTool(SuggestByAuthor,
			"Sugere livros do mesmo autor presentes no acervo.",
			func(ctx context.Context, a authorArgs) library.Result {
				books, err := ops.SuggestByAuthor(ctx, a.Author, a.Exclude)
				return suggestion(books, err, "do autor", a.Author)
			}),
		MustNewTool(SuggestByGenre,
			"Sugere livros do mesmo gênero presentes no acervo.",
			func(ctx context.Context, a genreArgs) library.Result {
				books, err := ops.SuggestByGenre(ctx, a.Genre, a.Exclude)
				return suggestion(books, err, "do gênero", a.Genre)
			}),
	}
}

func suggestion(books []library.BookMatch, err error, by, value string) library.Result {
	res := library.Outcome(books, err)
	if !res.OK() {
		return res
	}
	if len(books) == 0 {
		res.Message = fmt.Sprintf("Nenhum outro livro %s %s encontrado no acervo.", by, value)
	} else {
		res.Message = fmt.Sprintf("Encontrados %d livros %s %s", len(books), by, value)
	}
	return res
}
