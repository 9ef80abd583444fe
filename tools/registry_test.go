package tools

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"library-assistant/library"
)

// stubOps records the last call and answers with canned values.
type stubOps struct {
	Operations
	lastTitle, lastUser string
	lastDays            int
	lastExclude         string
	matches             []library.BookMatch
	err                 error
}

func (s *stubOps) Borrow(_ context.Context, title, user string, days int) (*library.LoanConfirmation, error) {
	s.lastTitle, s.lastUser, s.lastDays = title, user, days
	if s.err != nil {
		return nil, s.err
	}
	return &library.LoanConfirmation{Title: title, User: user, Days: days}, nil
}

func (s *stubOps) SuggestByAuthor(_ context.Context, author, exclude string) ([]library.BookMatch, error) {
	s.lastExclude = exclude
	return s.matches, s.err
}

func newStubRegistry(t *testing.T, ops *stubOps) *Registry {
	t.Helper()
	r, err := NewLibraryRegistry(ops, nil)
	require.NoError(t, err)
	return r
}

func TestLibraryRegistryNames(t *testing.T) {
	r := newStubRegistry(t, &stubOps{})
	assert.Equal(t, []string{
		SearchBook,
		BorrowBook,
		ReturnBook,
		UserLoans,
		ListAvailable,
		SuggestByAuthor,
		SuggestByGenre,
	}, r.Names())
	assert.True(t, r.Contains(BorrowBook))
	assert.False(t, r.Contains("apagar_acervo"))
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry(nil)
	tool := MustNewTool("eco", "repete", func(_ context.Context, _ noArgs) library.Result {
		return library.Success("ok", nil)
	})
	require.NoError(t, r.Register(tool))
	require.Error(t, r.Register(tool))
}

func TestNewToolRejectsEmptyName(t *testing.T) {
	_, err := NewTool(" ", "x", func(_ context.Context, _ noArgs) library.Result { return library.Result{} })
	require.Error(t, err)
}

func TestDeclarationsCarrySchemas(t *testing.T) {
	r := newStubRegistry(t, &stubOps{})
	decls := r.Declarations()
	require.Len(t, decls, 7)

	borrow := decls[1]
	assert.Equal(t, BorrowBook, borrow.Name)
	require.NotNil(t, borrow.Parameters)
	assert.Equal(t, "object", borrow.Parameters.Type)
	assert.Contains(t, borrow.Parameters.Properties, "nome_livro")
	assert.Contains(t, borrow.Parameters.Properties, "nome_usuario")
	assert.Contains(t, borrow.Parameters.Properties, "dias_emprestimo")
	assert.ElementsMatch(t, []string{"nome_livro", "nome_usuario"}, borrow.Parameters.Required)
}

func TestCallDecodesArguments(t *testing.T) {
	ops := &stubOps{}
	r := newStubRegistry(t, ops)

	res := r.Call(context.Background(), BorrowBook, []byte(`{"nome_livro":"Dom Casmurro","nome_usuario":"Ana","dias_emprestimo":7}`))
	require.True(t, res.OK(), "%+v", res)
	assert.Equal(t, "Dom Casmurro", ops.lastTitle)
	assert.Equal(t, "Ana", ops.lastUser)
	assert.Equal(t, 7, ops.lastDays)
	assert.Equal(t, "Empréstimo realizado com sucesso!", res.Message)
}

func TestCallRejectsBadArguments(t *testing.T) {
	tests := []struct {
		name string
		tool string
		raw  string
	}{
		{"malformed json", BorrowBook, `{"nome_livro":`},
		{"unknown field", BorrowBook, `{"nome_livro":"1984","nome_usuario":"Bob","cor":"azul"}`},
		{"wrong type", BorrowBook, `{"nome_livro":"1984","nome_usuario":"Bob","dias_emprestimo":"sete"}`},
		{"not an object", SuggestByAuthor, `["Machado"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ops := &stubOps{}
			r := newStubRegistry(t, ops)
			res := r.Call(context.Background(), tt.tool, []byte(tt.raw))
			assert.Equal(t, library.StatusError, res.Status)
			assert.Equal(t, "invalid_query", res.ErrorKind)
			assert.Empty(t, ops.lastTitle, "operation must not run")
		})
	}
}

func TestCallUnknownTool(t *testing.T) {
	r := newStubRegistry(t, &stubOps{})
	res := r.Call(context.Background(), "apagar_acervo", nil)
	assert.Equal(t, library.StatusError, res.Status)
	assert.Equal(t, "invalid_query", res.ErrorKind)
	assert.Equal(t, "Ferramenta 'apagar_acervo' desconhecida.", res.ErrorMessage)
}

func TestCallTurnsErrorsIntoRecords(t *testing.T) {
	ops := &stubOps{err: errors.New("connection reset")}
	r := newStubRegistry(t, ops)
	res := r.Call(context.Background(), BorrowBook, []byte(`{"nome_livro":"1984","nome_usuario":"Bob"}`))
	assert.Equal(t, library.StatusError, res.Status)
	assert.Equal(t, "storage_error", res.ErrorKind)
}

func TestSuggestionMessages(t *testing.T) {
	ops := &stubOps{}
	r := newStubRegistry(t, ops)
	ctx := context.Background()

	res := r.Call(ctx, SuggestByAuthor, []byte(`{"autor":"Machado de Assis","titulo_excluir":"Dom Casmurro"}`))
	require.True(t, res.OK())
	assert.Equal(t, "Dom Casmurro", ops.lastExclude)
	assert.Equal(t, "Nenhum outro livro do autor Machado de Assis encontrado no acervo.", res.Message)

	ops.matches = []library.BookMatch{{Title: "Quincas Borba"}, {Title: "Helena"}}
	res = r.Call(ctx, SuggestByAuthor, []byte(`{"autor":"Machado de Assis"}`))
	require.True(t, res.OK())
	assert.Equal(t, "Encontrados 2 livros do autor Machado de Assis", res.Message)
}

func TestBorrowAndReturnThroughTools(t *testing.T) {
	start := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	now := start
	mgr, err := library.NewLibraryManager(filepath.Join(t.TempDir(), "tools.db"),
		library.WithClock(func() time.Time { return now }),
		library.WithLocation(time.UTC))
	require.NoError(t, err)
	t.Cleanup(func() { mgr.Close() })

	ctx := context.Background()
	_, err = mgr.AddBook(ctx, library.Book{Title: "Dom Casmurro", Author: "Machado de Assis", Genre: "Romance", TotalCopies: 4, AvailableCopies: 3})
	require.NoError(t, err)
	_, err = mgr.AddUser(ctx, "Ana Souza", "")
	require.NoError(t, err)

	r, err := NewLibraryRegistry(mgr, nil)
	require.NoError(t, err)

	data, err := r.CallJSON(ctx, BorrowBook, []byte(`{"nome_livro":"Dom Casmurro","nome_usuario":"Ana"}`))
	require.NoError(t, err)

	var borrowed struct {
		Status   string `json:"status"`
		Detalhes struct {
			Livro          string `json:"livro"`
			Usuario        string `json:"usuario"`
			DataEmprestimo string `json:"data_emprestimo"`
			DataDevolucao  string `json:"data_devolucao"`
			Dias           int    `json:"dias_emprestimo"`
		} `json:"detalhes"`
	}
	require.NoError(t, jsoniter.Unmarshal(data, &borrowed))
	assert.Equal(t, library.StatusSuccess, borrowed.Status)
	assert.Equal(t, "Ana Souza", borrowed.Detalhes.Usuario)
	assert.Equal(t, "10/03/2025", borrowed.Detalhes.DataEmprestimo)
	assert.Equal(t, "24/03/2025", borrowed.Detalhes.DataDevolucao)
	assert.Equal(t, 14, borrowed.Detalhes.Dias)

	now = start.Add(16 * 24 * time.Hour)
	res := r.Call(ctx, ReturnBook, []byte(`{"nome_livro":"dom casmurro","nome_usuario":"Ana Souza"}`))
	require.True(t, res.OK(), "%+v", res)
	assert.Equal(t, "Livro devolvido com 2 dia(s) de atraso.", res.Notice)

	res = r.Call(ctx, UserLoans, []byte(`{"nome_usuario":"Ana"}`))
	require.True(t, res.OK())
	assert.Equal(t, "Usuário 'Ana Souza' não possui empréstimos ativos.", res.Message)

	res = r.Call(ctx, SearchBook, []byte(`{}`))
	assert.Equal(t, "invalid_query", res.ErrorKind)
}
