package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Supported database/sql driver names.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverPGX      = "pgx"
)

const (
	dialectSQLite   = "sqlite3"
	dialectPostgres = "postgres"

	tableBooks = "livros"
	tableUsers = "usuarios"
	tableLoans = "emprestimos"

	// Timestamps are stored as UTC strings so they sort lexicographically.
	timestampLayout = "2006-01-02 15:04:05"

	pgUniqueViolation = "23505"

	// sqliteDriver is sqlite3 with a Unicode-aware lower(). SQLite's own
	// LOWER folds ASCII only.
	sqliteDriver = "sqlite3_library"
)

func init() {
	sql.Register(sqliteDriver, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("lower", strings.ToLower, true)
		},
	})
	sqlx.BindDriver(sqliteDriver, sqlx.QUESTION)
}

var (
	bookColumns = []any{"id", "titulo", "autor", "genero", "isbn", "exemplares_total", "exemplares_disponiveis", "disponibilidade"}
	userColumns = []any{"id", "nome", "senha_hash"}
	loanColumns = []any{"id", "id_usuario", "id_livro", "data_emprestimo", "data_devolucao", "devolvido", "data_devolucao_real"}
)

// Database is the SQL implementation of Store. It runs on SQLite or
// PostgreSQL; queries are built per dialect with goqu.
type Database struct {
	queries
	db *sqlx.DB
}

var (
	_ Store = (*Database)(nil)
	_ Tx    = queries{}
)

// NewDatabase opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewDatabase(dbPath string) (*Database, error) {
	return OpenDatabase(DriverSQLite, dbPath)
}

// OpenDatabase connects with the given driver. For SQLite dsn is a file path;
// for PostgreSQL it is a connection string.
func OpenDatabase(driver, dsn string) (*Database, error) {
	var dialect string
	driverName := driver
	switch driver {
	case DriverSQLite:
		// Ensure directory exists so first-run succeeds.
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		// Writers take the database lock at BEGIN, so read-check-write
		// transactions never interleave.
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1&_txlock=immediate", dsn)
		dialect = dialectSQLite
		driverName = sqliteDriver
	case DriverPostgres, DriverPGX:
		dialect = dialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	if err := applyMigrations(db, dialect); err != nil {
		db.Close()
		return nil, err
	}

	return &Database{
		queries: queries{q: db, dialect: goqu.Dialect(dialect), dialectName: dialect},
		db:      db,
	}, nil
}

// Close closes the DB.
func (d *Database) Close() error { return d.db.Close() }

// Atomically runs fn inside one database transaction.
func (d *Database) Atomically(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := d.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(queries{q: tx, dialect: d.dialect, dialectName: d.dialectName}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 4

var migrations = map[string][]string{
	dialectSQLite: {
		`CREATE TABLE IF NOT EXISTS usuarios (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            nome TEXT NOT NULL,
            senha_hash TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS livros (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            titulo TEXT NOT NULL,
            autor TEXT NOT NULL,
            genero TEXT NOT NULL DEFAULT '',
            isbn TEXT NOT NULL DEFAULT '',
            exemplares_total INTEGER NOT NULL,
            exemplares_disponiveis INTEGER NOT NULL,
            disponibilidade BOOLEAN NOT NULL DEFAULT 1,
            CHECK (exemplares_disponiveis >= 0 AND exemplares_disponiveis <= exemplares_total),
            CHECK (disponibilidade = (exemplares_disponiveis > 0))
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_livros_titulo ON livros (LOWER(titulo));`,
		`CREATE TABLE IF NOT EXISTS emprestimos (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            id_usuario INTEGER NOT NULL REFERENCES usuarios(id),
            id_livro INTEGER NOT NULL REFERENCES livros(id),
            data_emprestimo TEXT NOT NULL,
            data_devolucao TEXT NOT NULL,
            devolvido BOOLEAN NOT NULL DEFAULT 0,
            data_devolucao_real TEXT,
            CHECK (data_devolucao >= data_emprestimo)
        );`,
		// One active loan per (user, book).
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_emprestimos_ativos
            ON emprestimos (id_usuario, id_livro) WHERE devolvido = 0;`,
		// Rebuild the title index with the Unicode-aware lower().
		`REINDEX idx_livros_titulo;`,
	},
	dialectPostgres: {
		`CREATE TABLE IF NOT EXISTS usuarios (
            id BIGSERIAL PRIMARY KEY,
            nome TEXT NOT NULL,
            senha_hash TEXT NOT NULL DEFAULT ''
        );`,
		`CREATE TABLE IF NOT EXISTS livros (
            id BIGSERIAL PRIMARY KEY,
            titulo TEXT NOT NULL,
            autor TEXT NOT NULL,
            genero TEXT NOT NULL DEFAULT '',
            isbn TEXT NOT NULL DEFAULT '',
            exemplares_total INTEGER NOT NULL,
            exemplares_disponiveis INTEGER NOT NULL,
            disponibilidade BOOLEAN NOT NULL DEFAULT TRUE,
            CHECK (exemplares_disponiveis >= 0 AND exemplares_disponiveis <= exemplares_total),
            CHECK (disponibilidade = (exemplares_disponiveis > 0))
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_livros_titulo ON livros (LOWER(titulo));`,
		`CREATE TABLE IF NOT EXISTS emprestimos (
            id BIGSERIAL PRIMARY KEY,
            id_usuario BIGINT NOT NULL REFERENCES usuarios(id),
            id_livro BIGINT NOT NULL REFERENCES livros(id),
            data_emprestimo TEXT NOT NULL,
            data_devolucao TEXT NOT NULL,
            devolvido BOOLEAN NOT NULL DEFAULT FALSE,
            data_devolucao_real TEXT,
            CHECK (data_devolucao >= data_emprestimo)
        );`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_emprestimos_ativos
            ON emprestimos (id_usuario, id_livro) WHERE NOT devolvido;`,
	},
}

func applyMigrations(db *sqlx.DB, dialect string) error {
	if dialect == dialectSQLite {
		// WAL improves write concurrency.
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return fmt.Errorf("enable WAL: %w", err)
		}
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := append(migrations[dialect], fmt.Sprintf(
		`INSERT INTO meta(key,value) VALUES('schema_version','%d')
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`, schemaVersion))

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Queries shared by the database handle and its transactions
// ---------------------------------------------------------------------------

type queries struct {
	q           sqlx.ExtContext
	dialect     goqu.DialectWrapper
	dialectName string
}

// loanRow is the stored shape of a loan; dates are timestamp strings.
type loanRow struct {
	ID         int64          `db:"id"`
	UserID     int64          `db:"id_usuario"`
	BookID     int64          `db:"id_livro"`
	LoanDate   string         `db:"data_emprestimo"`
	DueDate    string         `db:"data_devolucao"`
	Returned   bool           `db:"devolvido"`
	ReturnedAt sql.NullString `db:"data_devolucao_real"`
	Title      string         `db:"titulo"`
}

func (r *loanRow) loan() (*Loan, error) {
	loanDate, err := parseTimestamp(r.LoanDate)
	if err != nil {
		return nil, fmt.Errorf("loan %d: data_emprestimo: %w", r.ID, err)
	}
	dueDate, err := parseTimestamp(r.DueDate)
	if err != nil {
		return nil, fmt.Errorf("loan %d: data_devolucao: %w", r.ID, err)
	}
	l := &Loan{
		ID:       r.ID,
		UserID:   r.UserID,
		BookID:   r.BookID,
		LoanDate: loanDate,
		DueDate:  dueDate,
		Returned: r.Returned,
	}
	if r.ReturnedAt.Valid {
		at, err := parseTimestamp(r.ReturnedAt.String)
		if err != nil {
			return nil, fmt.Errorf("loan %d: data_devolucao_real: %w", r.ID, err)
		}
		l.ReturnedAt = &at
	}
	return l, nil
}

func formatTimestamp(t time.Time) string { return t.UTC().Format(timestampLayout) }

func parseTimestamp(s string) (time.Time, error) {
	return time.ParseInLocation(timestampLayout, s, time.UTC)
}

// equalFold compares a column and a value with LOWER on both sides.
func equalFold(col, value string) exp.Expression {
	return goqu.Func("LOWER", goqu.C(col)).Eq(goqu.Func("LOWER", value))
}

func (s queries) selectBooks(ctx context.Context, where ...exp.Expression) ([]*Book, error) {
	query, args, err := s.dialect.From(tableBooks).Prepared(true).
		Select(bookColumns...).
		Where(where...).
		Order(goqu.I("titulo").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build book query: %w", err)
	}

	books := []*Book{}
	if err := sqlx.SelectContext(ctx, s.q, &books, query, args...); err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	return books, nil
}

// insertID runs an insert and returns the generated id. PostgreSQL drivers
// don't support LastInsertId, so it uses RETURNING there.
func (s queries) insertID(ctx context.Context, ds *goqu.InsertDataset) (int64, error) {
	if s.dialectName == dialectPostgres {
		query, args, err := ds.Returning("id").ToSQL()
		if err != nil {
			return 0, fmt.Errorf("build insert: %w", err)
		}
		var id int64
		if err := sqlx.GetContext(ctx, s.q, &id, query, args...); err != nil {
			return 0, err
		}
		return id, nil
	}

	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build insert: %w", err)
	}
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s queries) update(ctx context.Context, ds *goqu.UpdateDataset) (int64, error) {
	query, args, err := ds.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build update: %w", err)
	}
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (s queries) FindBookByTitle(ctx context.Context, title string) (*Book, error) {
	books, err := s.selectBooks(ctx, equalFold("titulo", strings.TrimSpace(title)))
	if err != nil {
		return nil, err
	}
	if len(books) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrBookNotFound, title)
	}
	return books[0], nil
}

// SearchBooks ANDs the non-empty fields of q.
func (s queries) SearchBooks(ctx context.Context, q BookQuery) ([]*Book, error) {
	var where []exp.Expression
	if title := strings.TrimSpace(q.Title); title != "" {
		where = append(where, equalFold("titulo", title))
	}
	if author := strings.TrimSpace(q.Author); author != "" {
		where = append(where, equalFold("autor", author))
	}
	if len(where) == 0 {
		return nil, fmt.Errorf("%w: title or author required", ErrInvalidQuery)
	}
	return s.selectBooks(ctx, where...)
}

func (s queries) BooksByAuthor(ctx context.Context, author string) ([]*Book, error) {
	return s.selectBooks(ctx, equalFold("autor", strings.TrimSpace(author)))
}

func (s queries) BooksByGenre(ctx context.Context, genre string) ([]*Book, error) {
	return s.selectBooks(ctx, equalFold("genero", strings.TrimSpace(genre)))
}

func (s queries) AvailableBooks(ctx context.Context) ([]*Book, error) {
	return s.selectBooks(ctx,
		goqu.C("disponibilidade").IsTrue(),
		goqu.C("exemplares_disponiveis").Gt(0),
	)
}

// TakeCopy is a conditional decrement: two transactions racing for the last
// copy cannot both see a positive count when they write.
func (s queries) TakeCopy(ctx context.Context, bookID int64) error {
	n, err := s.update(ctx, s.dialect.Update(tableBooks).Prepared(true).
		Set(goqu.Record{
			"exemplares_disponiveis": goqu.L("exemplares_disponiveis - 1"),
			"disponibilidade":        goqu.L("exemplares_disponiveis - 1 > 0"),
		}).
		Where(goqu.C("id").Eq(bookID), goqu.C("exemplares_disponiveis").Gt(0)))
	if err != nil {
		return fmt.Errorf("take copy of book %d: %w", bookID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: book %d has no copies left", ErrBookUnavailable, bookID)
	}
	return nil
}

func (s queries) PutBackCopy(ctx context.Context, bookID int64) error {
	n, err := s.update(ctx, s.dialect.Update(tableBooks).Prepared(true).
		Set(goqu.Record{
			"exemplares_disponiveis": goqu.L("exemplares_disponiveis + 1"),
			"disponibilidade":        true,
		}).
		Where(goqu.C("id").Eq(bookID), goqu.C("exemplares_disponiveis").Lt(goqu.C("exemplares_total"))))
	if err != nil {
		return fmt.Errorf("put back copy of book %d: %w", bookID, err)
	}
	if n == 0 {
		return fmt.Errorf("book %d already has all copies on the shelf", bookID)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

// UsersByName prefilters in SQL: full name equal, or the name followed by a
// space at the start of the stored name.
func (s queries) UsersByName(ctx context.Context, name string) ([]*User, error) {
	name = strings.TrimSpace(name)
	users := []*User{}
	if name == "" {
		return users, nil
	}

	lowerName := goqu.Func("LOWER", goqu.C("nome"))
	prefix := name + " "
	query, args, err := s.dialect.From(tableUsers).Prepared(true).
		Select(userColumns...).
		Where(goqu.Or(
			lowerName.Eq(goqu.Func("LOWER", name)),
			goqu.Func("SUBSTR", lowerName, 1, utf8.RuneCountInString(prefix)).Eq(goqu.Func("LOWER", prefix)),
		)).
		Order(goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}
	if err := sqlx.SelectContext(ctx, s.q, &users, query, args...); err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return users, nil
}

// ---------------------------------------------------------------------------
// Ledger
// ---------------------------------------------------------------------------

func (s queries) ActiveLoan(ctx context.Context, userID, bookID int64) (*Loan, error) {
	query, args, err := s.dialect.From(tableLoans).Prepared(true).
		Select(loanColumns...).
		Where(
			goqu.C("id_usuario").Eq(userID),
			goqu.C("id_livro").Eq(bookID),
			goqu.C("devolvido").IsFalse(),
		).
		Order(goqu.I("data_emprestimo").Desc(), goqu.I("id").Desc()).
		Limit(1).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loan query: %w", err)
	}

	var row loanRow
	err = sqlx.GetContext(ctx, s.q, &row, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: user %d, book %d", ErrNoActiveLoan, userID, bookID)
	}
	if err != nil {
		return nil, fmt.Errorf("query active loan: %w", err)
	}
	return row.loan()
}

func (s queries) InsertLoan(ctx context.Context, loan *Loan) (*Loan, error) {
	id, err := s.insertID(ctx, s.dialect.Insert(tableLoans).Prepared(true).
		Rows(goqu.Record{
			"id_usuario":      loan.UserID,
			"id_livro":        loan.BookID,
			"data_emprestimo": formatTimestamp(loan.LoanDate),
			"data_devolucao":  formatTimestamp(loan.DueDate),
			"devolvido":       false,
		}))
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("%w: user %d, book %d", ErrDuplicateActiveLoan, loan.UserID, loan.BookID)
	}
	if err != nil {
		return nil, fmt.Errorf("insert loan: %w", err)
	}

	stored := *loan
	stored.ID = id
	stored.LoanDate = loan.LoanDate.UTC().Truncate(time.Second)
	stored.DueDate = loan.DueDate.UTC().Truncate(time.Second)
	return &stored, nil
}

func (s queries) MarkReturned(ctx context.Context, loanID int64, at time.Time) error {
	n, err := s.update(ctx, s.dialect.Update(tableLoans).Prepared(true).
		Set(goqu.Record{
			"devolvido":           true,
			"data_devolucao_real": formatTimestamp(at),
		}).
		Where(goqu.C("id").Eq(loanID), goqu.C("devolvido").IsFalse()))
	if err != nil {
		return fmt.Errorf("mark loan %d returned: %w", loanID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: loan %d", ErrNoActiveLoan, loanID)
	}
	return nil
}

func (s queries) ActiveLoansByUser(ctx context.Context, userID int64) ([]*LedgerEntry, error) {
	query, args, err := s.dialect.From(goqu.T(tableLoans).As("e")).Prepared(true).
		Join(goqu.T(tableBooks).As("l"), goqu.On(goqu.I("l.id").Eq(goqu.I("e.id_livro")))).
		Select(
			goqu.I("e.id").As("id"),
			goqu.I("e.id_usuario").As("id_usuario"),
			goqu.I("e.id_livro").As("id_livro"),
			goqu.I("e.data_emprestimo").As("data_emprestimo"),
			goqu.I("e.data_devolucao").As("data_devolucao"),
			goqu.I("e.devolvido").As("devolvido"),
			goqu.I("e.data_devolucao_real").As("data_devolucao_real"),
			goqu.I("l.titulo").As("titulo"),
		).
		Where(goqu.I("e.id_usuario").Eq(userID), goqu.I("e.devolvido").IsFalse()).
		Order(goqu.I("e.data_devolucao").Asc(), goqu.I("e.id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build loans query: %w", err)
	}

	var rows []loanRow
	if err := sqlx.SelectContext(ctx, s.q, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query loans of user %d: %w", userID, err)
	}

	entries := make([]*LedgerEntry, 0, len(rows))
	for i := range rows {
		l, err := rows[i].loan()
		if err != nil {
			return nil, err
		}
		entries = append(entries, &LedgerEntry{Loan: *l, Title: rows[i].Title})
	}
	return entries, nil
}

// ---------------------------------------------------------------------------
// Provisioning helpers
// ---------------------------------------------------------------------------

// AddBook inserts a new title. Availability is derived from the copy counts.
func (s queries) AddBook(ctx context.Context, book *Book) (int64, error) {
	title := strings.TrimSpace(book.Title)
	if title == "" {
		return 0, fmt.Errorf("%w: title cannot be empty", ErrInvalidQuery)
	}
	if book.AvailableCopies < 0 || book.AvailableCopies > book.TotalCopies {
		return 0, fmt.Errorf("%w: available copies must be between 0 and %d", ErrInvalidQuery, book.TotalCopies)
	}

	id, err := s.insertID(ctx, s.dialect.Insert(tableBooks).Prepared(true).
		Rows(goqu.Record{
			"titulo":                 title,
			"autor":                  strings.TrimSpace(book.Author),
			"genero":                 strings.TrimSpace(book.Genre),
			"isbn":                   strings.TrimSpace(book.ISBN),
			"exemplares_total":       book.TotalCopies,
			"exemplares_disponiveis": book.AvailableCopies,
			"disponibilidade":        book.AvailableCopies > 0,
		}))
	if isUniqueViolation(err) {
		return 0, fmt.Errorf("%w: book %q already exists", ErrInvalidQuery, title)
	}
	if err != nil {
		return 0, fmt.Errorf("insert book: %w", err)
	}
	return id, nil
}

func (s queries) AddUser(ctx context.Context, name, passwordHash string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, fmt.Errorf("%w: name cannot be empty", ErrInvalidQuery)
	}
	id, err := s.insertID(ctx, s.dialect.Insert(tableUsers).Prepared(true).
		Rows(goqu.Record{"nome": name, "senha_hash": passwordHash}))
	if err != nil {
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s queries) SetPasswordHash(ctx context.Context, userID int64, passwordHash string) error {
	n, err := s.update(ctx, s.dialect.Update(tableUsers).Prepared(true).
		Set(goqu.Record{"senha_hash": passwordHash}).
		Where(goqu.C("id").Eq(userID)))
	if err != nil {
		return fmt.Errorf("update password of user %d: %w", userID, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: id %d", ErrUserNotFound, userID)
	}
	return nil
}

// GetAllBooks returns the whole catalog ordered by title.
func (s queries) GetAllBooks(ctx context.Context) ([]*Book, error) {
	return s.selectBooks(ctx)
}

// GetAllUsers returns all users ordered by name.
func (s queries) GetAllUsers(ctx context.Context) ([]*User, error) {
	query, args, err := s.dialect.From(tableUsers).Prepared(true).
		Select(userColumns...).
		Order(goqu.I("nome").Asc(), goqu.I("id").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build user query: %w", err)
	}
	users := []*User{}
	if err := sqlx.SelectContext(ctx, s.q, &users, query, args...); err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	return users, nil
}

// isUniqueViolation recognizes unique-constraint failures from every
// supported driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgUniqueViolation
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return false
}
