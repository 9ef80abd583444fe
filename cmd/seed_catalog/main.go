package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"library-assistant/library"
)

// defaultCatalog is the opening collection of the library.
var defaultCatalog = []library.Book{
	{Title: "O Senhor dos Anéis", Author: "J.R.R. Tolkien", Genre: "Fantasia", ISBN: "978-0544003415", TotalCopies: 3, AvailableCopies: 2},
	{Title: "1984", Author: "George Orwell", Genre: "Distopia", ISBN: "978-0452284234", TotalCopies: 2, AvailableCopies: 0},
	{Title: "A Revolução dos Bichos", Author: "George Orwell", Genre: "Distopia", ISBN: "978-8535909555", TotalCopies: 2, AvailableCopies: 2},
	{Title: "Dom Casmurro", Author: "Machado de Assis", Genre: "Romance", ISBN: "978-8525406958", TotalCopies: 4, AvailableCopies: 3},
	{Title: "Memórias Póstumas de Brás Cubas", Author: "Machado de Assis", Genre: "Romance", ISBN: "978-8525406101", TotalCopies: 2, AvailableCopies: 2},
	{Title: "Quincas Borba", Author: "Machado de Assis", Genre: "Romance", ISBN: "978-8525406118", TotalCopies: 1, AvailableCopies: 0},
	{Title: "Harry Potter e a Pedra Filosofal", Author: "J.K. Rowling", Genre: "Fantasia", ISBN: "978-8532511010", TotalCopies: 5, AvailableCopies: 4},
	{Title: "O Pequeno Príncipe", Author: "Antoine de Saint-Exupéry", Genre: "Infantil", ISBN: "978-8595081413", TotalCopies: 6, AvailableCopies: 5},
}

var defaultUsers = []string{"Ana Souza", "Bob Almeida", "Carla Mendes"}

func main() {
	var (
		driver string
		dsn    string
		keep   bool
	)

	cmd := &cobra.Command{
		Use:          "seed_catalog",
		Short:        "Recreate the library database with the default catalog and users",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if driver == library.DriverSQLite && !keep {
				removeSQLiteFiles(dsn)
			}
			return seed(cmd.Context(), driver, dsn)
		},
	}
	cmd.Flags().StringVar(&driver, "driver", library.DriverSQLite, "database driver: sqlite3, postgres or pgx")
	cmd.Flags().StringVar(&dsn, "dsn", "library.db", "database file (sqlite3) or connection string")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep an existing SQLite database and add to it")

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// removeSQLiteFiles cleans up any existing database files.
func removeSQLiteFiles(path string) {
	fmt.Println("Cleaning up existing database files...")
	for _, file := range []string{path, path + "-shm", path + "-wal"} {
		if err := os.Remove(file); err != nil && !os.IsNotExist(err) {
			fmt.Printf("Warning: Could not remove %s: %v\n", file, err)
		}
	}
	fmt.Println("Database cleanup complete.")
}

func seed(ctx context.Context, driver, dsn string) error {
	db, err := library.OpenDatabase(driver, dsn)
	if err != nil {
		return fmt.Errorf("error creating database: %w", err)
	}
	manager, err := library.NewLibraryManagerFromStore(db)
	if err != nil {
		db.Close()
		return err
	}
	defer manager.Close()

	successCount := 0
	errorCount := 0

	for _, book := range defaultCatalog {
		fmt.Printf("Importing: %s by %s... ", book.Title, book.Author)
		id, err := manager.AddBook(ctx, book)
		if err != nil {
			fmt.Printf("ERROR - %v\n", err)
			errorCount++
			continue
		}
		fmt.Printf("SUCCESS (ID: %d)\n", id)
		successCount++
	}

	for _, name := range defaultUsers {
		id, err := manager.AddUser(ctx, name, "")
		if err != nil {
			fmt.Printf("User %s: ERROR - %v\n", name, err)
			errorCount++
			continue
		}
		fmt.Printf("User %s: SUCCESS (ID: %d)\n", name, id)
	}

	fmt.Printf("\nImport complete!\n")
	fmt.Printf("Successfully imported: %d books\n", successCount)
	fmt.Printf("Errors: %d\n", errorCount)

	if successCount > 0 {
		fmt.Println("\nCatalog:")
		books, err := manager.ListBooks(ctx)
		if err != nil {
			return fmt.Errorf("error retrieving books: %w", err)
		}
		fmt.Printf("%-3s %-40s %-28s %s\n", "ID", "Title", "Author", "Copies")
		fmt.Println(strings.Repeat("-", 85))
		for _, book := range books {
			fmt.Printf("%-3d %-40s %-28s %d/%d\n", book.ID, truncateString(book.Title, 40), truncateString(book.Author, 28),
				book.AvailableCopies, book.TotalCopies)
		}
	}
	return nil
}

func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
