package main

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"library-assistant/library"
)

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Interactive library prompt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.runShell(cmd.Context(), bufio.NewScanner(cmd.InOrStdin()))
			return nil
		},
	}
}

func (a *app) runShell(ctx context.Context, sc *bufio.Scanner) {
	fmt.Fprintln(a.out, "Welcome to the Library Assistant!")
	printShellHelp(a)

	for {
		fmt.Fprint(a.out, "\n> ")
		if !sc.Scan() {
			break
		}
		cmd := strings.TrimSpace(sc.Text())

		switch cmd {
		case "search book":
			a.handleSearch(ctx, sc)
		case "suggest author":
			a.handleSuggest(ctx, sc, "Author: ", a.mgr.SuggestByAuthor)
		case "suggest genre":
			a.handleSuggest(ctx, sc, "Genre: ", a.mgr.SuggestByGenre)
		case "borrow":
			a.handleBorrow(ctx, sc)
		case "return":
			a.handleReturn(ctx, sc)
		case "loans":
			a.handleLoans(ctx, sc)
		case "available":
			a.handleAvailable(ctx)
		case "add book":
			a.handleAddBook(ctx, sc)
		case "list books":
			a.handleListBooks(ctx)
		case "add user":
			a.handleAddUser(ctx, sc)
		case "list users":
			a.handleListUsers(ctx)
		case "reset password":
			a.handleResetPassword(ctx, sc)
		case "tools":
			printTools(a.out, a.registry.List())
		case "call tool":
			a.handleCallTool(ctx, sc)
		case "help":
			printShellHelp(a)
		case "exit", "quit":
			fmt.Fprintln(a.out, "Goodbye!")
			return
		case "":
		default:
			fmt.Fprintln(a.out, "Unknown command. Type 'help' to see the available commands.")
		}
	}
}

func printShellHelp(a *app) {
	fmt.Fprintln(a.out, "Available commands:")
	fmt.Fprintln(a.out, "  Catalog: search book, suggest author, suggest genre, available, add book, list books")
	fmt.Fprintln(a.out, "  Users: add user, list users, reset password")
	fmt.Fprintln(a.out, "  Circulation: borrow, return, loans")
	fmt.Fprintln(a.out, "  Agent tools: tools, call tool")
	fmt.Fprintln(a.out, "  System: help, exit")
}

// ask prints prompt and returns the trimmed answer; ok is false at end of input.
func (a *app) ask(sc *bufio.Scanner, prompt string) (string, bool) {
	fmt.Fprint(a.out, prompt)
	if !sc.Scan() {
		return "", false
	}
	return strings.TrimSpace(sc.Text()), true
}

func (a *app) handleSearch(ctx context.Context, sc *bufio.Scanner) {
	title, ok := a.ask(sc, "Title (optional): ")
	if !ok {
		return
	}
	author, ok := a.ask(sc, "Author (optional): ")
	if !ok {
		return
	}
	books, err := a.mgr.Search(ctx, library.BookQuery{Title: title, Author: author})
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", patronError(err))
		return
	}
	printMatches(a.out, books)
}

func (a *app) handleSuggest(ctx context.Context, sc *bufio.Scanner, prompt string,
	suggest func(ctx context.Context, key, exclude string) ([]library.BookMatch, error)) {
	key, ok := a.ask(sc, prompt)
	if !ok {
		return
	}
	exclude, ok := a.ask(sc, "Title to leave out (optional): ")
	if !ok {
		return
	}
	books, err := suggest(ctx, key, exclude)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", patronError(err))
		return
	}
	printMatches(a.out, books)
}

func (a *app) handleBorrow(ctx context.Context, sc *bufio.Scanner) {
	title, ok := a.ask(sc, "Book title: ")
	if !ok {
		return
	}
	user, ok := a.ask(sc, "User name: ")
	if !ok {
		return
	}
	daysStr, ok := a.ask(sc, fmt.Sprintf("Days (Enter for %d): ", a.mgr.DefaultLoanDays()))
	if !ok {
		return
	}
	days := 0
	if daysStr != "" {
		n, err := strconv.Atoi(daysStr)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid number of days: %s\n", daysStr)
			return
		}
		days = n
	}

	// Authenticate the user
	if err := a.authenticate(ctx, user); err != nil {
		fmt.Fprintf(a.out, "%v\n", err)
		return
	}

	conf, err := a.mgr.Borrow(ctx, title, user, days)
	if err != nil {
		fmt.Fprintf(a.out, "Error borrowing book: %v\n", patronError(err))
		return
	}
	printConfirmation(a.out, conf)
}

func (a *app) handleReturn(ctx context.Context, sc *bufio.Scanner) {
	title, ok := a.ask(sc, "Book title: ")
	if !ok {
		return
	}
	user, ok := a.ask(sc, "User name: ")
	if !ok {
		return
	}

	// Authenticate the user
	if err := a.authenticate(ctx, user); err != nil {
		fmt.Fprintf(a.out, "%v\n", err)
		return
	}

	receipt, err := a.mgr.Return(ctx, title, user)
	if err != nil {
		fmt.Fprintf(a.out, "Error returning book: %v\n", patronError(err))
		return
	}
	printReceipt(a.out, receipt)
}

func (a *app) handleLoans(ctx context.Context, sc *bufio.Scanner) {
	user, ok := a.ask(sc, "User name: ")
	if !ok {
		return
	}
	loans, err := a.mgr.QueryUserLoans(ctx, user)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", patronError(err))
		return
	}
	printUserLoans(a.out, loans)
}

func (a *app) handleAvailable(ctx context.Context) {
	books, err := a.mgr.ListAvailable(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", patronError(err))
		return
	}
	printSummaries(a.out, books)
}

func (a *app) handleAddBook(ctx context.Context, sc *bufio.Scanner) {
	var book library.Book
	var ok bool
	if book.Title, ok = a.ask(sc, "Title: "); !ok {
		return
	}
	if book.Author, ok = a.ask(sc, "Author: "); !ok {
		return
	}
	if book.Genre, ok = a.ask(sc, "Genre: "); !ok {
		return
	}
	if book.ISBN, ok = a.ask(sc, "ISBN: "); !ok {
		return
	}
	copiesStr, ok := a.ask(sc, "Copies (Enter for 1): ")
	if !ok {
		return
	}
	book.TotalCopies = 1
	if copiesStr != "" {
		n, err := strconv.Atoi(copiesStr)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid number of copies: %s\n", copiesStr)
			return
		}
		book.TotalCopies = n
	}
	book.AvailableCopies = -1

	id, err := a.mgr.AddBook(ctx, book)
	if err != nil {
		fmt.Fprintf(a.out, "Error adding book: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Added book '%s' with ID %d\n", book.Title, id)
}

func (a *app) handleListBooks(ctx context.Context) {
	books, err := a.mgr.ListBooks(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printBooks(a.out, books)
}

func (a *app) handleAddUser(ctx context.Context, sc *bufio.Scanner) {
	name, ok := a.ask(sc, "Name: ")
	if !ok {
		return
	}

	password, err := readPassword(fmt.Sprintf("Enter password for %s (Enter for none): ", name))
	if err != nil {
		fmt.Fprintf(a.out, "Error reading password: %v\n", err)
		return
	}

	id, err := a.mgr.AddUser(ctx, name, password)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Added user '%s' with ID %d\n", name, id)
}

func (a *app) handleListUsers(ctx context.Context) {
	users, err := a.mgr.ListUsers(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	printUsers(a.out, users)
}

func (a *app) handleResetPassword(ctx context.Context, sc *bufio.Scanner) {
	name, ok := a.ask(sc, "User name: ")
	if !ok {
		return
	}

	// Verify the user exists and get their full name
	user, err := a.mgr.FindUser(ctx, name)
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", patronError(err))
		return
	}

	newPassword, err := readPassword(fmt.Sprintf("Enter new password for %s (ID: %d): ", user.Name, user.ID))
	if err != nil {
		fmt.Fprintf(a.out, "Error reading password: %v\n", err)
		return
	}
	if newPassword == "" {
		fmt.Fprintln(a.out, "Error: Password cannot be empty")
		return
	}

	if err := a.mgr.ResetPassword(ctx, user.Name, newPassword); err != nil {
		fmt.Fprintf(a.out, "Error resetting password: %v\n", err)
		return
	}
	fmt.Fprintf(a.out, "Password successfully reset for %s (ID: %d)\n", user.Name, user.ID)
}

func (a *app) handleCallTool(ctx context.Context, sc *bufio.Scanner) {
	name, ok := a.ask(sc, "Tool: ")
	if !ok {
		return
	}
	args, ok := a.ask(sc, "Arguments (JSON, Enter for none): ")
	if !ok {
		return
	}
	data, err := a.registry.CallJSON(ctx, name, []byte(args))
	if err != nil {
		fmt.Fprintf(a.out, "Error: %v\n", err)
		return
	}
	fmt.Fprintln(a.out, string(data))
}
