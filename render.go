package main

import (
	"fmt"
	"io"
	"strings"

	"library-assistant/library"
	"library-assistant/tools"
)

func printMatches(w io.Writer, books []library.BookMatch) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found.")
		return
	}
	fmt.Fprintf(w, "%-35s %-25s %-10s %s\n", "Title", "Author", "Available", "Copies")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, b := range books {
		fmt.Fprintf(w, "%-35s %-25s %-10s %d\n",
			truncateString(b.Title, 35),
			truncateString(b.Author, 25),
			yesNo(b.Available),
			b.AvailableCopies)
	}
}

func printSummaries(w io.Writer, books []library.BookSummary) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books available for loan.")
		return
	}
	fmt.Fprintf(w, "%-35s %-25s %-16s %s\n", "Title", "Author", "ISBN", "Copies")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, b := range books {
		fmt.Fprintf(w, "%-35s %-25s %-16s %d/%d\n",
			truncateString(b.Title, 35),
			truncateString(b.Author, 25),
			b.ISBN,
			b.AvailableCopies, b.TotalCopies)
	}
}

func printBooks(w io.Writer, books []*library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-5s %-35s %-25s %-15s %-16s %s\n", "ID", "Title", "Author", "Genre", "ISBN", "Copies")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, b := range books {
		fmt.Fprintf(w, "%-5d %-35s %-25s %-15s %-16s %d/%d\n",
			b.ID,
			truncateString(b.Title, 35),
			truncateString(b.Author, 25),
			truncateString(b.Genre, 15),
			b.ISBN,
			b.AvailableCopies, b.TotalCopies)
	}
}

func printUsers(w io.Writer, users []*library.User) {
	if len(users) == 0 {
		fmt.Fprintln(w, "No users registered.")
		return
	}
	fmt.Fprintf(w, "%-5s %-30s %-15s\n", "ID", "Name", "Password Set")
	fmt.Fprintln(w, strings.Repeat("-", 55))
	for _, u := range users {
		fmt.Fprintf(w, "%-5d %-30s %-15s\n", u.ID, truncateString(u.Name, 30), yesNo(u.HasPassword()))
	}
}

func printConfirmation(w io.Writer, c *library.LoanConfirmation) {
	fmt.Fprintf(w, "%s\n", c.Message())
	fmt.Fprintf(w, "Book '%s' lent to %s on %s, due back %s (%d days).\n",
		c.Title, c.User, c.LoanDate, c.DueDate, c.Days)
}

func printReceipt(w io.Writer, r *library.Receipt) {
	fmt.Fprintf(w, "%s\n", r.Message())
	fmt.Fprintf(w, "Book '%s' returned by %s on %s (due %s).\n", r.Title, r.User, r.ReturnedAt, r.DueDate)
	if r.Late() {
		fmt.Fprintln(w, r.Notice())
	}
}

func printUserLoans(w io.Writer, u *library.UserLoans) {
	if len(u.Loans) == 0 {
		fmt.Fprintln(w, u.Message())
		return
	}
	fmt.Fprintf(w, "Active loans of %s:\n", u.User)
	fmt.Fprintf(w, "%-35s %-12s %-12s %-8s %s\n", "Title", "Loaned", "Due", "Days", "Status")
	fmt.Fprintln(w, strings.Repeat("-", 85))
	for _, l := range u.Loans {
		fmt.Fprintf(w, "%-35s %-12s %-12s %-8d %s\n",
			truncateString(l.Title, 35), l.LoanDate, l.DueDate, l.DaysRemaining, l.Status)
	}
}

func printTools(w io.Writer, list []*tools.Tool) {
	fmt.Fprintf(w, "%-32s %s\n", "Tool", "Description")
	fmt.Fprintln(w, strings.Repeat("-", 100))
	for _, t := range list {
		fmt.Fprintf(w, "%-32s %s\n", t.Name, t.Description)
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func truncateString(s string, maxLength int) string {
	r := []rune(s)
	if len(r) <= maxLength {
		return s
	}
	return string(r[:maxLength-3]) + "..."
}
