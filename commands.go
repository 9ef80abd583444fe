package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"library-assistant/config"
	"library-assistant/library"
	"library-assistant/tools"
)

// report prints the outcome of an operation either with render or, with
// --json, as the result record the tools would return.
func (a *app) report(payload any, err error, render func(w io.Writer)) error {
	if a.jsonOut {
		data, encErr := tools.EncodeResult(library.Outcome(payload, err))
		if encErr != nil {
			return encErr
		}
		fmt.Fprintln(a.out, string(data))
		return patronError(err)
	}
	if err != nil {
		return patronError(err)
	}
	render(a.out)
	return nil
}

// patronError reduces library errors to their patron-facing message.
func patronError(err error) error {
	var libErr *library.Error
	if errors.As(err, &libErr) {
		return errors.New(libErr.Message)
	}
	return err
}

func jsonIndent(v any) ([]byte, error) {
	return jsoniter.ConfigCompatibleWithStandardLibrary.MarshalIndent(v, "", "  ")
}

// readPassword securely reads a password with masking
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		return "", err
	}
	fmt.Println() // Add newline after password input
	return strings.TrimSpace(string(bytePassword)), nil
}

// authenticate asks for the password of the named user when they have one.
// Unknown users pass here so the operation itself reports them.
func (a *app) authenticate(ctx context.Context, name string) error {
	user, err := a.mgr.FindUser(ctx, name)
	if err != nil || !user.HasPassword() {
		return nil
	}
	password, err := readPassword(fmt.Sprintf("Enter password for %s: ", user.Name))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if err := a.mgr.AuthenticateUser(ctx, user.Name, password); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	var q library.BookQuery
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find books by exact title and/or author",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.Search(cmd.Context(), q)
			return a.report(books, err, func(w io.Writer) { printMatches(w, books) })
		},
	}
	cmd.Flags().StringVarP(&q.Title, "title", "t", "", "book title")
	cmd.Flags().StringVarP(&q.Author, "author", "a", "", "author name")
	return cmd
}

func newSuggestCmd(a *app) *cobra.Command {
	var exclude string
	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest books by author or genre",
	}
	cmd.PersistentFlags().StringVarP(&exclude, "exclude", "x", "", "title to leave out of the suggestions")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "author <author>",
			Short: "Books by the same author",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				books, err := a.mgr.SuggestByAuthor(cmd.Context(), args[0], exclude)
				return a.report(books, err, func(w io.Writer) { printMatches(w, books) })
			},
		},
		&cobra.Command{
			Use:   "genre <genre>",
			Short: "Books of the same genre",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				books, err := a.mgr.SuggestByGenre(cmd.Context(), args[0], exclude)
				return a.report(books, err, func(w io.Writer) { printMatches(w, books) })
			},
		},
	)
	return cmd
}

func newBorrowCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "borrow <title> <user>",
		Short: "Lend a copy of a book to a user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context(), args[1]); err != nil {
				return err
			}
			conf, err := a.mgr.Borrow(cmd.Context(), args[0], args[1], days)
			return a.report(conf, err, func(w io.Writer) { printConfirmation(w, conf) })
		},
	}
	cmd.Flags().IntVarP(&days, "days", "d", 0, "loan duration in days (default from config)")
	return cmd
}

func newReturnCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "return <title> <user>",
		Short: "Return a borrowed book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.authenticate(cmd.Context(), args[1]); err != nil {
				return err
			}
			receipt, err := a.mgr.Return(cmd.Context(), args[0], args[1])
			return a.report(receipt, err, func(w io.Writer) { printReceipt(w, receipt) })
		},
	}
}

func newLoansCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "loans <user>",
		Short: "Show the active loans of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loans, err := a.mgr.QueryUserLoans(cmd.Context(), args[0])
			return a.report(loans, err, func(w io.Writer) { printUserLoans(w, loans) })
		},
	}
}

func newAvailableCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "available",
		Short: "List the books available for loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.ListAvailable(cmd.Context())
			return a.report(books, err, func(w io.Writer) { printSummaries(w, books) })
		},
	}
}

func newBooksCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Manage the catalog",
	}

	var book library.Book
	add := &cobra.Command{
		Use:   "add",
		Short: "Add a title to the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			id, err := a.mgr.AddBook(cmd.Context(), book)
			if err != nil {
				return fmt.Errorf("error adding book: %w", err)
			}
			fmt.Fprintf(a.out, "Added book '%s' with ID %d\n", book.Title, id)
			return nil
		},
	}
	f := add.Flags()
	f.StringVarP(&book.Title, "title", "t", "", "book title")
	f.StringVarP(&book.Author, "author", "a", "", "author name")
	f.StringVarP(&book.Genre, "genre", "g", "", "literary genre")
	f.StringVar(&book.ISBN, "isbn", "", "ISBN")
	f.IntVar(&book.TotalCopies, "copies", 1, "total number of copies")
	f.IntVar(&book.AvailableCopies, "available", -1, "copies on the shelf (default all)")
	_ = add.MarkFlagRequired("title")
	_ = add.MarkFlagRequired("author")

	list := &cobra.Command{
		Use:   "list",
		Short: "List the whole catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			books, err := a.mgr.ListBooks(cmd.Context())
			if err != nil {
				return err
			}
			printBooks(a.out, books)
			return nil
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage library users",
	}

	var withPassword bool
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Register a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if withPassword {
				var err error
				password, err = readPassword(fmt.Sprintf("Enter password for %s: ", args[0]))
				if err != nil {
					return fmt.Errorf("error reading password: %w", err)
				}
				if password == "" {
					return errors.New("password cannot be empty")
				}
			}
			id, err := a.mgr.AddUser(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Added user '%s' with ID %d\n", args[0], id)
			return nil
		},
	}
	add.Flags().BoolVarP(&withPassword, "password", "p", false, "prompt for a password")

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			users, err := a.mgr.ListUsers(cmd.Context())
			if err != nil {
				return err
			}
			printUsers(a.out, users)
			return nil
		},
	}

	reset := &cobra.Command{
		Use:   "reset-password <name>",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := a.mgr.FindUser(cmd.Context(), args[0])
			if err != nil {
				return patronError(err)
			}
			password, err := readPassword(fmt.Sprintf("Enter new password for %s (ID: %d): ", user.Name, user.ID))
			if err != nil {
				return fmt.Errorf("error reading password: %w", err)
			}
			if password == "" {
				return errors.New("password cannot be empty")
			}
			if err := a.mgr.ResetPassword(cmd.Context(), user.Name, password); err != nil {
				return fmt.Errorf("error resetting password: %w", err)
			}
			fmt.Fprintf(a.out, "Password successfully reset for %s (ID: %d)\n", user.Name, user.ID)
			return nil
		},
	}

	cmd.AddCommand(add, list, reset)
	return cmd
}

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect and invoke the agent tools",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if a.jsonOut {
				data, err := jsonIndent(a.registry.Declarations())
				if err != nil {
					return err
				}
				fmt.Fprintln(a.out, string(data))
				return nil
			}
			printTools(a.out, a.registry.List())
			return nil
		},
	}

	call := &cobra.Command{
		Use:   "call <tool> [json-args|-]",
		Short: "Invoke a tool with JSON arguments and print its result record",
		Long:  "Invoke a tool with JSON arguments and print its result record. Use - to read the arguments from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := []byte("{}")
			if len(args) == 2 {
				raw = []byte(args[1])
				if args[1] == "-" {
					var err error
					if raw, err = io.ReadAll(cmd.InOrStdin()); err != nil {
						return fmt.Errorf("read arguments: %w", err)
					}
				}
			}
			res := a.registry.Call(cmd.Context(), args[0], raw)
			data, err := tools.EncodeResult(res)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(data))
			if !res.OK() {
				return errors.New(res.ErrorMessage)
			}
			return nil
		},
	}

	cmd.AddCommand(list, call)
	return cmd
}

func newAgentsCmd(a *app) *cobra.Command {
	var validateOnly bool
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Validate and export the agent definitions as JSON",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			set, err := a.agentSet()
			if err != nil {
				return err
			}
			if validateOnly {
				if err := set.Validate(a.registry); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "%d agents OK, root %s\n", len(set.Agents), set.Root)
				return nil
			}
			data, err := set.Export(a.registry)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, string(data))
			return nil
		},
	}
	cmd.Flags().BoolVar(&validateOnly, "validate", false, "only validate the definitions")
	return cmd
}

func newConfigCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:         "init [path]",
		Short:       "Write a configuration file with the default settings",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"store": "none"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.DefaultConfigFile
			if len(args) == 1 {
				path = args[0]
			} else if flags.configPath != "" {
				path = flags.configPath
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := config.Default().Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
