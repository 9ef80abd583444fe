package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"library-assistant/agents"
	"library-assistant/config"
	"library-assistant/library"
	"library-assistant/tools"
)

// app is the state shared by every command once the store is open.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	mgr      *library.LibraryManager
	registry *tools.Registry
	out      io.Writer
	jsonOut  bool
}

type rootFlags struct {
	configPath string
	driver     string
	dsn        string
	logLevel   string
	jsonOut    bool
}

func main() {
	root, a := newRootCmd(os.Stdout)
	err := root.ExecuteContext(context.Background())
	if closeErr := a.close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. PersistentPostRunE is skipped when a
// command fails, so callers close the returned app after Execute.
func newRootCmd(out io.Writer) (*cobra.Command, *app) {
	var flags rootFlags
	a := &app{out: out}

	root := &cobra.Command{
		Use:           "library",
		Short:         "Library assistant: catalog, loans, suggestions and agent tools",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["store"] == "none" {
				return nil
			}
			return a.open(flags)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVarP(&flags.configPath, "config", "c", "", "config file (default "+config.DefaultConfigFile+" if present)")
	pf.StringVar(&flags.driver, "driver", "", "database driver: sqlite3, postgres or pgx")
	pf.StringVar(&flags.dsn, "dsn", "", "database file (sqlite3) or connection string")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.BoolVar(&flags.jsonOut, "json", false, "print tool result records instead of tables")

	root.AddCommand(
		newSearchCmd(a),
		newSuggestCmd(a),
		newBorrowCmd(a),
		newReturnCmd(a),
		newLoansCmd(a),
		newAvailableCmd(a),
		newBooksCmd(a),
		newUsersCmd(a),
		newToolsCmd(a),
		newAgentsCmd(a),
		newConfigCmd(&flags),
		newShellCmd(a),
	)
	return root, a
}

// open loads the configuration, applies flag overrides and opens the store.
func (a *app) open(flags rootFlags) error {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.driver != "" {
		cfg.Database.Driver = flags.driver
	}
	if flags.dsn != "" {
		cfg.Database.DSN = flags.dsn
	}
	if flags.logLevel != "" {
		cfg.Log.Level = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return err
	}
	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	db, err := library.OpenDatabase(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	mgr, err := library.NewLibraryManagerFromStore(db,
		library.WithLogger(logger),
		library.WithDefaultLoanDays(cfg.Loans.DefaultDays),
		library.WithLocation(loc),
	)
	if err != nil {
		db.Close()
		return err
	}
	registry, err := tools.NewLibraryRegistry(mgr, logger)
	if err != nil {
		mgr.Close()
		return err
	}

	a.cfg, a.logger, a.mgr, a.registry, a.jsonOut = cfg, logger, mgr, registry, flags.jsonOut
	return nil
}

func (a *app) close() error {
	if a.mgr == nil {
		return nil
	}
	err := a.mgr.Close()
	a.mgr = nil
	return err
}

// agentSet returns the configured agent definitions.
func (a *app) agentSet() (*agents.Set, error) {
	if a.cfg != nil && a.cfg.Agents != "" {
		return agents.Load(a.cfg.Agents)
	}
	return agents.Default()
}
