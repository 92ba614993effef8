package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chacrab/chacrab/pkg/config"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/log"
	"github.com/chacrab/chacrab/pkg/session"
	"github.com/chacrab/chacrab/pkg/storage"
	"github.com/chacrab/chacrab/pkg/vault"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Command bodies already printed a mapped message for vault errors;
		// anything else is a usage error from cobra itself.
		if !isVaultError(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func isVaultError(err error) bool {
	for _, sentinel := range []error{
		errdefs.ErrInvalidCredentials, errdefs.ErrNoActiveSession,
		errdefs.ErrSessionExpired, errdefs.ErrKeyringLocked,
		errdefs.ErrKeyringUnavailable, errdefs.ErrNotFound,
		errdefs.ErrUnsupportedBackend, errdefs.ErrConfig,
		errdefs.ErrCrypto, errdefs.ErrSerialization, errdefs.ErrStorage,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

var rootCmd = &cobra.Command{
	Use:   "chacrab",
	Short: "Chacrab - Local-first encrypted credential vault",
	Long: `Chacrab is a local-first encrypted credential vault with multi-backend
persistence and bidirectional synchronization between replicas.

Item payloads are sealed with a key derived from your master password;
only titles, usernames, URLs, and timestamps are stored in the clear.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Chacrab version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("backend", config.DefaultBackend, "Storage backend (sqlite, postgres, mongo)")
	rootCmd.PersistentFlags().String("database-url", config.DefaultDatabaseURL, "Database connection string")
	rootCmd.PersistentFlags().Bool("json", false, "Emit structured JSON output")
	rootCmd.PersistentFlags().Bool("quiet", false, "Suppress non-error output")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().Uint64("session-timeout-secs", 900, "Idle session timeout in seconds")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(addPasswordCmd)
	rootCmd.AddCommand(addNoteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(backupExportCmd)
	rootCmd.AddCommand(backupImportCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(configCmd)
}

func initLogging() {
	logLevel, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOut, _ := rootCmd.PersistentFlags().GetBool("json")
	noColor, _ := rootCmd.PersistentFlags().GetBool("no-color")

	log.Init(log.Config{
		Level:      log.Level(logLevel),
		JSONOutput: jsonOut,
		NoColor:    noColor,
	})
}

// appEnv bundles what every command needs: the repository, the vault
// service, the session store, output helpers, and the resolved settings.
type appEnv struct {
	repo        storage.Repository
	vault       *vault.Service
	sessions    session.Store
	out         *ui
	backend     string
	databaseURL string
	timeoutSecs uint64
}

// newAppEnv resolves backend settings (explicit flags beat the saved config,
// which beats defaults), opens the repository, and initializes its schema.
func newAppEnv(cmd *cobra.Command) (*appEnv, error) {
	backend, _ := cmd.Flags().GetString("backend")
	databaseURL, _ := cmd.Flags().GetString("database-url")

	if saved, err := config.Load(); err != nil {
		return nil, err
	} else if saved != nil {
		if !cmd.Flags().Changed("backend") {
			backend = saved.Backend
		}
		if !cmd.Flags().Changed("database-url") {
			databaseURL = saved.DatabaseURL
		}
	}

	out := newUI(cmd)
	timeoutSecs, _ := cmd.Flags().GetUint64("session-timeout-secs")

	repo, err := storage.Open(cmd.Context(), backend, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := repo.Init(cmd.Context()); err != nil {
		repo.Close()
		return nil, err
	}
	log.WithBackend(backend).Debug().Msg("repository initialized")

	return &appEnv{
		repo:        repo,
		vault:       vault.New(repo),
		sessions:    session.NewKeyring(),
		out:         out,
		backend:     backend,
		databaseURL: databaseURL,
		timeoutSecs: timeoutSecs,
	}, nil
}

func (env *appEnv) Close() {
	if env.repo != nil {
		env.repo.Close()
	}
}

// run wraps a command body with environment setup and user-facing error
// mapping.
func run(body func(cmd *cobra.Command, args []string, env *appEnv) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		env, err := newAppEnv(cmd)
		if err != nil {
			newUI(cmd).errorMsg(userErrorMessage(err))
			return err
		}
		defer env.Close()

		if err := body(cmd, args, env); err != nil {
			// Internal detail stays on the diagnostic channel; the user sees
			// only the mapped sentence.
			log.WithComponent("cli").Debug().Err(err).Str("command", cmd.Name()).Msg("command failed")
			env.out.errorMsg(userErrorMessage(err))
			return err
		}
		return nil
	}
}
