package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/chacrab/chacrab/pkg/auth"
	"github.com/chacrab/chacrab/pkg/config"
	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/session"
)

// requireSessionKey enforces the idle timeout and loads the session key.
// The caller must wipe the returned key.
func (env *appEnv) requireSessionKey() ([]byte, error) {
	timeout := time.Duration(env.timeoutSecs) * time.Second
	if err := session.EnforceTimeout(env.sessions, timeout, time.Now().UTC()); err != nil {
		return nil, err
	}
	return auth.SessionKey(env.sessions)
}

// requireSession is requireSessionKey for operations that never use the key
// itself; the loaded copy is wiped immediately.
func (env *appEnv) requireSession() error {
	key, err := env.requireSessionKey()
	if err != nil {
		return err
	}
	crypto.Wipe(key)
	return nil
}

func (env *appEnv) touchSession() {
	_ = env.sessions.TouchActivity(time.Now().UTC())
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new vault with a master password",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		env.out.secure("Create master password:")
		password, err := promptPasswordWithConfirmation("Master password", "Confirm master password")
		if err != nil {
			return err
		}
		if err := auth.ValidateMasterPassword(password); err != nil {
			return err
		}

		env.out.warning("This password cannot be recovered.")
		proceed, err := promptConfirm("Proceed?")
		if err != nil {
			return err
		}
		if !proceed {
			return errdefs.Config("operation cancelled")
		}

		if err := auth.Register(cmd.Context(), env.repo, password); err != nil {
			return err
		}

		vaultID := "local"
		if record, err := env.repo.GetAuthRecord(cmd.Context()); err == nil && record != nil {
			vaultID = shortID(record.Salt)
		}

		env.out.success("Vault initialized successfully.")
		env.out.systemf("Vault ID: %s", vaultID)
		env.out.systemf("Storage: %s", backendDisplay(env.backend))

		return config.Save(&config.Runtime{
			Backend:     env.backend,
			DatabaseURL: env.databaseURL,
		})
	}),
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Unlock the vault for this session",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		env.out.secure("Enter master password:")
		password, err := promptPassword("Master password")
		if err != nil {
			return err
		}
		if err := auth.Login(cmd.Context(), env.repo, env.sessions, password); err != nil {
			return err
		}
		env.touchSession()
		env.out.success("Login successful.")
		env.out.system("Session: active")
		return nil
	}),
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Lock the vault and clear the session",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		env.out.secure("Terminating session...")
		if err := auth.Logout(env.sessions); err != nil {
			return err
		}
		env.out.success("Vault locked.")
		return nil
	}),
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		env.out.systemf("Backend: %s", backendDisplay(env.backend))
		env.out.systemf("Database URL: %s", env.databaseURL)
		env.out.systemf("Session timeout (sec): %d", env.timeoutSecs)
		return nil
	}),
}

func backendDisplay(backend string) string {
	switch backend {
	case "sqlite":
		return "SQLite (local)"
	case "postgres":
		return "PostgreSQL"
	case "mongo":
		return "MongoDB"
	default:
		return "Unsupported"
	}
}
