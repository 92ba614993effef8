package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

// ui renders command output. JSON mode emits one {level, message} object per
// line on stdout (errors to stderr); console mode prints colored lines.
type ui struct {
	json   bool
	quiet  bool
	stdout zerolog.Logger
	stderr zerolog.Logger
}

func newUI(cmd *cobra.Command) *ui {
	jsonOut, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")
	noColor, _ := cmd.Flags().GetBool("no-color")
	if noColor {
		color.NoColor = true
	}
	return &ui{
		json:   jsonOut,
		quiet:  quiet,
		stdout: zerolog.New(os.Stdout),
		stderr: zerolog.New(os.Stderr),
	}
}

func (u *ui) emit(level, message string) {
	if u.quiet {
		return
	}
	if u.json {
		u.stdout.Log().Str("level", level).Str("message", message).Send()
		return
	}
	switch level {
	case "success":
		fmt.Println(color.GreenString(message))
	case "warning":
		fmt.Println(color.YellowString(message))
	case "security":
		fmt.Println(color.CyanString(message))
	default:
		fmt.Println(message)
	}
}

func (u *ui) system(message string) { u.emit("system", message) }

func (u *ui) systemf(format string, args ...any) {
	u.emit("system", fmt.Sprintf(format, args...))
}

func (u *ui) success(message string) { u.emit("success", message) }

func (u *ui) successf(format string, args ...any) {
	u.emit("success", fmt.Sprintf(format, args...))
}

func (u *ui) warning(message string) { u.emit("warning", message) }

func (u *ui) warningf(format string, args ...any) {
	u.emit("warning", fmt.Sprintf(format, args...))
}

func (u *ui) secure(message string) { u.emit("security", message) }

func (u *ui) syncing(message string) { u.emit("sync", message) }

// errorMsg always prints, even in quiet mode, and goes to stderr.
func (u *ui) errorMsg(message string) {
	if u.json {
		u.stderr.Log().Str("level", "error").Str("message", message).Send()
		return
	}
	fmt.Fprintln(os.Stderr, color.RedString(message))
}

// userErrorMessage maps internal errors to user-friendly sentences. Internal
// detail, driver messages included, never reaches the terminal.
func userErrorMessage(err error) string {
	switch {
	case errors.Is(err, errdefs.ErrInvalidCredentials):
		return "Invalid master password."
	case errors.Is(err, errdefs.ErrNoActiveSession):
		return "No active session. Run login first."
	case errors.Is(err, errdefs.ErrSessionExpired):
		return "Session timed out. Please login again."
	case errors.Is(err, errdefs.ErrNotFound):
		return "Item not found."
	case errors.Is(err, errdefs.ErrUnsupportedBackend):
		return "Unsupported backend configuration."
	case errors.Is(err, errdefs.ErrKeyringLocked):
		return "Secure keyring is locked. Unlock your keyring and retry."
	case errors.Is(err, errdefs.ErrKeyringUnavailable):
		return "Secure keyring unavailable. Unlock keyring and retry."
	case errors.Is(err, errdefs.ErrCrypto):
		return "Security operation failed."
	case errors.Is(err, errdefs.ErrSerialization):
		return "Data format error."
	case errors.Is(err, errdefs.ErrStorage):
		return "Storage operation failed."
	case errors.Is(err, errdefs.ErrConfig):
		return configErrorMessage(err.Error())
	default:
		return "Operation failed."
	}
}

func configErrorMessage(raw string) string {
	switch {
	case strings.Contains(raw, "operation cancelled"):
		return "Operation cancelled."
	case strings.Contains(raw, "ambiguous item id prefix"):
		return "Ambiguous ID. Use a longer ID prefix."
	case strings.Contains(raw, "weak master password"):
		return "Weak master password. Use at least 12 chars and 3 of upper/lower/digit/symbol."
	case strings.Contains(raw, "confirmation text did not match title"):
		return "Confirmation text did not match title."
	case strings.Contains(raw, "vault not initialized"):
		return "Vault not initialized. Run init first."
	default:
		return "Invalid configuration or input."
	}
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
