package main

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
	"github.com/chacrab/chacrab/pkg/vault"
)

const (
	revealClearDelay    = 10 * time.Second
	clipboardClearDelay = 15 * time.Second
)

// resolveItemID accepts a full UUID or a unique prefix of one.
func resolveItemID(ctx context.Context, env *appEnv, input string) (uuid.UUID, error) {
	if id, err := uuid.Parse(input); err == nil {
		return id, nil
	}

	items, err := env.vault.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var matches []uuid.UUID
	for _, item := range items {
		if len(input) > 0 && len(input) <= len(item.ID.String()) &&
			item.ID.String()[:len(input)] == input {
			matches = append(matches, item.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, errdefs.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, errdefs.Config("ambiguous item id prefix")
	}
}

// resolveItemByLabel finds the single item whose title matches label.
func resolveItemByLabel(ctx context.Context, env *appEnv, label string) (uuid.UUID, error) {
	items, err := env.vault.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}

	var matches []uuid.UUID
	for _, item := range items {
		if item.Title == label {
			matches = append(matches, item.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, errdefs.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, errdefs.Config("ambiguous item label")
	}
}

var addPasswordCmd = &cobra.Command{
	Use:   "add-password",
	Short: "Store a new credential",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		title, err := promptInput("Title")
		if err != nil {
			return err
		}
		username, err := promptOptionalInput("Username/Email")
		if err != nil {
			return err
		}
		url, err := promptOptionalInput("URL")
		if err != nil {
			return err
		}
		password, err := promptPassword("Password")
		if err != nil {
			return err
		}
		notes, err := promptOptionalInput("Notes")
		if err != nil {
			return err
		}

		item, err := env.vault.AddPassword(cmd.Context(), vault.AddPasswordParams{
			Title:    title,
			Username: username,
			URL:      url,
			Password: password,
			Notes:    notes,
		}, key)
		if err != nil {
			return err
		}
		env.touchSession()

		env.out.success("Credential stored securely.")
		env.out.systemf("ID: %s", shortID(item.ID.String()))
		return nil
	}),
}

var addNoteCmd = &cobra.Command{
	Use:   "add-note",
	Short: "Store a new secure note",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		title, err := promptInput("Title")
		if err != nil {
			return err
		}
		notes, err := promptInput("Content")
		if err != nil {
			return err
		}

		item, err := env.vault.AddNote(cmd.Context(), title, notes, key)
		if err != nil {
			return err
		}
		env.touchSession()

		env.out.success("Secure note stored.")
		env.out.systemf("ID: %s", shortID(item.ID.String()))
		return nil
	}),
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List vault items",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		if err := env.requireSession(); err != nil {
			return err
		}

		items, err := env.vault.List(cmd.Context())
		if err != nil {
			return err
		}
		env.touchSession()

		printItemTable(env.out, items)
		return nil
	}),
}

func printItemTable(out *ui, items []types.VaultItem) {
	if out.json {
		for _, item := range items {
			out.systemf("%s %s %s %s",
				shortID(item.ID.String()), item.Type, item.Title,
				item.UpdatedAt.Format("2006-01-02"))
		}
		return
	}
	out.system("ID        TYPE       TITLE                UPDATED")
	out.system("------------------------------------------------------")
	for _, item := range items {
		out.systemf("%-8s  %-9s  %-20s  %s",
			shortID(item.ID.String()),
			item.Type,
			truncate(item.Title, 20),
			item.UpdatedAt.Format("2006-01-02"))
	}
}

func truncate(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	return string(runes[:max-1]) + "…"
}

var showCmd = &cobra.Command{
	Use:   "show <id-or-prefix>",
	Short: "Show a decrypted item",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		id, err := resolveItemID(cmd.Context(), env, args[0])
		if err != nil {
			return err
		}

		item, payload, err := env.vault.ShowDecrypted(cmd.Context(), id, key)
		if err != nil {
			return err
		}
		env.touchSession()

		env.out.systemf("Title: %s", item.Title)
		env.out.systemf("Username: %s", optionalDisplay(item.Username))
		env.out.systemf("URL: %s", optionalDisplay(item.URL))
		if item.Type == types.ItemTypePassword {
			env.out.system("Password: ********")
		}
		if notes, ok := payload["notes"].(string); ok && item.Type == types.ItemTypeNote {
			env.out.systemf("Notes: %s", notes)
		}

		reveal, _ := cmd.Flags().GetBool("reveal")
		copyToClipboard, _ := cmd.Flags().GetBool("copy")
		if !reveal && !copyToClipboard {
			return nil
		}

		if insecureTerminal() {
			env.out.warning("Sensitive actions are blocked on insecure terminal output.")
			return nil
		}

		password, _ := payload["password"].(string)
		if password == "" {
			env.out.warning("No password stored for this item.")
			return nil
		}

		if reveal {
			env.out.systemf("Password: %s", password)
			env.out.warningf("Password will clear in %d seconds.", int(revealClearDelay.Seconds()))
			time.Sleep(revealClearDelay)
			clearScreen()
			env.out.system("Password view cleared.")
		}
		if copyToClipboard {
			if err := clipboard.WriteAll(password); err != nil {
				return errdefs.Config("clipboard unavailable")
			}
			env.out.successf("Password copied. Clearing clipboard in %d seconds.", int(clipboardClearDelay.Seconds()))
			time.Sleep(clipboardClearDelay)
			_ = clipboard.WriteAll("")
			env.out.system("Clipboard cleared.")
		}
		return nil
	}),
}

func optionalDisplay(value *string) string {
	if value == nil || *value == "" {
		return "-"
	}
	return *value
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id-or-prefix>",
	Short: "Delete an item permanently",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		if err := env.requireSession(); err != nil {
			return err
		}

		id, err := resolveItemID(cmd.Context(), env, args[0])
		if err != nil {
			return err
		}
		item, err := env.repo.GetItem(cmd.Context(), id)
		if err != nil {
			return err
		}

		env.out.warning("Are you sure you want to delete this item?")
		typed, err := promptInput("Type the title to confirm")
		if err != nil {
			return err
		}
		if typed != item.Title {
			return errdefs.Config("confirmation text did not match title")
		}

		if err := env.vault.Delete(cmd.Context(), id); err != nil {
			return err
		}
		env.touchSession()
		env.out.success("Item deleted permanently.")
		return nil
	}),
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update an existing item",
}

var updatePasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Update a stored credential",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		id, err := updateTargetID(cmd, env)
		if err != nil {
			return err
		}

		params := vault.UpdatePasswordParams{}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			params.Title = &title
		}
		if cmd.Flags().Changed("username") {
			username, _ := cmd.Flags().GetString("username")
			params.Username = &username
		}
		if cmd.Flags().Changed("url") {
			url, _ := cmd.Flags().GetString("url")
			params.URL = &url
		}
		if newPassword, _ := cmd.Flags().GetBool("password"); newPassword {
			password, err := promptPassword("New password")
			if err != nil {
				return err
			}
			params.Password = &password
		}
		if clearNotes, _ := cmd.Flags().GetBool("clear-notes"); clearNotes {
			params.NotesSet = true
		} else if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			params.Notes = &notes
			params.NotesSet = true
		}

		item, err := env.vault.UpdatePassword(cmd.Context(), id, params, key)
		if err != nil {
			return err
		}
		env.touchSession()

		env.out.success("Credential updated.")
		env.out.systemf("ID: %s (v%d)", shortID(item.ID.String()), item.SyncVersion)
		return nil
	}),
}

var updateNoteCmd = &cobra.Command{
	Use:   "secret-notes",
	Short: "Update a secure note",
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		id, err := updateTargetID(cmd, env)
		if err != nil {
			return err
		}

		params := vault.UpdateNoteParams{}
		if cmd.Flags().Changed("title") {
			title, _ := cmd.Flags().GetString("title")
			params.Title = &title
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			params.Notes = &notes
		}

		item, err := env.vault.UpdateNote(cmd.Context(), id, params, key)
		if err != nil {
			return err
		}
		env.touchSession()

		env.out.success("Secure note updated.")
		env.out.systemf("ID: %s (v%d)", shortID(item.ID.String()), item.SyncVersion)
		return nil
	}),
}

// updateTargetID resolves the item addressed by --id or --label.
func updateTargetID(cmd *cobra.Command, env *appEnv) (uuid.UUID, error) {
	idInput, _ := cmd.Flags().GetString("id")
	label, _ := cmd.Flags().GetString("label")

	switch {
	case idInput != "" && label != "":
		return uuid.Nil, errdefs.Config("use either --id or --label, not both")
	case idInput != "":
		return resolveItemID(cmd.Context(), env, idInput)
	case label != "":
		return resolveItemByLabel(cmd.Context(), env, label)
	default:
		return uuid.Nil, errdefs.Config("one of --id or --label is required")
	}
}

func init() {
	showCmd.Flags().Bool("reveal", false, "Reveal the password (clears after 10 seconds)")
	showCmd.Flags().Bool("copy", false, "Copy the password to the clipboard (clears after 15 seconds)")

	for _, cmd := range []*cobra.Command{updatePasswordCmd, updateNoteCmd} {
		cmd.Flags().String("id", "", "Item id or unique prefix")
		cmd.Flags().String("label", "", "Item title")
		cmd.Flags().String("title", "", "New title")
		cmd.Flags().String("notes", "", "New notes")
	}
	updatePasswordCmd.Flags().String("username", "", "New username")
	updatePasswordCmd.Flags().String("url", "", "New URL")
	updatePasswordCmd.Flags().Bool("password", false, "Prompt for a new password")
	updatePasswordCmd.Flags().Bool("clear-notes", false, "Remove stored notes")

	updateCmd.AddCommand(updatePasswordCmd)
	updateCmd.AddCommand(updateNoteCmd)
}
