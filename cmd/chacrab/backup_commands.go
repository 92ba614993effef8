package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/chacrab/chacrab/pkg/backup"
	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
)

var backupExportCmd = &cobra.Command{
	Use:   "backup-export <path>",
	Short: "Export an encrypted backup of all items",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		items, err := env.vault.List(cmd.Context())
		if err != nil {
			return err
		}

		file, err := backup.Export(items, key)
		if err != nil {
			return err
		}

		serialized, err := json.MarshalIndent(&file, "", "  ")
		if err != nil {
			return errdefs.ErrSerialization
		}
		if err := os.WriteFile(args[0], serialized, 0o600); err != nil {
			return errdefs.Storage(err)
		}
		env.touchSession()

		env.out.success("Encrypted backup exported.")
		env.out.systemf("Path: %s", args[0])
		env.out.systemf("Items exported: %d", len(items))
		return nil
	}),
}

var backupImportCmd = &cobra.Command{
	Use:   "backup-import <path>",
	Short: "Import an encrypted backup into the vault",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		key, err := env.requireSessionKey()
		if err != nil {
			return err
		}
		defer crypto.Wipe(key)

		content, err := os.ReadFile(args[0])
		if err != nil {
			return errdefs.Storage(err)
		}

		var file backup.File
		if err := json.Unmarshal(content, &file); err != nil {
			return errdefs.ErrSerialization
		}

		payload, err := backup.Import(&file, key)
		if err != nil {
			return err
		}

		for i := range payload.Items {
			if err := env.repo.UpsertItem(cmd.Context(), &payload.Items[i]); err != nil {
				return err
			}
		}
		env.touchSession()

		env.out.success("Encrypted backup imported.")
		env.out.systemf("Items imported: %d", len(payload.Items))
		return nil
	}),
}
