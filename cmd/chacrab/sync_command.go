package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/chacrab/chacrab/pkg/log"
	"github.com/chacrab/chacrab/pkg/storage"
	"github.com/chacrab/chacrab/pkg/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile this vault against the configured sync remote",
	Long: `Bidirectionally reconcile the local vault against the replica named by
CHACRAB_SYNC_BACKEND and CHACRAB_SYNC_DATABASE_URL. Both replicas must have
been initialized with the same master password. Non-local remotes require a
TLS-enabled connection URL and CHACRAB_SYNC_AUTH_TOKEN.`,
	RunE: run(func(cmd *cobra.Command, args []string, env *appEnv) error {
		if err := env.requireSession(); err != nil {
			return err
		}

		remoteCfg, err := sync.RemoteConfigFromEnv()
		if err != nil {
			return err
		}

		env.out.syncing("Syncing encrypted vault...")
		remote, err := storage.Open(cmd.Context(), remoteCfg.Backend, remoteCfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer remote.Close()
		if err := remote.Init(cmd.Context()); err != nil {
			return err
		}

		report, err := sync.Bidirectional(cmd.Context(), env.repo, remote)
		if err != nil {
			return err
		}
		env.touchSession()
		log.WithComponent("sync").Debug().
			Int("uploaded", report.Uploaded).
			Int("downloaded", report.Downloaded).
			Int("conflicts", report.Conflicts).
			Int("replay_blocked", report.ReplayBlocked).
			Msg("reconciliation complete")

		env.out.success("Sync complete.")
		env.out.systemf("Items uploaded: %d", report.Uploaded)
		env.out.systemf("Items downloaded: %d", report.Downloaded)

		if report.Conflicts > 0 {
			ids := make([]string, 0, min(len(report.ConflictIDs), 5))
			for _, id := range report.ConflictIDs {
				if len(ids) == 5 {
					break
				}
				ids = append(ids, shortID(id.String()))
			}
			env.out.warningf("Sync conflicts resolved: %d (%s)",
				report.Conflicts, strings.Join(ids, ", "))
		}
		if report.ReplayBlocked > 0 {
			env.out.warningf("Replay-protection blocks: %d stale remote update(s) ignored",
				report.ReplayBlocked)
		}
		return nil
	}),
}
