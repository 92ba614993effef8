package sync

import (
	"bytes"
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/storage"
	"github.com/chacrab/chacrab/pkg/types"
)

// Report summarizes one bidirectional reconciliation. Uploaded counts
// applications onto the remote side, Downloaded onto the local side; each id
// contributes at most once per run.
type Report struct {
	Uploaded      int
	Downloaded    int
	Conflicts     int
	ReplayBlocked int
	ConflictIDs   []uuid.UUID
}

// state is the tagged per-side view of an id: a live item or a tombstone,
// never both.
type state struct {
	item      *types.VaultItem
	tombstone *types.SyncTombstone
}

func (s state) empty() bool {
	return s.item == nil && s.tombstone == nil
}

func (s state) version() uint64 {
	if s.tombstone != nil {
		return s.tombstone.SyncVersion
	}
	return s.item.SyncVersion
}

func (s state) timestamp() time.Time {
	if s.tombstone != nil {
		return s.tombstone.DeletedAt
	}
	return s.item.UpdatedAt
}

func (s state) equal(other state) bool {
	if s.tombstone != nil || other.tombstone != nil {
		return s.tombstone.Equal(other.tombstone) && s.item == nil && other.item == nil
	}
	return s.item.Equal(other.item)
}

type side int

const (
	sideLocal side = iota
	sideRemote
)

// Bidirectional reconciles two replicas that share one AuthRecord. The loop
// is idempotent for unchanged inputs: a second run reports all zeroes. It is
// not transactional across replicas; a failed apply leaves earlier
// resolutions committed and a re-run converges.
func Bidirectional(ctx context.Context, local, remote storage.Repository) (Report, error) {
	localStates, localDups, err := snapshot(ctx, local)
	if err != nil {
		return Report{}, err
	}
	remoteStates, remoteDups, err := snapshot(ctx, remote)
	if err != nil {
		return Report{}, err
	}

	// Both snapshots validated before the first write anywhere. A replica
	// holding both an item and a tombstone for one id (a torn delete) is
	// normalized to its folded state first; this is local cleanup, not a
	// transfer, so it does not count toward the report.
	if err := normalize(ctx, local, localStates, localDups); err != nil {
		return Report{}, err
	}
	if err := normalize(ctx, remote, remoteStates, remoteDups); err != nil {
		return Report{}, err
	}

	var report Report
	for _, id := range unionIDs(localStates, remoteStates) {
		localState := localStates[id]
		remoteState := remoteStates[id]

		winner, conflict, replayBlocked := resolve(localState, remoteState)
		if conflict {
			report.Conflicts++
			report.ConflictIDs = append(report.ConflictIDs, id)
		}
		if replayBlocked {
			report.ReplayBlocked++
		}

		switch winner {
		case sideLocal:
			if err := apply(ctx, remote, id, localState); err != nil {
				return report, err
			}
			report.Uploaded++
		case sideRemote:
			if err := apply(ctx, local, id, remoteState); err != nil {
				return report, err
			}
			report.Downloaded++
		}
	}
	return report, nil
}

// snapshot reads one replica and folds items and tombstones into the
// per-id state map. Every item is validated before any write happens
// anywhere; a malformed ciphertext or nonce aborts the whole run. When a
// replica holds both an item and a tombstone for one id, the higher
// sync_version wins for that side, tombstone winning the tie.
func snapshot(ctx context.Context, repo storage.Repository) (map[uuid.UUID]state, map[uuid.UUID]struct{}, error) {
	items, err := repo.ListItems(ctx)
	if err != nil {
		return nil, nil, err
	}
	tombstones, err := repo.ListTombstones(ctx)
	if err != nil {
		return nil, nil, err
	}

	states := make(map[uuid.UUID]state, len(items)+len(tombstones))
	dups := make(map[uuid.UUID]struct{})
	for i := range items {
		item := items[i]
		if !item.Valid() {
			return nil, nil, errdefs.Config("sync rejected invalid encrypted payload")
		}
		states[item.ID] = state{item: &item}
	}
	for i := range tombstones {
		tombstone := tombstones[i]
		existing, ok := states[tombstone.ID]
		if ok {
			dups[tombstone.ID] = struct{}{}
		}
		if !ok || tombstone.SyncVersion >= existing.version() {
			states[tombstone.ID] = state{tombstone: &tombstone}
		}
	}
	return states, dups, nil
}

// normalize restores the at-rest invariant on one replica: for every id that
// held both an item and a tombstone, only the folded winner remains.
func normalize(ctx context.Context, repo storage.Repository, states map[uuid.UUID]state, dups map[uuid.UUID]struct{}) error {
	for id := range dups {
		if states[id].tombstone != nil {
			if err := repo.DeleteItem(ctx, id); err != nil && !errors.Is(err, errdefs.ErrNotFound) {
				return err
			}
		} else {
			if err := repo.DeleteTombstone(ctx, id); err != nil {
				return err
			}
		}
	}
	return nil
}

func unionIDs(local, remote map[uuid.UUID]state) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(local)+len(remote))
	for id := range local {
		seen[id] = struct{}{}
	}
	for id := range remote {
		seen[id] = struct{}{}
	}
	ids := make([]uuid.UUID, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids
}

// resolve decides which side's state wins for one id. A winner of side(-1)
// means no change is needed; it matches neither sideLocal nor sideRemote, so
// the caller applies nothing for it.
func resolve(localState, remoteState state) (winner side, conflict, replayBlocked bool) {
	const noWinner = side(-1)

	switch {
	case localState.empty() && remoteState.empty():
		return noWinner, false, false
	case remoteState.empty():
		return sideLocal, false, false
	case localState.empty():
		return sideRemote, false, false
	}

	if localState.equal(remoteState) {
		return noWinner, false, false
	}

	vL, vR := localState.version(), remoteState.version()
	switch {
	case vR < vL:
		// The remote holds a superseded generation; keeping local is also
		// what blocks replays from a stale-backup peer.
		return sideLocal, true, true
	case vL < vR:
		return sideRemote, true, false
	}

	tL, tR := localState.timestamp(), remoteState.timestamp()
	switch {
	case tL.After(tR):
		return sideLocal, true, false
	case tR.After(tL):
		return sideRemote, true, false
	}

	// Same version, same instant: deterministic tie-breakers.
	localTomb := localState.tombstone != nil
	remoteTomb := remoteState.tombstone != nil
	switch {
	case localTomb && !remoteTomb:
		return sideLocal, true, false
	case remoteTomb && !localTomb:
		return sideRemote, true, false
	case localTomb && remoteTomb:
		return sideLocal, true, false
	}
	if bytes.Compare(localState.item.EncryptedData, remoteState.item.EncryptedData) >= 0 {
		return sideLocal, true, false
	}
	return sideRemote, true, false
}

// apply installs the winning state for id on one replica: an item winner
// replaces any tombstone there, a tombstone winner removes any live item.
func apply(ctx context.Context, repo storage.Repository, id uuid.UUID, winner state) error {
	if winner.tombstone != nil {
		if err := repo.DeleteItem(ctx, id); err != nil && !errors.Is(err, errdefs.ErrNotFound) {
			return err
		}
		return repo.UpsertTombstone(ctx, winner.tombstone)
	}

	if err := repo.UpsertItem(ctx, winner.item); err != nil {
		return err
	}
	return repo.DeleteTombstone(ctx, id)
}
