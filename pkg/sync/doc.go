/*
Package sync reconciles two vault replicas that hold the same authentication
material.

Each run snapshots items and tombstones on both sides, folds them into one
state per id per side, and resolves every id in the union: higher
sync_version wins, then the later timestamp, then deterministic tie-breakers
(tombstone over item, lexicographically greater ciphertext between items,
local between tombstones). A remote state at a lower version than one the
local replica has already observed is never accepted; it is counted as
replay-blocked, which stops a peer restored from a stale backup from rolling
current state back.

Applications happen one id at a time with no cross-replica transaction. A
storage failure mid-run leaves the already-applied resolutions committed;
re-running converges because the algorithm is idempotent on unchanged input.
*/
package sync
