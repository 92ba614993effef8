// Package types contains the core data model shared across chacrab
// components: vault items, encrypted payloads, sync tombstones, and the
// per-vault authentication record.
package types
