// Package backup implements the portable encrypted export/import format:
// a JSON envelope carrying a nonce, the sealed item snapshot, and an
// integrity checksum verified before decryption.
package backup
