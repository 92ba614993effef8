package backup

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/types"
)

// FormatVersion identifies the on-disk backup envelope layout.
const FormatVersion uint32 = 1

// File is the self-describing encrypted backup envelope as written to disk.
type File struct {
	FormatVersion uint32 `json:"format_version"`
	NonceB64      string `json:"nonce_b64"`
	CiphertextB64 string `json:"ciphertext_b64"`
	ChecksumHex   string `json:"checksum_hex"`
}

// Payload is the plaintext inside the envelope. Items keep their stored
// ciphertext, nonces, ids, and sync_versions as-is.
type Payload struct {
	SchemaVersion uint32            `json:"schema_version"`
	ExportedAt    string            `json:"exported_at"`
	Items         []types.VaultItem `json:"items"`
}

// Export seals a snapshot of items under the session key. The checksum is
// the lowercase-hex SHA-256 of nonce followed by ciphertext, so tampering is
// caught before any decryption is attempted on import.
func Export(items []types.VaultItem, key []byte) (File, error) {
	payload := Payload{
		SchemaVersion: FormatVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Items:         items,
	}

	serialized, err := json.Marshal(payload)
	if err != nil {
		return File{}, errdefs.ErrSerialization
	}
	box, err := crypto.Encrypt(key, serialized)
	crypto.Wipe(serialized)
	if err != nil {
		return File{}, err
	}

	return File{
		FormatVersion: FormatVersion,
		NonceB64:      base64.StdEncoding.EncodeToString(box.Nonce),
		CiphertextB64: base64.StdEncoding.EncodeToString(box.Ciphertext),
		ChecksumHex:   checksum(box.Nonce, box.Ciphertext),
	}, nil
}

// Import verifies and decrypts a backup envelope. The caller upserts the
// returned items into the target repository.
func Import(file *File, key []byte) (Payload, error) {
	if file.FormatVersion != FormatVersion {
		return Payload{}, errdefs.Config("unsupported backup format version")
	}

	nonce, err := base64.StdEncoding.DecodeString(file.NonceB64)
	if err != nil || len(nonce) != crypto.NonceSize {
		return Payload{}, errdefs.ErrSerialization
	}
	ciphertext, err := base64.StdEncoding.DecodeString(file.CiphertextB64)
	if err != nil {
		return Payload{}, errdefs.ErrSerialization
	}

	if checksum(nonce, ciphertext) != file.ChecksumHex {
		return Payload{}, errdefs.ErrCrypto
	}

	plaintext, err := crypto.Decrypt(key, nonce, ciphertext)
	if err != nil {
		return Payload{}, err
	}
	defer crypto.Wipe(plaintext)

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return Payload{}, errdefs.ErrSerialization
	}
	return payload, nil
}

func checksum(nonce, ciphertext []byte) string {
	hasher := sha256.New()
	hasher.Write(nonce)
	hasher.Write(ciphertext)
	return hex.EncodeToString(hasher.Sum(nil))
}
