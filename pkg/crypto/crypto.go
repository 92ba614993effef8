package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

const (
	// KeySize is the symmetric key length derived from the master password.
	KeySize = 32
	// NonceSize is the ChaCha20-Poly1305 nonce length.
	NonceSize = chacha20poly1305.NonceSize
	// SaltLen is the raw salt length generated at registration.
	SaltLen = 16
)

// Default Argon2id cost parameters for new vaults. Existing vaults always
// derive with the parameters stored in their AuthRecord.
const (
	DefaultArgon2MCost uint32 = 64 * 1024
	DefaultArgon2TCost uint32 = 3
	DefaultArgon2PCost uint32 = 1
)

// Params are the Argon2id cost parameters of a vault.
type Params struct {
	MCost uint32
	TCost uint32
	PCost uint32
}

// DefaultParams returns the cost parameters used for newly registered vaults.
func DefaultParams() Params {
	return Params{
		MCost: DefaultArgon2MCost,
		TCost: DefaultArgon2TCost,
		PCost: DefaultArgon2PCost,
	}
}

// SealedBox is the output of one authenticated encryption: the ciphertext
// with its Poly1305 tag appended, and the fresh random nonce used.
type SealedBox struct {
	Ciphertext []byte
	Nonce      []byte
}

// RegistrationMaterial is what registration persists into the AuthRecord.
type RegistrationMaterial struct {
	SaltB64  string
	Verifier string
}

// GenerateSalt produces a fresh 16-byte salt, base64 encoded without padding.
func GenerateSalt() (string, error) {
	salt := make([]byte, SaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errdefs.ErrCrypto
	}
	return base64.RawStdEncoding.EncodeToString(salt), nil
}

func decodeSalt(saltB64 string) ([]byte, error) {
	salt, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(saltB64, "="))
	if err != nil || len(salt) < SaltLen {
		return nil, errdefs.ErrInvalidCredentials
	}
	return salt, nil
}

// DeriveKey stretches the master password into the 32-byte vault key using
// Argon2id under the given cost parameters.
func DeriveKey(masterPassword, saltB64 string, params Params) ([]byte, error) {
	salt, err := decodeSalt(saltB64)
	if err != nil {
		return nil, err
	}
	if params.MCost == 0 || params.TCost == 0 || params.PCost == 0 || params.PCost > 255 {
		return nil, errdefs.ErrInvalidCredentials
	}
	key := argon2.IDKey([]byte(masterPassword), salt, params.TCost, params.MCost, uint8(params.PCost), KeySize)
	Wipe(salt)
	return key, nil
}

// NewRegistrationMaterial generates a salt, derives the vault key, and
// computes the PHC verifier. The caller owns the returned key and must wipe
// it when done.
func NewRegistrationMaterial(masterPassword string, params Params) (RegistrationMaterial, []byte, error) {
	saltB64, err := GenerateSalt()
	if err != nil {
		return RegistrationMaterial{}, nil, err
	}
	key, err := DeriveKey(masterPassword, saltB64, params)
	if err != nil {
		return RegistrationMaterial{}, nil, err
	}
	verifier, err := newVerifier(key, saltB64, params)
	if err != nil {
		Wipe(key)
		return RegistrationMaterial{}, nil, err
	}
	return RegistrationMaterial{SaltB64: saltB64, Verifier: verifier}, key, nil
}

// newVerifier hashes the derived key itself with Argon2id under the same
// salt and encodes the result as a PHC string, so a login attempt can be
// confirmed without storing the password or the key.
func newVerifier(key []byte, saltB64 string, params Params) (string, error) {
	salt, err := decodeSalt(saltB64)
	if err != nil {
		return "", errdefs.ErrCrypto
	}
	defer Wipe(salt)
	hash := argon2.IDKey(key, salt, params.TCost, params.MCost, uint8(params.PCost), KeySize)
	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		params.MCost, params.TCost, params.PCost,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

// VerifyPassword re-derives the key from a master-password attempt and
// checks it against the stored verifier in constant time. On success the
// derived key is returned; the caller must wipe it.
func VerifyPassword(masterPassword, saltB64, verifier string, params Params) ([]byte, error) {
	key, err := DeriveKey(masterPassword, saltB64, params)
	if err != nil {
		return nil, err
	}
	if err := verifyKey(key, verifier); err != nil {
		Wipe(key)
		return nil, err
	}
	return key, nil
}

func verifyKey(key []byte, verifier string) error {
	params, salt, hash, err := parseVerifier(verifier)
	if err != nil {
		return errdefs.ErrInvalidCredentials
	}
	defer Wipe(salt)
	computed := argon2.IDKey(key, salt, params.TCost, params.MCost, uint8(params.PCost), uint32(len(hash)))
	defer Wipe(computed)
	if subtle.ConstantTimeCompare(computed, hash) != 1 {
		return errdefs.ErrInvalidCredentials
	}
	return nil
}

func parseVerifier(verifier string) (Params, []byte, []byte, error) {
	parts := strings.Split(verifier, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return Params{}, nil, nil, errdefs.ErrInvalidCredentials
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return Params{}, nil, nil, errdefs.ErrInvalidCredentials
	}

	var params Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &params.MCost, &params.TCost, &params.PCost); err != nil {
		return Params{}, nil, nil, errdefs.ErrInvalidCredentials
	}
	if params.PCost == 0 || params.PCost > 255 {
		return Params{}, nil, nil, errdefs.ErrInvalidCredentials
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return Params{}, nil, nil, errdefs.ErrInvalidCredentials
	}
	hash, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return Params{}, nil, nil, errdefs.ErrInvalidCredentials
	}
	return params, salt, hash, nil
}

// Encrypt seals plaintext under the vault key with a fresh random nonce.
func Encrypt(key, plaintext []byte) (SealedBox, error) {
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return SealedBox{}, errdefs.ErrCrypto
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return SealedBox{}, errdefs.ErrCrypto
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return SealedBox{Ciphertext: ciphertext, Nonce: nonce}, nil
}

// Decrypt opens a sealed box. Any tag mismatch or malformed input fails with
// the coarse crypto error; the failing sub-step is never revealed.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, errdefs.ErrCrypto
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, errdefs.ErrCrypto
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, errdefs.ErrCrypto
	}
	return plaintext, nil
}

// Wipe overwrites a buffer with zero bytes. Call it on every exit path that
// held key material or decrypted plaintext.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
