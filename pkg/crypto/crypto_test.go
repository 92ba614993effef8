package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chacrab/chacrab/pkg/errdefs"
)

func TestDeriveAndVerifyPasswordRoundtrip(t *testing.T) {
	material, derived, err := NewRegistrationMaterial("MasterPass12!", DefaultParams())
	require.NoError(t, err)
	require.Len(t, derived, KeySize)

	verified, err := VerifyPassword("MasterPass12!", material.SaltB64, material.Verifier, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, derived, verified)
}

func TestVerifyRejectsWrongPassword(t *testing.T) {
	material, _, err := NewRegistrationMaterial("MasterPass12!", DefaultParams())
	require.NoError(t, err)

	_, err = VerifyPassword("WrongPass12!", material.SaltB64, material.Verifier, DefaultParams())
	assert.ErrorIs(t, err, errdefs.ErrInvalidCredentials)
}

func TestVerifyHonorsParamsInVerifier(t *testing.T) {
	custom := Params{MCost: 32 * 1024, TCost: 4, PCost: 1}
	material, derived, err := NewRegistrationMaterial("MasterPass12!", custom)
	require.NoError(t, err)

	verified, err := VerifyPassword("MasterPass12!", material.SaltB64, material.Verifier, custom)
	require.NoError(t, err)
	assert.Equal(t, derived, verified)
}

func TestDeriveKeyRejectsBadSalt(t *testing.T) {
	tests := []struct {
		name string
		salt string
	}{
		{name: "not base64", salt: "!!!not-base64!!!"},
		{name: "too short", salt: "c2hvcnQ"},
		{name: "empty", salt: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeriveKey("MasterPass12!", tt.salt, DefaultParams())
			assert.ErrorIs(t, err, errdefs.ErrInvalidCredentials)
		})
	}
}

func TestEncryptDecryptRoundtrip(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key, err := DeriveKey("MasterPass12!", salt, DefaultParams())
	require.NoError(t, err)

	plaintext := []byte("top secret payload")
	box, err := Encrypt(key, plaintext)
	require.NoError(t, err)
	assert.Len(t, box.Nonce, NonceSize)
	assert.NotEmpty(t, box.Ciphertext)

	decrypted, err := Decrypt(key, box.Nonce, box.Ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptionUsesRandomNonce(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key, err := DeriveKey("MasterPass12!", salt, DefaultParams())
	require.NoError(t, err)

	first, err := Encrypt(key, []byte("same plaintext"))
	require.NoError(t, err)
	second, err := Encrypt(key, []byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Nonce, second.Nonce)
	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key, err := DeriveKey("MasterPass12!", salt, DefaultParams())
	require.NoError(t, err)

	box, err := Encrypt(key, []byte("payload"))
	require.NoError(t, err)

	box.Ciphertext[0] ^= 0xff
	_, err = Decrypt(key, box.Nonce, box.Ciphertext)
	assert.ErrorIs(t, err, errdefs.ErrCrypto)
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key, err := DeriveKey("MasterPass12!", salt, DefaultParams())
	require.NoError(t, err)
	other, err := DeriveKey("OtherPass34?", salt, DefaultParams())
	require.NoError(t, err)

	box, err := Encrypt(key, []byte("payload"))
	require.NoError(t, err)

	_, err = Decrypt(other, box.Nonce, box.Ciphertext)
	assert.ErrorIs(t, err, errdefs.ErrCrypto)
}

func TestDecryptRejectsShortNonce(t *testing.T) {
	key := make([]byte, KeySize)
	_, err := Decrypt(key, []byte{1, 2, 3, 4, 5}, []byte("whatever"))
	assert.ErrorIs(t, err, errdefs.ErrCrypto)
}

func TestWipeZeroesBuffer(t *testing.T) {
	buf := []byte{1, 2, 3, 4}
	Wipe(buf)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf)
}
