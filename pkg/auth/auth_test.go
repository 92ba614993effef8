package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/session"
	"github.com/chacrab/chacrab/pkg/storage"
	"github.com/chacrab/chacrab/pkg/types"
)

func TestRegisterLoginLogoutLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemory()
	sessions := session.NewMemory()

	require.NoError(t, Register(ctx, repo, "MasterPass12!"))

	record, err := repo.GetAuthRecord(ctx)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, crypto.DefaultArgon2MCost, record.Argon2MCost)

	require.NoError(t, Login(ctx, repo, sessions, "MasterPass12!"))

	key, err := SessionKey(sessions)
	require.NoError(t, err)
	assert.Len(t, key, crypto.KeySize)

	require.NoError(t, Logout(sessions))
	_, err = SessionKey(sessions)
	assert.ErrorIs(t, err, errdefs.ErrNoActiveSession)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemory()
	sessions := session.NewMemory()

	require.NoError(t, Register(ctx, repo, "MasterPass12!"))
	err := Login(ctx, repo, sessions, "WrongPass12!")
	assert.ErrorIs(t, err, errdefs.ErrInvalidCredentials)
}

func TestLoginOnUninitializedVault(t *testing.T) {
	err := Login(context.Background(), storage.NewMemory(), session.NewMemory(), "MasterPass12!")
	assert.ErrorIs(t, err, errdefs.ErrConfig)
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	err := Register(context.Background(), storage.NewMemory(), "weak")
	assert.ErrorIs(t, err, errdefs.ErrConfig)
}

func TestLoginHonorsStoredArgon2Parameters(t *testing.T) {
	ctx := context.Background()
	repo := storage.NewMemory()
	sessions := session.NewMemory()

	custom := crypto.Params{MCost: 32 * 1024, TCost: 4, PCost: 1}
	material, derived, err := crypto.NewRegistrationMaterial("MasterPass12!", custom)
	require.NoError(t, err)

	require.NoError(t, repo.SetAuthRecord(ctx, &types.AuthRecord{
		Salt:        material.SaltB64,
		Verifier:    material.Verifier,
		Argon2MCost: custom.MCost,
		Argon2TCost: custom.TCost,
		Argon2PCost: custom.PCost,
	}))

	require.NoError(t, Login(ctx, repo, sessions, "MasterPass12!"))

	key, err := SessionKey(sessions)
	require.NoError(t, err)
	assert.Equal(t, derived, key)
}
