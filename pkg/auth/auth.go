package auth

import (
	"context"

	"github.com/chacrab/chacrab/pkg/crypto"
	"github.com/chacrab/chacrab/pkg/errdefs"
	"github.com/chacrab/chacrab/pkg/session"
	"github.com/chacrab/chacrab/pkg/storage"
	"github.com/chacrab/chacrab/pkg/types"
)

// Register validates the master password, derives fresh authentication
// material, and persists the AuthRecord. The derived key is wiped before
// returning; registration does not open a session.
func Register(ctx context.Context, repo storage.Repository, masterPassword string) error {
	if err := ValidateMasterPassword(masterPassword); err != nil {
		return err
	}

	params := crypto.DefaultParams()
	material, key, err := crypto.NewRegistrationMaterial(masterPassword, params)
	if err != nil {
		return err
	}
	crypto.Wipe(key)

	return repo.SetAuthRecord(ctx, &types.AuthRecord{
		Salt:        material.SaltB64,
		Verifier:    material.Verifier,
		Argon2MCost: params.MCost,
		Argon2TCost: params.TCost,
		Argon2PCost: params.PCost,
	})
}

// Login re-derives the key with the Argon2 parameters stored in the
// AuthRecord, verifies it, and hands it to the session store. The local key
// copy is wiped on every path.
func Login(ctx context.Context, repo storage.Repository, sessions session.Store, masterPassword string) error {
	record, err := repo.GetAuthRecord(ctx)
	if err != nil {
		return err
	}
	if record == nil {
		return errdefs.Config("vault not initialized; run init")
	}

	key, err := crypto.VerifyPassword(masterPassword, record.Salt, record.Verifier, crypto.Params{
		MCost: record.Argon2MCost,
		TCost: record.Argon2TCost,
		PCost: record.Argon2PCost,
	})
	if err != nil {
		return err
	}
	defer crypto.Wipe(key)

	return sessions.StoreKey(key)
}

// Logout clears the session key and the last-activity metadata. Idempotent.
func Logout(sessions session.Store) error {
	if err := sessions.ClearKey(); err != nil {
		return err
	}
	return sessions.ClearActivity()
}

// SessionKey loads the current session key. The caller must wipe it.
func SessionKey(sessions session.Store) ([]byte, error) {
	return sessions.LoadKey()
}
