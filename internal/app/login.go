package app

import (
	"context"
	"fmt"

	"xetgo/internal/auth"
	"xetgo/internal/backend"
	"xetgo/internal/config"
)

// Login verifies the given token against the remote service and stores the
// credentials encrypted at rest. When force is set the token is stored
// without verification. When noOverwrite is set and credentials already
// exist, they are left untouched.
func Login(ctx context.Context, cfg *config.Config, user, email, token string, force, noOverwrite bool) error {
	store := auth.NewStore(AuthDir(cfg.BaseDir))

	if noOverwrite && store.Exists() {
		return fmt.Errorf("credentials already exist for %s: remove --no-overwrite to replace them", cfg.Domain)
	}

	if !force {
		remote, err := backend.NewXet(cfg.Domain, token).CurrentUser(ctx)
		if err != nil {
			return fmt.Errorf("verifying credentials against %s: %w", cfg.Domain, err)
		}
		if remote != user {
			return fmt.Errorf("token belongs to %s, not %s", remote, user)
		}
	}

	creds := auth.Credentials{
		Domain: cfg.Domain,
		User:   user,
		Email:  email,
		Token:  token,
	}
	if err := store.Save(creds); err != nil {
		return fmt.Errorf("storing credentials: %w", err)
	}
	return nil
}
