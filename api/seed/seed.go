// Package seed provisions development data on SQLite deployments.
package seed

import (
	"context"

	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/api"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/config"
	"github.com/Nikita-Nechaiev/ai-assistant-backend-sub000/internal/slogging"
)

// SeedDatabase ensures the configured development user exists.
// This function is idempotent - safe to call multiple times.
func SeedDatabase(ctx context.Context, users api.UserStore, cfg config.DevSeedConfig) error {
	log := slogging.Get()

	if !cfg.Enabled() {
		log.Debug("No development seed user configured")
		return nil
	}

	if _, err := users.GetByEmail(ctx, cfg.Email); err == nil {
		log.Debug("Seed user %s already exists", slogging.SanitizeLogMessage(cfg.Email))
		return nil
	} else if !api.IsNotFound(err) {
		return err
	}

	name := cfg.Name
	if name == "" {
		name = "Developer"
	}
	user, err := users.CreateUser(ctx, cfg.Email, name, cfg.Password)
	if err != nil {
		log.Error("Failed to seed user %s: %v", slogging.SanitizeLogMessage(cfg.Email), err)
		return err
	}

	log.Info("Created seed user id=%d", user.ID)
	return nil
}
