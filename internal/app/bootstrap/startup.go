// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	membershipstore "github.com/dalemusser/churchhub/internal/app/store/memberships"
	userstore "github.com/dalemusser/churchhub/internal/app/store/users"
	"github.com/dalemusser/churchhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs after the schema is in place and before the handler is
// built. It seeds the bootstrap SuperAdmin and starts the push workers and
// the job scheduler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if appCfg.SuperAdminPhone != "" {
		if err := ensureSuperAdmin(ctx, deps, appCfg, logger); err != nil {
			return fmt.Errorf("bootstrap superadmin: %w", err)
		}
	}
	deps.Push.Start(context.Background())
	deps.Scheduler.Start()
	return nil
}

// ensureSuperAdmin creates the configured SuperAdmin, or promotes the
// existing account with that phone, and makes sure it holds the
// SuperAdmin membership.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	db := deps.ChurchHubMongoDatabase
	users := userstore.New(db)
	memberships := membershipstore.New(db)

	u, err := users.GetByPhone(ctx, appCfg.SuperAdminPhone)
	switch {
	case errors.Is(err, userstore.ErrNotFound):
		if appCfg.SuperAdminPassword == "" {
			return errors.New("superadmin_password is required to create the account")
		}
		created, err := users.Create(ctx, models.User{
			FirstName:             "Super",
			Surname:               "Admin",
			Phone:                 appCfg.SuperAdminPhone,
			Email:                 appCfg.SuperAdminEmail,
			IsVerified:            appCfg.SuperAdminEmail != "",
			RegistrationCompleted: true,
			Approved:              true,
			Multi:                 true,
			ActiveRole:            models.RoleSuperAdmin,
		}, appCfg.SuperAdminPassword)
		if err != nil {
			return err
		}
		u = &created
		logger.Info("created bootstrap superadmin", zap.String("user_id", u.ID.Hex()))
	case err != nil:
		return err
	default:
		if err := users.PromoteSuperAdmin(ctx, u.ID); err != nil {
			return err
		}
		logger.Info("promoted bootstrap superadmin", zap.String("user_id", u.ID.Hex()))
	}

	_, err = memberships.Add(ctx, models.Membership{UserID: u.ID, Role: models.RoleSuperAdmin})
	if err != nil && !errors.Is(err, membershipstore.ErrDuplicateRole) {
		return err
	}
	return nil
}
