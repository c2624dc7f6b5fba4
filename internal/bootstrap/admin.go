// Package bootstrap provisions the default administrator: a Firebase Auth
// account plus a matching admin profile in MongoDB.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"firebase.google.com/go/v4/auth"
	"go.uber.org/zap"

	"github.com/campmanager/backend/internal/config"
	"github.com/campmanager/backend/internal/models"
)

var ErrMissingAdmin = errors.New("admin email and password are required")

// AccountCreator is the part of *auth.Client used to provision the account.
type AccountCreator interface {
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
}

// AdminStore writes the admin profile.
type AdminStore interface {
	UpsertAdmin(ctx context.Context, firebaseUID, email, fullName string) (*models.Profile, bool, error)
}

type Options struct {
	// SyncExisting upserts the profile even when the account already exists.
	SyncExisting bool
	Logger       *zap.Logger
}

// Result describes what Run did.
type Result struct {
	UID             string
	AccountCreated  bool
	ProfileInserted bool
	// Skipped is set when the account existed and SyncExisting was off.
	Skipped bool
	Profile *models.Profile
}

type AdminBootstrapper struct {
	accounts AccountCreator
	store    AdminStore
	opts     Options
	log      *zap.Logger

	alreadyExists func(error) bool
}

func NewAdminBootstrapper(accounts AccountCreator, store AdminStore, opts Options) *AdminBootstrapper {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &AdminBootstrapper{
		accounts:      accounts,
		store:         store,
		opts:          opts,
		log:           log.Named("setup-admin"),
		alreadyExists: auth.IsEmailAlreadyExists,
	}
}

// Run creates the admin account and profile. An account that already exists
// is not an error.
func (b *AdminBootstrapper) Run(ctx context.Context, admin config.AdminConfig) (Result, error) {
	if admin.Email == "" || admin.Password == "" {
		return Result{}, ErrMissingAdmin
	}
	fullName := admin.FullName
	if fullName == "" {
		fullName = "Default Admin"
	}

	b.log.Info("creating admin account", zap.String("email", admin.Email))
	user, err := b.accounts.CreateUser(ctx, (&auth.UserToCreate{}).
		Email(admin.Email).
		Password(admin.Password).
		DisplayName(fullName))

	var res Result
	switch {
	case err == nil:
		res.AccountCreated = true
		b.log.Info("admin account created", zap.String("uid", user.UID))
	case b.alreadyExists(err):
		b.log.Warn("admin email already exists in Firebase Auth", zap.String("email", admin.Email))
		if !b.opts.SyncExisting {
			res.Skipped = true
			return res, nil
		}
		if user, err = b.accounts.GetUserByEmail(ctx, admin.Email); err != nil {
			return res, fmt.Errorf("bootstrap: lookup existing account: %w", err)
		}
	default:
		return res, fmt.Errorf("bootstrap: create account: %w", err)
	}
	res.UID = user.UID

	email := admin.Email
	if user.UserInfo != nil && user.Email != "" {
		email = user.Email
	}

	prof, inserted, err := b.store.UpsertAdmin(ctx, user.UID, email, fullName)
	if err != nil {
		return res, fmt.Errorf("bootstrap: sync profile: %w", err)
	}
	res.Profile = prof
	res.ProfileInserted = inserted

	result := "updated"
	if inserted {
		result = "inserted"
	}
	b.log.Info("admin profile synced", zap.String("uid", user.UID), zap.String("result", result))
	return res, nil
}
