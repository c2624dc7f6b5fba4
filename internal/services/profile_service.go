package services

import (
	"context"
	"errors"

	"github.com/campmanager/backend/internal/models"
)

var (
	ErrProfileNotFound = errors.New("profile not found")
	// ErrDatabase hides driver detail from callers; the cause is logged by the store.
	ErrDatabase = errors.New("database error")
)

// ProfileService is the profile store used by the HTTP layer.
type ProfileService interface {
	FindByIdentity(ctx context.Context, firebaseUID string) (*models.Profile, error)
	// Create inserts a new profile or returns the existing one for the same
	// identity. created is false when the profile already existed.
	Create(ctx context.Context, in models.CreateProfileInput) (profile *models.Profile, created bool, err error)
}
