package middleware

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/campmanager/backend/internal/credentials"
)

type FirebaseAuthConfig struct {
	ProjectID  string
	Credential *credentials.Credential
}

// NewFirebaseAuthClient initialises a Firebase app from a resolved
// service-account key and returns its Auth client.
func NewFirebaseAuthClient(ctx context.Context, cfg FirebaseAuthConfig) (*auth.Client, error) {
	if cfg.Credential == nil {
		return nil, fmt.Errorf("firebase: nil credential")
	}
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = cfg.Credential.ProjectID
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, cfg.Credential.ClientOption())
	if err != nil {
		return nil, fmt.Errorf("firebase: init app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase: auth client: %w", err)
	}
	return client, nil
}
