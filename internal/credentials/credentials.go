// Package credentials resolves the Firebase Admin service-account key from
// one of several configured sources.
package credentials

import (
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"

	"google.golang.org/api/option"
)

var (
	// ErrNotConfigured is returned by a resolver whose source is not set.
	ErrNotConfigured = errors.New("credentials: source not configured")
	// ErrNoCredentials means every resolver declined.
	ErrNoCredentials = errors.New("credentials: no identity provider credentials configured; set GOOGLE_APPLICATION_CREDENTIALS, FIREBASE_SERVICE_ACCOUNT_BASE64 or FIREBASE_PROJECT_ID/FIREBASE_CLIENT_EMAIL/FIREBASE_PRIVATE_KEY")
	ErrMalformed     = errors.New("credentials: malformed service account key")
)

const googleTokenURI = "https://oauth2.googleapis.com/token"

// Sources are the raw configured credential inputs.
type Sources struct {
	KeyFile     string
	Base64Key   string
	ProjectID   string
	ClientEmail string
	PrivateKey  string
}

// Credential is a validated service-account key.
type Credential struct {
	Source    string
	ProjectID string
	JSON      []byte
}

// ClientOption hands the key to Google client libraries.
func (c *Credential) ClientOption() option.ClientOption {
	return option.WithCredentialsJSON(c.JSON)
}

// Resolver is one credential strategy. Resolve returns ErrNotConfigured to
// decline so the next strategy is tried.
type Resolver struct {
	Name    string
	Resolve func(Sources) (*Credential, error)
}

// DefaultResolvers returns key file, base64 blob, then discrete fields.
func DefaultResolvers() []Resolver {
	return []Resolver{
		{Name: "key-file", Resolve: fromKeyFile},
		{Name: "base64", Resolve: fromBase64},
		{Name: "fields", Resolve: fromFields},
	}
}

// Resolve runs resolvers in order and returns the first credential produced.
// A configured but malformed source stops resolution with an error.
func Resolve(src Sources, resolvers ...Resolver) (*Credential, error) {
	if len(resolvers) == 0 {
		resolvers = DefaultResolvers()
	}
	for _, r := range resolvers {
		cred, err := r.Resolve(src)
		if errors.Is(err, ErrNotConfigured) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("credentials: %s: %w", r.Name, err)
		}
		cred.Source = r.Name
		return cred, nil
	}
	return nil, ErrNoCredentials
}

type serviceAccount struct {
	Type        string `json:"type"`
	ProjectID   string `json:"project_id"`
	ClientEmail string `json:"client_email"`
	PrivateKey  string `json:"private_key"`
	TokenURI    string `json:"token_uri,omitempty"`
}

func fromKeyFile(src Sources) (*Credential, error) {
	path := strings.TrimSpace(src.KeyFile)
	if path == "" {
		return nil, ErrNotConfigured
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file %q: %w", path, err)
	}
	return parse(data)
}

func fromBase64(src Sources) (*Credential, error) {
	blob := strings.TrimSpace(src.Base64Key)
	if blob == "" {
		return nil, ErrNotConfigured
	}
	data, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode base64: %v", ErrMalformed, err)
	}
	return parse(data)
}

func fromFields(src Sources) (*Credential, error) {
	if src.ProjectID == "" || src.ClientEmail == "" || src.PrivateKey == "" {
		return nil, ErrNotConfigured
	}
	sa := serviceAccount{
		Type:        "service_account",
		ProjectID:   src.ProjectID,
		ClientEmail: src.ClientEmail,
		// Keys pasted into env files usually carry literal \n sequences.
		PrivateKey: strings.ReplaceAll(src.PrivateKey, `\n`, "\n"),
		TokenURI:   googleTokenURI,
	}
	if err := sa.validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(sa)
	if err != nil {
		return nil, err
	}
	return &Credential{ProjectID: sa.ProjectID, JSON: data}, nil
}

func parse(data []byte) (*Credential, error) {
	var sa serviceAccount
	if err := json.Unmarshal(data, &sa); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := sa.validate(); err != nil {
		return nil, err
	}
	return &Credential{ProjectID: sa.ProjectID, JSON: data}, nil
}

func (sa serviceAccount) validate() error {
	switch {
	case sa.ProjectID == "":
		return fmt.Errorf("%w: missing project_id", ErrMalformed)
	case sa.ClientEmail == "":
		return fmt.Errorf("%w: missing client_email", ErrMalformed)
	case sa.PrivateKey == "":
		return fmt.Errorf("%w: missing private_key", ErrMalformed)
	}
	if block, _ := pem.Decode([]byte(sa.PrivateKey)); block == nil {
		return fmt.Errorf("%w: private_key is not PEM encoded", ErrMalformed)
	}
	return nil
}
