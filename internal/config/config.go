package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/campmanager/backend/internal/credentials"
)

const EnvProduction = "production"

// Config is the HTTP server configuration.
// Values come from an optional .env file (explicit path, ENV_FILE, or ./.env)
// with the process environment read on top of it.
type Config struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	HTTP     HTTPConfig
	Mongo    MongoConfig
	Firebase FirebaseConfig
	Log      LogConfig
}

// BootstrapConfig is what cmd/setup-admin needs. It carries no HTTP section
// so the script runs without PORT or CORS_ORIGIN.
type BootstrapConfig struct {
	Env      string `env:"APP_ENV" env-default:"development"`
	Mongo    MongoConfig
	Firebase FirebaseConfig
	Log      LogConfig
	Admin    AdminConfig
}

type HTTPConfig struct {
	Port            string        `env:"PORT" env-required:"true"`
	CORSOrigin      string        `env:"CORS_ORIGIN" env-required:"true"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" env-default:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// Addr returns the listen address for the configured port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort("", h.Port)
}

type MongoConfig struct {
	URI            string        `env:"MONGODB_URI" env-required:"true"`
	Database       string        `env:"MONGODB_DB_NAME" env-default:"camp-manager"`
	TLS            bool          `env:"MONGODB_TLS" env-default:"false"`
	ConnectTimeout time.Duration `env:"MONGODB_CONNECT_TIMEOUT" env-default:"10s"`
}

// FirebaseConfig holds the three possible credential sources. Which one is
// used is decided by credentials.Resolve.
type FirebaseConfig struct {
	CredentialsFile string `env:"GOOGLE_APPLICATION_CREDENTIALS"`
	ServiceAccount  string `env:"FIREBASE_SERVICE_ACCOUNT_BASE64"`
	ProjectID       string `env:"FIREBASE_PROJECT_ID"`
	ClientEmail     string `env:"FIREBASE_CLIENT_EMAIL"`
	PrivateKey      string `env:"FIREBASE_PRIVATE_KEY"`
}

// Sources converts the configured values into resolver input.
func (f FirebaseConfig) Sources() credentials.Sources {
	return credentials.Sources{
		KeyFile:     f.CredentialsFile,
		Base64Key:   f.ServiceAccount,
		ProjectID:   f.ProjectID,
		ClientEmail: f.ClientEmail,
		PrivateKey:  f.PrivateKey,
	}
}

type LogConfig struct {
	Level string `env:"LOG_LEVEL" env-default:"info"`
	File  string `env:"LOG_FILE"`
}

type AdminConfig struct {
	Email    string `env:"DEFAULT_ADMIN_EMAIL" env-required:"true"`
	Password string `env:"DEFAULT_ADMIN_PASSWORD" env-required:"true"`
	FullName string `env:"DEFAULT_ADMIN_FULL_NAME" env-default:"Default Admin"`
}

// IsProduction reports whether error details must be hidden from clients.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads the server configuration. path may be empty.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := read(resolvePath(path), &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadBootstrap reads the admin bootstrap configuration. path may be empty.
func LoadBootstrap(path string) (*BootstrapConfig, error) {
	var cfg BootstrapConfig
	if err := read(resolvePath(path), &cfg); err != nil {
		return nil, err
	}
	if cfg.Mongo.URI == "" {
		return nil, fmt.Errorf("config: MONGODB_URI is required")
	}
	if cfg.Admin.Email == "" || cfg.Admin.Password == "" {
		return nil, fmt.Errorf("config: DEFAULT_ADMIN_EMAIL and DEFAULT_ADMIN_PASSWORD are required")
	}
	if cfg.Mongo.ConnectTimeout <= 0 {
		return nil, fmt.Errorf("config: MONGODB_CONNECT_TIMEOUT must be > 0")
	}
	return &cfg, nil
}

func read(path string, cfg any) error {
	if path != "" {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return fmt.Errorf("config: read %q: %w", path, err)
		}
		return nil
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return fmt.Errorf("config: read env: %w", err)
	}
	return nil
}

func resolvePath(path string) string {
	if path != "" {
		return path
	}
	if p := os.Getenv("ENV_FILE"); p != "" {
		return p
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

func (c *Config) validate() error {
	port, err := strconv.Atoi(c.HTTP.Port)
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("config: PORT must be a number in 1..65535, got %q", c.HTTP.Port)
	}
	if c.HTTP.CORSOrigin == "" {
		return fmt.Errorf("config: CORS_ORIGIN is required")
	}
	if c.Mongo.URI == "" {
		return fmt.Errorf("config: MONGODB_URI is required")
	}
	if c.HTTP.RequestTimeout <= 0 {
		return fmt.Errorf("config: REQUEST_TIMEOUT must be > 0")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return fmt.Errorf("config: SHUTDOWN_TIMEOUT must be > 0")
	}
	if c.Mongo.ConnectTimeout <= 0 {
		return fmt.Errorf("config: MONGODB_CONNECT_TIMEOUT must be > 0")
	}
	return nil
}
