// Package config provides functionality for managing configuration options
// for the application using command-line flags, a .env file, a JSON config
// file and environment variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/atinyakov/securebank/internal/models"
)

// Storage backends.
const (
	StorageMemory   = "memory"
	StorageFile     = "file"
	StoragePostgres = "postgres"
)

// Duration is a time.Duration that reads "1.5s"-style strings from JSON.
type Duration time.Duration

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// Options holds the configuration values for the application.
type Options struct {
	// Address defines the server's listening address (ip:port).
	Address string `json:"address"`

	// DatabaseDSN holds the database connection string for the postgres backend.
	DatabaseDSN string `json:"database_dsn"`

	// Config is the path to the JSON config file.
	Config string `json:"-"`

	// EnvFile is the path to the .env file loaded before anything else.
	EnvFile string `json:"-"`

	// Storage selects the local storage backend: memory, file or postgres.
	Storage string `json:"storage"`

	// StorageFile is the JSON document used by the file backend.
	StorageFile string `json:"storage_file"`

	// StorageRetention is how long untouched postgres rows are kept.
	StorageRetention Duration `json:"storage_retention"`

	// UserID and Password form the credential pair accepted at login.
	UserID   string `json:"user_id"`
	Password string `json:"password"`

	// AuthDelay is the simulated authentication latency.
	AuthDelay Duration `json:"auth_delay"`

	// RedirectDelay is the pause before navigating to the dashboard.
	RedirectDelay Duration `json:"redirect_delay"`

	// SecretKey signs the profile cookie.
	SecretKey string `json:"secret_key"`

	// SessionIdle is how long an unused login form is kept in memory.
	SessionIdle Duration `json:"session_idle"`

	// MaxSessions caps the number of login forms kept in memory.
	MaxSessions int `json:"max_sessions"`

	// TLSCert and TLSKey enable HTTPS when both are set.
	TLSCert string `json:"tls_cert"`
	TLSKey  string `json:"tls_key"`

	// LogLevel is the zap level name.
	LogLevel string `json:"log_level"`
}

// Credentials returns the configured credential pair.
func (o *Options) Credentials() models.CredentialPair {
	return models.CredentialPair{UserID: o.UserID, Password: o.Password}
}

// TLSEnabled reports whether both TLS files are configured.
func (o *Options) TLSEnabled() bool {
	return o.TLSCert != "" && o.TLSKey != ""
}

// DefaultSecretKey is the cookie signing key used when none is configured.
// It is public, so profile cookies signed with it can be forged.
const DefaultSecretKey = "change-me"

// UsesDefaultSecret reports whether the cookie signing key was left at
// DefaultSecretKey.
func (o *Options) UsesDefaultSecret() bool {
	return o.SecretKey == DefaultSecretKey
}

// Default returns the options used when nothing is configured.
func Default() *Options {
	return &Options{
		Address:          "localhost:8080",
		Config:           "config.json",
		EnvFile:          ".env",
		Storage:          StorageMemory,
		StorageFile:      "storage.json",
		StorageRetention: Duration(30 * 24 * time.Hour),
		UserID:           models.DefaultCredentials.UserID,
		Password:         models.DefaultCredentials.Password,
		AuthDelay:        Duration(1500 * time.Millisecond),
		RedirectDelay:    Duration(1500 * time.Millisecond),
		SecretKey:        DefaultSecretKey,
		SessionIdle:      Duration(30 * time.Minute),
		MaxSessions:      10000,
		LogLevel:         "Info",
	}
}

func durationVar(fsFlags *flag.FlagSet, p *Duration, name string, usage string) {
	fsFlags.Func(name, usage, func(s string) error {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*p = Duration(v)
		return nil
	})
}

// ParseArgs builds Options from args. Sources are applied in order: flags,
// the .env file (never overriding variables already set), the JSON config
// file, then environment variables.
func ParseArgs(args []string) (*Options, error) {
	options := Default()

	flags := flag.NewFlagSet("securebank", flag.ContinueOnError)
	flags.StringVar(&options.Address, "a", options.Address, "run on ip:port server")
	flags.StringVar(&options.DatabaseDSN, "d", options.DatabaseDSN, "db address")
	flags.StringVar(&options.Config, "config", options.Config, "path to config file")
	flags.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	flags.StringVar(&options.EnvFile, "env", options.EnvFile, "path to .env file")
	flags.StringVar(&options.Storage, "storage", options.Storage, "storage backend: memory | file | postgres")
	flags.StringVar(&options.StorageFile, "storage-file", options.StorageFile, "path to the file storage document")
	durationVar(flags, &options.StorageRetention, "storage-retention", "keep untouched postgres rows this long")
	flags.StringVar(&options.UserID, "user", options.UserID, "accepted user ID")
	flags.StringVar(&options.Password, "password", options.Password, "accepted password")
	durationVar(flags, &options.AuthDelay, "auth-delay", "simulated authentication delay")
	durationVar(flags, &options.RedirectDelay, "redirect-delay", "delay before redirecting to the dashboard")
	flags.StringVar(&options.SecretKey, "secret", options.SecretKey, "profile cookie signing key")
	durationVar(flags, &options.SessionIdle, "session-idle", "drop login forms unused for this long")
	flags.IntVar(&options.MaxSessions, "max-sessions", options.MaxSessions, "maximum login forms kept in memory")
	flags.StringVar(&options.TLSCert, "tls-cert", options.TLSCert, "TLS certificate file")
	flags.StringVar(&options.TLSKey, "tls-key", options.TLSKey, "TLS private key file")
	flags.StringVar(&options.LogLevel, "log-level", options.LogLevel, "log level")

	if err := flags.Parse(args); err != nil {
		return nil, err
	}

	if options.EnvFile != "" {
		if err := godotenv.Load(options.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("error while loading env file: %w", err)
		}
	}

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				return nil, fmt.Errorf("error while reading config file: %w", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				return nil, fmt.Errorf("error while parsing config file: %w", err)
			}
		}
	}

	if err := applyEnv(options); err != nil {
		return nil, err
	}

	if err := options.Validate(); err != nil {
		return nil, err
	}
	return options, nil
}

func applyEnv(options *Options) error {
	strs := map[string]*string{
		"SERVER_ADDRESS": &options.Address,
		"DATABASE_DSN":   &options.DatabaseDSN,
		"STORAGE":        &options.Storage,
		"STORAGE_FILE":   &options.StorageFile,
		"AUTH_USER_ID":   &options.UserID,
		"AUTH_PASSWORD":  &options.Password,
		"SECRET_KEY":     &options.SecretKey,
		"TLS_CERT":       &options.TLSCert,
		"TLS_KEY":        &options.TLSKey,
		"LOG_LEVEL":      &options.LogLevel,
	}
	for name, p := range strs {
		if v := os.Getenv(name); v != "" {
			*p = v
		}
	}

	durations := map[string]*Duration{
		"AUTH_DELAY":        &options.AuthDelay,
		"REDIRECT_DELAY":    &options.RedirectDelay,
		"STORAGE_RETENTION": &options.StorageRetention,
		"SESSION_IDLE":      &options.SessionIdle,
	}
	for name, p := range durations {
		if v := os.Getenv(name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s: %w", name, err)
			}
			*p = Duration(d)
		}
	}

	if v := os.Getenv("MAX_SESSIONS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		options.MaxSessions = n
	}
	return nil
}

// Validate checks option combinations.
func (o *Options) Validate() error {
	switch strings.ToLower(o.Storage) {
	case StorageMemory, StorageFile:
	case StoragePostgres:
		if o.DatabaseDSN == "" {
			return errors.New("postgres storage requires a database DSN")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", o.Storage)
	}
	o.Storage = strings.ToLower(o.Storage)

	if o.UserID == "" || o.Password == "" {
		return errors.New("credential pair must not be empty")
	}
	if (o.TLSCert == "") != (o.TLSKey == "") {
		return errors.New("tls-cert and tls-key must be set together")
	}
	if o.AuthDelay < 0 || o.RedirectDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if o.SessionIdle <= 0 || o.MaxSessions <= 0 {
		return errors.New("session-idle and max-sessions must be positive")
	}
	return nil
}

// Parse parses the process arguments and environment. It exits on error.
func Parse() *Options {
	options, err := ParseArgs(os.Args[1:])
	if err != nil {
		log.Fatalf("error while parsing configuration: %v", err)
	}
	return options
}
