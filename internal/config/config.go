// Package config assembles runtime settings from defaults, an optional JSON
// file (-c / -config) and command-line flags, in that order of precedence.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/cryptox"
)

// Config holds runtime settings for the vault CLI.
//
// Identity: when SessionToken is set the user id comes from the HS256 token
// signed with TokenSecret, otherwise UserID is used as is.
type Config struct {
	StoreDriver string // "sqlite" or "postgres"
	DatabaseDSN string

	UserID       string
	SessionToken string
	TokenSecret  string

	KDFAlgorithm  string
	KDFIterations uint32
	KDFMemoryKiB  uint32
	KDFThreads    uint8

	ThrottleBackend  string // "memory", "redis" or "off"
	ThrottleAttempts int
	ThrottleWindow   time.Duration
	RedisAddr        string

	RecoveryTokenTTL time.Duration
	MailBackend      string // "console" or "smtp"
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	SMTPFrom         string

	S3Bucket    string
	S3Prefix    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string

	LogLevel string
	LogFile  string
}

// LoadDefaults populates Config with settings for a local single-user vault.
func (c *Config) LoadDefaults() {
	c.StoreDriver = "sqlite"
	c.DatabaseDSN = "gophvault.db"
	c.UserID = "local"

	kdf := cryptox.DefaultKDF()
	c.KDFAlgorithm = string(kdf.Algorithm)
	c.KDFIterations = kdf.Iterations
	c.KDFMemoryKiB = kdf.MemoryKiB
	c.KDFThreads = kdf.Threads

	c.ThrottleBackend = "memory"
	c.ThrottleAttempts = 5
	c.ThrottleWindow = 5 * time.Minute
	c.RedisAddr = "127.0.0.1:6379"

	c.RecoveryTokenTTL = 15 * time.Minute
	c.MailBackend = "console"
	c.SMTPPort = 587

	c.S3Prefix = "gophvault"
	c.S3Region = "us-east-1"

	c.LogLevel = "warn"
}

// KDF returns the key derivation configured for the cipher.
func (c *Config) KDF() (cryptox.KDF, error) {
	return cryptox.NewKDF(cryptox.Algorithm(c.KDFAlgorithm), c.KDFIterations, c.KDFMemoryKiB, c.KDFThreads)
}

// Validate reports settings that cannot work together.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.StoreDriver)
	}
	if c.DatabaseDSN == "" {
		return fmt.Errorf("database dsn is empty")
	}
	if c.SessionToken == "" && c.UserID == "" {
		return fmt.Errorf("either a user id or a session token is required")
	}
	if c.SessionToken != "" && c.TokenSecret == "" {
		return fmt.Errorf("session token given without token secret")
	}
	if _, err := c.KDF(); err != nil {
		return err
	}
	switch c.ThrottleBackend {
	case "memory", "redis", "off":
	default:
		return fmt.Errorf("unknown throttle backend %q", c.ThrottleBackend)
	}
	if c.ThrottleBackend != "off" && (c.ThrottleAttempts < 1 || c.ThrottleWindow <= 0) {
		return fmt.Errorf("throttle needs positive attempts and window")
	}
	switch c.MailBackend {
	case "console":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPFrom == "" {
			return fmt.Errorf("smtp mail backend needs host and from address")
		}
	default:
		return fmt.Errorf("unknown mail backend %q", c.MailBackend)
	}
	if c.RecoveryTokenTTL <= 0 {
		return fmt.Errorf("recovery token ttl must be positive")
	}
	return nil
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags in args
// (usually os.Args[1:]).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
