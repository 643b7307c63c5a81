package config

import (
	"flag"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
)

var flagNames = []string{
	"driver", "dsn", "user", "token", "token-secret",
	"kdf", "kdf-iterations",
	"throttle", "attempts", "window", "redis",
	"recovery-ttl", "mail", "smtp-host", "smtp-port", "smtp-user", "smtp-password", "smtp-from",
	"s3-bucket", "s3-prefix", "s3-region", "s3-endpoint", "s3-access-key", "s3-secret-key",
	"log-level", "log-file",
}

// parseFlags overlays command-line flags onto config. Only the flags listed
// in flagNames are looked at; anything else in args is left for other parsers.
//
//	-driver string         store driver: sqlite | postgres
//	-dsn string            database DSN / SQLite file path
//	-user string           local user id
//	-token string          HS256 session token (overrides -user)
//	-token-secret string   secret the session token is signed with
//	-kdf string            pbkdf2-sha256 | argon2id
//	-kdf-iterations uint   PBKDF2 iterations / argon2 passes
//	-throttle string       memory | redis | off
//	-attempts int          unlock/recovery attempts per window
//	-window duration       throttle window, e.g. 5m
//	-redis string          redis address for the redis throttle
//	-recovery-ttl duration lifetime of emailed recovery tokens
//	-mail string           console | smtp
//	-smtp-*                SMTP relay settings
//	-s3-*                  backup bucket settings
//	-log-level string      debug | info | warn | error
//	-log-file string       write logs to this file instead of stderr
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("gophvault", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.StoreDriver, "driver", config.StoreDriver, "store driver")
	fs.StringVar(&config.DatabaseDSN, "dsn", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.UserID, "user", config.UserID, "user id")
	fs.StringVar(&config.SessionToken, "token", config.SessionToken, "session token")
	fs.StringVar(&config.TokenSecret, "token-secret", config.TokenSecret, "session token secret")

	fs.StringVar(&config.KDFAlgorithm, "kdf", config.KDFAlgorithm, "key derivation algorithm")
	iterations := fs.Uint("kdf-iterations", uint(config.KDFIterations), "kdf iterations")

	fs.StringVar(&config.ThrottleBackend, "throttle", config.ThrottleBackend, "throttle backend")
	fs.IntVar(&config.ThrottleAttempts, "attempts", config.ThrottleAttempts, "attempts per window")
	fs.DurationVar(&config.ThrottleWindow, "window", config.ThrottleWindow, "throttle window")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "redis address")

	fs.DurationVar(&config.RecoveryTokenTTL, "recovery-ttl", config.RecoveryTokenTTL, "recovery token ttl")
	fs.StringVar(&config.MailBackend, "mail", config.MailBackend, "mail backend")
	fs.StringVar(&config.SMTPHost, "smtp-host", config.SMTPHost, "smtp host")
	fs.IntVar(&config.SMTPPort, "smtp-port", config.SMTPPort, "smtp port")
	fs.StringVar(&config.SMTPUsername, "smtp-user", config.SMTPUsername, "smtp username")
	fs.StringVar(&config.SMTPPassword, "smtp-password", config.SMTPPassword, "smtp password")
	fs.StringVar(&config.SMTPFrom, "smtp-from", config.SMTPFrom, "smtp from address")

	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Prefix, "s3-prefix", config.S3Prefix, "S3 key prefix")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3Endpoint, "s3-endpoint", config.S3Endpoint, "S3 endpoint")
	fs.StringVar(&config.S3AccessKey, "s3-access-key", config.S3AccessKey, "S3 access key")
	fs.StringVar(&config.S3SecretKey, "s3-secret-key", config.S3SecretKey, "S3 secret key")

	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")
	fs.StringVar(&config.LogFile, "log-file", config.LogFile, "log file")

	if err := fs.Parse(flagx.FilterArgs(args, flagNames)); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	config.KDFIterations = uint32(*iterations)
	return nil
}
