package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/backup"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/cryptox"
	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/identity"
	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/mailer"
	"github.com/dmitrijs2005/gophvault/internal/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/throttle"
	"github.com/dmitrijs2005/gophvault/internal/vault"
)

// newS3Client is a seam so tests do not need AWS configuration.
var newS3Client = func(ctx context.Context, c backup.S3Config) (backup.ObjectPutter, error) {
	return backup.NewS3Client(ctx, c)
}

// Build wires an App from cfg: logging, the store, identity, the cipher,
// attempt throttling, the mailer and the optional S3 exporter. The returned
// func releases everything Build opened.
func Build(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) (*App, func() error, error) {
	var closers []func() error
	cleanup := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}
	fail := func(err error) (*App, func() error, error) {
		_ = cleanup()
		return nil, nil, err
	}

	logOut := io.Writer(os.Stderr)
	if cfg.LogFile != "" {
		path, err := filex.EnsureParentDir(cfg.LogFile)
		if err != nil {
			return fail(fmt.Errorf("open log file: %w", err))
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return fail(fmt.Errorf("open log file: %w", err))
		}
		closers = append(closers, f.Close)
		logOut = f
	}
	var log logging.Logger = logging.New(logOut, cfg.LogLevel)

	dsn := cfg.DatabaseDSN
	if cfg.StoreDriver == repomanager.DriverSQLite {
		expanded, err := filex.ExpandHome(dsn)
		if err != nil {
			return fail(err)
		}
		dsn = expanded
		if path, ok := filex.SQLitePath(dsn); ok {
			if _, err := filex.EnsureParentDir(path); err != nil {
				return fail(err)
			}
		}
	}

	db, repos, err := repomanager.Open(ctx, cfg.StoreDriver, dsn)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, db.Close)

	var id identity.Provider = identity.NewStaticProvider(cfg.UserID)
	if cfg.SessionToken != "" {
		id = identity.NewTokenProvider(cfg.SessionToken, []byte(cfg.TokenSecret))
	}
	userID, err := id.UserID(ctx)
	if err != nil {
		return fail(err)
	}
	log = log.With("user_id", userID)

	kdf, err := cfg.KDF()
	if err != nil {
		return fail(err)
	}

	var limiter throttle.Limiter
	switch cfg.ThrottleBackend {
	case "memory":
		limiter = throttle.NewMemoryLimiter(cfg.ThrottleAttempts, cfg.ThrottleWindow)
	case "redis":
		rl, err := throttle.NewRedisLimiter(ctx, cfg.RedisAddr, cfg.ThrottleAttempts, cfg.ThrottleWindow)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, rl.Close)
		limiter = rl
	case "off":
		limiter = throttle.Unlimited{}
	default:
		return fail(fmt.Errorf("unknown throttle backend %q", cfg.ThrottleBackend))
	}

	var m mailer.Mailer
	switch cfg.MailBackend {
	case "console":
		m = mailer.NewConsoleMailer(out, log)
	case "smtp":
		m = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		}, log)
	default:
		return fail(fmt.Errorf("unknown mail backend %q", cfg.MailBackend))
	}

	svc := vault.NewService(db, repos, id, cryptox.NewCipher(kdf),
		vault.WithLimiter(limiter),
		vault.WithMailer(m),
		vault.WithLogger(log.With("component", "vault")),
		vault.WithRecoveryTokenTTL(cfg.RecoveryTokenTTL),
	)

	opts := []AppOption{WithLogger(log)}
	if cfg.S3Bucket != "" {
		client, err := newS3Client(ctx, backup.S3Config{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return fail(err)
		}
		opts = append(opts, WithExporter(backup.NewS3Exporter(client, repos.Entries(db), cfg.S3Bucket, cfg.S3Prefix, string(kdf.Algorithm))))
	}

	log.Debug(ctx, "client wired", "store", cfg.StoreDriver, "throttle", cfg.ThrottleBackend, "mail", cfg.MailBackend, "backup", cfg.S3Bucket != "")
	return NewApp(svc, id, in, out, opts...), cleanup, nil
}
