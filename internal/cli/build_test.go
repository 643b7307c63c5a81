package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/gophvault/internal/backup"
	"github.com/dmitrijs2005/gophvault/internal/common"
	"github.com/dmitrijs2005/gophvault/internal/config"
	"github.com/dmitrijs2005/gophvault/internal/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()
	dir := t.TempDir()
	cfg.DatabaseDSN = filepath.Join(dir, "vault.db")
	cfg.LogFile = filepath.Join(dir, "vault.log")
	cfg.KDFIterations = 1000
	return cfg
}

func TestBuild_Defaults(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	app, cleanup, err := Build(context.Background(), cfg, strings.NewReader(""), &out)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, cleanup()) })

	assert.Nil(t, app.exporter)
	uid, err := app.identity.UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", uid)

	_, err = os.Stat(cfg.DatabaseDSN)
	require.NoError(t, err, "sqlite file is created")
}

func TestBuild_RunsSession(t *testing.T) {
	withoutTerminal(t)
	cfg := testConfig(t)
	cfg.LogLevel = "debug"
	var out bytes.Buffer

	script := append(append([]string{}, setupScript...), "unlock", "correct horse", "exit")
	app, cleanup, err := Build(context.Background(), cfg, strings.NewReader(lines(script...)), &out)
	require.NoError(t, err)
	app.Run(context.Background())
	require.NoError(t, cleanup())

	assert.Contains(t, out.String(), "Unlocked, 0 entries.")

	logged, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"msg":"vault unlocked"`)
	assert.Contains(t, string(logged), `"user_id":"local"`)
	assert.NotContains(t, string(logged), "correct horse")
}

func TestBuild_SessionToken(t *testing.T) {
	cfg := testConfig(t)
	secret := []byte("0123456789abcdef0123456789abcdef")
	tok, err := identity.GenerateToken("carol", secret, time.Hour, time.Now())
	require.NoError(t, err)
	cfg.SessionToken, cfg.TokenSecret = tok, string(secret)

	app, cleanup, err := Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	uid, err := app.identity.UserID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "carol", uid)
}

func TestBuild_ExpiredToken(t *testing.T) {
	cfg := testConfig(t)
	secret := []byte("0123456789abcdef0123456789abcdef")
	tok, err := identity.GenerateToken("carol", secret, time.Minute, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	cfg.SessionToken, cfg.TokenSecret = tok, string(secret)

	_, _, err = Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorIs(t, err, common.ErrAuth)
}

func TestBuild_RedisThrottle(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.ThrottleBackend = "redis"
	cfg.RedisAddr = mr.Addr()

	_, cleanup, err := Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, cleanup())

	mr.Close()
	_, _, err = Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.Error(t, err)
}

func TestBuild_BackendsAndErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{"throttle off", func(c *config.Config) { c.ThrottleBackend = "off" }, ""},
		{"smtp", func(c *config.Config) { c.MailBackend, c.SMTPHost, c.SMTPFrom = "smtp", "localhost", "vault@example.com" }, ""},
		{"bad throttle", func(c *config.Config) { c.ThrottleBackend = "carrier pigeon" }, "unknown throttle backend"},
		{"bad mail", func(c *config.Config) { c.MailBackend = "fax" }, "unknown mail backend"},
		{"bad driver", func(c *config.Config) { c.StoreDriver = "mysql" }, "unsupported store driver"},
		{"bad kdf", func(c *config.Config) { c.KDFAlgorithm = "md5" }, "unknown kdf algorithm"},
		{"bad log file", func(c *config.Config) {
			// a regular file where a directory is needed
			_ = os.WriteFile(c.LogFile, []byte("x"), 0o600)
			c.LogFile = filepath.Join(c.LogFile, "x.log")
		}, "open log file"},
		{"nested sqlite path", func(c *config.Config) { c.DatabaseDSN = filepath.Join(filepath.Dir(c.DatabaseDSN), "a", "b", "vault.db") }, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(t)
			tc.mutate(cfg)

			_, cleanup, err := Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			require.NoError(t, cleanup())
		})
	}
}

type nopPutter struct{ backup.ObjectPutter }

func TestBuild_S3Exporter(t *testing.T) {
	old := newS3Client
	t.Cleanup(func() { newS3Client = old })

	var got backup.S3Config
	newS3Client = func(_ context.Context, c backup.S3Config) (backup.ObjectPutter, error) {
		got = c
		return nopPutter{}, nil
	}

	cfg := testConfig(t)
	cfg.S3Bucket = "vault-backups"
	cfg.S3Endpoint = "http://127.0.0.1:9000"
	cfg.S3AccessKey, cfg.S3SecretKey = "minio", "minio123"

	app, cleanup, err := Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cleanup() })

	assert.NotNil(t, app.exporter)
	assert.Equal(t, backup.S3Config{Region: "us-east-1", Endpoint: "http://127.0.0.1:9000", AccessKey: "minio", SecretKey: "minio123"}, got)

	newS3Client = func(context.Context, backup.S3Config) (backup.ObjectPutter, error) {
		return nil, errors.New("no credentials")
	}
	_, _, err = Build(context.Background(), cfg, strings.NewReader(""), &bytes.Buffer{})
	require.ErrorContains(t, err, "no credentials")
}
