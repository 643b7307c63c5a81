package backup

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLister struct {
	rows []*models.StoredEntry
	err  error
}

func (f *fakeLister) List(_ context.Context, _ string) ([]*models.StoredEntry, error) {
	return f.rows, f.err
}

type fakePutter struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Exporter_Export(t *testing.T) {
	created := time.Date(2024, 6, 7, 8, 9, 10, 0, time.UTC)
	lister := &fakeLister{rows: []*models.StoredEntry{
		{ID: "e1", UserID: "alice", Website: "wb", Username: "ub", Password: "pb", Strength: models.StrengthMedium, CreatedAt: created, UpdatedAt: created},
	}}
	putter := &fakePutter{}

	exp := NewS3Exporter(putter, lister, "vault-backups", "gophvault", "pbkdf2-sha256")
	exp.now = func() time.Time { return created }

	key, err := exp.Export(context.Background(), "alice")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(key, "gophvault/users/alice/2024/06/07/"), key)
	assert.True(t, strings.HasSuffix(key, ".json"))
	assert.Equal(t, "vault-backups", aws.ToString(putter.in.Bucket))
	assert.Equal(t, key, aws.ToString(putter.in.Key))
	assert.Equal(t, "application/json", aws.ToString(putter.in.ContentType))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(putter.body, &snap))
	assert.Equal(t, SnapshotVersion, snap.Version)
	assert.Equal(t, "alice", snap.UserID)
	assert.Equal(t, "pbkdf2-sha256", snap.KDF)
	require.Len(t, snap.Entries, 1)
	assert.Equal(t, "pb", snap.Entries[0].Password)
	assert.NotContains(t, string(putter.body), "password_hash")
}

func TestS3Exporter_EmptyVault(t *testing.T) {
	putter := &fakePutter{}
	exp := NewS3Exporter(putter, &fakeLister{}, "b", "", "argon2id")

	_, err := exp.Export(context.Background(), "bob")
	require.NoError(t, err)
	assert.Contains(t, string(putter.body), `"entries":[]`)
}

func TestS3Exporter_Errors(t *testing.T) {
	_, err := NewS3Exporter(&fakePutter{}, &fakeLister{err: errors.New("db down")}, "b", "", "").
		Export(context.Background(), "alice")
	require.ErrorContains(t, err, "list entries: db down")

	_, err = NewS3Exporter(&fakePutter{err: errors.New("access denied")}, &fakeLister{}, "b", "", "").
		Export(context.Background(), "alice")
	require.ErrorContains(t, err, "put object: access denied")
}

func TestNewS3Client_AppliesOptions(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "eu-central-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return &s3.Client{}
	}

	c, err := NewS3Client(context.Background(), S3Config{
		Region: "eu-central-1", Endpoint: "http://127.0.0.1:9000",
		AccessKey: "minioadmin", SecretKey: "minioadmin",
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
	assert.True(t, opts.UsePathStyle)
}

func TestNewS3Client_ConfigError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })
	loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("no region")
	}

	_, err := NewS3Client(context.Background(), S3Config{})
	require.ErrorContains(t, err, "aws config: no region")
}
