// Package backup exports snapshots of a user's still-encrypted entries to
// S3-compatible object storage. Snapshots never contain plaintext or the
// vault settings (password hash, 2FA secret, recovery hashes).
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophvault/internal/models"
	"github.com/google/uuid"
)

const SnapshotVersion = 1

// EntryLister is the slice of the entries store the exporter reads.
type EntryLister interface {
	List(ctx context.Context, userID string) ([]*models.StoredEntry, error)
}

// ObjectPutter is the S3 call the exporter needs. *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type SnapshotEntry struct {
	ID        string          `json:"id"`
	Website   string          `json:"website"`
	Username  string          `json:"username"`
	Password  string          `json:"password"`
	Strength  models.Strength `json:"strength"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Snapshot struct {
	Version   int             `json:"version"`
	UserID    string          `json:"user_id"`
	KDF       string          `json:"kdf"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []SnapshotEntry `json:"entries"`
}

type Exporter interface {
	Export(ctx context.Context, userID string) (key string, err error)
}

type S3Exporter struct {
	client  ObjectPutter
	entries EntryLister
	bucket  string
	prefix  string
	kdf     string
	now     func() time.Time
}

// NewS3Exporter writes snapshots to bucket under prefix. kdf names the key
// derivation the blobs were sealed with so a restore can pick it.
func NewS3Exporter(client ObjectPutter, entries EntryLister, bucket, prefix, kdf string) *S3Exporter {
	return &S3Exporter{client: client, entries: entries, bucket: bucket, prefix: prefix, kdf: kdf, now: time.Now}
}

func (e *S3Exporter) objectKey(userID string, t time.Time) string {
	return path.Join(e.prefix, "users", userID,
		fmt.Sprintf("%04d/%02d/%02d", t.Year(), t.Month(), t.Day()),
		uuid.NewString()+".json")
}

// Export uploads a snapshot and returns its object key.
func (e *S3Exporter) Export(ctx context.Context, userID string) (string, error) {
	rows, err := e.entries.List(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("list entries: %w", err)
	}

	now := e.now().UTC()
	snap := Snapshot{
		Version:   SnapshotVersion,
		UserID:    userID,
		KDF:       e.kdf,
		CreatedAt: now,
		Entries:   make([]SnapshotEntry, 0, len(rows)),
	}
	for _, r := range rows {
		snap.Entries = append(snap.Entries, SnapshotEntry{
			ID: r.ID, Website: r.Website, Username: r.Username, Password: r.Password,
			Strength: r.Strength, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
		})
	}

	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encode snapshot: %w", err)
	}

	key := e.objectKey(userID, now)
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}
	return key, nil
}

type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// NewS3Client builds a client for AWS or an S3-compatible endpoint such as
// MinIO. Static credentials are used when AccessKey is set, otherwise the
// default AWS credential chain applies.
func NewS3Client(ctx context.Context, c S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.Endpoint != "" {
			o.BaseEndpoint = aws.String(c.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
