package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/gophvault/internal/flagx"
	"github.com/dmitrijs2005/gophvault/internal/timex"
)

// JsonConfig mirrors Config for unmarshalling. Durations accept "15m" style
// strings or integer nanoseconds. Fields left out of the file keep their
// current value.
type JsonConfig struct {
	StoreDriver string `json:"store_driver"`
	DatabaseDSN string `json:"database_dsn"`

	UserID       string `json:"user_id"`
	SessionToken string `json:"session_token"`
	TokenSecret  string `json:"token_secret"`

	KDFAlgorithm  string `json:"kdf_algorithm"`
	KDFIterations uint32 `json:"kdf_iterations"`
	KDFMemoryKiB  uint32 `json:"kdf_memory_kib"`
	KDFThreads    uint8  `json:"kdf_threads"`

	ThrottleBackend  string         `json:"throttle_backend"`
	ThrottleAttempts int            `json:"throttle_attempts"`
	ThrottleWindow   timex.Duration `json:"throttle_window"`
	RedisAddr        string         `json:"redis_addr"`

	RecoveryTokenTTL timex.Duration `json:"recovery_token_ttl"`
	MailBackend      string         `json:"mail_backend"`
	SMTPHost         string         `json:"smtp_host"`
	SMTPPort         int            `json:"smtp_port"`
	SMTPUsername     string         `json:"smtp_username"`
	SMTPPassword     string         `json:"smtp_password"`
	SMTPFrom         string         `json:"smtp_from"`

	S3Bucket    string `json:"s3_bucket"`
	S3Prefix    string `json:"s3_prefix"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`

	LogLevel string `json:"log_level"`
	LogFile  string `json:"log_file"`
}

// parseJson overlays the file named by -c / -config onto config. Nothing
// happens when neither flag is present.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&config.StoreDriver, c.StoreDriver)
	set(&config.DatabaseDSN, c.DatabaseDSN)
	set(&config.UserID, c.UserID)
	set(&config.SessionToken, c.SessionToken)
	set(&config.TokenSecret, c.TokenSecret)
	set(&config.KDFAlgorithm, c.KDFAlgorithm)
	set(&config.KDFIterations, c.KDFIterations)
	set(&config.KDFMemoryKiB, c.KDFMemoryKiB)
	set(&config.KDFThreads, c.KDFThreads)
	set(&config.ThrottleBackend, c.ThrottleBackend)
	set(&config.ThrottleAttempts, c.ThrottleAttempts)
	set(&config.ThrottleWindow, c.ThrottleWindow.Duration)
	set(&config.RedisAddr, c.RedisAddr)
	set(&config.RecoveryTokenTTL, c.RecoveryTokenTTL.Duration)
	set(&config.MailBackend, c.MailBackend)
	set(&config.SMTPHost, c.SMTPHost)
	set(&config.SMTPPort, c.SMTPPort)
	set(&config.SMTPUsername, c.SMTPUsername)
	set(&config.SMTPPassword, c.SMTPPassword)
	set(&config.SMTPFrom, c.SMTPFrom)
	set(&config.S3Bucket, c.S3Bucket)
	set(&config.S3Prefix, c.S3Prefix)
	set(&config.S3Region, c.S3Region)
	set(&config.S3Endpoint, c.S3Endpoint)
	set(&config.S3AccessKey, c.S3AccessKey)
	set(&config.S3SecretKey, c.S3SecretKey)
	set(&config.LogLevel, c.LogLevel)
	set(&config.LogFile, c.LogFile)

	return nil
}

func set[T comparable](dst *T, v T) {
	var zero T
	if v != zero {
		*dst = v
	}
}
