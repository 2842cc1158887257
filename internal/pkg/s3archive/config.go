package s3archive

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/soutienweb/cagnotte/internal/pkg/env"
)

// Config holds the invoice archive bucket configuration
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	Enabled         bool
}

// LoadConfig loads the archive configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "eu-west-3"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		Enabled:         env.GetEnv("S3_ARCHIVE_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when the invoice archive is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when the invoice archive is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when the invoice archive is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if invoice archiving is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey derives the archive key from an invoice file name.
// Invoice numbers are YYYY-MM-NNNN, so the key sorts chronologically:
// invoices/YYYY/YYYY-MM-NNNN.pdf
func (c *Config) GetObjectKey(localFilePath string) string {
	name := filepath.Base(localFilePath)
	year := "unknown"
	if parts := strings.SplitN(name, "-", 2); len(parts) == 2 && len(parts[0]) == 4 {
		year = parts[0]
	}
	return fmt.Sprintf("invoices/%s/%s", year, name)
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}

// GetBucketName returns the bucket name as configured
func (c *Config) GetBucketName() string {
	return c.BucketName
}
