package assetstorage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/memorizu/memorizu/internal/pkg/env"
)

// Config holds the S3 configuration for builder asset uploads
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	EndpointURL     string // Optional for S3-compatible services
	PublicBaseURL   string // Base URL assets are served from (CDN or bucket endpoint)
	Enabled         bool
}

// LoadConfig loads the asset storage configuration from environment variables
func LoadConfig() (*Config, error) {
	config := &Config{
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		BucketName:      env.GetEnv("S3_BUCKET_NAME", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
		Enabled:         env.GetEnv("S3_ASSETS_ENABLED", "false") == "true",
	}

	if config.Enabled {
		if config.AccessKeyID == "" {
			return nil, errors.New("S3_ACCESS_KEY_ID is required when asset storage is enabled")
		}
		if config.SecretAccessKey == "" {
			return nil, errors.New("S3_SECRET_ACCESS_KEY is required when asset storage is enabled")
		}
		if config.BucketName == "" {
			return nil, errors.New("S3_BUCKET_NAME is required when asset storage is enabled")
		}
	}

	return config, nil
}

// IsEnabled returns true if asset storage is enabled
func (c *Config) IsEnabled() bool {
	return c.Enabled
}

// GetObjectKey generates a standardized S3 object key for an uploaded asset.
// Format: assets/<userID>/YYYY/MM/<uuid><ext>
func (c *Config) GetObjectKey(userID uint, assetUUID, fileExtension string, t time.Time) string {
	return fmt.Sprintf("assets/%d/%04d/%02d/%s%s", userID, t.Year(), int(t.Month()), assetUUID, fileExtension)
}

// PublicURL returns the URL an uploaded object is reachable under.
func (c *Config) PublicURL(objectKey string) string {
	base := c.PublicBaseURL
	if base == "" {
		if c.EndpointURL != "" {
			base = fmt.Sprintf("%s/%s", strings.TrimRight(c.EndpointURL, "/"), c.BucketName)
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.BucketName, c.Region)
		}
	}
	return strings.TrimRight(base, "/") + "/" + objectKey
}

// GetAppEnv returns the current application environment
func GetAppEnv() string {
	return env.GetEnv("APP_ENV", "dev")
}
