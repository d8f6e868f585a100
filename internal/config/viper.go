// Package config resolves settings shared by the CLI commands from viper
// and the process environment.
package config

import (
	"os"

	"github.com/spf13/viper"
)

// Environment variables holding object store settings. Each list is tried in
// order; the RustFS names win over the MinIO names they replaced.
var (
	EndpointKeys  = []string{"RUSTFS_ENDPOINT", "MINIO_ENDPOINT"}
	BucketKeys    = []string{"RUSTFS_DATAFLOW_BUCKET", "RUSTFS_BUCKET", "MINIO_BUCKET"}
	AccessKeyKeys = []string{"RUSTFS_ACCESS_KEY", "RUSTFS_ROOT_USER", "MINIO_ACCESS_KEY", "MINIO_ROOT_USER"}
	SecretKeyKeys = []string{"RUSTFS_SECRET_KEY", "RUSTFS_ROOT_PASSWORD", "MINIO_SECRET_KEY", "MINIO_ROOT_PASSWORD"}
)

// DefaultBucket is used when no bucket is configured.
const DefaultBucket = "dataflow"

// GetString is a helper to get string values from Viper.
// It checks both OS environment variables and Viper configuration.
func GetString(key string) string {
	osValue := os.Getenv(key)
	viperValue := viper.GetString(key)

	if viperValue == "" && osValue != "" {
		return osValue
	}
	return viperValue
}

// FirstString returns the first non-empty value among keys.
func FirstString(keys ...string) string {
	for _, key := range keys {
		if v := GetString(key); v != "" {
			return v
		}
	}
	return ""
}

// Credentials holds object store settings resolved from the environment.
type Credentials struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
}

// ObjectStore resolves object store settings through the fallback lists.
func ObjectStore() Credentials {
	c := Credentials{
		Endpoint:  FirstString(EndpointKeys...),
		Bucket:    FirstString(BucketKeys...),
		AccessKey: FirstString(AccessKeyKeys...),
		SecretKey: FirstString(SecretKeyKeys...),
	}
	if c.Bucket == "" {
		c.Bucket = DefaultBucket
	}
	return c
}
