// Package s3store implements blob.Store on an S3-compatible object store
// such as RustFS or MinIO.
package s3store

import (
	"bytes"
	"context"
	"io"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/agentstation/mastermap/pkg/blob"
	"github.com/agentstation/mastermap/pkg/errors"
)

var _ blob.Store = (*Store)(nil)

// Config holds the connection settings.
type Config struct {
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"-"`
	// PathStyle addresses objects as endpoint/bucket/key, which RustFS and
	// MinIO need when no wildcard DNS is set up.
	PathStyle bool `mapstructure:"path_style" yaml:"path_style"`
}

// Validate checks the required settings.
func (c Config) Validate() error {
	if c.Bucket == "" {
		return errors.NewConfigError("s3", "bucket is required", nil)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.NewConfigError("s3", "access key and secret key must be set together", nil)
	}
	return nil
}

// Store is a blob.Store backed by one S3 bucket.
type Store struct {
	bucket string
	client *s3.S3
}

// New opens a session for cfg.
func New(cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg := aws.NewConfig().
		WithRegion(region).
		WithS3ForcePathStyle(cfg.PathStyle)
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	if cfg.AccessKey != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKey, cfg.SecretKey, ""))
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, errors.NewConfigError("s3", "creating session", err)
	}
	return &Store{bucket: cfg.Bucket, client: s3.New(sess)}, nil
}

// Bucket returns the bucket name.
func (s *Store) Bucket() string {
	return s.bucket
}

// Get implements blob.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, translate("get", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, errors.WrapIO("get", key, err)
	}
	return data, nil
}

// Put implements blob.Store.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return translate("put", key, err)
}

// Delete implements blob.Store. S3 deletes are idempotent, so the object is
// checked first to report missing keys.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return translate("delete", key, err)
	}
	_, err = s.client.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return translate("delete", key, err)
}

// List implements blob.Store.
func (s *Store) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := s.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	}, func(page *s3.ListObjectsV2Output, _ bool) bool {
		for _, obj := range page.Contents {
			keys = append(keys, aws.StringValue(obj.Key))
		}
		return true
	})
	if err != nil {
		return nil, translate("list", prefix, err)
	}
	sort.Strings(keys)
	return keys, nil
}

// translate maps S3 "no such key" responses to errors.ErrNotFound and wraps
// everything else as an IO error.
func translate(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if isNotFound(err) {
		return errors.NewNotFoundError("object", key)
	}
	return errors.WrapIO(op, key, err)
}

func isNotFound(err error) bool {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey, "NotFound":
			return true
		}
	}
	return false
}
