// Package storage provides object storage for batch image files.
package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	appinv "github.com/mfgorder/backend/internal/application/inventory"
	infraconfig "github.com/mfgorder/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

const (
	// maxDeleteBatch is the S3 limit on keys per DeleteObjects request
	maxDeleteBatch = 1000

	defaultEndpoint       = "http://localhost:9000"
	defaultRegion         = "us-east-1"
	defaultPresignExpires = 15 * time.Minute
)

var (
	_ appinv.ObjectRemover   = (*S3ObjectStore)(nil)
	_ appinv.ObjectURLSigner = (*S3ObjectStore)(nil)
)

// S3ObjectStore keeps batch images in an S3 compatible bucket. AWS S3, MinIO
// and RustFS all work.
type S3ObjectStore struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	bucket        string
	urlTTL        time.Duration
	deleteTimeout time.Duration
	log           *zap.Logger
}

type S3ObjectStoreOption func(*S3ObjectStore)

func WithLogger(log *zap.Logger) S3ObjectStoreOption {
	return func(s *S3ObjectStore) { s.log = log.Named("storage") }
}

// WithPresignExpiration overrides storage.presign_expires
func WithPresignExpiration(d time.Duration) S3ObjectStoreOption {
	return func(s *S3ObjectStore) { s.urlTTL = d }
}

// NewS3ObjectStore connects to the configured bucket with static credentials.
// Nothing is sent to the backend until the first call.
func NewS3ObjectStore(cfg *infraconfig.StorageConfig, opts ...S3ObjectStoreOption) (*S3ObjectStore, error) {
	if err := checkStorageConfig(cfg); err != nil {
		return nil, err
	}
	endpoint, err := normalizeEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	region := cmp.Or(cfg.Region, defaultRegion)

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load S3 client config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = cfg.UsePathStyle
	})

	store := &S3ObjectStore{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		bucket:        cfg.Bucket,
		urlTTL:        cfg.PresignExpires,
		deleteTimeout: cfg.DeleteTimeout,
		log:           zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	if store.urlTTL <= 0 {
		store.urlTTL = defaultPresignExpires
	}
	return store, nil
}

func checkStorageConfig(cfg *infraconfig.StorageConfig) error {
	switch {
	case cfg == nil:
		return errors.New("storage configuration is required")
	case cfg.Bucket == "":
		return errors.New("storage bucket is required")
	case cfg.AccessKeyID == "":
		return errors.New("storage access key is required")
	case cfg.SecretKey == "":
		return errors.New("storage secret key is required")
	}
	return nil
}

// normalizeEndpoint defaults to a local MinIO and assumes https when the
// scheme is missing
func normalizeEndpoint(endpoint string) (string, error) {
	if endpoint == "" {
		return defaultEndpoint, nil
	}
	if !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid storage endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid storage endpoint %q: scheme must be http or https", endpoint)
	}
	return endpoint, nil
}

// EnsureBucket creates the bucket unless it exists already
func (s *S3ObjectStore) EnsureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)})
	var (
		notFound     *types.NotFound
		noSuchBucket *types.NoSuchBucket
	)
	switch {
	case err == nil:
		return nil
	case !errors.As(err, &notFound) && !errors.As(err, &noSuchBucket):
		return fmt.Errorf("failed to look up bucket %s: %w", s.bucket, err)
	}

	s.log.Info("Creating batch image bucket", zap.String("bucket", s.bucket))
	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(s.bucket)})
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

// DeleteObjects removes the given keys in batches of up to 1000. Keys the
// backend reports as failed are collected into one joined error; missing
// keys count as deleted.
func (s *S3ObjectStore) DeleteObjects(ctx context.Context, keys []string) error {
	keys = compactKeys(keys)
	if len(keys) == 0 {
		return nil
	}
	if s.deleteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.deleteTimeout)
		defer cancel()
	}

	var errs []error
	for start := 0; start < len(keys); start += maxDeleteBatch {
		end := min(start+maxDeleteBatch, len(keys))
		objects := make([]types.ObjectIdentifier, 0, end-start)
		for _, key := range keys[start:end] {
			objects = append(objects, types.ObjectIdentifier{Key: aws.String(key)})
		}

		out, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(s.bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to delete objects: %w", err))
			continue
		}
		for _, e := range out.Errors {
			if aws.ToString(e.Code) == "NoSuchKey" {
				continue
			}
			errs = append(errs, fmt.Errorf("delete %s: %s: %s",
				aws.ToString(e.Key), aws.ToString(e.Code), aws.ToString(e.Message)))
		}
	}

	if len(errs) == 0 {
		s.log.Debug("Deleted batch images", zap.Int("count", len(keys)))
	}
	return errors.Join(errs...)
}

// GenerateDownloadURL returns a presigned GET URL. A non-positive expiresIn
// uses the store's default.
func (s *S3ObjectStore) GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error) {
	if storageKey == "" {
		return "", time.Time{}, errors.New("storage key is required")
	}
	if expiresIn <= 0 {
		expiresIn = s.urlTTL
	}

	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(storageKey),
	}, s3.WithPresignExpires(expiresIn))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to generate download URL: %w", err)
	}
	return req.URL, time.Now().Add(expiresIn), nil
}

// Bucket returns the bucket name
func (s *S3ObjectStore) Bucket() string {
	return s.bucket
}

func compactKeys(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
