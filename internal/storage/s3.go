package storage

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"careerboost/internal/config"
	"careerboost/internal/errors"
)

const defaultRegion = "auto"

// S3Store keeps objects in an S3 compatible bucket (AWS, Cloudflare R2, MinIO)
type S3Store struct {
	client  *s3.Client
	bucket  string
	baseURL string
	logger  *errors.Logger
}

// NewS3Store creates the S3 client from cfg. Static credentials are used
// when configured, otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg *config.StorageConfig, logger *errors.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "storage bucket is required for s3", nil)
	}
	region := cfg.Region
	if region == "" {
		region = defaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "failed to load AWS configuration", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	logger.Info("S3 storage configured",
		"bucket", cfg.Bucket,
		"region", region,
		"custom_endpoint", cfg.Endpoint != "")

	return &S3Store{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: cfg.PublicBaseURL,
		logger:  logger,
	}, nil
}

// Put uploads data under key
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to upload object", err).
			WithContext("key", key)
	}
	s.logger.Debug("Object uploaded", "bucket", s.bucket, "key", key, "size", len(data))
	return nil
}

// Get downloads the object stored under key
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	key, err := cleanKey(key)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var missing *s3types.NoSuchKey
		if stderrors.As(err, &missing) {
			return nil, errors.NewNotFoundError(errors.ErrCodeFileNotFound, "object not found", err).
				WithContext("key", key)
		}
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to get object", err).
			WithContext("key", key)
	}
	defer func() { _ = out.Body.Close() }()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to read object body", err).
			WithContext("key", key)
	}
	return buf.Bytes(), nil
}

// Delete removes the object stored under key
func (s *S3Store) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return errors.NewStorageError(errors.ErrCodeStorageFailed, "failed to delete object", err).
			WithContext("key", key)
	}
	return nil
}

// URL returns the public URL of key, or an s3:// URI without a public base
func (s *S3Store) URL(key string) string {
	if s.baseURL != "" {
		return joinURL(s.baseURL, key)
	}
	return "s3://" + s.bucket + "/" + key
}
