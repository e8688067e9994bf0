package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3Store implements Store over an S3-compatible object store.
type S3Store struct {
	client *s3.Client
	bucket string
}

// S3Config holds configuration for the S3-backed blob store.
type S3Config struct {
	BucketName      string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
}

// NewS3Store creates a blob store over an S3-compatible endpoint.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.BucketName == "" {
		return nil, errors.New("bucket name is required")
	}
	if cfg.AccessKeyID == "" {
		return nil, errors.New("access key ID is required")
	}
	if cfg.SecretAccessKey == "" {
		return nil, errors.New("secret access key is required")
	}
	if cfg.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}

	client := s3.New(s3.Options{
		Region: "auto",
		Credentials: aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
		BaseEndpoint: aws.String(cfg.Endpoint),
		UsePathStyle: true, // required by R2 and MinIO-style endpoints
	})

	return &S3Store{client: client, bucket: cfg.BucketName}, nil
}

// Put writes the payload under the locator.
func (s *S3Store) Put(ctx context.Context, locator string, payload []byte) error {
	if locator == "" {
		return ErrEmptyLocator
	}
	if len(payload) == 0 {
		return ErrEmptyPayload
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(locator),
		Body:        bytes.NewReader(payload),
		ContentType: aws.String("application/octet-stream"),
		IfNoneMatch: aws.String("*"), // refuse overwrite of an existing locator
	})
	if err != nil {
		if isPreconditionFailed(err) {
			return ErrLocatorInUse
		}
		return fmt.Errorf("put object %s: %w", locator, err)
	}
	return nil
}

// Get reads the payload stored under the locator.
func (s *S3Store) Get(ctx context.Context, locator string) ([]byte, error) {
	if locator == "" {
		return nil, ErrEmptyLocator
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get object %s: %w", locator, err)
	}
	defer out.Body.Close()

	payload, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object %s: %w", locator, err)
	}
	return payload, nil
}

// Delete removes the payload stored under the locator.
func (s *S3Store) Delete(ctx context.Context, locator string) error {
	if locator == "" {
		return ErrEmptyLocator
	}

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(locator),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", locator, err)
	}
	return nil
}

func isPreconditionFailed(err error) bool {
	var apiErr interface{ ErrorCode() string }
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "PreconditionFailed"
	}
	return false
}
