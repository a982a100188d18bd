package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	appconfig "github.com/noneedcode-dev/fiscalist-api/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// ErrObjectExists is returned by Upload when the target key is already
// occupied and the write was refused by the no-overwrite guard.
var ErrObjectExists = errors.New("storage: object already exists")

// S3Client is a long-lived object storage handle, constructed once in main
// and passed down. All calls take the caller's context so deadlines
// propagate into the HTTP round trips.
type S3Client struct {
	api *s3.Client
}

func NewS3Client(ctx context.Context, cfg appconfig.StorageConfig) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load storage config: %w", err)
	}

	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and friends route by path, not virtual host
			o.UsePathStyle = true
		}
	})

	return &S3Client{api: api}, nil
}

// Download fetches an object and returns its full contents.
func (c *S3Client) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := c.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

// Upload writes an object with an If-None-Match guard so an existing
// object at the same key is never silently overwritten.
func (c *S3Client) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		IfNoneMatch: aws.String("*"),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed" {
			return fmt.Errorf("upload %s: %w", key, ErrObjectExists)
		}
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}
