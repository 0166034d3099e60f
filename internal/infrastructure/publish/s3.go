package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"PageviewLabeler/internal/config"
	"PageviewLabeler/internal/logging"
	"PageviewLabeler/internal/ports"
)

// partSize is the multipart chunk used for large aggregates.
const partSize = 8 * 1024 * 1024

// S3Publisher uploads run artifacts to an S3-compatible bucket.
type S3Publisher struct {
	uploader *manager.Uploader
	bucket   string
	prefix   string
	logger   *slog.Logger
}

var _ ports.Publisher = (*S3Publisher)(nil)

// NewS3Client builds a client for AWS or a custom endpoint such as MinIO.
func NewS3Client(cfg config.S3Config) *s3.Client {
	return s3.NewFromConfig(aws.Config{Region: cfg.Region}, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
		if cfg.AccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")
		}
	})
}

// NewS3Publisher wires an uploader for the configured bucket.
func NewS3Publisher(client *s3.Client, cfg config.S3Config, logger *slog.Logger) (*S3Publisher, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket is not configured")
	}
	uploader := manager.NewUploader(client, func(u *manager.Uploader) {
		u.PartSize = partSize
	})
	return &S3Publisher{
		uploader: uploader,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		logger:   logging.Component(logger, "s3"),
	}, nil
}

// ObjectKey places key under the configured prefix.
func (p *S3Publisher) ObjectKey(key string) string {
	if p.prefix == "" {
		return key
	}
	return path.Join(p.prefix, key)
}

// Publish streams body to bucket/prefix/key.
func (p *S3Publisher) Publish(ctx context.Context, key string, body io.Reader) error {
	objectKey := p.ObjectKey(key)
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(objectKey),
		Body:   body,
	}
	switch path.Ext(key) {
	case ".csv":
		input.ContentType = aws.String("text/csv")
	case ".json":
		input.ContentType = aws.String("application/json")
	}

	out, err := p.uploader.Upload(ctx, input)
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", p.bucket, objectKey, err)
	}
	p.logger.Info("artifact published", "bucket", p.bucket, "key", objectKey, "location", out.Location)
	return nil
}
