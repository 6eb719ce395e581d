package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/rs/zerolog"
)

// S3Config configures an S3Backend. Endpoint may point to any S3 compatible service.
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3Backend stores blobs as objects in an S3 bucket.
type S3Backend struct {
	client *s3.S3
	bucket string
	prefix string
	log    zerolog.Logger
}

// NewS3Backend returns a backend for config.Bucket. Static credentials are used when given,
// otherwise the default AWS credential chain.
func NewS3Backend(config S3Config, log zerolog.Logger) (*S3Backend, error) {
	if config.Bucket == "" {
		return nil, errors.New("metadata: missing S3 bucket")
	}
	cfg := aws.Config{
		Region: aws.String(config.Region),
	}
	if config.Endpoint != "" {
		cfg.Endpoint = aws.String(config.Endpoint)
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	sess, err := session.NewSession(&cfg)
	if err != nil {
		return nil, fmt.Errorf("metadata: create AWS session: %w", err)
	}
	return &S3Backend{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: strings.Trim(config.Prefix, "/"),
		log:    log.With().Str("bucket", config.Bucket).Logger(),
	}, nil
}

func (b *S3Backend) objectKey(key string) string {
	if b.prefix == "" {
		return key
	}
	return path.Join(b.prefix, key)
}

func (b *S3Backend) Fetch(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	objectKey := b.objectKey(key)
	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		var aerr awserr.Error
		if errors.As(err, &aerr) && aerr.Code() == s3.ErrCodeNoSuchKey {
			return nil, ErrNotFound
		}
		b.log.Error().Err(err).Str("key", objectKey).Dur("duration", time.Since(start)).Msg("S3 get failed")
		return nil, fmt.Errorf("metadata: S3 get: %w", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("metadata: S3 read body: %w", err)
	}
	b.log.Debug().Str("key", objectKey).Int("size", len(data)).Dur("duration", time.Since(start)).Msg("S3 get")
	return data, nil
}

func (b *S3Backend) Store(ctx context.Context, key string, data []byte) error {
	start := time.Now()
	objectKey := b.objectKey(key)
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(objectKey),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		b.log.Error().Err(err).Str("key", objectKey).Dur("duration", time.Since(start)).Msg("S3 put failed")
		return fmt.Errorf("metadata: S3 put: %w", err)
	}
	b.log.Debug().Str("key", objectKey).Int("size", len(data)).Dur("duration", time.Since(start)).Msg("S3 put")
	return nil
}

func (b *S3Backend) Name() string {
	return "s3-" + b.bucket
}
