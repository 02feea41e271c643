package imagestore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/aryan0dhankhar/grievanceportal/internal/reliability/circuitbreaker"
)

// S3Config locates the bucket pictures are written to
type S3Config struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // set for MinIO or other S3-compatible stores
	AccessKey string
	SecretKey string
	PublicURL string // base URL pictures are served from
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Backend stores pictures as objects under <prefix>/<kind>/<name>
type S3Backend struct {
	cfg      S3Config
	uploader uploader
	deleter  objectDeleter
	breaker  *circuitbreaker.CircuitBreaker
	logger   *slog.Logger
}

// NewS3Backend builds an S3 client from static credentials when given, or the
// default AWS credential chain otherwise.
func NewS3Backend(ctx context.Context, cfg S3Config, logger *slog.Logger) (*S3Backend, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Backend(cfg, manager.NewUploader(client), client, logger), nil
}

func newS3Backend(cfg S3Config, up uploader, del objectDeleter, logger *slog.Logger) *S3Backend {
	if logger == nil {
		logger = slog.Default()
	}
	breaker := circuitbreaker.NewCircuitBreaker(5, 1, 30*time.Second)
	breaker.SetStateChangeCallback(func(from, to circuitbreaker.State) {
		logger.Warn("s3 circuit breaker state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return &S3Backend{cfg: cfg, uploader: up, deleter: del, breaker: breaker, logger: logger}
}

// Put uploads data, refusing to overwrite an existing object
func (b *S3Backend) Put(ctx context.Context, kind Kind, name string, data []byte, contentType string) error {
	var exists bool
	err := b.breaker.Execute(func() error {
		_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(b.cfg.Bucket),
			Key:         aws.String(b.key(kind, name)),
			Body:        bytes.NewReader(data),
			ContentType: aws.String(contentType),
			IfNoneMatch: aws.String("*"),
		})
		if isPreconditionFailed(err) {
			exists = true
			return nil
		}
		return err
	})
	if exists {
		return ErrExists
	}
	if err != nil {
		return fmt.Errorf("upload %s: %w", b.key(kind, name), err)
	}
	return nil
}

func (b *S3Backend) Delete(ctx context.Context, kind Kind, name string) error {
	return b.breaker.Execute(func() error {
		_, err := b.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(b.cfg.Bucket),
			Key:    aws.String(b.key(kind, name)),
		})
		return err
	})
}

func (b *S3Backend) URL(kind Kind, name string) string {
	key := b.key(kind, name)
	if b.cfg.PublicURL != "" {
		return strings.TrimRight(b.cfg.PublicURL, "/") + "/" + key
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", b.cfg.Bucket, b.cfg.Region, key)
}

func (b *S3Backend) key(kind Kind, name string) string {
	return path.Join(b.cfg.Prefix, string(kind), path.Base(name))
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode() == "PreconditionFailed"
}
