package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.opentelemetry.io/otel"

	"mercator-hq/pivotal/pkg/config"
	"mercator-hq/pivotal/pkg/telemetry/tracing"
)

var tracer = otel.Tracer(tracing.InstrumentationName + "/publish")

// Upload statuses passed to an UploadHook.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ErrNoBucket is returned when the publisher is built without a bucket.
var ErrNoBucket = errors.New("publish: bucket is required")

// ObjectPutter is the subset of the S3 client used for uploads.
// *s3.Client satisfies it.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// UploadHook observes every upload attempt.
type UploadHook func(status string, bytes int64, duration time.Duration)

// Upload describes one object written to the bucket.
type Upload struct {
	Path     string
	Bucket   string
	Key      string
	Bytes    int64
	ETag     string
	Duration time.Duration
}

// Publisher copies finished export files into an S3 bucket.
type Publisher struct {
	client ObjectPutter
	bucket string
	prefix string
	hook   UploadHook
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithUploadHook registers a hook called after each upload.
func WithUploadHook(h UploadHook) Option {
	return func(p *Publisher) { p.hook = h }
}

// New wraps an existing client.
func New(client ObjectPutter, bucket, prefix string, opts ...Option) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("publish: client is required")
	}
	if bucket == "" {
		return nil, ErrNoBucket
	}
	p := &Publisher{
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: slog.Default().With("component", "publish"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// NewFromConfig builds an S3 client from the default AWS credential chain
// and the output configuration.
func NewFromConfig(ctx context.Context, cfg *config.S3Config, opts ...Option) (*Publisher, error) {
	if cfg == nil {
		return nil, errors.New("publish: nil s3 config")
	}
	if cfg.Bucket == "" {
		return nil, ErrNoBucket
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("publish: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return New(client, cfg.Bucket, cfg.Prefix, opts...)
}

// Bucket returns the destination bucket.
func (p *Publisher) Bucket() string { return p.bucket }

// Publish uploads a single file. The object key is the prefix joined with
// the file's base name.
func (p *Publisher) Publish(ctx context.Context, file string) (Upload, error) {
	key := ObjectKey(p.prefix, file)
	up := Upload{Path: file, Bucket: p.bucket, Key: key}

	ctx, span := tracer.Start(ctx, "publish.upload")
	defer span.End()
	tracing.SetPublishAttributes(span, p.bucket, key)

	start := time.Now()
	err := p.put(ctx, file, &up)
	up.Duration = time.Since(start)
	tracing.SetStatus(span, err)

	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	if p.hook != nil {
		p.hook(status, up.Bytes, up.Duration)
	}
	if err != nil {
		p.logger.Error("upload failed", "file", file, "key", key, "error", err)
		return up, err
	}

	p.logger.Info("uploaded",
		"file", file,
		"bucket", p.bucket,
		"key", key,
		"bytes", up.Bytes,
		"duration", up.Duration,
	)
	return up, nil
}

func (p *Publisher) put(ctx context.Context, file string, up *Upload) error {
	f, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("publish: open %s: %w", file, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("publish: stat %s: %w", file, err)
	}
	if info.IsDir() {
		return fmt.Errorf("publish: %s is a directory", file)
	}

	out, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(up.Key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(ContentType(file)),
	})
	if err != nil {
		return fmt.Errorf("publish: put s3://%s/%s: %w", p.bucket, up.Key, err)
	}

	up.Bytes = info.Size()
	if out != nil && out.ETag != nil {
		up.ETag = strings.Trim(*out.ETag, `"`)
	}
	return nil
}

// PublishAll uploads every file and keeps going after a failure. The
// returned error joins every failed upload.
func (p *Publisher) PublishAll(ctx context.Context, files []string) ([]Upload, error) {
	uploads := make([]Upload, 0, len(files))
	var errs []error
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		up, err := p.Publish(ctx, file)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		uploads = append(uploads, up)
	}
	return uploads, errors.Join(errs...)
}

// ObjectKey joins prefix and the base name of file with a single slash.
func ObjectKey(prefix, file string) string {
	base := filepath.Base(file)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// ContentType maps known export extensions to a MIME type.
func ContentType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".csv":
		return "text/csv"
	case ".ndjson", ".jsonl":
		return "application/x-ndjson"
	case ".json":
		return "application/json"
	case ".db", ".sqlite", ".sqlite3":
		return "application/vnd.sqlite3"
	default:
		return "application/octet-stream"
	}
}
