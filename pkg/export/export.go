// Package export writes run documents (change-sets and run results) for audit, to a local
// directory and/or an S3 bucket. Keys are YYYY/MM/<run id>.json, S3 keys get a prefix.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-pkgz/lgr"

	"github.com/yitzyh/shtell/pkg/config"
	"github.com/yitzyh/shtell/pkg/domain"
)

//go:generate moq -out mocks/s3.go -pkg mocks -skip-ensure -fmt goimports . S3API

// Document is one exported run
type Document struct {
	RunID        string            `json:"run_id"`
	Command      string            `json:"command"`
	Policy       string            `json:"policy,omitempty"`
	RulesVersion string            `json:"rules_version,omitempty"`
	DryRun       bool              `json:"dry_run"`
	CreatedAt    time.Time         `json:"created_at"`
	ChangeSet    *domain.ChangeSet `json:"change_set,omitempty"`
	Result       any               `json:"result,omitempty"`
}

// Key returns the relative location of the document
func (d Document) Key() string {
	return path.Join(d.CreatedAt.UTC().Format("2006"), d.CreatedAt.UTC().Format("01"), d.RunID+".json")
}

// Writer stores data under a key and returns the resulting location
type Writer interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
}

// Exporter writes documents to all its writers
type Exporter struct {
	writers []Writer
}

// New makes Exporter, without writers Export does nothing
func New(writers ...Writer) *Exporter {
	return &Exporter{writers: writers}
}

// NewFromConfig makes Exporter with a directory writer if dir is set and S3 writer if bucket is set
func NewFromConfig(ctx context.Context, cfg config.ExportConfig) (*Exporter, error) {
	var writers []Writer
	if cfg.Dir != "" {
		writers = append(writers, NewDirWriter(cfg.Dir))
	}
	if cfg.S3.Bucket != "" {
		w, err := NewS3Writer(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	return New(writers...), nil
}

// Enabled reports whether the exporter has any writer
func (e *Exporter) Enabled() bool { return len(e.writers) > 0 }

// Export marshals the document and writes it with every writer. All writers are tried,
// locations of successful writes are returned together with the joined errors.
func (e *Exporter) Export(ctx context.Context, doc Document) ([]string, error) {
	if !e.Enabled() {
		return nil, nil
	}
	if doc.RunID == "" {
		return nil, errors.New("document has no run id")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", doc.RunID, err)
	}

	var locations []string
	var errs []error
	for _, w := range e.writers {
		loc, err := w.Write(ctx, doc.Key(), data)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		lgr.Printf("[INFO] exported run %s to %s", doc.RunID, loc)
		locations = append(locations, loc)
	}
	return locations, errors.Join(errs...)
}

// DirWriter writes files under a base directory
type DirWriter struct {
	dir string
}

// NewDirWriter makes DirWriter
func NewDirWriter(dir string) *DirWriter {
	return &DirWriter{dir: dir}
}

// Write creates the file with all missing directories
func (w *DirWriter) Write(_ context.Context, key string, data []byte) (string, error) {
	fname := filepath.Join(w.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fname), 0o750); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	if err := os.WriteFile(fname, data, 0o600); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}
	return fname, nil
}

// S3API is the subset of s3 client used by S3Writer
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer uploads objects to a bucket
type S3Writer struct {
	api    S3API
	bucket string
	prefix string
}

// NewS3Writer makes S3Writer with a client for the given config. Static credentials are used
// if set, otherwise the default AWS credential chain.
func NewS3Writer(ctx context.Context, cfg config.S3Config) (*S3Writer, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3 bucket name is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("s3 region is required")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3WriterWithAPI(client, cfg.Bucket, cfg.Prefix), nil
}

// NewS3WriterWithAPI makes S3Writer for the given client
func NewS3WriterWithAPI(api S3API, bucket, prefix string) *S3Writer {
	return &S3Writer{api: api, bucket: bucket, prefix: prefix}
}

// Write uploads data as a json object, the location is s3://bucket/key
func (w *S3Writer) Write(ctx context.Context, key string, data []byte) (string, error) {
	key = path.Join(w.prefix, key)
	_, err := w.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", w.bucket, key), nil
}
