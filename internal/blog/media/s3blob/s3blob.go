// Package s3blob stores media blobs in an S3 compatible bucket (AWS S3,
// MinIO, ...).
package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/milan-stefanik/flyhigh/internal/blog/domain"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
)

// DefaultPrefix is where blobs live inside the bucket.
const DefaultPrefix = "media/"

type Config struct {
	Bucket    string
	Prefix    string // key prefix, DefaultPrefix when empty
	Region    string
	Endpoint  string // empty for AWS itself
	AccessKey string
	SecretKey string
}

// API is the subset of *s3.Client the store uses.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// Seams for tests.
var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = s3.NewFromConfig
)

type Store struct {
	client API
	bucket string
	prefix string
}

// New builds an S3 client from cfg. Static credentials are used when an
// access key is set, the default AWS chain otherwise.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("s3blob: bucket is required")
	}

	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("s3blob: load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(client, cfg.Bucket, cfg.Prefix), nil
}

var _ media.BlobStore = (*Store)(nil)

// NewWithClient wraps an existing client. The store never touches keys
// outside prefix; an empty prefix means DefaultPrefix.
func NewWithClient(client API, bucket, prefix string) *Store {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultPrefix
	} else {
		prefix += "/"
	}
	return &Store{client: client, bucket: bucket, prefix: prefix}
}

func (s *Store) key(filename string) *string {
	return aws.String(s.prefix + filename)
}

func (s *Store) Put(ctx context.Context, filename, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           s.key(filename),
		Body:          r,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return fmt.Errorf("s3blob: put %s: %w", filename, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, filename string) (domain.Blob, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(filename),
	})
	if err != nil {
		return domain.Blob{}, mapNotFound(filename, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return domain.Blob{}, fmt.Errorf("s3blob: read %s: %w", filename, err)
	}

	contentType := aws.ToString(out.ContentType)
	if contentType == "" {
		contentType = media.ContentType(filename)
	}
	return domain.Blob{
		Filename:    filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		Data:        data,
		CreatedAt:   createdAt(out.LastModified),
	}, nil
}

// Delete checks for the object first; S3 deletes are silent about missing
// keys.
func (s *Store) Delete(ctx context.Context, filename string) error {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(filename),
	})
	if err != nil {
		return mapNotFound(filename, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    s.key(filename),
	})
	if err != nil {
		return fmt.Errorf("s3blob: delete %s: %w", filename, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]domain.BlobInfo, error) {
	var out []domain.BlobInfo

	pages := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for pages.HasMorePages() {
		page, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list: %w", err)
		}
		for _, obj := range page.Contents {
			name, ok := strings.CutPrefix(aws.ToString(obj.Key), s.prefix)
			if !ok || name == "" || strings.Contains(name, "/") {
				continue
			}
			out = append(out, domain.BlobInfo{
				Filename:    name,
				ContentType: media.ContentType(name),
				Size:        aws.ToInt64(obj.Size),
				CreatedAt:   createdAt(obj.LastModified),
			})
		}
	}
	return out, nil
}

func mapNotFound(filename string, err error) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return media.ErrNotFound
	}
	return fmt.Errorf("s3blob: %s: %w", filename, err)
}

// createdAt treats objects without a modification time as brand new, which
// keeps them out of orphan sweeps.
func createdAt(t *time.Time) time.Time {
	if t == nil {
		return time.Now().UTC()
	}
	return t.UTC()
}
