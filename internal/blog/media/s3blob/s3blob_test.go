package s3blob

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/milan-stefanik/flyhigh/internal/blog/media"
	"github.com/stretchr/testify/require"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// fakeS3 is an in-memory bucket.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]object
	putErr  error
}

func newFakeS3() *fakeS3 { return &fakeS3{objects: map[string]object{}} }

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.ToString(in.Key)] = object{data: data, contentType: aws.ToString(in.ContentType), modified: time.Now()}
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:         io.NopCloser(bytes.NewReader(obj.data)),
		ContentType:  aws.String(obj.contentType),
		LastModified: aws.Time(obj.modified),
	}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.objects[aws.ToString(in.Key)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}
	for k, v := range f.objects {
		if !strings.HasPrefix(k, aws.ToString(in.Prefix)) {
			continue
		}
		out.Contents = append(out.Contents, types.Object{
			Key:          aws.String(k),
			Size:         aws.Int64(int64(len(v.data))),
			LastModified: aws.Time(v.modified),
		})
	}
	return out, nil
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewWithClient(newFakeS3(), "flyhigh", "")

	require.NoError(t, s.Put(ctx, "0123456789abcdef.png", "image/png", strings.NewReader("png!"), 4))

	b, err := s.Get(ctx, "0123456789abcdef.png")
	require.NoError(t, err)
	require.Equal(t, []byte("png!"), b.Data)
	require.Equal(t, "image/png", b.ContentType)
	require.Equal(t, int64(4), b.Size)

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "image/png", infos[0].ContentType)

	require.NoError(t, s.Delete(ctx, "0123456789abcdef.png"))
	require.ErrorIs(t, s.Delete(ctx, "0123456789abcdef.png"), media.ErrNotFound)

	_, err = s.Get(ctx, "0123456789abcdef.png")
	require.ErrorIs(t, err, media.ErrNotFound)
}

func TestStoreStaysUnderPrefix(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3()
	fake.objects["backups/2026-10-01.sql.gz"] = object{data: []byte("dump"), modified: time.Now().Add(-48 * time.Hour)}
	fake.objects["0123456789abcdef.png"] = object{data: []byte("root"), modified: time.Now().Add(-48 * time.Hour)}
	fake.objects["media/nested/0123456789abcdef.png"] = object{data: []byte("deep"), modified: time.Now().Add(-48 * time.Hour)}
	s := NewWithClient(fake, "shared-bucket", "")

	require.NoError(t, s.Put(ctx, "fedcba9876543210.jpg", "image/jpeg", strings.NewReader("jpg!"), 4))
	require.Contains(t, fake.objects, "media/fedcba9876543210.jpg")

	infos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, "fedcba9876543210.jpg", infos[0].Filename)

	_, err = s.Get(ctx, "0123456789abcdef.png")
	require.ErrorIs(t, err, media.ErrNotFound)
	require.ErrorIs(t, s.Delete(ctx, "0123456789abcdef.png"), media.ErrNotFound)

	p := media.NewPipeline(s, t.TempDir(), nil)
	n, err := p.SweepOrphans(ctx, nil, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Contains(t, fake.objects, "backups/2026-10-01.sql.gz")
	require.Contains(t, fake.objects, "0123456789abcdef.png")
	require.Contains(t, fake.objects, "media/nested/0123456789abcdef.png")
}

func TestCustomPrefix(t *testing.T) {
	fake := newFakeS3()
	s := NewWithClient(fake, "shared-bucket", "/blog/images")

	require.NoError(t, s.Put(context.Background(), "fedcba9876543210.png", "image/png", strings.NewReader("x"), 1))
	require.Contains(t, fake.objects, "blog/images/fedcba9876543210.png")
}

func TestPutError(t *testing.T) {
	fake := newFakeS3()
	fake.putErr = errors.New("access denied")
	s := NewWithClient(fake, "flyhigh", "")

	err := s.Put(context.Background(), "a.jpg", "image/jpeg", strings.NewReader("x"), 1)
	require.ErrorContains(t, err, "access denied")
	require.NotErrorIs(t, err, media.ErrNotFound)
}

func TestNew(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	t.Run("applies region and endpoint", func(t *testing.T) {
		loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			var lo awsconfig.LoadOptions
			for _, fn := range optFns {
				require.NoError(t, fn(&lo))
			}
			require.Equal(t, "eu-central-1", lo.Region)
			require.NotNil(t, lo.Credentials)
			return aws.Config{}, nil
		}

		var opts s3.Options
		newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
			for _, fn := range optFns {
				fn(&opts)
			}
			return &s3.Client{}
		}

		s, err := New(context.Background(), Config{
			Bucket: "flyhigh", Region: "eu-central-1", Endpoint: "http://127.0.0.1:9000",
			AccessKey: "minioadmin", SecretKey: "minioadmin",
		})
		require.NoError(t, err)
		require.NotNil(t, s)
		require.Equal(t, "http://127.0.0.1:9000", aws.ToString(opts.BaseEndpoint))
		require.True(t, opts.UsePathStyle)
	})

	t.Run("config error", func(t *testing.T) {
		loadDefaultAWSConfig = func(context.Context, ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
			return aws.Config{}, errors.New("no region")
		}
		_, err := New(context.Background(), Config{Bucket: "flyhigh"})
		require.ErrorContains(t, err, "no region")
	})

	t.Run("bucket required", func(t *testing.T) {
		_, err := New(context.Background(), Config{})
		require.Error(t, err)
	})
}
