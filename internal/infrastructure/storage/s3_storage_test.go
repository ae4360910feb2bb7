package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/salesbi/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeS3 keeps objects in memory, keyed by bucket then key
type fakeS3 struct {
	buckets   map[string]map[string][]byte
	putErr    error
	headErr   error
	created   []string
	lastPut   *s3.PutObjectInput
	createErr error
}

func newFakeS3(buckets ...string) *fakeS3 {
	f := &fakeS3{buckets: map[string]map[string][]byte{}}
	for _, b := range buckets {
		f.buckets[b] = map[string][]byte{}
	}
	return f
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := f.buckets[aws.ToString(in.Bucket)][aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(data)),
		ContentLength: aws.Int64(int64(len(data))),
	}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.putErr != nil {
		return nil, f.putErr
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.lastPut = in
	f.buckets[aws.ToString(in.Bucket)][aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadBucket(_ context.Context, in *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if f.headErr != nil {
		return nil, f.headErr
	}
	if _, ok := f.buckets[aws.ToString(in.Bucket)]; !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadBucketOutput{}, nil
}

func (f *fakeS3) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	name := aws.ToString(in.Bucket)
	f.created = append(f.created, name)
	f.buckets[name] = map[string][]byte{}
	return &s3.CreateBucketOutput{}, nil
}

func newTestStorage(t *testing.T, client S3API, prefix string) *S3ObjectStorage {
	t.Helper()
	s, err := NewS3ObjectStorage(context.Background(),
		&config.StorageConfig{Bucket: "reports", OutputPrefix: prefix},
		WithClient(client), WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return s
}

func TestNewS3ObjectStorage_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, &config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("half of a key pair returns error", func(t *testing.T) {
		_, err := NewS3ObjectStorage(ctx, &config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be set together")

		_, err = NewS3ObjectStorage(ctx, &config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
	})

	t.Run("static credentials build an SDK client", func(t *testing.T) {
		s, err := NewS3ObjectStorage(ctx, &config.StorageConfig{
			Bucket:       "b",
			Endpoint:     "localhost:9000",
			AccessKey:    "k",
			SecretKey:    "s",
			UsePathStyle: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "b", s.Bucket())
		assert.IsType(t, &s3.Client{}, s.client)
	})
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "", endpointURL("", true))
	assert.Equal(t, "http://localhost:9000", endpointURL("localhost:9000", false))
	assert.Equal(t, "https://minio.internal", endpointURL("minio.internal", true))
	assert.Equal(t, "http://already:1", endpointURL("http://already:1", true))
}

func TestS3ObjectStorage_OutputKey(t *testing.T) {
	assert.Equal(t, "daily_kpis.csv", newTestStorage(t, newFakeS3(), "").OutputKey("daily_kpis.csv"))
	assert.Equal(t, "exports/2026/daily_kpis.csv",
		newTestStorage(t, newFakeS3(), "/exports/2026/").OutputKey("daily_kpis.csv"))
}

func TestS3ObjectStorage_UploadAndOpen(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3("reports")
	s := newTestStorage(t, fake, "")

	require.NoError(t, s.Upload(ctx, "top_countries.csv", strings.NewReader("country,sales\n"), "text/csv"))
	assert.Equal(t, "text/csv", aws.ToString(fake.lastPut.ContentType))

	rc, err := s.Open(ctx, "top_countries.csv")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "country,sales\n", string(body))
}

func TestS3ObjectStorage_Errors(t *testing.T) {
	ctx := context.Background()
	fake := newFakeS3("reports")
	s := newTestStorage(t, fake, "")

	_, err := s.Open(ctx, "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	_, err = s.Open(ctx, "")
	assert.Error(t, err)
	assert.Error(t, s.Upload(ctx, "", strings.NewReader(""), "text/csv"))

	fake.putErr = errors.New("access denied")
	err = s.Upload(ctx, "a.csv", strings.NewReader("x"), "text/csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}

func TestS3ObjectStorage_EnsureBucket(t *testing.T) {
	ctx := context.Background()

	t.Run("existing bucket is left alone", func(t *testing.T) {
		fake := newFakeS3("reports")
		require.NoError(t, newTestStorage(t, fake, "").EnsureBucket(ctx))
		assert.Empty(t, fake.created)
	})

	t.Run("missing bucket is created", func(t *testing.T) {
		fake := newFakeS3()
		require.NoError(t, newTestStorage(t, fake, "").EnsureBucket(ctx))
		assert.Equal(t, []string{"reports"}, fake.created)
	})

	t.Run("bucket created concurrently is fine", func(t *testing.T) {
		fake := newFakeS3()
		fake.createErr = &types.BucketAlreadyOwnedByYou{}
		assert.NoError(t, newTestStorage(t, fake, "").EnsureBucket(ctx))
	})

	t.Run("other head errors are returned", func(t *testing.T) {
		fake := newFakeS3()
		fake.headErr = errors.New("forbidden")
		err := newTestStorage(t, fake, "").EnsureBucket(ctx)
		require.Error(t, err)
		assert.Empty(t, fake.created)
	})
}

func TestParseS3URL(t *testing.T) {
	tests := []struct {
		in     string
		bucket string
		key    string
		ok     bool
	}{
		{"s3://landing/retail/2026-10-19.csv", "landing", "retail/2026-10-19.csv", true},
		{"s3://landing/", "", "", false},
		{"s3://landing", "", "", false},
		{"s3:///key.csv", "", "", false},
		{"data/online_retail.csv", "", "", false},
		{"https://landing.s3.amazonaws.com/x.csv", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			bucket, key, ok := ParseS3URL(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.bucket, bucket)
			assert.Equal(t, tt.key, key)
		})
	}
}

func TestOpenSource(t *testing.T) {
	ctx := context.Background()

	t.Run("local file", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "extract.csv")
		require.NoError(t, os.WriteFile(p, []byte("InvoiceNo\n"), 0o644))
		rc, err := OpenSource(ctx, p, nil)
		require.NoError(t, err)
		defer rc.Close()
		body, _ := io.ReadAll(rc)
		assert.Equal(t, "InvoiceNo\n", string(body))
	})

	t.Run("missing local file", func(t *testing.T) {
		_, err := OpenSource(ctx, filepath.Join(t.TempDir(), "nope.csv"), nil)
		assert.ErrorIs(t, err, ErrObjectNotFound)
	})

	t.Run("s3 url reads from the named bucket", func(t *testing.T) {
		fake := newFakeS3("reports", "landing")
		fake.buckets["landing"]["in.csv"] = []byte("x")
		rc, err := OpenSource(ctx, "s3://landing/in.csv", newTestStorage(t, fake, ""))
		require.NoError(t, err)
		defer rc.Close()
		body, _ := io.ReadAll(rc)
		assert.Equal(t, "x", string(body))
	})

	t.Run("s3 url without storage", func(t *testing.T) {
		_, err := OpenSource(ctx, "s3://landing/in.csv", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disabled")
	})
}

func TestLocalObjectStorage(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	l := NewLocalObjectStorage(root)

	require.NoError(t, l.Upload(ctx, "reports/daily_kpis.csv", strings.NewReader("v1"), "text/csv"))
	require.NoError(t, l.Upload(ctx, "reports/daily_kpis.csv", strings.NewReader("v2"), "text/csv"))

	data, err := os.ReadFile(filepath.Join(root, "reports", "daily_kpis.csv"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(filepath.Join(root, "reports"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")

	rc, err := l.Open(ctx, "reports/daily_kpis.csv")
	require.NoError(t, err)
	rc.Close()

	_, err = l.Open(ctx, "reports/other.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Error(t, l.Upload(ctx, "", strings.NewReader(""), ""))
}
