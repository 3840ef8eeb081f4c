// Package s3source provides a ByteSource backed by an S3 object, reading
// byte ranges with ranged GetObject requests.
package s3source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// API is the subset of the S3 client used by Source.
type API interface {
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source reads ranges of a single object. ReadAt may be called concurrently.
type Source struct {
	client API
	bucket string
	key    string
	size   int64
	etag   string
}

// ParseURI splits an s3://bucket/key URI.
func ParseURI(uri string) (bucket, key string, ok bool) {
	rest, found := strings.CutPrefix(uri, "s3://")
	if !found {
		return "", "", false
	}
	bucket, key, found = strings.Cut(rest, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

// NewClient creates an S3 client from the default AWS configuration.
// An empty region keeps the region from the environment.
func NewClient(ctx context.Context, region string) (*s3.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

// Open looks up the object's size and returns a source for it.
func Open(ctx context.Context, client API, bucket, key string) (*Source, error) {
	head, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("head s3://%s/%s: %w", bucket, key, err)
	}
	if head.ContentLength == nil {
		return nil, fmt.Errorf("head s3://%s/%s: no content length", bucket, key)
	}
	return &Source{
		client: client,
		bucket: bucket,
		key:    key,
		size:   aws.ToInt64(head.ContentLength),
		etag:   strings.Trim(aws.ToString(head.ETag), `"`),
	}, nil
}

// Size returns the object length.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt fetches up to length bytes at offset with a ranged GET.
func (s *Source) ReadAt(ctx context.Context, offset int64, length int) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("s3source: invalid read of %d bytes at %d", length, offset)
	}
	if offset >= s.size {
		return nil, io.EOF
	}
	if length == 0 {
		return []byte{}, nil
	}

	end := offset + int64(length)
	short := end > s.size
	if short {
		end = s.size
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", offset, end-1)),
	}
	if s.etag != "" {
		// Fail rather than mix bytes from two versions of the object.
		input.IfMatch = aws.String(`"` + s.etag + `"`)
	}
	out, err := s.client.GetObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s %s: %w", s.bucket, s.key, *input.Range, err)
	}
	defer out.Body.Close()

	data := make([]byte, end-offset)
	n, err := io.ReadFull(out.Body, data)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("read s3://%s/%s: %w", s.bucket, s.key, err)
	}
	if short || n < len(data) {
		return data[:n], io.ErrUnexpectedEOF
	}
	return data, nil
}

// Identity combines bucket, key and ETag.
func (s *Source) Identity() string {
	return fmt.Sprintf("s3:%s/%s:%s:%d", s.bucket, s.key, s.etag, s.size)
}
