// Package s3 provides the S3-compatible blob store for exported datasets.
package s3

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"medsynth/internal/blob"
)

// Store writes exported datasets to a single bucket in an S3 or MinIO
// compatible backend. Keys map to object keys directly.
type Store struct {
	client *s3.Client
	bucket string
}

// Config holds explicit construction parameters, mostly for tests. Production
// use relies on the default AWS credentials chain plus the environment
// variables read by OpenFromEnv.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string // optional, enables a custom endpoint such as MinIO
	PathStyle bool
}

// NewStore creates an S3 blob store from Config.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.PathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &Store{client: client, bucket: cfg.Bucket}, nil
}

// Environment variables:
//   MEDSYNTH_EXPORT_S3_BUCKET=<bucket> (required)
//   MEDSYNTH_EXPORT_S3_REGION=<region> (default us-east-1)
//   MEDSYNTH_EXPORT_S3_ENDPOINT=<url> (optional, for MinIO)
//   MEDSYNTH_EXPORT_S3_PATH_STYLE=true|false (default false)
//   AWS_ACCESS_KEY_ID / AWS_SECRET_ACCESS_KEY / AWS_SESSION_TOKEN (optional)

// OpenFromEnv constructs an S3 store from process environment.
func OpenFromEnv(ctx context.Context) (*Store, error) {
	bucket := os.Getenv("MEDSYNTH_EXPORT_S3_BUCKET")
	if bucket == "" {
		return nil, fmt.Errorf("MEDSYNTH_EXPORT_S3_BUCKET required for s3 export")
	}
	return NewStore(ctx, Config{
		Bucket:    bucket,
		Region:    os.Getenv("MEDSYNTH_EXPORT_S3_REGION"),
		Endpoint:  os.Getenv("MEDSYNTH_EXPORT_S3_ENDPOINT"),
		PathStyle: strings.EqualFold(os.Getenv("MEDSYNTH_EXPORT_S3_PATH_STYLE"), "true"),
	})
}

// Driver reports the s3 driver.
func (s *Store) Driver() blob.Driver { return blob.DriverS3 }

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Put uploads the object, replacing any previous content under the key.
func (s *Store) Put(ctx context.Context, key string, r io.Reader, opts blob.PutOptions) (blob.Info, error) {
	counted := &countingReader{r: r}
	input := &s3.PutObjectInput{Bucket: &s.bucket, Key: &key, Body: counted}
	if opts.ContentType != "" {
		input.ContentType = &opts.ContentType
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return blob.Info{}, fmt.Errorf("put %s: %w", key, err)
	}
	return blob.Info{Key: key, Size: counted.n, ContentType: opts.ContentType, LastModified: time.Now().UTC()}, nil
}

// Get downloads the object under the key.
func (s *Store) Get(ctx context.Context, key string) (blob.Info, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: &s.bucket, Key: &key})
	if err != nil {
		return blob.Info{}, nil, fmt.Errorf("get %s: %w", key, err)
	}
	info := blob.Info{Key: key, LastModified: time.Now().UTC()}
	if out.ContentLength != nil {
		info.Size = *out.ContentLength
	}
	if out.ContentType != nil {
		info.ContentType = *out.ContentType
	}
	if out.LastModified != nil {
		info.LastModified = *out.LastModified
	}
	return info, out.Body, nil
}

// List pages ListObjectsV2 results for the prefix, sorted by key.
func (s *Store) List(ctx context.Context, prefix string) ([]blob.Info, error) {
	var infos []blob.Info
	var token *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: &s.bucket, Prefix: &prefix, ContinuationToken: token})
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, err)
		}
		for _, obj := range out.Contents {
			info := blob.Info{Key: aws.ToString(obj.Key), LastModified: aws.ToTime(obj.LastModified)}
			if obj.Size != nil {
				info.Size = *obj.Size
			}
			infos = append(infos, info)
		}
		if out.IsTruncated != nil && *out.IsTruncated && out.NextContinuationToken != nil {
			token = out.NextContinuationToken
			continue
		}
		break
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}
