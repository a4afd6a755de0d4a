package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

const scheme = "s3://"

// ErrObjectNotFound is returned when the bucket or key does not exist.
var ErrObjectNotFound = errors.New("s3 object not found")

// Client is the subset of the S3 API the fetcher needs.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Config holds S3 client settings.
type Config struct {
	Region   string
	Endpoint string
	// PathStyle is required by most S3-compatible servers.
	PathStyle bool
	// CacheDir receives downloaded artifacts.
	CacheDir string
}

// Fetcher materializes s3:// artifacts on local disk once at startup.
type Fetcher struct {
	client   Client
	cacheDir string
	logger   *zap.Logger
}

// IsURI reports whether s names an S3 object.
func IsURI(s string) bool {
	return strings.HasPrefix(s, scheme)
}

// NewFetcher builds an S3 client from the default AWS credential chain.
func NewFetcher(ctx context.Context, cfg Config, logger *zap.Logger) (*Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.PathStyle
	})
	return New(client, cfg.CacheDir, logger), nil
}

// New wraps an existing client.
func New(client Client, cacheDir string, logger *zap.Logger) *Fetcher {
	if cacheDir == "" {
		cacheDir = os.TempDir()
	}
	return &Fetcher{client: client, cacheDir: cacheDir, logger: logger}
}

// Resolve returns a local path for location. Local paths are returned unchanged;
// s3://bucket/key objects are downloaded into the cache directory.
func (f *Fetcher) Resolve(ctx context.Context, location string) (string, error) {
	if !IsURI(location) {
		return location, nil
	}
	bucket, key, err := ParseURI(location)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(f.cacheDir, bucket, filepath.FromSlash(key))
	if err := f.download(ctx, bucket, key, dest); err != nil {
		return "", fmt.Errorf("fetch %s: %w", location, err)
	}
	f.logger.Info("artifact downloaded",
		zap.String("uri", location),
		zap.String("path", dest),
	)
	return dest, nil
}

// ParseURI splits s3://bucket/key.
func ParseURI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, scheme)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("invalid s3 uri %q", uri)
	}
	return bucket, key, nil
}

func (f *Fetcher) download(ctx context.Context, bucket, key, dest string) error {
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return ErrObjectNotFound
		}
		var nsb *types.NoSuchBucket
		if errors.As(err, &nsb) {
			return ErrObjectNotFound
		}
		return err
	}
	defer func() { _ = out.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp := dest + ".tmp"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(file, out.Body); err != nil {
		_ = file.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("write file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("close file: %w", err)
	}
	return os.Rename(tmp, dest)
}
