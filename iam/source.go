package iam

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

// Source opens scenario files by name.
type Source interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FileName is the name of the scenario file of (model, pathway).
func FileName(model, pathway string) string {
	return strings.ToLower(model) + "_" + pathway + ".csv"
}

// Fetch opens the scenario file of (model, pathway) from source, decrypts
// it when key is set, and loads it into a cube.
func Fetch(ctx context.Context, source Source, model, pathway, key string, variables VariableMap, opts ...CubeOption) (*Cube, error) {
	model, err := NormalizeModel(model)
	if err != nil {
		return nil, err
	}

	name := FileName(model, pathway)
	rc, err := source.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to open scenario file %s: %w", name, err)
	}
	defer rc.Close()

	var r io.Reader = rc
	if key != "" {
		token, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("failed to read scenario file %s: %w", name, err)
		}
		plain, err := Decrypt(token, key)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		r = bytes.NewReader(plain)
	}

	cube, err := Load(r, variables, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if cube.Model != model || !strings.EqualFold(cube.Pathway, pathway) {
		return nil, fmt.Errorf("%s: file holds scenario %s/%s", name, cube.Model, cube.Pathway)
	}
	return cube, nil
}

// DirSource reads scenario files from a local directory.
type DirSource struct {
	Dir string
}

func (source DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(source.Dir, name))
}

type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string // optional, S3 compatible stores such as MinIO
	PathStyle       bool
	AccessKeyID     string // optional, default credentials chain otherwise
	SecretAccessKey string
	SessionToken    string
}

// S3Source reads scenario files from an S3 bucket.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

func NewS3Source(ctx context.Context, cfg S3Config, optFns ...func(*s3.Options)) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKeyID != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, append([]func(*s3.Options){func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	}}, optFns...)...)

	return &S3Source{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

func (source *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(source.prefix, name)
	out, err := source.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(source.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get s3://%s/%s: %w", source.bucket, key, err)
	}
	slog.Debug("scenario file fetched", "bucket", source.bucket, "key", key)
	return out.Body, nil
}

// GCSSource reads scenario files from a Google Cloud Storage bucket.
type GCSSource struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSSource(ctx context.Context, bucket, prefix string, opts ...option.ClientOption) (*GCSSource, error) {
	if bucket == "" {
		return nil, fmt.Errorf("gcs bucket required")
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSSource{client: client, bucket: bucket, prefix: prefix}, nil
}

func (source *GCSSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := path.Join(source.prefix, name)
	r, err := source.client.Bucket(source.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", source.bucket, key, err)
	}
	slog.Debug("scenario file fetched", "bucket", source.bucket, "key", key)
	return r, nil
}

func (source *GCSSource) Close() error {
	return source.client.Close()
}
