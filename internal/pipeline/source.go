package pipeline

import (
	"context"
	"fmt"

	"github.com/polca/premise-sub000/iam"
	"github.com/polca/premise-sub000/internal/config"
	"google.golang.org/api/option"
)

// NewSource opens the scenario file source described by cfg. The returned
// close function releases its client.
func NewSource(ctx context.Context, cfg config.IAMConfig) (iam.Source, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Source {
	case config.SourceDir:
		return iam.DirSource{Dir: cfg.Path}, noop, nil

	case config.SourceS3:
		source, err := iam.NewS3Source(ctx, iam.S3Config{
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			PathStyle: cfg.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return source, noop, nil

	case config.SourceGCS:
		var opts []option.ClientOption
		if cfg.CredentialsFile != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
		}
		source, err := iam.NewGCSSource(ctx, cfg.Bucket, cfg.Prefix, opts...)
		if err != nil {
			return nil, nil, err
		}
		return source, source.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown iam source %q", config.ErrInvalid, cfg.Source)
}
