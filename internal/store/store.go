// Package store provides the object store client used to seed and clean up
// the workflow environment. It wraps the AWS S3 client with the three
// operations the initializer needs: conditional fetch, encrypted publish,
// and bucket purge.
package store

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/swot-confluence/init-workflow/internal/store/s3api"
)

// Client provides access to the workflow's object store buckets.
// It is constructed once per run and passed into each step explicitly;
// there is no package-level shared client.
type Client struct {
	// s3Client is the underlying AWS SDK S3 client
	s3Client s3api.S3API

	// fs is the filesystem abstraction for mirror-file operations
	fs fs.Filesystem

	// logger records transfers and skips (thread-safe)
	logger *slog.Logger

	// retryer wraps every S3 call (default: no retries)
	retryer Retryer
}

// Option configures a Client.
type Option func(*options)

type options struct {
	region  string
	awsCfg  *aws.Config
	fs      fs.Filesystem
	logger  *slog.Logger
	retryer Retryer
}

// WithRegion sets the AWS region for the client.
func WithRegion(region string) Option {
	return func(o *options) {
		o.region = region
	}
}

// WithAWSConfig supplies a pre-built AWS configuration instead of the
// default credential chain. Useful for LocalStack or custom endpoints.
func WithAWSConfig(cfg *aws.Config) Option {
	return func(o *options) {
		o.awsCfg = cfg
	}
}

// WithFilesystem sets the filesystem implementation used for local mirror
// files. Defaults to the OS filesystem rooted at /.
func WithFilesystem(fsys fs.Filesystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRetryer sets the retry policy applied to every S3 call.
// Defaults to NopRetryer.
func WithRetryer(retryer Retryer) Option {
	return func(o *options) {
		o.retryer = retryer
	}
}

// New creates a new store client. Credentials come from the default AWS
// credential chain unless WithAWSConfig is given.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	var cfg aws.Config
	var err error
	if o.awsCfg != nil {
		cfg = *o.awsCfg
	} else {
		cfg, err = config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
	}
	if o.region != "" {
		cfg.Region = o.region
	}

	c := &Client{
		s3Client: s3.NewFromConfig(cfg),
		fs:       o.fs,
		logger:   o.logger,
		retryer:  o.retryer,
	}
	c.applyDefaults()
	return c, nil
}

// NewWithClient creates a store client with a custom S3API implementation.
// This is primarily used for testing with mocked clients.
func NewWithClient(s3Client s3api.S3API, opts ...Option) *Client {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	c := &Client{
		s3Client: s3Client,
		fs:       o.fs,
		logger:   o.logger,
		retryer:  o.retryer,
	}
	c.applyDefaults()
	return c
}

func (c *Client) applyDefaults() {
	if c.fs == nil {
		c.fs = billy.NewOSFS("/")
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.retryer == nil {
		c.retryer = NopRetryer{}
	}
}
