// Package workflow sequences a single initialization run: provision the
// directory tree, mirror reference data from the config bucket, republish
// derived artifacts to the json bucket, and optionally purge map state.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/input-output-hk/catalyst-forge-libs/fs"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"

	"github.com/swot-confluence/init-workflow/internal/store"
	"github.com/swot-confluence/init-workflow/internal/workspace"
)

// Bucket name suffixes appended to the environment prefix.
const (
	configBucketSuffix   = "-config"
	jsonBucketSuffix     = "-json"
	mapStateBucketSuffix = "-map-state"
)

// Fixed object keys mirrored into the input directory.
const (
	continentLookupKey = "continent-setfinder.json"
	swordPatchesKey    = "sword_patches_v216.json"
)

// datasetPrefixes are the config-bucket prefixes mirrored wholesale.
var datasetPrefixes = []string{"gage", "sword"}

// Config holds the parameters of one initialization run.
type Config struct {
	// Prefix names the AWS environment; bucket names derive from it.
	Prefix string

	// ReachSubset is the reaches-of-interest file to fetch and republish.
	// Empty means skip.
	ReachSubset string

	// DeleteMapState requests a purge of the map-state bucket.
	DeleteMapState bool

	// MountRoot is the shared filesystem root. Defaults to /mnt.
	MountRoot string
}

// Runner executes initialization runs against an injected store client
// and filesystem.
type Runner struct {
	store  *store.Client
	fs     fs.Filesystem
	logger *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithFilesystem sets the filesystem used for directory provisioning.
// Defaults to the OS filesystem rooted at /.
func WithFilesystem(fsys fs.Filesystem) Option {
	return func(r *Runner) {
		r.fs = fsys
	}
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a Runner using the given store client.
func New(st *store.Client, opts ...Option) *Runner {
	r := &Runner{store: st}
	for _, opt := range opts {
		opt(r)
	}
	if r.fs == nil {
		r.fs = billy.NewOSFS("/")
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run performs one initialization pass. Steps are sequential and
// synchronous; the first failure aborts the run and propagates.
func (r *Runner) Run(ctx context.Context, cfg Config) error {
	if cfg.MountRoot == "" {
		cfg.MountRoot = workspace.DefaultMountRoot
	}
	r.logger.Info("initializing workflow", "prefix", cfg.Prefix)
	if cfg.ReachSubset != "" {
		r.logger.Info("reaches of interest subset requested", "file", cfg.ReachSubset)
	}

	if err := workspace.Provision(r.fs, cfg.MountRoot); err != nil {
		return err
	}
	r.logger.Info("set up working directories", "root", cfg.MountRoot)

	if err := r.fetchData(ctx, cfg); err != nil {
		return err
	}
	r.logger.Info("downloaded required input data")

	if err := r.publishArtifacts(ctx, cfg); err != nil {
		return err
	}

	if cfg.DeleteMapState {
		mapStateBucket := cfg.Prefix + mapStateBucketSuffix
		if err := r.store.PurgeBucket(ctx, mapStateBucket); err != nil {
			return err
		}
		r.logger.Info("purged map state", "bucket", mapStateBucket)
	}

	return nil
}

// fetchData mirrors the reference datasets from the config bucket into
// the input directory. Files already present locally are not fetched again.
func (r *Runner) fetchData(ctx context.Context, cfg Config) error {
	configBucket := cfg.Prefix + configBucketSuffix
	inputDir := filepath.Join(cfg.MountRoot, workspace.InputDir)

	if cfg.ReachSubset != "" {
		dest := filepath.Join(inputDir, cfg.ReachSubset)
		if err := r.store.FetchObject(ctx, configBucket, cfg.ReachSubset, dest); err != nil {
			return fmt.Errorf("fetch reach subset: %w", err)
		}
	}

	if err := r.store.FetchObject(ctx, configBucket, continentLookupKey,
		filepath.Join(inputDir, continentLookupKey)); err != nil {
		return fmt.Errorf("fetch continent lookup: %w", err)
	}

	if err := r.store.FetchObject(ctx, configBucket, swordPatchesKey,
		filepath.Join(inputDir, swordPatchesKey)); err != nil {
		return fmt.Errorf("fetch sword patches: %w", err)
	}

	for _, prefix := range datasetPrefixes {
		if err := r.store.FetchPrefix(ctx, configBucket, prefix, inputDir); err != nil {
			return fmt.Errorf("fetch %s data: %w", prefix, err)
		}
	}

	return nil
}

// publishArtifacts re-uploads the continent lookup and, when supplied,
// the reach subset file to the json bucket.
func (r *Runner) publishArtifacts(ctx context.Context, cfg Config) error {
	jsonBucket := cfg.Prefix + jsonBucketSuffix
	inputDir := filepath.Join(cfg.MountRoot, workspace.InputDir)

	if err := r.store.PublishFile(ctx, jsonBucket, continentLookupKey,
		filepath.Join(inputDir, continentLookupKey)); err != nil {
		return fmt.Errorf("publish continent lookup: %w", err)
	}

	if cfg.ReachSubset != "" {
		if err := r.store.PublishFile(ctx, jsonBucket, cfg.ReachSubset,
			filepath.Join(inputDir, cfg.ReachSubset)); err != nil {
			return fmt.Errorf("publish reach subset: %w", err)
		}
	}

	return nil
}
