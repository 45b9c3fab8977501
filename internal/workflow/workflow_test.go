package workflow

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/input-output-hk/catalyst-forge-libs/fs/billy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swot-confluence/init-workflow/internal/store"
	"github.com/swot-confluence/init-workflow/internal/store/testutil"
	"github.com/swot-confluence/init-workflow/internal/workspace"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestRunner wires a Runner and its store client to the same in-memory
// filesystem, mirroring how main wires them to the OS filesystem.
func newTestRunner(mock *testutil.MockS3Client) (*Runner, *billy.FS) {
	fsys := billy.NewInMemoryFS()
	st := store.NewWithClient(mock,
		store.WithFilesystem(fsys),
		store.WithLogger(discardLogger()),
	)
	runner := New(st, WithFilesystem(fsys), WithLogger(discardLogger()))
	return runner, fsys
}

func TestRun_EndToEnd(t *testing.T) {
	var downloads []string
	uploads := make(map[string]awstypes.ServerSideEncryption)

	mock := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			assert.Equal(t, "test-config", aws.ToString(params.Bucket))
			key := aws.ToString(params.Key)
			downloads = append(downloads, key)
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader(`{"key": "` + key + `"}`)),
			}, nil
		},
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			// No bulk datasets staged in this scenario.
			return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
		},
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			assert.Equal(t, "test-json", aws.ToString(params.Bucket))
			uploads[aws.ToString(params.Key)] = params.ServerSideEncryption
			return &s3.PutObjectOutput{}, nil
		},
	}
	runner, fsys := newTestRunner(mock)

	err := runner.Run(context.Background(), Config{
		Prefix:      "test",
		ReachSubset: "roi_123.json",
	})
	require.NoError(t, err)

	// Full directory tree provisioned.
	for _, dir := range workspace.Dirs("/mnt") {
		info, serr := fsys.Stat(dir)
		require.NoError(t, serr, "expected %s to exist", dir)
		assert.True(t, info.IsDir())
	}

	assert.Contains(t, downloads, "roi_123.json")
	assert.Contains(t, downloads, "continent-setfinder.json")
	assert.Contains(t, downloads, "sword_patches_v216.json")

	require.Contains(t, uploads, "roi_123.json")
	require.Contains(t, uploads, "continent-setfinder.json")
	assert.Equal(t, awstypes.ServerSideEncryptionAwsKms, uploads["roi_123.json"])
	assert.Equal(t, awstypes.ServerSideEncryptionAwsKms, uploads["continent-setfinder.json"])

	data, err := fsys.ReadFile("/mnt/input/roi_123.json")
	require.NoError(t, err)
	assert.Equal(t, `{"key": "roi_123.json"}`, string(data))
}

func TestRun_NoReachSubset(t *testing.T) {
	var downloads []string
	var uploads []string

	mock := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			downloads = append(downloads, aws.ToString(params.Key))
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("{}")),
			}, nil
		},
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
		},
		PutObjectFunc: func(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
			uploads = append(uploads, aws.ToString(params.Key))
			return &s3.PutObjectOutput{}, nil
		},
	}
	runner, _ := newTestRunner(mock)

	err := runner.Run(context.Background(), Config{Prefix: "test"})
	require.NoError(t, err)

	assert.NotContains(t, downloads, "roi_123.json")
	assert.Equal(t, []string{"continent-setfinder.json"}, uploads)
}

func TestRun_DeleteMapState(t *testing.T) {
	pages := 0
	var deleteCalls [][]string

	mock := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("{}")),
			}, nil
		},
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			if aws.ToString(params.Bucket) != "test-map-state" {
				return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
			}
			pages++
			switch pages {
			case 1:
				return &s3.ListObjectsV2Output{
					Contents: []awstypes.Object{
						{Key: aws.String("map/a.json")},
						{Key: aws.String("map/b.json")},
					},
					IsTruncated:           aws.Bool(true),
					NextContinuationToken: aws.String("next"),
				}, nil
			default:
				return &s3.ListObjectsV2Output{
					Contents: []awstypes.Object{
						{Key: aws.String("map/c.json")},
					},
					IsTruncated: aws.Bool(false),
				}, nil
			}
		},
		DeleteObjectsFunc: func(ctx context.Context, params *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error) {
			assert.Equal(t, "test-map-state", aws.ToString(params.Bucket))
			var keys []string
			for _, obj := range params.Delete.Objects {
				keys = append(keys, aws.ToString(obj.Key))
			}
			deleteCalls = append(deleteCalls, keys)
			return &s3.DeleteObjectsOutput{}, nil
		},
	}
	runner, _ := newTestRunner(mock)

	err := runner.Run(context.Background(), Config{
		Prefix:         "test",
		DeleteMapState: true,
	})
	require.NoError(t, err)

	require.Len(t, deleteCalls, 1)
	assert.ElementsMatch(t, []string{"map/a.json", "map/b.json", "map/c.json"}, deleteCalls[0])
}

func TestRun_SecondRunSkipsExistingData(t *testing.T) {
	downloads := 0
	mock := &testutil.MockS3Client{
		GetObjectFunc: func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
			downloads++
			return &s3.GetObjectOutput{
				Body: io.NopCloser(strings.NewReader("{}")),
			}, nil
		},
		ListObjectsV2Func: func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
			return &s3.ListObjectsV2Output{IsTruncated: aws.Bool(false)}, nil
		},
	}
	runner, _ := newTestRunner(mock)

	require.NoError(t, runner.Run(context.Background(), Config{Prefix: "test"}))
	first := downloads

	require.NoError(t, runner.Run(context.Background(), Config{Prefix: "test"}))
	assert.Equal(t, first, downloads, "second run must not re-download mirrored files")
}
