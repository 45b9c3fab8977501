package store

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	storeerrors "github.com/swot-confluence/init-workflow/internal/store/errors"
)

// FetchObject downloads bucket/key to dest, creating implied parent
// directories. A dest file that already exists is the sole "already
// fetched" signal: the download is skipped and no remote call is made.
func (c *Client) FetchObject(ctx context.Context, bucket, key, dest string) error {
	if bucket == "" || key == "" {
		return storeerrors.NewObjectError("fetchObject", bucket, key, storeerrors.ErrInvalidInput)
	}

	exists, err := c.fs.Exists(dest)
	if err != nil {
		return storeerrors.NewObjectError("fetchObject", bucket, key, err)
	}
	if exists {
		c.logger.Info("not downloading, file exists", "path", dest)
		return nil
	}

	if err := c.downloadTo(ctx, bucket, key, dest); err != nil {
		return err
	}
	c.logger.Info("downloaded object", "bucket", bucket, "key", key, "path", dest)
	return nil
}

// FetchPrefix downloads every object under prefix into destRoot. The
// destination path joins destRoot with the full key, so internal path
// segments of a key become subdirectories. Listing is fully paginated
// before any conclusion is drawn; an empty result set is a no-op.
// Objects are processed in listing order.
func (c *Client) FetchPrefix(ctx context.Context, bucket, prefix, destRoot string) error {
	if bucket == "" {
		return storeerrors.NewError("fetchPrefix", storeerrors.ErrInvalidInput).WithBucket(bucket)
	}

	keys, err := c.listKeys(ctx, bucket, prefix)
	if err != nil {
		return storeerrors.NewError("fetchPrefix", err).WithBucket(bucket).WithKey(prefix)
	}
	if len(keys) == 0 {
		c.logger.Info("no objects under prefix", "bucket", bucket, "prefix", prefix)
		return nil
	}

	for _, key := range keys {
		dest := filepath.Join(destRoot, key)

		exists, err := c.fs.Exists(dest)
		if err != nil {
			return storeerrors.NewObjectError("fetchPrefix", bucket, key, err)
		}
		if exists {
			c.logger.Info("not downloading, file exists", "path", dest)
			continue
		}

		if err := c.downloadTo(ctx, bucket, key, dest); err != nil {
			return err
		}
		c.logger.Info("downloaded object", "bucket", bucket, "key", key, "path", dest)
	}
	return nil
}

// listKeys collects the keys of every object under prefix, consuming all
// listing pages. An empty prefix lists the whole bucket.
func (c *Client) listKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	var continuationToken *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:  aws.String(bucket),
			MaxKeys: aws.Int32(1000),
		}
		if prefix != "" {
			input.Prefix = aws.String(prefix)
		}
		if continuationToken != nil {
			input.ContinuationToken = continuationToken
		}

		var output *s3.ListObjectsV2Output
		err := c.callWithRetry(ctx, func() error {
			var lerr error
			output, lerr = c.s3Client.ListObjectsV2(ctx, input)
			return lerr
		})
		if err != nil {
			return nil, err
		}

		for _, obj := range output.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}

		if !aws.ToBool(output.IsTruncated) {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	return keys, nil
}

// downloadTo streams bucket/key into a freshly created dest file.
func (c *Client) downloadTo(ctx context.Context, bucket, key, dest string) error {
	if dir := filepath.Dir(dest); dir != "." && dir != "/" {
		if err := c.fs.MkdirAll(dir, 0o755); err != nil {
			return storeerrors.NewObjectError("download", bucket, key, err)
		}
	}

	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}

	var output *s3.GetObjectOutput
	err := c.callWithRetry(ctx, func() error {
		var gerr error
		output, gerr = c.s3Client.GetObject(ctx, input)
		return gerr
	})
	if err != nil {
		if isObjectNotFound(err) {
			return storeerrors.NewObjectError("download", bucket, key, storeerrors.ErrObjectNotFound)
		}
		return storeerrors.NewObjectError("download", bucket, key, err)
	}
	defer output.Body.Close()

	file, err := c.fs.Create(dest)
	if err != nil {
		return storeerrors.NewObjectError("download", bucket, key, err)
	}

	if _, err := io.Copy(file, output.Body); err != nil {
		file.Close()
		// A half-written mirror file would masquerade as fetched on the
		// next run; remove it before reporting the failure.
		_ = c.fs.Remove(dest)
		return storeerrors.NewObjectError("download", bucket, key, err)
	}

	if err := file.Close(); err != nil {
		return storeerrors.NewObjectError("download", bucket, key, err)
	}
	return nil
}

// isObjectNotFound reports whether an AWS error indicates a missing object.
func isObjectNotFound(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") || strings.Contains(errStr, "NotFound")
}
