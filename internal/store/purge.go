package store

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"

	storeerrors "github.com/swot-confluence/init-workflow/internal/store/errors"
)

// maxKeysPerDelete is the S3 cap on objects per DeleteObjects request.
const maxKeysPerDelete = 1000

// PurgeBucket deletes every object in bucket. Keys are accumulated across
// all listing pages before any delete is issued; a bucket reporting zero
// keys is a no-op. Destructive and irreversible.
func (c *Client) PurgeBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return storeerrors.NewError("purgeBucket", storeerrors.ErrInvalidInput).WithBucket(bucket)
	}

	keys, err := c.listKeys(ctx, bucket, "")
	if err != nil {
		return storeerrors.NewError("purgeBucket", err).WithBucket(bucket)
	}
	if len(keys) == 0 {
		c.logger.Info("no objects to delete", "bucket", bucket)
		return nil
	}

	for start := 0; start < len(keys); start += maxKeysPerDelete {
		end := start + maxKeysPerDelete
		if end > len(keys) {
			end = len(keys)
		}
		if err := c.deleteBatch(ctx, bucket, keys[start:end]); err != nil {
			return err
		}
	}
	return nil
}

// deleteBatch issues one DeleteObjects call for at most maxKeysPerDelete keys.
func (c *Client) deleteBatch(ctx context.Context, bucket string, keys []string) error {
	objects := make([]awstypes.ObjectIdentifier, 0, len(keys))
	for _, key := range keys {
		objects = append(objects, awstypes.ObjectIdentifier{
			Key: aws.String(key),
		})
	}

	input := &s3.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &awstypes.Delete{
			Objects: objects,
		},
	}

	var output *s3.DeleteObjectsOutput
	err := c.callWithRetry(ctx, func() error {
		var derr error
		output, derr = c.s3Client.DeleteObjects(ctx, input)
		return derr
	})
	if err != nil {
		return storeerrors.NewError("deleteBatch", err).WithBucket(bucket)
	}

	for _, deleted := range output.Deleted {
		c.logger.Info("deleted object", "bucket", bucket, "key", aws.ToString(deleted.Key))
	}
	for _, derr := range output.Errors {
		c.logger.Warn("delete failed",
			"bucket", bucket,
			"key", aws.ToString(derr.Key),
			"code", aws.ToString(derr.Code),
			"message", aws.ToString(derr.Message))
	}
	return nil
}
