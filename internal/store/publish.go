package store

import (
	"bytes"
	"context"
	"mime"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	awstypes "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/gabriel-vasile/mimetype"

	storeerrors "github.com/swot-confluence/init-workflow/internal/store/errors"
)

// DefaultContentType is used when content type detection fails.
const DefaultContentType = "application/octet-stream"

// PublishFile uploads the local file at path to bucket/key with SSE-KMS
// server-side encryption. The remote side is never checked first; an
// existing object is overwritten.
func (c *Client) PublishFile(ctx context.Context, bucket, key, path string) error {
	if bucket == "" || key == "" {
		return storeerrors.NewObjectError("publishFile", bucket, key, storeerrors.ErrInvalidInput)
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return storeerrors.NewObjectError("publishFile", bucket, key, err)
	}

	input := &s3.PutObjectInput{
		Bucket:               aws.String(bucket),
		Key:                  aws.String(key),
		Body:                 bytes.NewReader(data),
		ContentType:          aws.String(c.detectContentType(path, data)),
		ContentLength:        aws.Int64(int64(len(data))),
		ServerSideEncryption: awstypes.ServerSideEncryptionAwsKms,
	}

	err = c.callWithRetry(ctx, func() error {
		_, perr := c.s3Client.PutObject(ctx, input)
		return perr
	})
	if err != nil {
		return storeerrors.NewObjectError("publishFile", bucket, key, err)
	}

	c.logger.Info("uploaded object", "bucket", bucket, "key", key, "path", path)
	return nil
}

// detectContentType sniffs the file content, falling back to
// extension-based lookup.
func (c *Client) detectContentType(path string, data []byte) string {
	if len(data) > 0 {
		if mt := mimetype.Detect(data); mt != nil && mt.String() != DefaultContentType {
			return mt.String()
		}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != "" {
		if byExt := mime.TypeByExtension(ext); byExt != "" {
			return byExt
		}
	}

	return DefaultContentType
}
