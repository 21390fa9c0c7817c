package s3

import (
	"bytes"
	"context"
	"path"
	"time"

	"chainreact/internal/config"
	"chainreact/pkg/errors"
	"chainreact/pkg/logger"
	"chainreact/pkg/metrics"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
)

const (
	uploadPartSize    = 8 * 1024 * 1024
	uploadConcurrency = 3
	requestRetries    = 3
)

// Client wraps the AWS SDK with the bucket, key prefix, and retry settings
// used for debug artifacts. Keys passed to Put and Fetch are logical; the
// configured prefix is applied before any request leaves the client.
type Client struct {
	config     *config.S3Config
	s3Client   *s3.S3
	uploader   *s3manager.Uploader
	downloader *s3manager.Downloader
	logger     logger.Logger
	metrics    *metrics.Metrics
}

// New creates an S3 client from the storage configuration. The endpoint
// override and path-style addressing support MinIO and other S3-compatible
// stores.
func New(cfg *config.S3Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.ValidationError(errors.CodeMissingField, "s3 config is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.ValidationError(errors.CodeMissingField, "s3 bucket name is required")
	}

	awsConfig := &aws.Config{
		Region:           aws.String(cfg.Region),
		S3ForcePathStyle: aws.Bool(cfg.PathStyle),
		DisableSSL:       aws.Bool(!cfg.UseSSL),
		MaxRetries:       aws.Int(requestRetries),
	}
	if cfg.Endpoint != "" {
		awsConfig.Endpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, "")
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeExternal, errors.CodeExternalService, "failed to create AWS session")
	}

	svc := s3.New(sess)
	uploader := s3manager.NewUploaderWithClient(svc, func(u *s3manager.Uploader) {
		u.PartSize = uploadPartSize
		u.Concurrency = uploadConcurrency
	})
	downloader := s3manager.NewDownloaderWithClient(svc, func(d *s3manager.Downloader) {
		d.PartSize = uploadPartSize
		d.Concurrency = uploadConcurrency
	})

	client := &Client{
		config:     cfg,
		s3Client:   svc,
		uploader:   uploader,
		downloader: downloader,
		logger:     logger.New("s3"),
		metrics:    metrics.GetGlobal(),
	}

	client.logger.Info("S3 client ready",
		"bucket", cfg.Bucket,
		"region", cfg.Region,
		"endpoint", cfg.Endpoint,
	)

	return client, nil
}

// Put stores body at key with the given content type.
func (c *Client) Put(ctx context.Context, key string, body []byte, contentType string) error {
	fullKey := c.buildKey(key)
	start := time.Now()

	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket:      aws.String(c.config.Bucket),
		Key:         aws.String(fullKey),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		c.metrics.RecordArtifactUpload("error", time.Since(start))
		return c.mapAWSError(err, fullKey)
	}

	c.metrics.RecordArtifactUpload("success", time.Since(start))
	c.logger.DebugContext(ctx, "Stored object", "key", fullKey, "bytes", len(body))
	return nil
}

// Fetch retrieves the object stored at key.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	fullKey := c.buildKey(key)
	buf := aws.NewWriteAtBuffer([]byte{})

	_, err := c.downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(fullKey),
	})
	if err != nil {
		return nil, c.mapAWSError(err, fullKey)
	}

	return buf.Bytes(), nil
}

// Health verifies the bucket is reachable with the configured credentials.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.s3Client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(c.config.Bucket),
	})
	if err != nil {
		return c.mapAWSError(err, c.config.Bucket)
	}
	return nil
}

// Config returns the storage configuration the client was built with.
func (c *Client) Config() *config.S3Config {
	return c.config
}

func (c *Client) buildKey(key string) string {
	if c.config.KeyPrefix == "" {
		return key
	}
	return path.Join(c.config.KeyPrefix, key)
}

// mapAWSError converts AWS SDK failures into application errors.
func (c *Client) mapAWSError(err error, key string) error {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return errors.ExternalError("s3", err)
	}

	switch aerr.Code() {
	case s3.ErrCodeNoSuchBucket:
		return errors.NotFoundError("bucket " + c.config.Bucket)
	case s3.ErrCodeNoSuchKey:
		return errors.NotFoundError("object " + key)
	case "AccessDenied":
		return errors.NewForbiddenError("access denied for " + key)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return errors.NewUnauthorizedError("S3 credentials were rejected")
	case "RequestTimeout", "RequestCanceled":
		return errors.TimeoutError("s3 request for " + key)
	default:
		return errors.ExternalError("s3", err)
	}
}
