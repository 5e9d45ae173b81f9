package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"
)

// S3Client stores reports in an S3 (or S3 compatible) bucket
type S3Client struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Client creates a client from the default AWS credential chain.
// A custom endpoint switches to path-style addressing for local S3 emulators.
func NewS3Client(ctx context.Context, bucket, region, endpoint string, logger *zap.Logger) (*S3Client, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		client: client,
		bucket: bucket,
		logger: logger,
	}, nil
}

// UploadPDF uploads a report and returns its object key
func (c *S3Client) UploadPDF(ctx context.Context, filename string, data []byte) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	key := reportBlobName(filename)
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		ACL:         types.ObjectCannedACLPrivate,
	})
	if err != nil {
		c.logger.Error("failed to upload report to s3", zap.String("key", key), zap.Error(err))
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	c.logger.Info("report uploaded to s3",
		zap.String("bucket", c.bucket),
		zap.String("key", key),
		zap.Int("size_bytes", len(data)),
	)

	return key, nil
}

// DownloadPDF downloads a report by object key
func (c *S3Client) DownloadPDF(ctx context.Context, key string) ([]byte, error) {
	out, err := c.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		c.logger.Error("failed to download report from s3", zap.String("key", key), zap.Error(err))
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read report data: %w", err)
	}

	return data, nil
}
