package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// BlobStorage stores generated report files
type BlobStorage interface {
	UploadPDF(ctx context.Context, filename string, data []byte) (string, error)
	DownloadPDF(ctx context.Context, blobName string) ([]byte, error)
}

var (
	_ BlobStorage = (*AzureBlobClient)(nil)
	_ BlobStorage = (*S3Client)(nil)
	_ BlobStorage = (*MemoryBlobStorage)(nil)
)

// Provider names a blob storage backend
type Provider string

const (
	ProviderAzure  Provider = "azure"
	ProviderS3     Provider = "s3"
	ProviderMemory Provider = "memory"
)

// Options selects and configures a backend
type Options struct {
	Provider Provider

	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
}

// New builds the configured backend
func New(ctx context.Context, opts Options, logger *zap.Logger) (BlobStorage, error) {
	switch opts.Provider {
	case ProviderAzure:
		return NewAzureBlobClient(opts.AzureAccountName, opts.AzureAccountKey, opts.AzureContainer, logger)
	case ProviderS3:
		return NewS3Client(ctx, opts.S3Bucket, opts.S3Region, opts.S3Endpoint, logger)
	case ProviderMemory:
		return NewMemoryBlobStorage(logger), nil
	default:
		return nil, fmt.Errorf("unknown storage provider %q", opts.Provider)
	}
}

func reportBlobName(filename string) string {
	return fmt.Sprintf("reports/%s", filename)
}
