package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"go.uber.org/zap"
)

// AzureBlobClient stores reports in an Azure Blob Storage container
type AzureBlobClient struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewAzureBlobClient creates a new Azure Blob Storage client
func NewAzureBlobClient(accountName, accountKey, containerName string, logger *zap.Logger) (*AzureBlobClient, error) {
	if accountName == "" || accountKey == "" || containerName == "" {
		return nil, fmt.Errorf("accountName, accountKey, and containerName are required")
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create shared key credential: %w", err)
	}

	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &AzureBlobClient{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// UploadPDF uploads a report to the container and returns its blob name
func (c *AzureBlobClient) UploadPDF(ctx context.Context, filename string, data []byte) (string, error) {
	if filename == "" {
		return "", fmt.Errorf("filename is required")
	}

	blobName := reportBlobName(filename)
	c.logger.Info("uploading report to azure blob storage",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	contentType := "application/octet-stream"
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)
	_, err := blobClient.UploadBuffer(ctx, data, &azblob.UploadBufferOptions{
		Metadata: map[string]*string{
			"contenttype": &contentType,
		},
	})
	if err != nil {
		c.logger.Error("failed to upload report", zap.String("blob_name", blobName), zap.Error(err))
		return "", fmt.Errorf("failed to upload report: %w", err)
	}

	return blobName, nil
}

// DownloadPDF downloads a report by blob name
func (c *AzureBlobClient) DownloadPDF(ctx context.Context, blobName string) ([]byte, error) {
	blobClient := c.client.ServiceClient().NewContainerClient(c.containerName).NewBlockBlobClient(blobName)

	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		c.logger.Error("failed to download report", zap.String("blob_name", blobName), zap.Error(err))
		return nil, fmt.Errorf("failed to download report: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("failed to read report data", zap.String("blob_name", blobName), zap.Error(err))
		return nil, fmt.Errorf("failed to read report data: %w", err)
	}

	c.logger.Info("report downloaded from azure blob storage",
		zap.String("blob_name", blobName),
		zap.Int("size_bytes", len(data)),
	)

	return data, nil
}
