package storage

import (
	"context"
	"strings"
	"testing"

	"goodfit/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignUpload_PathStyleEndpoint(t *testing.T) {
	cfg := config.S3Config{
		Endpoint:     "http://localhost:9000",
		Region:       "us-east-1",
		Bucket:       "gym-images",
		AccessKey:    "minio",
		SecretKey:    "minio123",
		UsePathStyle: true,
	}

	p, err := NewFilePresigner(context.Background(), cfg)
	require.NoError(t, err)

	upload, err := p.PresignUpload(context.Background(), "gyms/g1/photo.jpg", "image/jpeg")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.UploadURL, "http://localhost:9000/gym-images/gyms/g1/photo.jpg?"))
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "http://localhost:9000/gym-images/gyms/g1/photo.jpg", upload.ObjectURL)
	assert.False(t, upload.ExpiresAt.IsZero())
}

func TestPublicBase_AWS(t *testing.T) {
	base := publicBase(config.S3Config{Region: "eu-central-1", Bucket: "goodfit"})
	assert.Equal(t, "https://goodfit.s3.eu-central-1.amazonaws.com", base)
}
