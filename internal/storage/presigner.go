// Package storage issues presigned object storage URLs for gym images.
package storage

import (
	"context"
	"fmt"
	"time"

	"goodfit/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const uploadURLExpiry = 15 * time.Minute

// Upload is a presigned PUT target and the public URL the object will have.
type Upload struct {
	UploadURL string    `json:"upload_url"`
	ObjectURL string    `json:"object_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type FilePresigner struct {
	client     *s3.PresignClient
	bucketName string
	publicBase string
}

func NewFilePresigner(ctx context.Context, cfg config.S3Config) (*FilePresigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &FilePresigner{
		client:     s3.NewPresignClient(s3Client),
		bucketName: cfg.Bucket,
		publicBase: publicBase(cfg),
	}, nil
}

// PresignUpload returns a PUT URL for objectKey valid for fifteen minutes.
func (p *FilePresigner) PresignUpload(ctx context.Context, objectKey, contentType string) (*Upload, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucketName),
		Key:    aws.String(objectKey),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	request, err := p.client.PresignPutObject(ctx, input, func(opts *s3.PresignOptions) {
		opts.Expires = uploadURLExpiry
	})
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &Upload{
		UploadURL: request.URL,
		ObjectURL: p.publicBase + "/" + objectKey,
		ExpiresAt: time.Now().Add(uploadURLExpiry),
	}, nil
}

func publicBase(cfg config.S3Config) string {
	if cfg.Endpoint != "" {
		return fmt.Sprintf("%s/%s", cfg.Endpoint, cfg.Bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}
