package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var ErrNotConfigured = errors.New("photo storage is not configured")

// PhotoStore keeps scout-report photo uploads in an S3-compatible
// bucket (R2 in production).
type PhotoStore struct {
	client        *s3.Client
	bucket        string
	endpoint      string
	publicBaseURL string
}

type photoStoreConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	PublicBaseURL string
}

func NewPhotoStoreFromEnv() (*PhotoStore, error) {
	cfg := photoStoreConfig{
		Endpoint:      strings.TrimSpace(os.Getenv("R2_ENDPOINT")),
		AccessKey:     strings.TrimSpace(os.Getenv("R2_ACCESS_KEY_ID")),
		SecretKey:     strings.TrimSpace(os.Getenv("R2_SECRET_ACCESS_KEY")),
		Bucket:        strings.TrimSpace(os.Getenv("R2_BUCKET")),
		Region:        strings.TrimSpace(os.Getenv("R2_REGION")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("R2_PUBLIC_BASE_URL")), "/"),
	}

	if cfg.Endpoint == "" || cfg.AccessKey == "" || cfg.SecretKey == "" || cfg.Bucket == "" {
		return nil, ErrNotConfigured
	}
	if cfg.Region == "" {
		cfg.Region = "auto"
	}

	resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
		if service == s3.ServiceID {
			return aws.Endpoint{
				URL:               cfg.Endpoint,
				HostnameImmutable: true,
			}, nil
		}
		return aws.Endpoint{}, &aws.EndpointNotFoundError{}
	})

	awsCfg := aws.Config{
		Region:                      cfg.Region,
		Credentials:                 credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		EndpointResolverWithOptions: resolver,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &PhotoStore{
		client:        client,
		bucket:        cfg.Bucket,
		endpoint:      strings.TrimRight(cfg.Endpoint, "/"),
		publicBaseURL: cfg.PublicBaseURL,
	}, nil
}

// UploadReportPhoto stores one photo under the report's key prefix and
// returns the public URL.
func (p *PhotoStore) UploadReportPhoto(ctx context.Context, reportID uuid.UUID, filename string, body io.Reader, size int64, contentType string) (string, error) {
	if p == nil || p.client == nil {
		return "", ErrNotConfigured
	}
	if size <= 0 {
		return "", fmt.Errorf("empty file")
	}

	ext := strings.ToLower(path.Ext(filename))
	key := fmt.Sprintf("reports/%s/%s%s", reportID, uuid.New(), ext)

	input := &s3.PutObjectInput{
		Bucket:        &p.bucket,
		Key:           &key,
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	}
	if _, err := p.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("photo upload failed: %w", err)
	}
	return p.objectURL(key), nil
}

func (p *PhotoStore) objectURL(key string) string {
	trimmedKey := strings.TrimLeft(key, "/")
	if p.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", p.publicBaseURL, p.bucket, trimmedKey)
	}
	return fmt.Sprintf("%s/%s/%s", p.endpoint, p.bucket, trimmedKey)
}
