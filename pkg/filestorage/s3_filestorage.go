package filestorage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"dispatch-system/pkg/config"
)

// s3API - подмножество клиента S3, которое нужно хранилищу.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type S3FileStorage struct {
	client       s3API
	bucket       string
	region       string
	publicDomain string
}

func NewS3FileStorage(ctx context.Context, cfg config.StorageConfig) (FileStorageInterface, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	sdkConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("не удалось загрузить конфигурацию AWS: %w", err)
	}

	return &S3FileStorage{
		client:       s3.NewFromConfig(sdkConfig),
		bucket:       cfg.Bucket,
		region:       cfg.Region,
		publicDomain: cfg.PublicDomain,
	}, nil
}

func (s *S3FileStorage) Save(ctx context.Context, file io.Reader, originalFileName, contentType, prefix string) (string, error) {
	key := objectKey(originalFileName, prefix, time.Now())

	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
		Body:   file,
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("не удалось загрузить файл в S3: %w", err)
	}
	return key, nil
}

func (s *S3FileStorage) Delete(ctx context.Context, filePath string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(filePath),
	})
	if err != nil {
		return fmt.Errorf("не удалось удалить файл из S3: %w", err)
	}
	return nil
}

// URL - публичная ссылка на объект: через CDN-домен, если он задан.
func (s *S3FileStorage) URL(key string) string {
	if s.publicDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.publicDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

// New выбирает реализацию по STORAGE_DRIVER.
func New(ctx context.Context, cfg config.StorageConfig) (FileStorageInterface, error) {
	switch cfg.Driver {
	case "s3":
		return NewS3FileStorage(ctx, cfg)
	case "", "local":
		return NewLocalFileStorage(cfg.BasePath)
	default:
		return nil, fmt.Errorf("неизвестный драйвер хранилища %q", cfg.Driver)
	}
}
