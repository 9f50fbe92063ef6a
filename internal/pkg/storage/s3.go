package storage

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gofiber/fiber/v2/log"

	"github.com/oggatonama/oggatonama/internal/pkg/env"
)

// S3Config holds the object-storage settings read from the environment.
type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	EndpointURL     string
	PublicBaseURL   string
}

func loadS3Config() *S3Config {
	return &S3Config{
		Region:          env.GetEnv("S3_REGION", "us-east-1"),
		Bucket:          env.GetEnv("S3_BUCKET", ""),
		AccessKeyID:     env.GetEnv("S3_ACCESS_KEY_ID", ""),
		SecretAccessKey: env.GetEnv("S3_SECRET_ACCESS_KEY", ""),
		EndpointURL:     env.GetEnv("S3_ENDPOINT_URL", ""),
		PublicBaseURL:   env.GetEnv("S3_PUBLIC_BASE_URL", ""),
	}
}

// IsEnabled reports whether enough configuration is present to use S3.
func (c *S3Config) IsEnabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// s3Store persists photos in an S3-compatible bucket.
type s3Store struct {
	client *s3.Client
	config *S3Config
}

func newS3Store(cfg *S3Config) (*s3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
			o.UsePathStyle = true // S3-compatible providers want path-style URLs
			o.UseAccelerate = false
		}
	})

	store := &s3Store{client: client, config: cfg}
	if err := store.testConnection(); err != nil {
		return nil, err
	}

	log.Infof("[Storage] Using S3 bucket %s", cfg.Bucket)
	return store, nil
}

func (s *s3Store) testConnection() error {
	_, err := s.client.HeadBucket(context.Background(), &s3.HeadBucketInput{
		Bucket: aws.String(s.config.Bucket),
	})
	if err != nil {
		return fmt.Errorf("bucket %s not accessible: %w", s.config.Bucket, err)
	}
	return nil
}

func (s *s3Store) Save(ctx context.Context, filename string, data []byte) (string, string, error) {
	name := objectName(filename)
	if err := s.put(ctx, "photos/"+name, data); err != nil {
		return "", "", err
	}

	thumbURL := ""
	if thumb := makeThumbnail(filename, data); thumb != nil {
		if err := s.put(ctx, "thumbs/"+name, thumb); err != nil {
			log.Warnf("[Storage] Could not upload thumbnail for %s: %v", name, err)
		} else {
			thumbURL = s.publicURL("thumbs/" + name)
		}
	}

	return s.publicURL("photos/" + name), thumbURL, nil
}

func (s *s3Store) put(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.Bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	return err
}

func (s *s3Store) publicURL(key string) string {
	if s.config.PublicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.config.PublicBaseURL, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.config.Bucket, s.config.Region, key)
}
