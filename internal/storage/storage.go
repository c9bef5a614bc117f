// Package storage deletes product images from S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/config"
)

type objectDeleter interface {
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3ImageStore removes objects whose public URL lies under baseURL. URLs that
// point elsewhere (external CDNs, placeholders) are left alone.
type S3ImageStore struct {
	client  objectDeleter
	bucket  string
	baseURL string
}

func NewS3ImageStore(ctx context.Context, cfg config.S3Config) (*S3ImageStore, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("storage/s3: bucket is not configured")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	// Статические ключи нужны для MinIO / R2.
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("storage/s3: load config: %w", err)
	}

	var clientOpts []func(*s3.Options)
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}

	return newS3ImageStore(s3.NewFromConfig(awsConfig, clientOpts...), cfg.Bucket, baseURL), nil
}

func newS3ImageStore(client objectDeleter, bucket, baseURL string) *S3ImageStore {
	return &S3ImageStore{client: client, bucket: bucket, baseURL: strings.TrimRight(baseURL, "/") + "/"}
}

// Key maps a public URL to its object key; ok is false for foreign URLs.
func (s *S3ImageStore) Key(url string) (key string, ok bool) {
	key, ok = strings.CutPrefix(url, s.baseURL)
	if !ok || key == "" {
		return "", false
	}
	return key, true
}

// Delete attempts every URL and returns the joined errors of the ones that failed.
func (s *S3ImageStore) Delete(ctx context.Context, urls []string) error {
	var errs []error
	for _, u := range urls {
		key, ok := s.Key(u)
		if !ok {
			log.Debug().Str("url", u).Msg("storage/s3: skipping image outside bucket")
			continue
		}

		_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("storage/s3: delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Nop is used when no bucket is configured.
type Nop struct{}

func (Nop) Delete(context.Context, []string) error { return nil }
