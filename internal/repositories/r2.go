package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/anyspecs/anyspecs/internal/config"
)

var ErrR2NotConfigured = errors.New("R2 export is not configured")

// DefaultLinkExpiry is how long a presigned report link stays valid.
const DefaultLinkExpiry = 24 * time.Hour

// R2Store keeps exported reports in a Cloudflare R2 bucket.
type R2Store struct {
	client     *s3.Client
	bucket     string
	publicBase string
	expires    time.Duration
}

// NewR2Store builds a store using static credentials and the account's
// R2 endpoint.
func NewR2Store(cfg config.R2Config) (*R2Store, error) {
	if !cfg.Enabled() {
		return nil, ErrR2NotConfigured
	}
	return newR2Store(cfg, fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)), nil
}

func newR2Store(cfg config.R2Config, endpoint string) *R2Store {
	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})
	log.Printf("R2 store ready for bucket %s", cfg.BucketName)
	return &R2Store{
		client:     client,
		bucket:     cfg.BucketName,
		publicBase: strings.TrimRight(cfg.PublicBaseURL, "/"),
		expires:    DefaultLinkExpiry,
	}
}

// PutReport uploads data under key and returns a link to it: the public
// URL when a public base is configured, a presigned GET URL otherwise.
func (s *R2Store) PutReport(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", key, err)
	}

	ok, err := s.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", key, err)
	}
	if !ok {
		return "", fmt.Errorf("verify %s: object missing after upload", key)
	}

	if s.publicBase != "" {
		return s.publicBase + "/" + key, nil
	}
	return s.PresignGet(ctx, key)
}

// PresignGet creates a time-limited download URL for key.
func (s *R2Store) PresignGet(ctx context.Context, key string) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Exists reports whether key is present in the bucket. A missing object is
// not an error.
func (s *R2Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
