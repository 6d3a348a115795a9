package s3

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"pdfshare-backend/internal/shared/storage/object"
)

const defaultRegion = "us-east-1"

// Presigner mints S3 URLs for direct browser uploads and reads.
type Presigner struct {
	presign *s3.PresignClient
	bucket  string
	region  string
	prefix  string
}

// New loads the default AWS credential chain and builds a Presigner.
func New(ctx context.Context, region, bucket, prefix string) (*Presigner, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if strings.TrimSpace(region) == "" {
		region = defaultRegion
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewWithClient(s3.NewFromConfig(cfg), region, bucket, prefix), nil
}

// NewWithClient builds a Presigner around an existing client.
func NewWithClient(client *s3.Client, region, bucket, prefix string) *Presigner {
	return &Presigner{
		presign: s3.NewPresignClient(client),
		bucket:  bucket,
		region:  region,
		prefix:  normalizePrefix(prefix),
	}
}

// PresignPut returns a URL accepting a single PUT of the object body.
func (p *Presigner) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	input := &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(applyPrefix(p.prefix, key)),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}
	req, err := p.presign.PresignPutObject(ctx, input, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign put bucket=%s key=%s: %w", p.bucket, key, err)
	}
	return req.URL, nil
}

// PresignGet returns a URL allowing reads of the object until ttl elapses.
func (p *Presigner) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := p.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(applyPrefix(p.prefix, key)),
	}, func(o *s3.PresignOptions) {
		o.Expires = ttl
	})
	if err != nil {
		return "", fmt.Errorf("presign get bucket=%s key=%s: %w", p.bucket, key, err)
	}
	return req.URL, nil
}

// ObjectURL returns the virtual-hosted style URL of key.
func (p *Presigner) ObjectURL(key string) string {
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", p.bucket, p.region, applyPrefix(p.prefix, key))
}

func (p *Presigner) Provider() string { return "s3" }

func normalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

func applyPrefix(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

var _ object.Presigner = (*Presigner)(nil)
