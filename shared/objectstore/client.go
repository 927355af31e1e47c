package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Config holds object storage settings. Endpoint overrides the AWS
// endpoint for MinIO/LocalStack deployments.
type Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	PathStyle bool
}

// Client fetches and stores binary assets by key in a single bucket
type Client struct {
	config *Config
	s3     *s3.Client
	logger *slog.Logger
}

// NewClient builds an S3-backed client using the default AWS credential chain
func NewClient(ctx context.Context, config *Config, logger *slog.Logger) (*Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}

	if config.Endpoint != "" {
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:               config.Endpoint,
					HostnameImmutable: config.PathStyle,
					SigningRegion:     config.Region,
					Source:            aws.EndpointSourceCustom,
				}, nil
			}
			return aws.Endpoint{}, &aws.EndpointNotFoundError{}
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = config.PathStyle
	})

	return &Client{
		config: config,
		s3:     client,
		logger: logger,
	}, nil
}

// Download fetches the object stored at key. A missing key is an error.
func (c *Client) Download(ctx context.Context, key string) ([]byte, error) {
	out, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to download %q: %w", key, err)
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %q: %w", key, err)
	}

	c.logger.Debug("Object downloaded",
		slog.String("key", key),
		slog.Int("size", len(body)),
	)

	return body, nil
}

// Upload stores body at key and returns the object's public URL
func (c *Client) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := c.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.config.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %q: %w", key, err)
	}

	url := c.ObjectURL(key)

	c.logger.Debug("Object uploaded",
		slog.String("key", key),
		slog.Int("size", len(body)),
		slog.String("url", url),
	)

	return url, nil
}

// ObjectURL derives the public URL for a key
func (c *Client) ObjectURL(key string) string {
	if c.config.Endpoint != "" {
		return fmt.Sprintf("%s/%s/%s",
			strings.TrimRight(c.config.Endpoint, "/"),
			c.config.Bucket,
			key,
		)
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s",
		c.config.Bucket,
		c.config.Region,
		key,
	)
}
