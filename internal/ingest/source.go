package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Open returns a reader for a quarterly export file. Accepts a local path or
// an "s3://bucket/key" URI. The caller closes the reader.
func Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	if strings.HasPrefix(uri, "s3://") {
		return openS3(ctx, uri)
	}

	f, err := os.Open(uri)
	if err != nil {
		return nil, fmt.Errorf("opening export file: %w", err)
	}
	return f, nil
}

func openS3(ctx context.Context, uri string) (io.ReadCloser, error) {
	trimmed := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(trimmed, "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("invalid S3 URI %q, expected s3://bucket/key", uri)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg)
	resp, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("getting S3 object %s: %w", uri, err)
	}

	return resp.Body, nil
}
