package planner

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"

	"github.com/danthegoodman1/marksplit/s3_helper"
)

const planContentType = "application/json"

// S3Archiver keeps plans in the configured bucket
type S3Archiver struct {
	upload   func(ctx context.Context, key string, body io.Reader, contentType *string) error
	download func(ctx context.Context, key string) ([]byte, error)
}

func NewS3Archiver() *S3Archiver {
	return &S3Archiver{
		upload: func(ctx context.Context, key string, body io.Reader, contentType *string) error {
			_, err := s3_helper.WriteBytesToS3(ctx, key, body, contentType)
			return err
		},
		download: s3_helper.ReadBytesFromS3,
	}
}

func (sa *S3Archiver) Archive(ctx context.Context, key string, body []byte) error {
	if err := sa.upload(ctx, key, bytes.NewReader(body), aws.String(planContentType)); err != nil {
		return fmt.Errorf("error uploading %s: %w", key, err)
	}
	return nil
}

func (sa *S3Archiver) Load(ctx context.Context, key string) ([]byte, error) {
	body, err := sa.download(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("error downloading %s: %w", key, err)
	}
	return body, nil
}
