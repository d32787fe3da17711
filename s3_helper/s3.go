package s3_helper

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/rs/zerolog"

	"github.com/danthegoodman1/marksplit/gologger"
	"github.com/danthegoodman1/marksplit/utils"
)

var (
	logger = gologger.NewComponentLogger("s3_helper")
)

func newSession() (*session.Session, error) {
	s3Config := &aws.Config{
		Region:      aws.String(utils.AWS_DEFAULT_REGION),
		Credentials: credentials.NewEnvCredentials(),
	}
	if utils.S3_ENDPOINT != "" {
		s3Config.Endpoint = aws.String(utils.S3_ENDPOINT)
		// minio and friends do not do virtual hosted buckets
		s3Config.S3ForcePathStyle = aws.Bool(true)
	}

	s3Session, err := session.NewSession(s3Config)
	if err != nil {
		return nil, fmt.Errorf("error making new session: %w", err)
	}
	return s3Session, nil
}

// NewClient builds an S3 client from the environment configuration
func NewClient() (*s3.S3, error) {
	s3Session, err := newSession()
	if err != nil {
		return nil, err
	}
	return s3.New(s3Session), nil
}

func WriteBytesToS3(ctx context.Context, fileName string, byteStream io.Reader, contentType *string) (*s3manager.UploadOutput, error) {
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	s3Session, err := newSession()
	if err != nil {
		return nil, err
	}

	uploader := s3manager.NewUploader(s3Session)

	input := &s3manager.UploadInput{
		Bucket:      aws.String(utils.S3_BUCKET_NAME),
		Key:         aws.String(fileName),
		Body:        byteStream,
		ContentType: contentType,
	}

	s := time.Now()
	output, err := uploader.UploadWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("error uploading to s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("fileName", fileName).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("uploaded file to s3")

	return output, nil
}

func ReadBytesFromS3(ctx context.Context, fileName string) ([]byte, error) {
	ctx = logger.WithContext(ctx)
	logger := zerolog.Ctx(ctx)

	s3Session, err := newSession()
	if err != nil {
		return nil, err
	}

	downloader := s3manager.NewDownloader(s3Session)

	buf := &aws.WriteAtBuffer{}

	s := time.Now()
	_, err = downloader.DownloadWithContext(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(utils.S3_BUCKET_NAME),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return nil, fmt.Errorf("error downloading from s3: %w", err)
	}

	d := time.Since(s)
	logger.Debug().Str("fileName", fileName).Int64("durationNS", d.Nanoseconds()).Str("durationHuman", d.String()).Msg("downloaded file from s3")

	return buf.Bytes(), nil
}
