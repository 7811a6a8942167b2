package repository

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	applogger "github.com/doby176/light/pkg/logger"
)

type putObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Uploader overwrites one object with the contents of a local file.
type S3Uploader struct {
	client putObjectAPI
	bucket string
	key    string
	l      *applogger.Logger
}

// NewS3Uploader resolves credentials from the default AWS chain.
func NewS3Uploader(ctx context.Context, region, bucket, key string, l *applogger.Logger) (*S3Uploader, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return newS3Uploader(s3.NewFromConfig(cfg), bucket, key, l), nil
}

func newS3Uploader(client putObjectAPI, bucket, key string, l *applogger.Logger) *S3Uploader {
	if l == nil {
		l = applogger.Nop()
	}
	return &S3Uploader{client: client, bucket: bucket, key: key, l: l}
}

// Upload sends path to the configured bucket and key.
func (u *S3Uploader) Upload(ctx context.Context, path string) error {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open backup source: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat backup source: %w", err)
	}

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(u.key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		u.l.Error("s3 upload failed",
			applogger.String("bucket", u.bucket),
			applogger.String("key", u.key),
			applogger.Error(err),
		)
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, u.key, err)
	}
	u.l.Info("uploaded backup",
		applogger.String("bucket", u.bucket),
		applogger.String("key", u.key),
		applogger.Int64("bytes", info.Size()),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}
