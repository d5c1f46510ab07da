// Package export archives the rendered run report to S3-compatible object
// storage so runs can be compared out of band.
package export

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gftdcojp/streamlens/internal/report"
	"go.uber.org/zap"
)

// S3API is the slice of the S3 client the uploader needs.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Uploader writes one JSON report object per run.
type Uploader struct {
	s3     S3API
	bucket string
	prefix string
	logger *zap.Logger
}

// NewUploader creates an uploader targeting one bucket/prefix.
func NewUploader(s3api S3API, bucket, prefix string, logger *zap.Logger) *Uploader {
	return &Uploader{
		s3:     s3api,
		bucket: bucket,
		prefix: prefix,
		logger: logger,
	}
}

// ObjectKey returns the key the report for the given run instant lands at.
func (u *Uploader) ObjectKey(generatedAt time.Time) string {
	name := fmt.Sprintf("streamlens-%s.json", generatedAt.UTC().Format(time.RFC3339))
	if u.prefix != "" {
		return u.prefix + "/" + name
	}
	return name
}

// Upload serializes the report and puts it to the bucket.
func (u *Uploader) Upload(ctx context.Context, rep report.Report) error {
	data, err := rep.JSON()
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	key := u.ObjectKey(rep.GeneratedAt)
	_, err = u.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &u.bucket,
		Key:         &key,
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading report to S3: %w", err)
	}

	u.logger.Info("report exported",
		zap.String("bucket", u.bucket),
		zap.String("key", key),
		zap.Int("size_bytes", len(data)),
	)
	return nil
}
