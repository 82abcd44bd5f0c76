package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/ignite/site-tracking/internal/domain"
)

// S3API is the part of *s3.Client the archiver uses.
type S3API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Archiver writes every event to S3 as JSON under prefix/YYYY/MM/DD/<id>.json.
// Rewriting the same event overwrites the same key.
type Archiver struct {
	client S3API
	bucket string
	prefix string
}

var _ Notifier = (*Archiver)(nil)

// NewArchiver archives into bucket under prefix.
func NewArchiver(client S3API, bucket, prefix string) *Archiver {
	return &Archiver{client: client, bucket: bucket, prefix: prefix}
}

func (a *Archiver) Name() string { return "archive" }

// Key returns the object key of evt.
func (a *Archiver) Key(evt domain.ConversionEvent) string {
	return path.Join(a.prefix, evt.CreatedAt.UTC().Format("2006/01/02"), evt.ID+".json")
}

func (a *Archiver) Notify(ctx context.Context, evt domain.ConversionEvent) error {
	if evt.ID == "" {
		return fmt.Errorf("archive: event has no id")
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("archive: encode: %w", err)
	}
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.Key(evt)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: put object: %w", err)
	}
	return nil
}
