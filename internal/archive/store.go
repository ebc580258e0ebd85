// Package archive keeps a copy of every generated guide PDF in S3, with a
// monthly JSONL manifest of what was sent to whom.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/wolfman30/trading-academy/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// GuideRecord describes one archived guide.
type GuideRecord struct {
	SubscriberID string    `json:"subscriber_id"`
	Email        string    `json:"email"`
	S3Key        string    `json:"s3_key"`
	SizeBytes    int       `json:"size_bytes"`
	ArchivedAt   time.Time `json:"archived_at"`
}

// Store archives guide PDFs to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
	now      func() time.Time
}

// NewStore creates an archive Store. If bucket is empty, all operations are no-ops.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger, now: time.Now}
}

// Enabled returns true if archival is configured (bucket is set).
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

// ArchiveGuide uploads pdf and records it in the month's manifest. It
// returns the object key, or "" when archival is disabled. A manifest
// failure is logged; the PDF itself is already stored.
func (s *Store) ArchiveGuide(ctx context.Context, subscriberID, email string, pdf []byte) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := s.now().UTC()
	key := guideKey(now, subscriberID)
	if err := s.put(ctx, key, "application/pdf", pdf); err != nil {
		return "", err
	}
	s.logger.Info("guide archived", "subscriber_id", subscriberID, "s3_key", key, "size_bytes", len(pdf))

	record := GuideRecord{SubscriberID: subscriberID, Email: email, S3Key: key, SizeBytes: len(pdf), ArchivedAt: now}
	if err := s.AppendManifest(ctx, record); err != nil {
		s.logger.Warn("guide manifest append failed", "error", err, "subscriber_id", subscriberID)
	}
	return key, nil
}

// AppendManifest adds one JSONL line to the monthly manifest. S3 has no
// append, so the object is read, extended and rewritten.
func (s *Store) AppendManifest(ctx context.Context, record GuideRecord) error {
	if !s.Enabled() {
		return nil
	}

	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal manifest entry: %w", err)
	}
	at := record.ArchivedAt
	if at.IsZero() {
		at = s.now().UTC()
	}
	key := manifestKey(at)

	body, err := s.get(ctx, key)
	if err != nil {
		return err
	}
	if n := len(body); n > 0 && body[n-1] != '\n' {
		body = append(body, '\n')
	}
	body = append(body, line...)
	body = append(body, '\n')
	return s.put(ctx, key, "application/x-ndjson", body)
}

func guideKey(at time.Time, subscriberID string) string {
	return fmt.Sprintf("newsletter/guides/%s/%s.pdf", at.Format("2006/01/02"), subscriberID)
}

func manifestKey(at time.Time) string {
	return "newsletter/manifests/" + at.Format("2006-01") + ".jsonl"
}

func (s *Store) put(ctx context.Context, key, contentType string, body []byte) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}
	return nil
}

// get returns nil, nil for a missing object.
func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, nil
		}
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	return body, nil
}
