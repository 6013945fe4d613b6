// Package archive writes finished call transcripts to S3. Archival is a
// best-effort tail step after the ledger write; a missing bucket disables it
// without disabling the call flow.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/clinicdesk/clinic-voice-platform/internal/ledger"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// S3API is the subset of the S3 client used by Store.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// CallRecord is the archived shape of one finished call.
type CallRecord struct {
	SessionID  string              `json:"session_id"`
	ClinicID   string              `json:"clinic_id"`
	Outcome    string              `json:"outcome"`
	Booked     bool                `json:"booked"`
	Turns      []ledger.TurnRecord `json:"turns"`
	ArchivedAt time.Time           `json:"archived_at"`
}

// Store archives call transcripts to S3.
type Store struct {
	bucket   string
	s3Client S3API
	logger   *logging.Logger
}

// NewStore creates an archive Store. An empty bucket makes every operation
// a no-op.
func NewStore(s3Client S3API, bucket string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{bucket: bucket, s3Client: s3Client, logger: logger}
}

// Enabled reports whether archival is configured.
func (s *Store) Enabled() bool {
	return s != nil && s.bucket != "" && s.s3Client != nil
}

func callKey(sessionID string, at time.Time) string {
	return fmt.Sprintf("transcripts/v1/by-date/%d/%02d/%02d/%s.json",
		at.Year(), at.Month(), at.Day(), sessionID)
}

// ArchiveCall writes the record as JSON under a date-partitioned key.
func (s *Store) ArchiveCall(ctx context.Context, record *CallRecord) error {
	if !s.Enabled() {
		return nil
	}
	if record.ArchivedAt.IsZero() {
		record.ArchivedAt = time.Now().UTC()
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("archive: marshal record: %w", err)
	}

	key := callKey(record.SessionID, record.ArchivedAt)
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("archive: s3 put %s: %w", key, err)
	}

	s.logger.Info("archived call transcript",
		"session_id", record.SessionID,
		"s3_key", key,
		"turns", len(record.Turns),
		"outcome", record.Outcome,
	)
	return nil
}

// FetchCall reads an archived transcript back. The caller must know the
// archival date, which the ledger summary records.
func (s *Store) FetchCall(ctx context.Context, sessionID string, archivedAt time.Time) (*CallRecord, error) {
	if !s.Enabled() {
		return nil, fmt.Errorf("archive: not configured")
	}

	key := callKey(sessionID, archivedAt)
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", key, err)
	}
	var record CallRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("archive: decode %s: %w", key, err)
	}
	return &record, nil
}
