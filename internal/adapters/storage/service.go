// Package storage provides S3-compatible object storage for call recordings.
package storage

import (
	"context"
	"io"
	"time"
)

// PresignedURL contains the URL and metadata for a presigned download.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RecordingStore is the storage surface the ingestion and transcription
// paths depend on.
type RecordingStore interface {
	// UploadRecording stores an audio file and returns the object key.
	UploadRecording(ctx context.Context, bucket, folder, fileName, contentType string, reader io.Reader, size int64) (string, error)

	// DownloadRecording streams a stored recording. The caller closes the
	// returned reader.
	DownloadRecording(ctx context.Context, bucket, fileKey string) (io.ReadCloser, error)

	// PlaybackURL creates a short-lived presigned GET URL for a recording.
	PlaybackURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error)

	// DeleteRecording removes a recording.
	DeleteRecording(ctx context.Context, bucket, fileKey string) error

	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// ValidateContentType checks that the upload is an accepted audio type.
	ValidateContentType(contentType string) error

	// ValidateFileSize checks the upload size against the configured limit.
	ValidateFileSize(sizeBytes int64) error
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}
