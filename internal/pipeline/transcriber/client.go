// Package transcriber calls the external speech-to-text provider.
package transcriber

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callqa_backend/platform/apperr"
	"callqa_backend/platform/config"
)

// Transcription is the provider's result for one recording.
type Transcription struct {
	Text            string  `json:"text"`
	Language        string  `json:"language,omitempty"`
	DurationSeconds float64 `json:"duration,omitempty"`
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(cfg config.TranscriberConfig) *Client {
	return &Client{
		baseURL: cfg.GetTranscriberURL(),
		apiKey:  cfg.GetTranscriberAPIKey(),
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Transcribe sends the audio stream to the provider. Provider outages and
// rate limits come back as transient errors; a rejection of the audio itself
// is permanent.
func (c *Client) Transcribe(ctx context.Context, audio io.Reader, contentType string) (*Transcription, error) {
	if c.baseURL == "" {
		return nil, apperr.Internal("transcriber not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transcriptions", audio)
	if err != nil {
		return nil, fmt.Errorf("build transcription request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "transcriber unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindTransient, "read transcriber response", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, apperr.Transient(fmt.Sprintf("transcriber returned %d", resp.StatusCode))
	default:
		return nil, apperr.Invariant(fmt.Sprintf("transcriber rejected audio: %d %s", resp.StatusCode, truncate(body, 200)))
	}

	var out Transcription
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.Wrap(apperr.KindInvariant, "malformed transcriber response", err)
	}
	if out.Text == "" {
		return nil, apperr.Invariant("transcriber returned empty text")
	}
	return &out, nil
}

// TranscribeWithRetry wraps Transcribe with exponential backoff on transient
// failures. Permanent errors abort immediately. The audio source must support
// re-reading; open is called once per attempt.
func (c *Client) TranscribeWithRetry(ctx context.Context, open func(ctx context.Context) (io.ReadCloser, string, error)) (*Transcription, error) {
	var result *Transcription

	operation := func() error {
		audio, contentType, err := open(ctx)
		if err != nil {
			return backoff.Permanent(err)
		}
		defer audio.Close()

		out, err := c.Transcribe(ctx, audio, contentType)
		if err != nil {
			if apperr.IsRetryable(err) {
				return err
			}
			return backoff.Permanent(err)
		}
		result = out
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
