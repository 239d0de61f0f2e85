package documents

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cvcoach-backend/internal/extract"
	"cvcoach-backend/internal/shared/telemetry"
	"cvcoach-backend/internal/shared/util"
)

const DefaultMaxBytes = 10 << 20

// Service turns uploads into Documents.
type Service struct {
	MaxBytes int64
	Now      func() time.Time
}

// NewService constructs a Service with the given upload limit.
func NewService(maxBytes int64) *Service {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Service{MaxBytes: maxBytes, Now: time.Now}
}

// FromUpload reads r (at most MaxBytes), extracts its text and returns the
// Document. declaredType is the client's Content-Type; when empty or generic
// the payload is sniffed.
func (s *Service) FromUpload(ctx context.Context, fileName, declaredType string, r io.Reader) (Document, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	data, err := io.ReadAll(io.LimitReader(r, s.MaxBytes+1))
	if err != nil {
		return Document{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.MaxBytes {
		return Document{}, ErrTooLarge
	}

	mimeType := strings.TrimSpace(declaredType)
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = http.DetectContentType(data)
	}

	started := s.now()
	text, err := extract.ExtractTextFromBytes(ctx, data, mimeType, name)
	if err != nil {
		telemetry.Warn("documents.extract_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"file_name":  name,
			"mime_type":  mimeType,
			"error":      err,
		})
		return Document{}, err
	}
	telemetry.Info("documents.extracted", map[string]any{
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"file_name":   name,
		"mime_type":   extract.NormalizeMimeType(mimeType, name, data),
		"size_bytes":  len(data),
		"text_chars":  len([]rune(text)),
		"duration_ms": s.now().Sub(started).Milliseconds(),
	})

	return Document{
		RawText:    text,
		FileName:   name,
		MimeType:   extract.NormalizeMimeType(mimeType, name, data),
		SizeBytes:  int64(len(data)),
		UploadedAt: s.now().UTC(),
	}, nil
}

// FromText wraps pasted text as a Document.
func (s *Service) FromText(fileName, text string) (Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Document{}, fmt.Errorf("%w: text is empty", ErrInvalidInput)
	}
	if int64(len(text)) > s.MaxBytes {
		return Document{}, ErrTooLarge
	}
	if strings.TrimSpace(fileName) == "" {
		fileName = "pasted.txt"
	}
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return Document{
		RawText:    text,
		FileName:   name,
		MimeType:   extract.MimeText,
		SizeBytes:  int64(len(text)),
		UploadedAt: s.now().UTC(),
	}, nil
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
