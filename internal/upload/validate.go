// Package upload runs the survey video pipeline: validation, signed transfer,
// job submission, status polling and retry.
package upload

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrValidation is returned for files rejected before any network call.
var ErrValidation = errors.New("validation failed")

var allowedContentTypes = map[string]bool{
	"video/mp4":       true,
	"video/quicktime": true,
}

// File is a survey video ready to be uploaded.
type File struct {
	Name        string
	ContentType string
	Size        int64
	// Content must be positioned at the start. Validate sniffs it and rewinds.
	Content io.ReadSeeker
}

// Validate checks name, declared MIME type, size and, when content is present,
// the sniffed type. It performs no network calls.
func Validate(f File, maxBytes int64) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("%w: file name is required", ErrValidation)
	}

	ct := normalizeContentType(f.ContentType)
	if !allowedContentTypes[ct] {
		return fmt.Errorf("%w: unsupported content type %q (want video/mp4 or video/quicktime)", ErrValidation, f.ContentType)
	}

	if f.Size <= 0 {
		return fmt.Errorf("%w: file is empty", ErrValidation)
	}
	if f.Size > maxBytes {
		return fmt.Errorf("%w: file is %d bytes, maximum is %d", ErrValidation, f.Size, maxBytes)
	}

	if f.Content == nil {
		return nil
	}
	detected, err := mimetype.DetectReader(f.Content)
	if err != nil {
		return fmt.Errorf("sniffing content: %w", err)
	}
	if _, err := f.Content.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding content: %w", err)
	}
	if !looksLikeVideo(detected) {
		return fmt.Errorf("%w: content is %s, not a video", ErrValidation, detected.String())
	}
	return nil
}

func normalizeContentType(ct string) string {
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// looksLikeVideo accepts any video type and content mimetype cannot identify.
// Only content confidently detected as something else is rejected.
func looksLikeVideo(m *mimetype.MIME) bool {
	if m.Is("application/octet-stream") {
		return true
	}
	for ; m != nil; m = m.Parent() {
		if strings.HasPrefix(m.String(), "video/") {
			return true
		}
	}
	return false
}
