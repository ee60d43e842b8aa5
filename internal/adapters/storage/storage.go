// Package storage keeps uploaded videos in object storage while they are
// analysed.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"
)

// Locator schemes.
const (
	SchemeS3     = "s3"
	SchemeMemory = "mem"
)

// MediaStore stores uploaded media and hands out URLs the annotation
// providers can fetch.
type MediaStore interface {
	// Upload stores r under key and returns its locator (scheme://bucket/key).
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	// Delete removes the object identified by locator.
	Delete(ctx context.Context, locator string) error
	// AccessURL returns a URL from which the object can be downloaded.
	AccessURL(ctx context.Context, locator string, expiry time.Duration) (string, error)
	// Ping checks connectivity and returns the bucket name.
	Ping(ctx context.Context) (string, error)
}

// Locator builds scheme://bucket/key.
func Locator(scheme, bucket, key string) string {
	return fmt.Sprintf("%s://%s/%s", scheme, bucket, strings.TrimPrefix(key, "/"))
}

// ParseLocator splits scheme://bucket/key. The key is everything after the
// bucket and may contain slashes.
func ParseLocator(locator string) (scheme, bucket, key string, err error) {
	scheme, rest, ok := strings.Cut(locator, "://")
	if !ok || scheme == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrBadLocator, locator)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", "", fmt.Errorf("%w: %q", ErrBadLocator, locator)
	}
	return scheme, bucket, key, nil
}

// ObjectKey builds the storage key for an owner's upload. The original file
// name only contributes its extension.
func ObjectKey(owner, id, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".webm"
	}
	return fmt.Sprintf("videos/%s/%d-%s%s", owner, now.UnixMilli(), id, ext)
}

// ContentType guesses a video content type from the file name.
func ContentType(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".mp4", ".m4v":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".webm":
		return "video/webm"
	case ".mkv":
		return "video/x-matroska"
	case ".avi":
		return "video/x-msvideo"
	default:
		return "application/octet-stream"
	}
}
