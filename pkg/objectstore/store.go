// Package objectstore wraps GCS access for course assets: thumbnail uploads
// served through a public CDN and chapter videos played back via short-lived
// V4 signed URLs.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// Config holds object storage settings
type Config struct {
	Bucket          string
	CDNHost         string        // optional CDN domain fronting public objects
	CredentialsFile string        // optional service account key path
	SignedURLTTL    time.Duration // playback URL lifetime
}

// Store provides access to the course asset bucket
type Store interface {
	Upload(ctx context.Context, key string, r io.Reader) error
	Delete(ctx context.Context, key string) error
	PublicURL(key string) string
	SignedPlaybackURL(key string) (string, error)
	Close() error
}

type store struct {
	client *storage.Client
	config Config
}

// New creates a storage client for the configured bucket
func New(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("objectstore: bucket name is required")
	}
	if cfg.SignedURLTTL <= 0 {
		cfg.SignedURLTTL = 15 * time.Minute
	}

	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &store{client: client, config: cfg}, nil
}

// Upload writes an object, inferring content type from the key suffix
func (s *store) Upload(ctx context.Context, key string, r io.Reader) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	w := s.client.Bucket(s.config.Bucket).Object(key).NewWriter(ctx)
	if ct := contentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close writer for %q: %w", key, err)
	}
	return nil
}

// Delete removes an object
func (s *store) Delete(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.client.Bucket(s.config.Bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	return nil
}

// PublicURL returns the CDN URL for a public object (thumbnails), falling
// back to the direct GCS URL when no CDN is configured
func (s *store) PublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if key == "" {
		return ""
	}
	if s.config.CDNHost != "" {
		return fmt.Sprintf("https://%s/%s", s.config.CDNHost, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.config.Bucket, key)
}

// SignedPlaybackURL issues a short-lived V4 GET URL for a private video object
func (s *store) SignedPlaybackURL(key string) (string, error) {
	url, err := s.client.Bucket(s.config.Bucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  "GET",
		Expires: time.Now().Add(s.config.SignedURLTTL),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign playback URL for %q: %w", key, err)
	}
	return url, nil
}

// Close releases the underlying client
func (s *store) Close() error {
	return s.client.Close()
}

func contentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	switch {
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".mp4"), strings.HasSuffix(s, ".m4v"):
		return "video/mp4"
	case strings.HasSuffix(s, ".webm"):
		return "video/webm"
	default:
		return ""
	}
}
