package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURLWithCDN(t *testing.T) {
	s := &store{config: Config{Bucket: "coursehub-assets", CDNHost: "cdn.coursehub.dev"}}

	assert.Equal(t,
		"https://cdn.coursehub.dev/thumbnails/go-101.png",
		s.PublicURL("/thumbnails/go-101.png"))
}

func TestPublicURLFallsBackToGCS(t *testing.T) {
	s := &store{config: Config{Bucket: "coursehub-assets"}}

	assert.Equal(t,
		"https://storage.googleapis.com/coursehub-assets/thumbnails/go-101.png",
		s.PublicURL("thumbnails/go-101.png"))
	assert.Empty(t, s.PublicURL("  "))
}

func TestContentTypeForKey(t *testing.T) {
	assert.Equal(t, "video/mp4", contentTypeForKey("videos/ch-1.mp4"))
	assert.Equal(t, "image/png", contentTypeForKey("thumbnails/A.PNG"))
	assert.Empty(t, contentTypeForKey("videos/raw.mkv"))
}
