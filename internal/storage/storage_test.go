package storage

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/videotube/internal/config"
)

func TestObjectKey(t *testing.T) {
	tests := []struct {
		filename string
		wantExt  string
	}{
		{"avatar.PNG", ".png"},
		{"clip.final.mp4", ".mp4"},
		{`C:\Users\alice\thumb.jpg`, ".jpg"},
		{"noext", ""},
		{"weird.ext with space", ""},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			key := ObjectKey(FolderVideos, tt.filename)
			assert.True(t, strings.HasPrefix(key, "videos/"), key)
			assert.True(t, strings.HasSuffix(key, tt.wantExt), key)
		})
	}

	assert.NotEqual(t, ObjectKey(FolderAvatars, "a.png"), ObjectKey(FolderAvatars, "a.png"))
}

func TestKeyFromURL(t *testing.T) {
	const base = "https://cdn.example.com/media"

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{"nested key", "https://cdn.example.com/media/thumbnails/abc.jpg", "thumbnails/abc.jpg", false},
		{"host case", "https://CDN.example.com/media/avatars/x.png", "avatars/x.png", false},
		{"other host", "https://res.cloudinary.com/demo/image/upload/v1/x.jpg", "", true},
		{"outside prefix", "https://cdn.example.com/other/x.jpg", "", true},
		{"prefix only", "https://cdn.example.com/media/", "", true},
		{"traversal", "https://cdn.example.com/media/../secret", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := KeyFromURL(base, tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNotManaged)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPublicBaseURL(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{"explicit", config.StorageConfig{PublicBaseURL: "https://cdn.example.com/", Bucket: "b"}, "https://cdn.example.com"},
		{"endpoint", config.StorageConfig{Endpoint: "http://localhost:9000", Bucket: "tube"}, "http://localhost:9000/tube"},
		{"aws virtual host", config.StorageConfig{Bucket: "tube", Region: "eu-west-1"}, "https://tube.s3.eu-west-1.amazonaws.com"},
		{"aws path style", config.StorageConfig{Bucket: "tube", Region: "eu-west-1", UsePathStyle: true}, "https://s3.eu-west-1.amazonaws.com/tube"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PublicBaseURL(tt.cfg))
		})
	}
}

func TestPublicURLRoundTripsThroughKeyFromURL(t *testing.T) {
	cfg := config.StorageConfig{Bucket: "tube", Region: "us-east-1"}
	base := PublicBaseURL(cfg)
	key := ObjectKey(FolderCovers, "cover.webp")

	got, err := KeyFromURL(base, base+"/"+key)
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestS3Store_DeleteEmptyURLIsNoop(t *testing.T) {
	s := &S3Store{baseURL: "https://cdn.example.com"}
	assert.NoError(t, s.Delete(context.Background(), ""))

	err := s.Delete(context.Background(), "https://elsewhere.example.com/x.jpg")
	assert.True(t, errors.Is(err, ErrNotManaged))
}
