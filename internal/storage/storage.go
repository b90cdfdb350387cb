// Package storage keeps media files (avatars, cover images, videos and
// thumbnails) in an S3-compatible object store and hands back public URLs.
package storage

import (
	"context"
	"errors"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Folders group objects by what they hold.
const (
	FolderAvatars    = "avatars"
	FolderCovers     = "covers"
	FolderVideos     = "videos"
	FolderThumbnails = "thumbnails"
)

// ErrNotManaged is returned for URLs that do not point into this store,
// such as assets hosted elsewhere before a migration.
var ErrNotManaged = errors.New("storage: url is not managed by this store")

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Asset is a stored object.
type Asset struct {
	URL string
	Key string
}

// AssetStore is the object storage the services depend on.
type AssetStore interface {
	// Upload stores up under folder and returns its public URL.
	Upload(ctx context.Context, folder string, up Upload) (*Asset, error)
	// Delete removes the object behind url. An empty url is a no-op.
	Delete(ctx context.Context, url string) error
}

// ObjectKey builds a unique key under folder, keeping the file extension so
// browsers and CDNs can infer the type.
func ObjectKey(folder, filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 || strings.ContainsAny(ext, " ?#%") {
		ext = ""
	}
	return path.Join(folder, uuid.NewString()+ext)
}

// KeyFromURL recovers the object key from a public URL produced with
// baseURL. It fails with ErrNotManaged when rawURL lives elsewhere.
func KeyFromURL(baseURL, rawURL string) (string, error) {
	base, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return "", err
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", ErrNotManaged
	}
	if !strings.EqualFold(u.Host, base.Host) {
		return "", ErrNotManaged
	}

	prefix := strings.TrimSuffix(base.Path, "/") + "/"
	if !strings.HasPrefix(u.Path, prefix) {
		return "", ErrNotManaged
	}
	key := strings.TrimPrefix(u.Path, prefix)
	if key == "" || strings.Contains(key, "..") {
		return "", ErrNotManaged
	}
	return key, nil
}
