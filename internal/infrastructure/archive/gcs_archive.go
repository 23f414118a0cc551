package archive

import (
	"bytes"
	"context"
	"path"
	"strconv"
	"time"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/go-weather-digest/pkg/helpers"
)

// GCSArchive stores rendered digests in a bucket under digests/YYYY-MM-DD/<user-id>.html.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

func NewGCSArchive(client *storage.Client, bucket string) *GCSArchive {
	return &GCSArchive{client: client, bucket: bucket}
}

// ObjectPath returns where the digest for userID on day is stored.
func ObjectPath(userID int64, day time.Time) string {
	return path.Join("digests", day.UTC().Format("2006-01-02"), strconv.FormatInt(userID, 10)+".html")
}

// Put uploads html and returns the gs:// URI.
func (a *GCSArchive) Put(ctx context.Context, userID int64, day time.Time, html string) (string, error) {
	return helpers.UploadObject(ctx, a.client, a.bucket, ObjectPath(userID, day), "text/html; charset=utf-8", bytes.NewBufferString(html))
}
