package storage

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
)

const thumbnailMaxSize = 300

// PhotoStore persists uploaded report photos and their thumbnails.
type PhotoStore interface {
	// Save stores the photo and returns the public URL of the original and,
	// when the image could be decoded, of a bounded thumbnail.
	Save(ctx context.Context, filename string, data []byte) (photoURL, thumbURL string, err error)
}

var (
	store     PhotoStore
	storeOnce sync.Once
)

// GetStore returns the configured photo store: S3 when credentials are
// present, the local uploads directory otherwise.
func GetStore() PhotoStore {
	storeOnce.Do(func() {
		cfg := loadS3Config()
		if cfg.IsEnabled() {
			s3Store, err := newS3Store(cfg)
			if err != nil {
				log.Warnf("[Storage] S3 unavailable, falling back to local uploads: %v", err)
			} else {
				store = s3Store
				return
			}
		}
		store = newLocalStore()
	})
	return store
}

// objectName builds a collision-free object key for an upload.
func objectName(filename string) string {
	base := filepath.Base(filename)
	base = strings.ReplaceAll(base, " ", "_")
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)
}

// makeThumbnail fits the image into a 300px box, preserving aspect ratio.
// Returns nil when the payload is not decodable as an image.
func makeThumbnail(filename string, data []byte) []byte {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warnf("[Storage] Could not decode %s for thumbnail: %v", filename, err)
		return nil
	}

	thumb := imaging.Fit(img, thumbnailMaxSize, thumbnailMaxSize, imaging.Lanczos)

	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		format = imaging.JPEG
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, format); err != nil {
		log.Warnf("[Storage] Could not encode thumbnail for %s: %v", filename, err)
		return nil
	}
	return buf.Bytes()
}
