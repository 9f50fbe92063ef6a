package storage

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2/log"

	"github.com/oggatonama/oggatonama/internal/pkg/env"
)

// localStore writes photos to the uploads directory served statically by the app.
type localStore struct {
	dir string
}

func newLocalStore() *localStore {
	dir := env.GetEnv("UPLOAD_DIR", "./uploads")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Errorf("[Storage] Could not create upload dir %s: %v", dir, err)
	}
	return &localStore{dir: dir}
}

func (s *localStore) Save(ctx context.Context, filename string, data []byte) (string, string, error) {
	name := objectName(filename)
	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", "", err
	}
	photoURL := "/uploads/" + name

	thumbURL := ""
	if thumb := makeThumbnail(filename, data); thumb != nil {
		thumbName := "thumb_" + name
		if err := os.WriteFile(filepath.Join(s.dir, thumbName), thumb, 0o644); err != nil {
			log.Warnf("[Storage] Could not write thumbnail %s: %v", thumbName, err)
		} else {
			thumbURL = "/uploads/" + thumbName
		}
	}

	return photoURL, thumbURL, nil
}
