package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Street view images on disk, one file per location id
type ImageDir struct {
	dir   string
	group singleflight.Group
}

func NewImageDir(dir string) (*ImageDir, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating image cache %s: %w", dir, err)
	}
	return &ImageDir{dir: dir}, nil
}

func (d *ImageDir) Path(id uuid.UUID) string {
	return filepath.Join(d.dir, id.String()+".jpg")
}

// Return the path of the image of id, calling fetch only when it is not on
// disk yet. Concurrent calls for one id share a single fetch
func (d *ImageDir) Ensure(ctx context.Context, id uuid.UUID, fetch func(context.Context) ([]byte, error)) (string, error) {
	path := d.Path(id)
	if cached(path) {
		return path, nil
	}

	_, err, shared := d.group.Do(id.String(), func() (interface{}, error) {
		if cached(path) {
			return nil, nil
		}
		data, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		if len(data) == 0 {
			return nil, fmt.Errorf("empty image for location %s", id)
		}
		return nil, d.write(path, data)
	})
	if err != nil {
		return "", err
	}
	if !shared {
		log.Debug().Str("location", id.String()).Msg("Cached street view image")
	}
	return path, nil
}

// Readers never see a partial file: the image is written aside and renamed
// into place
func (d *ImageDir) write(path string, data []byte) error {
	tmp, err := os.CreateTemp(d.dir, ".image-*")
	if err != nil {
		return fmt.Errorf("creating temporary image: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving image into place: %w", err)
	}
	return nil
}

func cached(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Could not stat cached image")
		}
		return false
	}
	return info.Size() > 0
}
