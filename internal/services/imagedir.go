package services

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"
)

// ImageDir writes generated images into a directory that is served publicly under urlPrefix.
type ImageDir struct {
	dir       string
	urlPrefix string
}

// maxNameAttempts bounds how far a colliding timestamp is bumped before giving up.
const maxNameAttempts = 1000

// NewImageDir creates the directory if needed and returns an ImageDir rooted at it.
func NewImageDir(dir, urlPrefix string) (ImageDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return ImageDir{}, fmt.Errorf("failed to create image directory: %w", err)
	}
	return ImageDir{
		dir:       dir,
		urlPrefix: urlPrefix,
	}, nil
}

// Dir returns the directory the images are written to.
func (d ImageDir) Dir() string {
	return d.dir
}

// Save writes data as img_<unix-ms>.png and returns its public URL. Files are created exclusively; when the
// name is taken by a concurrent request the timestamp is moved forward until a free name is found, so two
// images never share a file.
func (d ImageDir) Save(data []byte, now time.Time) (string, error) {
	ts := now.UnixMilli()
	for range maxNameAttempts {
		name := fmt.Sprintf("img_%d.png", ts)
		f, err := os.OpenFile(filepath.Join(d.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
		if errors.Is(err, fs.ErrExist) {
			ts++
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create image file: %w", err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to write image file: %w", err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", fmt.Errorf("failed to close image file: %w", err)
		}

		return path.Join(d.urlPrefix, name), nil
	}
	return "", fmt.Errorf("failed to find a free image name after %d attempts", maxNameAttempts)
}
