package storage

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a key has no stored object.
var ErrObjectNotFound = errors.New("stored object not found")

// Object is an opened stored file. Callers must close Reader.
type Object struct {
	Reader      io.ReadCloser
	Size        int64
	ContentType string
	ModTime     time.Time
}

// validKey rejects keys that would escape the storage namespace.
func validKey(key string) error {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return fmt.Errorf("invalid storage key %q", key)
	}
	return nil
}
