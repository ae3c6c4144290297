package gen

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DirAssets stores generated media in Dir and serves it under BaseURL.
type DirAssets struct {
	Dir     string
	BaseURL string
}

// Put writes r to a fresh file with extension ext and returns its URL.
func (a DirAssets) Put(ext string, r io.Reader) (string, error) {
	if strings.TrimSpace(a.Dir) == "" {
		return "", fmt.Errorf("assets dir is not set")
	}
	if err := os.MkdirAll(a.Dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + "." + strings.TrimPrefix(ext, ".")
	tmp, err := os.CreateTemp(a.Dir, ".asset-*")
	if err != nil {
		return "", err
	}
	tmpName := tmp.Name()
	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	if err := os.Rename(tmpName, filepath.Join(a.Dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return "", err
	}
	return strings.TrimRight(a.BaseURL, "/") + "/" + name, nil
}
