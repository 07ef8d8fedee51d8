package storage

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// Layout is the local directory tree shared by sequential runs.
type Layout struct {
	Uploads string
	Outputs string
	Temp    string
}

func NewLayout(baseDir string) Layout {
	return Layout{
		Uploads: filepath.Join(baseDir, "uploads"),
		Outputs: filepath.Join(baseDir, "outputs"),
		Temp:    filepath.Join(baseDir, "temp"),
	}
}

func (l Layout) Ensure() error {
	for _, dir := range []string{l.Uploads, l.Outputs, l.Temp} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// ContentType guesses the MIME type of an object from its key.
func ContentType(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".zip":
		return "application/zip"
	case "":
		return "application/octet-stream"
	}
	if ct := mime.TypeByExtension(filepath.Ext(key)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
