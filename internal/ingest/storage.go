package ingest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveRawFile writes an uploaded file under dir as "{docID}_{filename}" and
// returns the storage path. The directory is created on demand.
func SaveRawFile(dir, docID, filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s", docID, filepath.Base(filename)))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write upload file: %w", err)
	}
	return path, nil
}
