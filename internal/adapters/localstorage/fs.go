package localstorage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voicebatch/internal/core/domain"
)

// OutputPrefix is prepended to every converted file's name.
const OutputPrefix = "converted_"

// Store implements ports.OutputStore on the local filesystem.
type Store struct {
	// Overwrite controls collision behavior: replace an existing file when
	// true, pick a numeric-suffixed free name when false.
	Overwrite bool
}

// NewStore creates a Store with the given collision policy.
func NewStore(overwrite bool) *Store {
	return &Store{Overwrite: overwrite}
}

// Write persists converted audio as converted_<baseName> inside dir,
// creating the directory when needed, and returns the final path.
func (s *Store) Write(ctx context.Context, dir, baseName string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", domain.NewConversionError(domain.ErrorKindIO, "write cancelled", err)
	}
	if strings.TrimSpace(dir) == "" {
		return "", domain.NewConversionError(domain.ErrorKindIO, "output directory is required", nil)
	}
	if strings.TrimSpace(baseName) == "" {
		return "", domain.NewConversionError(domain.ErrorKindIO, "output file name is required", nil)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", domain.NewConversionError(domain.ErrorKindIO,
			fmt.Sprintf("failed to create output directory %s", dir), err)
	}

	path := filepath.Join(dir, OutputPrefix+filepath.Base(baseName))
	if !s.Overwrite {
		path = freePath(path)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", domain.NewConversionError(domain.ErrorKindIO,
			fmt.Sprintf("failed to write %s", path), err)
	}
	return path, nil
}

// freePath returns path itself when unused, otherwise the first variant
// with a numeric suffix before the extension: name (1).ext, name (2).ext.
func freePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", stem, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
