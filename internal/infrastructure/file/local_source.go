package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	domain "github.com/mohammadpnp/catalog-import/internal/domain/importjob"
)

var ErrUnsupportedFormat = errors.New("unsupported import file format")

// LocalSource opens uploaded catalog files from the import directory.
type LocalSource struct {
	BaseDir string
}

func NewLocalSource(baseDir string) *LocalSource {
	if baseDir == "" {
		baseDir = "."
	}
	return &LocalSource{BaseDir: baseDir}
}

func (s *LocalSource) Open(ctx context.Context, sourcePath string) (*os.File, error) {
	_ = ctx

	path := sourcePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.BaseDir, sourcePath)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file %s: %w", path, err)
	}
	return file, nil
}

// OpenRows picks a reader by file extension: .csv or .xlsx.
func (s *LocalSource) OpenRows(ctx context.Context, sourcePath string) (domain.RowReader, error) {
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext != ".csv" && ext != ".xlsx" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	file, err := s.Open(ctx, sourcePath)
	if err != nil {
		return nil, err
	}

	if ext == ".csv" {
		return newCSVRowReader(file), nil
	}

	rows, err := newXLSXRowReader(file)
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	return rows, nil
}
