package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Output file names.
const (
	FileGoogleFeed     = "feed_google.xml"
	FileFacebookFeed   = "feed_facebook.xml"
	FileMetadata       = "metadata.json"
	FileProductDetails = "product_details.json"
)

// File is one named output artifact.
type File struct {
	Name string
	Data []byte
}

// Writer publishes run artifacts into the output directory. Files are staged
// in a temporary directory and renamed into place only after every write
// succeeds, so a failed run never leaves partial feed files behind.
type Writer struct {
	dir    string
	logger *zap.Logger
}

// NewWriter prepares the output directory and verifies it is writable.
func NewWriter(dir string, logger *zap.Logger) (*Writer, error) {
	if dir == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".writable_test")
	if err := os.WriteFile(probe, []byte("test"), 0o600); err != nil {
		return nil, fmt.Errorf("output dir %s is not writable: %w", dir, err)
	}
	if err := os.Remove(probe); err != nil {
		return nil, fmt.Errorf("clean up probe file: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Writer{dir: dir, logger: logger}, nil
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// WriteAll stages every file, then moves them into the output directory in
// the given order. Callers put metadata last so its presence implies the
// feeds landed too.
func (w *Writer) WriteAll(files []File) error {
	staging, err := os.MkdirTemp(w.dir, ".staging-*")
	if err != nil {
		return fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(staging); rmErr != nil {
			w.logger.Warn("remove staging dir failed", zap.Error(rmErr))
		}
	}()

	for _, f := range files {
		if f.Name == "" || f.Name != filepath.Base(f.Name) {
			return fmt.Errorf("invalid output file name %q", f.Name)
		}
		if err := os.WriteFile(filepath.Join(staging, f.Name), f.Data, 0o600); err != nil {
			return fmt.Errorf("stage %s: %w", f.Name, err)
		}
	}

	for _, f := range files {
		src := filepath.Join(staging, f.Name)
		dst := filepath.Join(w.dir, f.Name)
		if err := os.Rename(src, dst); err != nil {
			return fmt.Errorf("publish %s: %w", f.Name, err)
		}
		w.logger.Debug("output file written",
			zap.String("file", dst),
			zap.Int("bytes", len(f.Data)),
		)
	}
	return nil
}
