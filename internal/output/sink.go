package output

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/fairbio/fairbio-cli/internal/log"
)

// Stdout is the --output value that selects standard output.
const Stdout = "-"

// Sink is where a command's document goes.
type Sink struct {
	// Path is the --output value: a file, "-" for stdout, or "" for nowhere.
	Path   string
	Format Format
	// Stdout receives the document when Path is "-".
	Stdout io.Writer
}

// Enabled reports whether the document should be written at all.
func (s Sink) Enabled() bool {
	return s.Path != ""
}

// ToStdout reports whether the document goes to standard output.
func (s Sink) ToStdout() bool {
	return s.Path == Stdout
}

// Write renders v and sends it to the sink. It is a no-op when the sink
// is not enabled.
func (s Sink) Write(v any) error {
	if !s.Enabled() {
		return nil
	}
	if s.Format == FormatZip {
		return fmt.Errorf("%w: zip output only applies to file bundles", ErrUnsupportedFormat)
	}
	if s.ToStdout() {
		return NewFormatter(s.Stdout, s.Format).Format(v)
	}
	data, err := Render(v, s.Format)
	if err != nil {
		return err
	}
	if err := SaveFile(s.Path, data); err != nil {
		return err
	}
	log.Debug(log.CatOutput, "saved output", "path", s.Path, "format", string(s.Format), "bytes", len(data))
	return nil
}

// WriteRaw stores an archive exactly as received. A file path is required.
func (s Sink) WriteRaw(data []byte) error {
	if !s.Enabled() || s.ToStdout() {
		return ErrZipNeedsOutput
	}
	if err := SaveFile(s.Path, data); err != nil {
		return err
	}
	log.Debug(log.CatOutput, "saved archive", "path", s.Path, "bytes", len(data))
	return nil
}

// SaveFile writes data to path atomically: a temp file in the same
// directory is written, closed and renamed over path.
func SaveFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	temp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tempPath := temp.Name()

	if _, err := io.Copy(temp, bytes.NewReader(data)); err != nil {
		_ = temp.Close()
		_ = os.Remove(tempPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := temp.Close(); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	// CreateTemp uses 0600; output files are meant to be shared.
	if err := os.Chmod(tempPath, 0o644); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("setting file mode: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
