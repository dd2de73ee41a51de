// Package export encodes and decodes transaction lists for interchange.
// CSV and JSON are equivalent encodings: exporting and importing with
// either preserves id, date, category, kind, amount and description.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veraticus/purse/internal/common"
	"github.com/Veraticus/purse/internal/model"
)

// Codec converts transactions to and from one file format.
type Codec interface {
	Encode(w io.Writer, txs []model.Transaction) error
	Decode(r io.Reader) ([]model.Transaction, error)
	Extension() string
}

// ForFormat returns the codec registered for name ("csv" or "json").
func ForFormat(name string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), ".")) {
	case "csv":
		return CSV{}, nil
	case "json":
		return JSON{}, nil
	default:
		return nil, fmt.Errorf("%w: unsupported format %q", common.ErrInvalidArgument, name)
	}
}

// ForPath picks a codec from a file's extension.
func ForPath(path string) (Codec, error) {
	return ForFormat(filepath.Ext(path))
}

// DefaultName is the file name used when the user gives none: login and date.
func DefaultName(login string, now time.Time) string {
	return fmt.Sprintf("%s_%s", login, now.Format(model.DateLayout))
}

// ExportFile writes txs to dir/name.<ext>, creating dir as needed, and
// returns the written path. An empty name falls back to DefaultName.
func ExportFile(dir, name, login string, codec Codec, txs []model.Transaction) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = DefaultName(login, time.Now())
	}
	if filepath.Ext(name) != "."+codec.Extension() {
		name += "." + codec.Extension()
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := codec.Encode(f, txs); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}
	return path, nil
}

// ImportFile decodes every transaction in path.
func ImportFile(path string, codec Codec) ([]model.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %w", common.ErrNotFound, path, err)
	}
	defer func() { _ = f.Close() }()

	txs, err := codec.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return txs, nil
}
