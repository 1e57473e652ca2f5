// Package fileio is the file boundary of the tools: reading user-selected
// inputs into memory, deriving download names, and formatting sizes.
package fileio

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// LargeFileThreshold is the size above which inputs are read in chunks.
	LargeFileThreshold = 10 << 20
	// ChunkSize is the read size used for large inputs.
	ChunkSize = 1 << 20
)

// ReadFile reads a whole input file. Large files are read chunk by chunk into
// a buffer sized up front so memory grows once.
func ReadFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if fi.Size() <= LargeFileThreshold {
		return io.ReadAll(f)
	}
	return ReadChunked(f, fi.Size())
}

// ReadChunked copies r into a single buffer in ChunkSize pieces.
func ReadChunked(r io.Reader, sizeHint int64) ([]byte, error) {
	var buf bytes.Buffer
	if sizeHint > 0 {
		buf.Grow(int(sizeHint))
	}
	chunk := make([]byte, ChunkSize)
	for {
		n, err := r.Read(chunk)
		buf.Write(chunk[:n])
		if err == io.EOF {
			return buf.Bytes(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read chunk: %w", err)
		}
	}
}

// BaseName strips directories and a trailing .pdf (any case) from name.
func BaseName(name string) string {
	base := filepath.Base(name)
	if ext := filepath.Ext(base); strings.EqualFold(ext, ".pdf") {
		base = base[:len(base)-len(ext)]
	}
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	return base
}

// StemName strips directories and any extension from name.
func StemName(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "document"
	}
	return base
}

// OutputName derives the download name <base>-<suffix>.<ext>.
func OutputName(original, suffix, ext string) string {
	base := BaseName(original)
	if suffix == "" {
		return base + "." + ext
	}
	return base + "-" + suffix + "." + ext
}

// FormatSize renders a byte count the way the tools display it.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%d B", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1f KB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.2f MB", float64(n)/(1024*1024))
	}
}

// WriteOutputs writes each named output into dir, creating it when needed.
func WriteOutputs(dir string, names []string, data [][]byte) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	paths := make([]string, 0, len(names))
	for i, name := range names {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, data[i], 0o644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
