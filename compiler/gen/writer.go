package gen

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dave/jennifer/jen"
	"golang.org/x/tools/imports"
)

// Writer renders jennifer files under a target directory. Writes from
// concurrent emitters are safe; metrics are aggregated under a mutex.
type Writer struct {
	target string

	mu      sync.Mutex
	metrics WriterMetrics
}

// WriterMetrics tracks what a generation run wrote.
type WriterMetrics struct {
	FilesGenerated int
	TotalBytes     int64
}

// NewWriter creates a writer rooted at target.
func NewWriter(target string) *Writer {
	return &Writer{target: target}
}

// Metrics returns a copy of the accumulated metrics.
func (w *Writer) Metrics() WriterMetrics {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.metrics
}

// Write renders f and writes it to rel below the target directory. The
// rendered source runs through goimports, which prunes unused imports and
// settles grouping; on a formatting failure the raw rendering is kept next
// to the target under a .error suffix for inspection.
func (w *Writer) Write(rel string, f *jen.File) error {
	var buf bytes.Buffer
	if err := f.Render(&buf); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}

	fullPath := filepath.Join(w.target, rel)
	formatted, err := imports.Process(fullPath, buf.Bytes(), nil)
	if err != nil {
		debugPath := fullPath + ".error"
		_ = os.MkdirAll(filepath.Dir(debugPath), 0o755)
		_ = os.WriteFile(debugPath, buf.Bytes(), 0o644)
		return fmt.Errorf("format %s: %w (unformatted written to %s)", rel, err, debugPath)
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(fullPath, formatted, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", rel, err)
	}

	w.mu.Lock()
	w.metrics.FilesGenerated++
	w.metrics.TotalBytes += int64(len(formatted))
	w.mu.Unlock()
	return nil
}
