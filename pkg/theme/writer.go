package theme

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/s2"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

// Writer appends facts to a theme. The file becomes visible under its final
// name only when Close succeeds.
type Writer struct {
	theme   Theme
	path    string
	partial string

	file *os.File
	s2w  *s2.Writer
	buf  *bufio.Writer

	count  int
	closed bool
}

// Create opens a writer for the theme in dir, replacing an older version.
func (t Theme) Create(dir string, compressed bool) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := t.File(dir, compressed)
	partial := path + partialExt
	// An older version must not look available while this one is written.
	for _, old := range []string{t.File(dir, false), t.File(dir, true)} {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("replace theme %s: %w", t.Name, err)
		}
	}
	file, err := os.Create(partial)
	if err != nil {
		return nil, fmt.Errorf("create theme %s: %w", t.Name, err)
	}

	w := &Writer{theme: t, path: path, partial: partial, file: file}
	var dst io.Writer = file
	if compressed {
		w.s2w = s2.NewWriter(file)
		dst = w.s2w
	}
	w.buf = bufio.NewWriterSize(dst, 256*1024)

	// The header depends on the theme only, so equal facts give equal files.
	header := fmt.Sprintf("# %s\n# %s\n", t.Name, t.Description)
	if _, err := w.buf.WriteString(header); err != nil {
		w.abort()
		return nil, err
	}
	return w, nil
}

// Theme returns the theme being written.
func (w *Writer) Theme() Theme {
	return w.theme
}

// Count returns the number of facts written so far.
func (w *Writer) Count() int {
	return w.count
}

// Write appends one fact.
func (w *Writer) Write(f fact.Fact) error {
	if w.closed {
		return ErrAlreadyClosed
	}
	if _, err := w.buf.WriteString(fact.FormatLine(f)); err != nil {
		return err
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		return err
	}
	w.count++
	return nil
}

// WriteAll appends the facts in order.
func (w *Writer) WriteAll(facts []fact.Fact) error {
	for _, f := range facts {
		if err := w.Write(f); err != nil {
			return err
		}
	}
	return nil
}

// Close finishes the file and makes the theme available. It may be called once.
func (w *Writer) Close() error {
	if w.closed {
		return ErrAlreadyClosed
	}
	w.closed = true

	if _, err := w.buf.WriteString("# end of file\n"); err != nil {
		w.abort()
		return err
	}
	if err := w.buf.Flush(); err != nil {
		w.abort()
		return err
	}
	if w.s2w != nil {
		if err := w.s2w.Close(); err != nil {
			w.abort()
			return err
		}
	}
	if err := w.file.Close(); err != nil {
		os.Remove(w.partial)
		return err
	}
	return os.Rename(w.partial, w.path)
}

// Abort discards everything written. It is a no-op after Close.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true
	w.abort()
}

func (w *Writer) abort() {
	w.file.Close()
	os.Remove(w.partial)
}
