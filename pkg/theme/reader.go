package theme

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/s2"

	"github.com/yago-naga/yago3-sub001/pkg/fact"
)

const maxLineSize = 16 << 20

// Reader streams the facts of one theme file.
type Reader struct {
	theme Theme
	dir   string

	// Malformed counts lines of the last read that could not be parsed.
	Malformed int
}

// Reader returns a reader for the theme in dir.
func (t Theme) Reader(dir string) *Reader {
	return &Reader{theme: t, dir: dir}
}

// Read returns a forward-only sequence over the facts. Every call starts a
// fresh pass from the beginning of the file. Malformed lines are skipped and
// counted; I/O errors end the sequence.
func (r *Reader) Read(ctx context.Context) iter.Seq2[fact.Fact, error] {
	return func(yield func(fact.Fact, error) bool) {
		path, ok := r.theme.Locate(r.dir)
		if !ok {
			yield(fact.Fact{}, fmt.Errorf("%w: %s in %s", ErrNotAvailable, r.theme.Name, r.dir))
			return
		}
		file, err := os.Open(path)
		if err != nil {
			yield(fact.Fact{}, err)
			return
		}
		defer file.Close()

		var src io.Reader = file
		if strings.HasSuffix(path, compressedExt) {
			src = s2.NewReader(file)
		}

		r.Malformed = 0
		scanner := bufio.NewScanner(src)
		scanner.Buffer(make([]byte, 64*1024), maxLineSize)
		line := 0
		for scanner.Scan() {
			line++
			if line%4096 == 0 {
				if err := ctx.Err(); err != nil {
					yield(fact.Fact{}, err)
					return
				}
			}
			res := fact.ParseLine(scanner.Text())
			if res.Skipped() {
				continue
			}
			if !res.OK() {
				r.Malformed++
				slog.Debug("skipping malformed line",
					"theme", r.theme.Name,
					"line", line,
					"error", res.Err,
				)
				continue
			}
			if !yield(res.Fact, nil) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			yield(fact.Fact{}, fmt.Errorf("read theme %s: %w", r.theme.Name, err))
		}
	}
}

// Facts reads the whole theme into a slice.
func (r *Reader) Facts(ctx context.Context) ([]fact.Fact, error) {
	var out []fact.Fact
	for f, err := range r.Read(ctx) {
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}
