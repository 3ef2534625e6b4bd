package fact

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedLine = errors.New("malformed fact line")
	ErrSkipLine      = errors.New("blank or comment line")
)

// ParseResult is the outcome of parsing one serialized fact.
// A failed result is consumed by the caller and never aborts a pass.
type ParseResult struct {
	Fact Fact
	Err  error
}

// OK reports whether the line produced a fact.
func (r ParseResult) OK() bool {
	return r.Err == nil
}

// Skipped reports whether the line carried no fact at all.
func (r ParseResult) Skipped() bool {
	return errors.Is(r.Err, ErrSkipLine)
}

// ParseLine parses a tab-separated fact line: "id subject relation object" or
// "subject relation object". An empty id column is allowed.
func ParseLine(line string) ParseResult {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
		return ParseResult{Err: ErrSkipLine}
	}
	cols := strings.Split(line, "\t")
	var f Fact
	switch len(cols) {
	case 3:
		f = New(cols[0], cols[1], cols[2])
	case 4, 5:
		// A fifth column holds an optional numeric value and is ignored.
		f = Fact{ID: cols[0], Subject: cols[1], Relation: cols[2], Object: cols[3]}
	default:
		return ParseResult{Err: fmt.Errorf("%w: %d columns", ErrMalformedLine, len(cols))}
	}
	if !f.IsValid() {
		return ParseResult{Err: fmt.Errorf("%w: empty component in %q", ErrMalformedLine, line)}
	}
	return ParseResult{Fact: f}
}

// FormatLine renders a fact as a four-column TSV line without the newline.
func FormatLine(f Fact) string {
	return f.ID + "\t" + f.Subject + "\t" + f.Relation + "\t" + f.Object
}
