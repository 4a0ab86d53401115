package fetcher

import (
	"context"
	"io"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
)

// DecodeOptions controls how a table is mapped onto a record type.
type DecodeOptions struct {
	// Renames maps a source header to the canonical column name used in the
	// record's csv tags. Matching is case-insensitive.
	Renames map[string]string
	// Required lists canonical columns that must be present after renaming.
	Required []string
	// Delimiter overrides the CSV field separator.
	Delimiter rune
	// Comment marks lines to ignore in CSV input.
	Comment rune
}

// rowReader is the pull interface csvutil decodes from.
type rowReader interface {
	Read() ([]string, error)
}

// DecodeCSV decodes a CSV body into records of type T. The first row is the
// header; columns not tagged on T are ignored.
func DecodeCSV[T any](ctx context.Context, r io.Reader, opts DecodeOptions) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{
		Delimiter:  opts.Delimiter,
		Comment:    opts.Comment,
		LazyQuotes: true,
		TrimSpace:  true,
		SkipBlank:  true,
	})
	return decodeRows[T](&streamReader{rows: rowCh, errs: errCh}, opts)
}

// DecodeRows decodes an in-memory table (header first) into records of type T.
func DecodeRows[T any](rows [][]string, opts DecodeOptions) ([]T, error) {
	return decodeRows[T](&sliceReader{rows: rows}, opts)
}

func decodeRows[T any](rr rowReader, opts DecodeOptions) ([]T, error) {
	raw, err := rr.Read()
	if err == io.EOF {
		return nil, eris.New("decode: empty table")
	}
	if err != nil {
		return nil, eris.Wrap(err, "decode: read header")
	}

	header := CanonicalHeader(raw, opts.Renames)
	if err := requireColumns(header, opts.Required); err != nil {
		return nil, err
	}

	dec, err := csvutil.NewDecoder(&padReader{r: rr, width: len(header)}, header...)
	if err != nil {
		return nil, eris.Wrap(err, "decode: create decoder")
	}

	var out []T
	for {
		var rec T
		if err := dec.Decode(&rec); err != nil {
			if err == io.EOF {
				break
			}
			return nil, eris.Wrapf(err, "decode: row %d", len(out)+1)
		}
		out = append(out, rec)
	}
	return out, nil
}

// CanonicalHeader lower-cases and trims each header cell, strips a UTF-8 BOM,
// then applies renames.
func CanonicalHeader(raw []string, renames map[string]string) []string {
	lookup := make(map[string]string, len(renames))
	for from, to := range renames {
		lookup[strings.ToLower(strings.TrimSpace(from))] = strings.ToLower(strings.TrimSpace(to))
	}

	header := make([]string, len(raw))
	for i, h := range raw {
		h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if to, ok := lookup[h]; ok {
			h = to
		}
		header[i] = h
	}
	return header
}

func requireColumns(header, required []string) error {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[h] = true
	}
	var missing []string
	for _, col := range required {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return eris.Errorf("decode: missing required columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// padReader pads short rows and truncates long ones to the header width, so
// spreadsheets with trimmed trailing cells still decode.
type padReader struct {
	r     rowReader
	width int
}

func (p *padReader) Read() ([]string, error) {
	row, err := p.r.Read()
	if err != nil {
		return nil, err
	}
	if len(row) == p.width {
		return row, nil
	}
	out := make([]string, p.width)
	copy(out, row)
	return out, nil
}

type sliceReader struct {
	rows [][]string
	pos  int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}
