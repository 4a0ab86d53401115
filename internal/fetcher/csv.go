package fetcher

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // 0 = none
	LazyQuotes bool
	TrimSpace  bool
	// SkipBlank drops rows whose cells are all empty, such as the ",,,"
	// trailers spreadsheet exports leave behind.
	SkipBlank bool
}

// StreamCSV parses r on a goroutine and sends every row, header included, on
// the row channel. A leading UTF-8 byte order mark is removed. The caller must
// drain the row channel or cancel ctx; the error channel is read after the
// row channel closes. Both channels are closed when parsing stops.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		reader.Comment = opts.Comment
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1

		for line := 1; ; line++ {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrapf(err, "csv: read row %d", line)
				return
			}

			if line == 1 && len(record) > 0 {
				record[0] = strings.TrimPrefix(record[0], "\ufeff")
			}
			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}
			if opts.SkipBlank && isBlank(record) {
				continue
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// streamReader pulls rows from StreamCSV channels one at a time.
type streamReader struct {
	rows <-chan []string
	errs <-chan error
}

func (s *streamReader) Read() ([]string, error) {
	if row, ok := <-s.rows; ok {
		return row, nil
	}
	if err := <-s.errs; err != nil {
		return nil, err
	}
	return nil, io.EOF
}
