package file

import (
	"encoding/csv"
	"io"
)

type csvRowReader struct {
	closer io.Closer
	reader *csv.Reader
}

func newCSVRowReader(rc io.ReadCloser) *csvRowReader {
	reader := csv.NewReader(rc)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	return &csvRowReader{closer: rc, reader: reader}
}

func (r *csvRowReader) Next() ([]string, error) {
	return r.reader.Read()
}

func (r *csvRowReader) Close() error {
	return r.closer.Close()
}
