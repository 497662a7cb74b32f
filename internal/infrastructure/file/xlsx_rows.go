package file

import (
	"errors"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// xlsxRowReader streams the first worksheet of a workbook.
type xlsxRowReader struct {
	source   io.Closer
	workbook *excelize.File
	rows     *excelize.Rows
}

func newXLSXRowReader(rc io.ReadCloser) (*xlsxRowReader, error) {
	workbook, err := excelize.OpenReader(rc)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		_ = workbook.Close()
		return nil, errors.New("open workbook: no worksheets")
	}

	rows, err := workbook.Rows(sheets[0])
	if err != nil {
		_ = workbook.Close()
		return nil, fmt.Errorf("read worksheet %q: %w", sheets[0], err)
	}

	return &xlsxRowReader{source: rc, workbook: workbook, rows: rows}, nil
}

func (r *xlsxRowReader) Next() ([]string, error) {
	if !r.rows.Next() {
		if err := r.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return r.rows.Columns()
}

func (r *xlsxRowReader) Close() error {
	return errors.Join(r.rows.Close(), r.workbook.Close(), r.source.Close())
}
