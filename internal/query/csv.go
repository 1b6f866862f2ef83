package query

import (
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/feral-file/castindex/internal/adapter"
)

// CSVFileName returns the name of the file a result run at t is saved to
func CSVFileName(t time.Time) string {
	return "query-" + t.UTC().Format("20060102T150405Z") + ".csv"
}

// WriteCSV writes the header and every row of result. NULL values become empty cells.
func WriteCSV(w io.Writer, result *Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(result.Columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for _, row := range result.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) && row[i] != nil {
				record[i] = fmt.Sprint(row[i])
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes result to a timestamp-named file under dir and returns its path
func SaveCSV(fs adapter.FileSystem, dir string, now time.Time, result *Result) (string, error) {
	if err := fs.MkdirAll(dir); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	path := filepath.Join(dir, CSVFileName(now))
	f, err := fs.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv file: %w", err)
	}

	err = WriteCSV(f, result)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close csv file: %w", closeErr)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}
