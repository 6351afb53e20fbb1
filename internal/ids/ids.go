// Package ids loads the product ID list from a CSV file.
package ids

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// Load reads product IDs from a CSV file with a header row containing an
// "id" column. IDs are returned in file order; empty cells are skipped.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ids file %s: %w", path, err)
	}
	defer f.Close()

	return parse(f, path)
}

func parse(r io.Reader, name string) ([]string, error) {
	reader := csv.NewReader(r)
	// Tolerate ragged rows; only the id column matters.
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("ids file %s is empty", name)
		}
		return nil, fmt.Errorf("read header of %s: %w", name, err)
	}

	idCol := -1
	for i, col := range header {
		if strings.TrimSpace(strings.ToLower(col)) == "id" {
			idCol = i
			break
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("ids file %s has no \"id\" column", name)
	}

	var ids []string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row of %s: %w", name, err)
		}
		if idCol >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[idCol])
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}

	return ids, nil
}
