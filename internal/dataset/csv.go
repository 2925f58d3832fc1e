package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// WriteCSV writes t with a leading row-index column. Nulls become empty cells
// and nested values are written as JSON.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	header := append([]string{""}, t.Columns()...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	record := make([]string, len(header))
	for i := 0; i < t.Len(); i++ {
		record[0] = strconv.Itoa(i)
		for c, name := range t.columns {
			cell, err := formatCell(t.data[c][i])
			if err != nil {
				return fmt.Errorf("row %d column %q: %w", i, name, err)
			}
			record[c+1] = cell
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes t to path, replacing any existing file.
func SaveCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadCSV parses a file produced by WriteCSV. Cells that parse as numbers or
// booleans are typed, except in textColumns.
func ReadCSV(r io.Reader, textColumns ...string) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return NewTable(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) == 0 || header[0] != "" {
		return nil, fmt.Errorf("dataset: csv header must start with an empty index cell")
	}
	columns := header[1:]
	t := NewTable(columns...)

	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}
		row := make(map[string]any, len(columns))
		for c, name := range columns {
			if slices.Contains(textColumns, name) {
				if rec[c+1] != "" {
					row[name] = rec[c+1]
				}
				continue
			}
			row[name] = parseCell(rec[c+1])
		}
		t.AppendRow(row)
	}
	return t, nil
}

// LoadCSV reads the file at path with the identity columns kept as text.
func LoadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()
	return ReadCSV(f, IdentityColumns...)
}

func formatCell(v any) (string, error) {
	switch v := v.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case bool:
		if v {
			return "True", nil
		}
		return "False", nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}

func parseCell(s string) any {
	switch s {
	case "":
		return nil
	case "True":
		return true
	case "False":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}
