package load

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/qcacontra/internal/model"
	"github.com/xuri/excelize/v2"
)

func parseDelimited(data []byte, comma rune, labelColumn string) (*model.Dataset, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = comma
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return fromRecords(records, labelColumn)
}

func parseXLSX(data []byte, sheet, labelColumn string) (*model.Dataset, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformed)
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return fromRecords(rows, labelColumn)
}

func parseDatasetJSON(data []byte) (*model.Dataset, error) {
	var ds model.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(ds.Columns) == 0 {
		return nil, fmt.Errorf("%w: no columns declared", ErrMalformed)
	}

	seen := make(map[string]bool, len(ds.Cases))
	for i, c := range ds.Cases {
		if c.Label == "" {
			return nil, fmt.Errorf("%w: case %d has no label", ErrMalformed, i)
		}
		if seen[c.Label] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateLabel, c.Label)
		}
		seen[c.Label] = true

		for _, col := range ds.Columns {
			if _, ok := c.Values[col]; !ok {
				return nil, fmt.Errorf("%w: case %q has no value for column %q", ErrMalformed, c.Label, col)
			}
		}
	}
	return &ds, nil
}

// fromRecords builds a dataset from a header row followed by one row per case
func fromRecords(records [][]string, labelColumn string) (*model.Dataset, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	labelIdx := 0
	if labelColumn != "" {
		labelIdx = -1
		for i, h := range header {
			if h == labelColumn {
				labelIdx = i
				break
			}
		}
		if labelIdx < 0 {
			return nil, fmt.Errorf("%w: label column %q not in header", ErrMalformed, labelColumn)
		}
	}

	ds := &model.Dataset{}
	seenCol := make(map[string]bool, len(header))
	for i, h := range header {
		if i == labelIdx {
			continue
		}
		if h == "" {
			return nil, fmt.Errorf("%w: column %d has no name", ErrMalformed, i+1)
		}
		if seenCol[h] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrMalformed, h)
		}
		seenCol[h] = true
		ds.Columns = append(ds.Columns, h)
	}

	seen := make(map[string]bool, len(records)-1)
	for n, rec := range records[1:] {
		line := n + 2
		if blank(rec) {
			continue
		}

		label := cell(rec, labelIdx)
		if label == "" {
			return nil, fmt.Errorf("%w: row %d has no case label", ErrMalformed, line)
		}
		if seen[label] {
			return nil, fmt.Errorf("%w: %q (row %d)", ErrDuplicateLabel, label, line)
		}
		seen[label] = true

		c := model.Case{Label: label, Values: make(map[string]float64, len(ds.Columns))}
		for i, h := range header {
			if i == labelIdx {
				continue
			}
			raw := cell(rec, i)
			if raw == "" {
				return nil, fmt.Errorf("%w: row %d column %q is empty", ErrMalformed, line, h)
			}
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d column %q: %q is not a number", ErrMalformed, line, h, raw)
			}
			c.Values[h] = v
		}
		ds.Cases = append(ds.Cases, c)
	}

	return ds, nil
}

func cell(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
