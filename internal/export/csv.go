package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/pybill/pbdash/internal/query"
)

// WriteCSV writes a title row, a blank row, the header and one row per record.
// The title row is padded so it has as many cells as the header.
func WriteCSV(w io.Writer, title string, data query.QueryData) error {
	return write(w, title, nil, data)
}

// WriteReportCSV is WriteCSV with two metadata rows, the JSON encoded report
// and config, between the blank row and the header.
func WriteReportCSV(w io.Writer, title string, report, config any, data query.QueryData) error {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	configJSON, err := json.Marshal(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return write(w, title, [][]string{{string(reportJSON)}, {string(configJSON)}}, data)
}

func write(w io.Writer, title string, meta [][]string, data query.QueryData) error {
	if len(data.ColNames) == 0 {
		return fmt.Errorf("query data has no columns")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	titleRow := make([]string, len(data.ColNames))
	titleRow[0] = title
	rows := [][]string{titleRow, {}}
	rows = append(rows, meta...)
	rows = append(rows, data.ColNames)
	for _, record := range data.Fields {
		row := make([]string, len(record))
		for i, v := range record {
			cell, err := formatCell(v)
			if err != nil {
				return fmt.Errorf("format %s: %w", data.ColNames[i], err)
			}
			row[i] = cell
		}
		rows = append(rows, row)
	}
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func formatCell(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case json.Number:
		return val.String(), nil
	case bool:
		return strconv.FormatBool(val), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
}
