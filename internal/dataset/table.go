// Package dataset reads and writes the tabular inputs of an evaluation:
// ground-truth pairs, matcher predictions and labeled observations.
//
// Every source is first loaded into a Table of string cells so column
// checks happen once, before any row is converted.
package dataset

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	apperrors "github.com/ricesearch/matcheval/internal/pkg/errors"
)

// Column names used by the pair tables.
const (
	ColVariantID1 = "variantid1"
	ColVariantID2 = "variantid2"
	ColTarget     = "target"
	ColScores     = "scores"
	ColScore      = "score"
)

// Record is one row keyed by column name.
type Record map[string]string

// Table is a set of records sharing the same columns.
type Table struct {
	Columns []string
	Records []Record
}

// Has reports whether the table has a column.
func (t *Table) Has(col string) bool {
	return slices.Contains(t.Columns, col)
}

// Require returns a validation error naming every missing column.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return apperrors.ValidationError("missing required columns").
		WithDetail("missing", strings.Join(missing, ",")).
		WithDetail("columns", strings.Join(t.Columns, ","))
}

// ReadCSV loads a CSV stream with a header row.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.ValidationError("csv input is empty")
	}
	if err != nil {
		return nil, apperrors.DatasetError("reading csv header", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	t := &Table{Columns: header}
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.DatasetError("reading csv row", err)
		}
		rec := make(Record, len(header))
		for i, col := range header {
			rec[col] = strings.TrimSpace(row[i])
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

// WriteCSV writes the table with a header row. Columns keep table order.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	row := make([]string, len(t.Columns))
	for _, rec := range t.Records {
		for i, col := range t.Columns {
			row[i] = rec[col]
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// FromJSONRecords builds a table from decoded JSON objects. Only keys
// present in every object become columns.
func FromJSONRecords(objs []map[string]json.RawMessage) (*Table, error) {
	t := &Table{}
	if len(objs) == 0 {
		return t, nil
	}

	counts := make(map[string]int)
	for _, o := range objs {
		for k := range o {
			counts[k]++
		}
	}
	for k, n := range counts {
		if n == len(objs) {
			t.Columns = append(t.Columns, k)
		}
	}
	slices.Sort(t.Columns)

	for i, o := range objs {
		rec := make(Record, len(o))
		for k, raw := range o {
			v, err := jsonCell(raw)
			if err != nil {
				return nil, apperrors.ValidationError("unsupported json value").
					WithDetail("row", fmt.Sprintf("%d", i)).
					WithDetail("column", k)
			}
			rec[k] = v
		}
		t.Records = append(t.Records, rec)
	}
	return t, nil
}

func jsonCell(raw json.RawMessage) (string, error) {
	s := strings.TrimSpace(string(raw))
	switch {
	case s == "null":
		return "", nil
	case strings.HasPrefix(s, `"`):
		var out string
		err := json.Unmarshal(raw, &out)
		return out, err
	case strings.HasPrefix(s, "{"), strings.HasPrefix(s, "["):
		return "", fmt.Errorf("nested value")
	default:
		return s, nil
	}
}
