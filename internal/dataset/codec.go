package dataset

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
)

// EncodeCSV writes the table as delimited text: one header line with the
// column names, then one line per row, cells rendered with Render and nil
// as the empty string. Output is deterministic for a given table.
func (t *Table) EncodeCSV(w io.Writer) error {
	if len(t.cols) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.cols); err != nil {
		return fmt.Errorf("dataset: write csv header: %w", err)
	}
	cells := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, v := range row {
			cells[i] = Render(v)
		}
		if err := cw.Write(cells); err != nil {
			return fmt.Errorf("dataset: write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// DecodeCSV reads delimited text produced by EncodeCSV (or any compatible
// export) back into a table. Header names are normalized into identifier
// form, empty cells become nil, and each column's scalar type is re-inferred
// from its rendered values so a decode of an encode restores the original
// cell types.
func DecodeCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	header, err := cr.Read()
	if err == io.EOF {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read csv header: %w", err)
	}
	cols := make([]string, len(header))
	for i, h := range header {
		cols[i] = NormalizeColumn(h)
	}
	t := New(cols)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("dataset: read csv row: %w", err)
		}
		row := make([]any, len(rec))
		for i, s := range rec {
			if s == "" {
				row[i] = nil
			} else {
				row[i] = s
			}
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	t.retypeStrings()
	return t, nil
}

// EncodeJSON writes the table as a compact array of record objects, keys in
// column order. encoding/json alone cannot keep map keys ordered, so the
// object framing is written by hand and only cell values go through Marshal.
func (t *Table) EncodeJSON(w io.Writer) error {
	bw := bufio.NewWriter(w)
	bw.WriteByte('[')
	keys := make([][]byte, len(t.cols))
	for i, c := range t.cols {
		k, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("dataset: encode json key %q: %w", c, err)
		}
		keys[i] = k
	}
	for r, row := range t.rows {
		if r > 0 {
			bw.WriteByte(',')
		}
		bw.WriteByte('{')
		for c := range t.cols {
			if c > 0 {
				bw.WriteByte(',')
			}
			bw.Write(keys[c])
			bw.WriteByte(':')
			cell, err := json.Marshal(row[c])
			if err != nil {
				return fmt.Errorf("dataset: encode json cell: %w", err)
			}
			bw.Write(cell)
		}
		bw.WriteByte('}')
	}
	bw.WriteByte(']')
	return bw.Flush()
}

// DecodeJSON reads a record-array payload produced by EncodeJSON (or any
// compatible export) back into a table. Objects go through the token stream
// because unmarshaling into a map would lose key order; the first object
// fixes the column order, later objects may carry keys in any order, absent
// keys read as nil, and unknown keys are dropped. Numbers decode as int64
// when integral-formed and float64 otherwise; string columns are re-typed
// the same way CSV replay is.
func DecodeJSON(r io.Reader) (*Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err == io.EOF {
		return New(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("dataset: read json: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '[' {
		return nil, fmt.Errorf("dataset: decode json: expected array, got %v", tok)
	}

	var t *Table
	for dec.More() {
		cols, cells, err := decodeJSONObject(dec)
		if err != nil {
			return nil, err
		}
		if t == nil {
			t = New(cols)
		}
		row := make([]any, len(t.cols))
		for i, c := range t.cols {
			row[i] = cells[c]
		}
		if err := t.Append(row); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("dataset: decode json: %w", err)
	}
	if t == nil {
		return New(nil), nil
	}
	t.retypeStrings()
	return t, nil
}

// decodeJSONObject consumes one object from the stream and returns its
// normalized keys in encounter order plus the decoded cells.
func decodeJSONObject(dec *json.Decoder) ([]string, map[string]any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, fmt.Errorf("dataset: decode json row: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, nil, fmt.Errorf("dataset: decode json row: expected object, got %v", tok)
	}

	var cols []string
	cells := make(map[string]any)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, nil, fmt.Errorf("dataset: decode json key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, nil, fmt.Errorf("dataset: decode json key: got %v", keyTok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, nil, fmt.Errorf("dataset: decode json cell %q: %w", key, err)
		}
		col := NormalizeColumn(key)
		cols = append(cols, col)
		cells[col] = jsonCell(v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, nil, fmt.Errorf("dataset: decode json row: %w", err)
	}
	return cols, cells, nil
}

// jsonCell maps one decoded JSON value onto the table's scalar cell types.
// Nested arrays and objects re-render as their compact JSON text.
func jsonCell(v any) any {
	switch x := v.(type) {
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return n
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case nil, string, bool:
		return x
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}
