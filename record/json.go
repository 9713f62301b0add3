package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/lvillar/actapdf"
)

// Decode parses the flat JSON object produced by the form front end.
//
// Strings become Text values, except for the fields named in choiceFields
// which become Choice values. Booleans become Bool, numbers become Text in
// their literal form, arrays of objects become Rows and null leaves the field
// absent. Nested objects are rejected.
func Decode(data []byte, choiceFields ...string) (Record, error) {
	return DecodeReader(bytes.NewReader(data), choiceFields...)
}

// DecodeReader is like Decode but reads the object from r.
func DecodeReader(r io.Reader, choiceFields ...string) (Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return Record{}, fmt.Errorf("%w: %v", actapdf.ErrInvalidRecord, err)
	}
	return FromMap(raw, choiceFields...)
}

// FromMap converts an already decoded JSON object, as produced by
// encoding/json, into a Record.
func FromMap(raw map[string]any, choiceFields ...string) (Record, error) {
	choices := make(map[string]bool, len(choiceFields))
	for _, f := range choiceFields {
		choices[f] = true
	}

	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make(map[string]Value, len(raw))
	for _, name := range names {
		v, ok, err := convert(name, raw[name], choices[name])
		if err != nil {
			return Record{}, err
		}
		if ok {
			fields[name] = v
		}
	}
	return New(fields)
}

func convert(name string, raw any, choice bool) (Value, bool, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, false, nil
	case string:
		if choice {
			return Choice(x), true, nil
		}
		return Text(x), true, nil
	case bool:
		return Bool(x), true, nil
	case json.Number:
		return Text(x.String()), true, nil
	case float64:
		return Text(strconv.FormatFloat(x, 'f', -1, 64)), true, nil
	case []any:
		rows := make([]ComponentRow, 0, len(x))
		for i, item := range x {
			obj, ok := item.(map[string]any)
			if !ok {
				return Value{}, false, fmt.Errorf("%w: field %q row %d is not an object", actapdf.ErrInvalidRecord, name, i)
			}
			row, err := decodeRow(obj)
			if err != nil {
				return Value{}, false, fmt.Errorf("%w: field %q row %d: %v", actapdf.ErrInvalidRecord, name, i, err)
			}
			rows = append(rows, row)
		}
		return Rows(rows...), true, nil
	}
	return Value{}, false, fmt.Errorf("%w: field %q has unsupported type %T", actapdf.ErrInvalidRecord, name, raw)
}

func decodeRow(obj map[string]any) (ComponentRow, error) {
	var cells [5]string
	for i, col := range Columns {
		switch x := obj[col].(type) {
		case nil:
		case string:
			cells[i] = x
		case json.Number:
			cells[i] = x.String()
		case float64:
			cells[i] = strconv.FormatFloat(x, 'f', -1, 64)
		case bool:
			cells[i] = strconv.FormatBool(x)
		default:
			return ComponentRow{}, fmt.Errorf("column %q has unsupported type %T", col, x)
		}
	}
	return ComponentRow{
		Name:      cells[0],
		Inventory: cells[1],
		Brand:     cells[2],
		Model:     cells[3],
		Serial:    cells[4],
	}, nil
}
