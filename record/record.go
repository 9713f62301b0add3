// Package record defines the flat record a caller asks to print on a form.
//
// A Record maps field names to tagged Values. Fields that are absent from a
// record are left blank on the form; in particular an absent boolean marks
// neither of its options.
package record

import (
	"fmt"
	"sort"

	"github.com/lvillar/actapdf"
)

// Column names of a component row, in table order.
const (
	ColumnName      = "name"
	ColumnInventory = "inventory"
	ColumnBrand     = "brand"
	ColumnModel     = "model"
	ColumnSerial    = "serial"
)

// Columns lists the five component row attributes in table order.
var Columns = [5]string{ColumnName, ColumnInventory, ColumnBrand, ColumnModel, ColumnSerial}

// ComponentRow is one line of the components table.
type ComponentRow struct {
	Name      string `json:"name"`
	Inventory string `json:"inventory"`
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	Serial    string `json:"serial"`
}

// Cells returns the row attributes in Columns order.
func (r ComponentRow) Cells() [5]string {
	return [5]string{r.Name, r.Inventory, r.Brand, r.Model, r.Serial}
}

// Cell returns the attribute named by column, or false for an unknown
// column name.
func (r ComponentRow) Cell(column string) (string, bool) {
	for i, c := range Columns {
		if c == column {
			return r.Cells()[i], true
		}
	}
	return "", false
}

// Record is an immutable mapping from field name to Value.
type Record struct {
	fields map[string]Value
}

// New builds a Record from fields. The map is copied; invalid values are
// rejected.
func New(fields map[string]Value) (Record, error) {
	m := make(map[string]Value, len(fields))
	for name, v := range fields {
		if name == "" {
			return Record{}, fmt.Errorf("%w: empty field name", actapdf.ErrInvalidRecord)
		}
		if !v.Valid() {
			return Record{}, fmt.Errorf("%w: field %q has no value kind", actapdf.ErrInvalidRecord, name)
		}
		m[name] = v
	}
	return Record{fields: m}, nil
}

// MustNew is like New but panics on error. Intended for tests and literals.
func MustNew(fields map[string]Value) Record {
	r, err := New(fields)
	if err != nil {
		panic(err)
	}
	return r
}

// Get returns the value of a field and whether it is present.
func (r Record) Get(name string) (Value, bool) {
	v, ok := r.fields[name]
	return v, ok
}

// Len returns the number of present fields.
func (r Record) Len() int { return len(r.fields) }

// Names returns the present field names in sorted order.
func (r Record) Names() []string {
	names := make([]string, 0, len(r.fields))
	for name := range r.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// With returns a copy of r with name set to v.
func (r Record) With(name string, v Value) (Record, error) {
	m := make(map[string]Value, len(r.fields)+1)
	for k, val := range r.fields {
		m[k] = val
	}
	m[name] = v
	return New(m)
}
