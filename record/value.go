package record

import "fmt"

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindText Kind = iota + 1
	KindBool
	KindChoice
	KindRows
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindChoice:
		return "choice"
	case KindRows:
		return "rows"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Value is a field value of one of four kinds. The zero Value is invalid;
// use Text, Bool, Choice or Rows to build one.
type Value struct {
	kind Kind
	text string
	b    bool
	rows []ComponentRow
}

// Text returns a free text value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Choice returns an enumerated value identified by tag.
func Choice(tag string) Value { return Value{kind: KindChoice, text: tag} }

// Rows returns a component table value. The rows are copied.
func Rows(rows ...ComponentRow) Value {
	cp := make([]ComponentRow, len(rows))
	copy(cp, rows)
	return Value{kind: KindRows, rows: cp}
}

// Kind reports the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// Valid reports whether v was built by one of the constructors.
func (v Value) Valid() bool { return v.kind >= KindText && v.kind <= KindRows }

// Text returns the string of a Text value.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindText
}

// Bool returns the boolean of a Bool value.
func (v Value) Bool() (bool, bool) {
	return v.b, v.kind == KindBool
}

// Choice returns the tag of a Choice value.
func (v Value) Choice() (string, bool) {
	return v.text, v.kind == KindChoice
}

// Rows returns a copy of the rows of a Rows value.
func (v Value) Rows() ([]ComponentRow, bool) {
	if v.kind != KindRows {
		return nil, false
	}
	cp := make([]ComponentRow, len(v.rows))
	copy(cp, v.rows)
	return cp, true
}

// Len returns the number of rows of a Rows value, zero otherwise.
func (v Value) Len() int {
	if v.kind != KindRows {
		return 0
	}
	return len(v.rows)
}

// Row returns row i of a Rows value.
func (v Value) Row(i int) ComponentRow {
	return v.rows[i]
}

func (v Value) String() string {
	switch v.kind {
	case KindText, KindChoice:
		return v.text
	case KindBool:
		return fmt.Sprint(v.b)
	case KindRows:
		return fmt.Sprintf("[%d rows]", len(v.rows))
	}
	return "<invalid>"
}

// Equal reports whether v and w hold the same variant and contents.
func (v Value) Equal(w Value) bool {
	if v.kind != w.kind || v.text != w.text || v.b != w.b || len(v.rows) != len(w.rows) {
		return false
	}
	for i := range v.rows {
		if v.rows[i] != w.rows[i] {
			return false
		}
	}
	return true
}
