package overlay

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/lvillar/actapdf"
	"github.com/lvillar/actapdf/metrics"
	"github.com/lvillar/actapdf/profile"
	"github.com/lvillar/actapdf/record"
)

const description = "Monitor de paciente con pantalla táctil y batería de respaldo para quirófano"

func testProfile(t *testing.T, mod func(p *profile.Profile)) *profile.Profile {
	t.Helper()
	p := profile.Profile{
		Name:     "test",
		Template: "test.pdf",
		Text: map[string]profile.Point{
			"model":          {X: 380, Y: 638},
			"reception_date": {X: 130, Y: 572},
		},
		Marks: map[string]map[string]profile.Point{
			"compliance":   {"true": {X: 290, Y: 555}, "false": {X: 320, Y: 555}},
			"patient_data": {"true": {X: 290, Y: 500}, "false": {X: 320, Y: 500}},
			"equipment_status": {
				"good":     {X: 255, Y: 465},
				"bad":      {X: 365, Y: 465},
				"obsolete": {X: 480, Y: 465},
			},
		},
		Paragraphs: map[string]profile.Area{
			"description": {X: 60, StartY: 430, MinY: 400, MaxWidth: 200, FontSize: 14},
		},
		Table: &profile.Table{
			StartY:    340,
			RowHeight: 18,
			Margin:    50,
			Columns: []profile.Column{
				{X: 60, MaxWidth: 130},
				{X: 210, MaxWidth: 70},
				{X: 300, MaxWidth: 60},
				{X: 380, MaxWidth: 55},
				{X: 440, MaxWidth: 80},
			},
		},
	}
	if mod != nil {
		mod(&p)
	}
	r, err := profile.NewRegistry(p)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	out, err := r.Resolve(p.Name)
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func render(t *testing.T, rec record.Record, p *profile.Profile, opts ...Option) *Layer {
	t.Helper()
	l, err := NewComposer(metrics.NewSet(), opts...).Render(rec, p)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return l
}

func rows(n int) record.Value {
	rs := make([]record.ComponentRow, n)
	for i := range rs {
		rs[i] = record.ComponentRow{
			Name:      fmt.Sprintf("Componente %d", i),
			Inventory: fmt.Sprintf("INV-%03d", i),
			Brand:     "Philips",
			Model:     "M3001A",
			Serial:    fmt.Sprintf("SN%06d", i),
		}
	}
	return record.Rows(rs...)
}

func TestRenderExampleScenario(t *testing.T) {
	rec := record.MustNew(map[string]record.Value{
		"model":       record.Text("X1000"),
		"description": record.Text(description),
		"compliance":  record.Bool(true),
	})
	l := render(t, rec, testProfile(t, nil))

	marks := l.OpsFor("compliance")
	if len(marks) != 1 {
		t.Fatalf("compliance ops = %+v", marks)
	}
	if m := marks[0]; m.Kind != OpMark || m.X != 290 || m.Y != 555 || m.Text != "X" {
		t.Errorf("compliance mark = %+v", m)
	}

	model := l.OpsFor("model")
	if len(model) != 1 || model[0].Text != "X1000" || model[0].Size != 10 || model[0].Font != "Helvetica" {
		t.Errorf("model ops = %+v", model)
	}

	lines := l.OpsFor("description")
	if len(lines) == 0 {
		t.Fatal("no description lines")
	}
	size := lines[0].Size
	if size >= 14 {
		t.Errorf("description size %v not reduced from 14", size)
	}
	if height := float64(len(lines)) * (size + 2); 430-height < 400 {
		t.Errorf("%d lines at %v need %v, beyond the 30 unit band", len(lines), size, height)
	}
	var words []string
	for i, op := range lines {
		if op.Kind != OpParagraph || op.X != 60 || op.Size != size {
			t.Errorf("line %d = %+v", i, op)
		}
		if want := 430 - float64(i)*(size+2); op.Y != want {
			t.Errorf("line %d baseline %v, want %v", i, op.Y, want)
		}
		words = append(words, strings.Fields(op.Text)...)
	}
	if !reflect.DeepEqual(words, strings.Fields(description)) {
		t.Errorf("words = %v", words)
	}
	if l.Report.Truncated || len(l.Report.Overflowed) != 0 {
		t.Errorf("report = %+v", l.Report)
	}
}

func TestMarksTriState(t *testing.T) {
	p := testProfile(t, nil)

	absent := render(t, record.MustNew(map[string]record.Value{"model": record.Text("A")}), p)
	if ops := absent.OpsFor("compliance"); len(ops) != 0 {
		t.Errorf("absent bool produced %+v", ops)
	}

	no := render(t, record.MustNew(map[string]record.Value{"compliance": record.Bool(false)}), p)
	ops := no.OpsFor("compliance")
	if len(ops) != 1 || ops[0].X != 320 || ops[0].Y != 555 {
		t.Errorf("false mark = %+v", ops)
	}
}

func TestMarkChoices(t *testing.T) {
	p := testProfile(t, nil)
	tests := []struct {
		name  string
		value record.Value
		wantX float64
		none  bool
	}{
		{"choice", record.Choice("bad"), 365, false},
		{"choice case folded", record.Choice(" Obsolete "), 480, false},
		{"text as tag", record.Text("good"), 255, false},
		{"unmatched tag", record.Choice("broken"), 0, true},
		{"bool without anchor", record.Bool(true), 0, true},
		{"empty text", record.Text(""), 0, true},
		{"rows", rows(1), 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := render(t, record.MustNew(map[string]record.Value{"equipment_status": tt.value}), p)
			ops := l.OpsFor("equipment_status")
			if tt.none {
				if len(ops) != 0 {
					t.Fatalf("ops = %+v, want none", ops)
				}
				return
			}
			if len(ops) != 1 || ops[0].X != tt.wantX || ops[0].Y != 465 {
				t.Fatalf("ops = %+v", ops)
			}
		})
	}
}

func TestTextAnchorsSkipNonText(t *testing.T) {
	rec := record.MustNew(map[string]record.Value{
		"model":          record.Bool(true),
		"reception_date": record.Text(""),
		"unknown_field":  record.Text("ignored"),
	})
	l := render(t, rec, testProfile(t, nil))
	if len(l.Ops) != 0 {
		t.Fatalf("ops = %+v, want none", l.Ops)
	}
}

func TestTextAnchorKeepsBlanks(t *testing.T) {
	l := render(t, record.MustNew(map[string]record.Value{"reception_date": record.Text("   ")}), testProfile(t, nil))
	ops := l.OpsFor("reception_date")
	if len(ops) != 1 || ops[0].Text != "   " {
		t.Fatalf("ops = %+v, want one op drawing the blanks", ops)
	}
}

func TestTextAnchorVerbatim(t *testing.T) {
	long := strings.Repeat("Hospital Universitario ", 10)
	l := render(t, record.MustNew(map[string]record.Value{"model": record.Text(long)}), testProfile(t, nil))
	ops := l.OpsFor("model")
	if len(ops) != 1 || ops[0].Text != long || ops[0].Size != 10 {
		t.Fatalf("ops = %+v", ops)
	}
}

func TestTableRows(t *testing.T) {
	p := testProfile(t, nil)
	l := render(t, record.MustNew(map[string]record.Value{"components": rows(8)}), p)

	cells := l.OpsFor("components")
	if len(cells) != 8*5 {
		t.Fatalf("%d cells, want 40", len(cells))
	}
	for i, op := range cells {
		row, col := i/5, i%5
		if op.Kind != OpCell || op.Row != row || op.Column != record.Columns[col] {
			t.Errorf("cell %d = %+v", i, op)
		}
		if want := 340 - float64(row)*18; op.Y != want {
			t.Errorf("cell %d y = %v, want %v", i, op.Y, want)
		}
		if op.X != p.Table.Columns[col].X {
			t.Errorf("cell %d x = %v", i, op.X)
		}
	}
	if l.Report.RowsRendered != 8 || l.Report.RowsDropped != 0 || l.Report.Truncated {
		t.Errorf("report = %+v", l.Report)
	}
}

func TestTableCutOff(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		margin   float64
		rendered int
	}{
		{"capacity", 17, 50, 17},
		{"overflow", 20, 50, 17},
		{"higher margin", 20, 60, 16},
		{"margin on a baseline", 20, 52, 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := testProfile(t, func(p *profile.Profile) { p.Table.Margin = tt.margin })
			l := render(t, record.MustNew(map[string]record.Value{"components": rows(tt.rows)}), p)

			rep := l.Report
			if rep.RowsRendered != tt.rendered || rep.RowsDropped != tt.rows-tt.rendered {
				t.Fatalf("report = %+v, want %d rendered", rep, tt.rendered)
			}
			if rep.Truncated != (tt.rows > tt.rendered) {
				t.Errorf("Truncated = %v", rep.Truncated)
			}
			cells := l.OpsFor("components")
			if len(cells) != 5*tt.rendered {
				t.Errorf("%d cells", len(cells))
			}
			for _, op := range cells {
				if op.Y < tt.margin {
					t.Errorf("cell below margin: %+v", op)
				}
			}
		})
	}
}

func TestTableCellsShrink(t *testing.T) {
	p := testProfile(t, nil)
	face, _ := metrics.NewSet().Face("Helvetica", "")
	rec := record.MustNew(map[string]record.Value{"components": record.Rows(record.ComponentRow{
		Name:   "Transductor ecográfico lineal de alta frecuencia",
		Serial: strings.Repeat("W", 60),
	})})
	l := render(t, rec, p)

	cells := l.OpsFor("components")
	if len(cells) != 5 {
		t.Fatalf("cells = %+v", cells)
	}
	name := cells[0]
	if name.Size >= 10 || face.StringWidth(name.Text, name.Size) > 130 {
		t.Errorf("name cell not fitted: %+v", name)
	}
	if cells[1].Text != "" || cells[1].Size != 10 {
		t.Errorf("empty cell = %+v", cells[1])
	}
	serial := cells[4]
	if serial.Size != 4 || serial.Text != strings.Repeat("W", 60) {
		t.Errorf("serial cell = %+v", serial)
	}
	want := []Overflow{{Field: "components", Row: 0, Column: "serial", Size: 4}}
	if !reflect.DeepEqual(l.Report.Overflowed, want) || !l.Report.Truncated {
		t.Errorf("report = %+v", l.Report)
	}
}

func TestParagraphOverflowReported(t *testing.T) {
	p := testProfile(t, nil)
	text := strings.Repeat("palabra ", 200)
	l := render(t, record.MustNew(map[string]record.Value{"description": record.Text(text)}), p)

	lines := l.OpsFor("description")
	if len(lines) == 0 {
		t.Fatal("no lines")
	}
	if lines[0].Size != 4 {
		t.Fatalf("size = %v, want 4", lines[0].Size)
	}
	n := 0
	for _, op := range lines {
		n += len(strings.Fields(op.Text))
	}
	if n != 200 {
		t.Errorf("%d words drawn, want 200", n)
	}
	if len(l.Report.Overflowed) != 1 || l.Report.Overflowed[0].Field != "description" || !l.Report.Truncated {
		t.Errorf("report = %+v", l.Report)
	}
}

func TestRenderDeterministic(t *testing.T) {
	p := testProfile(t, nil)
	rec := record.MustNew(map[string]record.Value{
		"model":            record.Text("X1000"),
		"reception_date":   record.Text("2024-05-01"),
		"description":      record.Text(description),
		"compliance":       record.Bool(true),
		"patient_data":     record.Bool(false),
		"equipment_status": record.Choice("good"),
		"components":       rows(20),
	})
	c := NewComposer(metrics.NewSet())
	first, err := c.Render(rec, p)
	if err != nil {
		t.Fatal(err)
	}
	var want bytes.Buffer
	if err := first.WriteJSON(&want); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := c.Render(rec, p)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs", i)
		}
		var got bytes.Buffer
		if err := again.WriteJSON(&got); err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(got.Bytes(), want.Bytes()) {
			t.Fatalf("run %d JSON differs", i)
		}
	}

	// Category order: text, marks, paragraphs, table.
	var kinds []OpKind
	for _, op := range first.Ops {
		if len(kinds) == 0 || kinds[len(kinds)-1] != op.Kind {
			kinds = append(kinds, op.Kind)
		}
	}
	if want := []OpKind{OpText, OpMark, OpParagraph, OpCell}; !reflect.DeepEqual(kinds, want) {
		t.Errorf("kind order = %v, want %v", kinds, want)
	}
}

func TestEncodingPolicies(t *testing.T) {
	p := testProfile(t, nil)
	rec := record.MustNew(map[string]record.Value{
		"model":       record.Text("X→1000→"),
		"description": record.Text("línea\tuno ✓"),
	})

	l := render(t, rec, p)
	if ops := l.OpsFor("model"); ops[0].Text != "X?1000?" {
		t.Errorf("model = %q", ops[0].Text)
	}
	want := []Substitution{
		{Field: "model", Char: "→", Code: "U+2192"},
		{Field: "description", Char: "✓", Code: "U+2713"},
	}
	if !reflect.DeepEqual(l.Report.Substitutions, want) {
		t.Errorf("substitutions = %+v", l.Report.Substitutions)
	}
	if l.Report.Truncated {
		t.Error("substitution should not mark the layer truncated")
	}

	_, err := NewComposer(metrics.NewSet(), WithEncodingPolicy(Strict)).Render(rec, p)
	var ee *actapdf.EncodingError
	if !errors.As(err, &ee) {
		t.Fatalf("err = %v, want EncodingError", err)
	}
	if ee.Profile != "test" || ee.Field != "model" || ee.Rune != '→' {
		t.Errorf("EncodingError = %+v", ee)
	}
}

func TestParsePolicy(t *testing.T) {
	for in, want := range map[string]EncodingPolicy{"": Substitute, "Strict": Strict, "substitute": Substitute} {
		got, err := ParsePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParsePolicy("drop"); err == nil {
		t.Error("ParsePolicy accepted an unknown policy")
	}
}

func TestCodesAndImages(t *testing.T) {
	p := testProfile(t, func(p *profile.Profile) {
		p.Codes = map[string]profile.CodeArea{
			"order_number": {X: 400, Y: 760, Width: 150, Height: 30, Symbology: profile.Code128},
		}
		p.Images = map[string]profile.ImageArea{
			"signature": {X: 400, Y: 100, Width: 120, Height: 40},
		}
	})
	rec := record.MustNew(map[string]record.Value{
		"order_number": record.Text("PO-2024-0042"),
		"signature":    record.Text(" firma.png "),
	})
	l := render(t, rec, p)

	want := []Op{
		{Kind: OpCode, Field: "order_number", X: 400, Y: 760, Text: "PO-2024-0042", Width: 150, Height: 30, Symbology: "code128"},
		{Kind: OpImage, Field: "signature", X: 400, Y: 100, Text: "firma.png", Width: 120, Height: 40},
	}
	if !reflect.DeepEqual(l.Ops, want) {
		t.Fatalf("ops =\n%+v\nwant\n%+v", l.Ops, want)
	}
}

func TestUnknownFont(t *testing.T) {
	p := testProfile(t, func(p *profile.Profile) { p.Font.Family = "Wingdings" })
	_, err := NewComposer(nil).Render(record.MustNew(nil), p)
	var ce *actapdf.ConfigurationError
	if !errors.As(err, &ce) || !errors.Is(err, actapdf.ErrUnknownFont) {
		t.Fatalf("err = %v", err)
	}
}

func TestBuiltinRecepcion(t *testing.T) {
	reg, err := profile.Builtin()
	if err != nil {
		t.Fatal(err)
	}
	p, err := reg.Resolve("recepcion")
	if err != nil {
		t.Fatal(err)
	}
	data := []byte(`{
		"center_name": "Hospital Universitario",
		"description": "Electrocardiógrafo",
		"compliance": true,
		"backup_required": null,
		"equipment_status": "obsolete",
		"observations": "Se entrega con cable de red y manual en castellano.",
		"components": [{"name": "Cable paciente", "inventory": "C-1"}]
	}`)
	rec, err := record.Decode(data, p.ChoiceFields()...)
	if err != nil {
		t.Fatal(err)
	}
	l := render(t, rec, p)

	if ops := l.OpsFor("equipment_status"); len(ops) != 1 || ops[0].X != 480 {
		t.Errorf("equipment_status = %+v", ops)
	}
	if ops := l.OpsFor("backup_required"); len(ops) != 0 {
		t.Errorf("backup_required = %+v", ops)
	}
	if ops := l.OpsFor("observations"); len(ops) != 1 || ops[0].Y != 430 || ops[0].Size != 10 {
		t.Errorf("observations = %+v", ops)
	}
	if ops := l.OpsFor("components"); len(ops) != 5 {
		t.Errorf("components = %d ops", len(ops))
	}
	if l.Template != "recepcion.pdf" || l.PageHeight != profile.A4Height {
		t.Errorf("layer header = %q %v", l.Template, l.PageHeight)
	}
}

func TestWriteDebugJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layer.json")
	l := render(t, record.MustNew(map[string]record.Value{"model": record.Text("X")}), testProfile(t, nil))
	if err := WriteDebugJSON(l, path); err != nil {
		t.Fatal(err)
	}
	if err := WriteDebugJSON(nil, path); err != nil {
		t.Fatal(err)
	}
}
