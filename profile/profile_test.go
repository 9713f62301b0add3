package profile

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/lvillar/actapdf"
)

func builtinRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := Builtin()
	if err != nil {
		t.Fatalf("Builtin: %v", err)
	}
	return r
}

func TestBuiltinProfiles(t *testing.T) {
	r := builtinRegistry(t)

	if got, want := r.Names(), []string{"baja", "recepcion"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names = %v, want %v", got, want)
	}

	rec, err := r.Resolve("recepcion")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Template != "recepcion.pdf" || rec.Font.Family != "Helvetica" || rec.Font.Size != 10 || rec.Tick != "X" {
		t.Errorf("recepcion header = %+v %+v %q", rec.Template, rec.Font, rec.Tick)
	}
	if got := rec.Text["center_name"]; got != (Point{125, 717}) {
		t.Errorf("center_name = %+v", got)
	}
	if got := rec.Marks["compliance"]["true"]; got != (Point{290, 555}) {
		t.Errorf("compliance true = %+v", got)
	}
	if got := rec.Marks["equipment_status"]["obsolete"]; got != (Point{480, 465}) {
		t.Errorf("equipment_status obsolete = %+v", got)
	}
	if got := rec.Paragraphs["observations"]; got != (Area{X: 60, StartY: 430, MinY: 400, MaxWidth: 460}) {
		t.Errorf("observations = %+v", got)
	}
	if rec.Table == nil || rec.Table.Field != "components" || rec.Table.Margin != 50 || len(rec.Table.Columns) != 5 {
		t.Fatalf("table = %+v", rec.Table)
	}
	if got := rec.Table.Capacity(); got != 17 {
		t.Errorf("Capacity = %d, want 17", got)
	}

	baja, err := r.Resolve("baja")
	if err != nil {
		t.Fatal(err)
	}
	if baja.Table != nil {
		t.Error("baja should have no table")
	}
	if _, ok := baja.Paragraphs["justification_report"]; !ok {
		t.Error("baja missing justification_report area")
	}
	if got := baja.Text["work_order_number"]; got != (Point{445, 234}) {
		t.Errorf("work_order_number = %+v", got)
	}
}

func TestResolveAliasesAndCase(t *testing.T) {
	r := builtinRegistry(t)
	for name, want := range map[string]string{
		"reception":    "recepcion",
		"  Recepcion ": "recepcion",
		"decommission": "baja",
		"BAJA":         "baja",
	} {
		p, err := r.Resolve(name)
		if err != nil {
			t.Errorf("Resolve(%q): %v", name, err)
			continue
		}
		if p.Name != want {
			t.Errorf("Resolve(%q) = %q, want %q", name, p.Name, want)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := builtinRegistry(t).Resolve("alta")
	if !errors.Is(err, actapdf.ErrUnknownProfile) {
		t.Fatalf("err = %v, want ErrUnknownProfile", err)
	}
	var ce *actapdf.ConfigurationError
	if !errors.As(err, &ce) || ce.Profile != "alta" {
		t.Fatalf("err = %#v", err)
	}
}

func TestChoiceFields(t *testing.T) {
	r := builtinRegistry(t)
	rec, _ := r.Resolve("recepcion")
	if got := rec.ChoiceFields(); !reflect.DeepEqual(got, []string{"equipment_status"}) {
		t.Errorf("recepcion ChoiceFields = %v", got)
	}
	baja, _ := r.Resolve("baja")
	if got := baja.ChoiceFields(); len(got) != 0 {
		t.Errorf("baja ChoiceFields = %v", got)
	}
}

func TestFieldsUnique(t *testing.T) {
	for _, p := range builtinRegistry(t).Profiles() {
		seen := map[string]bool{}
		for _, f := range p.Fields() {
			if seen[f] {
				t.Errorf("%s: field %q placed twice", p.Name, f)
			}
			seen[f] = true
		}
	}
}

func validProfile() Profile {
	return Profile{
		Name:     "test",
		Template: "test.pdf",
		Text:     map[string]Point{"model": {100, 700}},
		Marks: map[string]map[string]Point{
			"compliance": {"True": {290, 555}, "false": {320, 555}},
		},
		Paragraphs: map[string]Area{"observations": {X: 60, StartY: 430, MinY: 400, MaxWidth: 200}},
		Table: &Table{
			StartY:    340,
			RowHeight: 18,
			Columns: []Column{
				{X: 60, MaxWidth: 130},
				{X: 210, MaxWidth: 70},
				{X: 300, MaxWidth: 60},
				{X: 380, MaxWidth: 55},
				{X: 440, MaxWidth: 80},
			},
		},
		Codes:  map[string]CodeArea{"order_number": {X: 400, Y: 760, Width: 150, Height: 30, Symbology: Code128}},
		Images: map[string]ImageArea{"signature": {X: 400, Y: 100, Width: 120, Height: 40}},
	}
}

func TestNewRegistryAppliesDefaults(t *testing.T) {
	r, err := NewRegistry(validProfile())
	if err != nil {
		t.Fatal(err)
	}
	p, _ := r.Resolve("test")
	if p.Page.Width != A4Width || p.Font.Family != "Helvetica" || p.Tick != DefaultTick {
		t.Errorf("defaults not applied: %+v %+v %q", p.Page, p.Font, p.Tick)
	}
	if _, ok := p.Marks["compliance"]["true"]; !ok {
		t.Errorf("mark tags not normalized: %v", p.Marks["compliance"])
	}
	if p.Table.Field != DefaultTableField || p.Table.Columns[4].Attribute != "serial" || p.Table.FontSize != 10 {
		t.Errorf("table defaults: %+v", p.Table)
	}
}

func TestNewRegistryDoesNotAliasInput(t *testing.T) {
	in := validProfile()
	r, err := NewRegistry(in)
	if err != nil {
		t.Fatal(err)
	}
	in.Text["model"] = Point{1, 1}
	in.Table.StartY = 1
	p, _ := r.Resolve("test")
	if p.Text["model"] != (Point{100, 700}) || p.Table.StartY != 340 {
		t.Fatal("registry shares maps with its input")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		mod   func(p *Profile)
		field string
		msg   string
	}{
		{"no name", func(p *Profile) { p.Name = "" }, "", "missing name"},
		{"no template", func(p *Profile) { p.Template = "" }, "", "missing template"},
		{"point off page", func(p *Profile) { p.Text["model"] = Point{100, 900} }, "model", "outside page"},
		{"negative point", func(p *Profile) { p.Text["model"] = Point{-1, 10} }, "model", "outside page"},
		{"field twice", func(p *Profile) { p.Paragraphs["model"] = Area{X: 1, StartY: 10, MaxWidth: 5} }, "model", "placed in both"},
		{"empty mark set", func(p *Profile) { p.Marks["compliance"] = map[string]Point{} }, "compliance", "no mark positions"},
		{"minY above startY", func(p *Profile) {
			p.Paragraphs["observations"] = Area{X: 60, StartY: 400, MinY: 430, MaxWidth: 200}
		}, "observations", "minY"},
		{"area too wide", func(p *Profile) {
			p.Paragraphs["observations"] = Area{X: 500, StartY: 430, MinY: 400, MaxWidth: 200}
		}, "observations", "outside page"},
		{"four columns", func(p *Profile) { p.Table.Columns = p.Table.Columns[:4] }, "components", "4 columns"},
		{"columns out of order", func(p *Profile) {
			p.Table.Columns[0].Attribute = "serial"
		}, "components", "column 0"},
		{"zero row height", func(p *Profile) { p.Table.RowHeight = 0 }, "components", "row height"},
		{"table field clash", func(p *Profile) { p.Table.Field = "model" }, "model", "placed in both"},
		{"unknown symbology", func(p *Profile) {
			p.Codes["order_number"] = CodeArea{X: 1, Y: 1, Width: 10, Height: 10, Symbology: "ean13"}
		}, "order_number", "symbology"},
		{"image off page", func(p *Profile) {
			p.Images["signature"] = ImageArea{X: 500, Y: 100, Width: 200, Height: 40}
		}, "signature", "outside page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base := validProfile()
			p := base.Clone()
			tt.mod(p)
			p.ApplyDefaults()
			err := p.Validate()
			if !errors.Is(err, actapdf.ErrMalformedProfile) {
				t.Fatalf("err = %v, want ErrMalformedProfile", err)
			}
			var ce *actapdf.ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("err %T is not a ConfigurationError", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
			if !strings.Contains(err.Error(), tt.msg) {
				t.Errorf("error %q does not mention %q", err, tt.msg)
			}
		})
	}
}

func TestDuplicateNamesAndAliases(t *testing.T) {
	a := validProfile()
	b := validProfile()
	if _, err := NewRegistry(a, b); !errors.Is(err, actapdf.ErrMalformedProfile) {
		t.Errorf("duplicate name: err = %v", err)
	}

	b.Name = "other"
	b.Aliases = []string{"TEST"}
	if _, err := NewRegistry(a, b); !errors.Is(err, actapdf.ErrMalformedProfile) {
		t.Errorf("alias clash: err = %v", err)
	}
}

func TestExtendReplaces(t *testing.T) {
	base := builtinRegistry(t)
	custom := validProfile()
	custom.Name = "baja"
	custom.Aliases = nil

	r, err := base.Extend(custom)
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.Resolve("baja")
	if err != nil {
		t.Fatal(err)
	}
	if p.Template != "test.pdf" {
		t.Errorf("baja not replaced: template %q", p.Template)
	}
	if _, err := r.Resolve("reception"); err != nil {
		t.Errorf("recepcion lost: %v", err)
	}
	if p, _ := base.Resolve("baja"); p.Template != "baja.pdf" {
		t.Error("Extend modified the base registry")
	}
}

func TestLoadJSON(t *testing.T) {
	doc := `{"profiles": [{"name": "mini", "template": "mini.pdf",
		"text": {"model": {"x": 10, "y": 20}},
		"marks": {"ok": {"true": {"x": 30, "y": 40}}}}]}`
	r, err := Load(strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	p, err := r.Resolve("mini")
	if err != nil {
		t.Fatal(err)
	}
	if p.Text["model"] != (Point{10, 20}) || p.Marks["ok"]["true"] != (Point{30, 40}) {
		t.Errorf("decoded %+v", p)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	doc := "profiles:\n  - name: x\n    template: x.pdf\n    txt: {}\n"
	if _, err := Load(strings.NewReader(doc)); !errors.Is(err, actapdf.ErrMalformedProfile) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(t.TempDir() + "/nope.yaml")
	var ce *actapdf.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("err = %v", err)
	}
}

func TestClone(t *testing.T) {
	p := validProfile()
	c := p.Clone()
	c.Marks["compliance"]["True"] = Point{0, 0}
	c.Table.Columns[0].X = 0
	c.Aliases = append(c.Aliases, "x")
	if p.Marks["compliance"]["True"] != (Point{290, 555}) || p.Table.Columns[0].X != 60 || len(p.Aliases) != 0 {
		t.Fatal("Clone shares state with the original")
	}
}
