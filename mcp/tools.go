package mcp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/pageops"
	"github.com/lvillar/actapdf/profile"
	"github.com/lvillar/actapdf/reader"
	"github.com/lvillar/actapdf/record"
	"github.com/lvillar/actapdf/render"
)

// RegisterTools adds the acta tools, all served by e.
func RegisterTools(s *Server, e *render.Engine) {
	t := &tools{engine: e}
	s.AddTool(t.renderActaTool())
	s.AddTool(t.previewLayerTool())
	s.AddTool(t.listProfilesTool())
	s.AddTool(t.describeProfileTool())
	s.AddTool(t.templateInfoTool())
	s.AddTool(extractTextTool())
	s.AddTool(t.gridOverlayTool())
}

type tools struct {
	engine *render.Engine
}

func schema(required []string, props map[string]interface{}) map[string]interface{} {
	s := map[string]interface{}{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{"type": typ, "description": description}
}

var (
	profileProp = prop("string", "Form variant, e.g. 'recepcion' or 'baja'")
	dataProp    = prop("object", "Flat record: field name to string, boolean or null; 'components' is an array of {name, inventory, brand, model, serial}")
)

// decodeArgs unmarshals tool arguments into v.
func decodeArgs(args json.RawMessage, v interface{}) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func textResult(format string, a ...interface{}) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: fmt.Sprintf(format, a...)}}}
}

func jsonResult(v interface{}) (ToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: string(data)}}}, nil
}

type recordArgs struct {
	Profile string          `json:"profile"`
	Data    json.RawMessage `json:"data"`
}

// decodeRecord decodes the record of a, defaulting to the reception form.
func (t *tools) decodeRecord(a *recordArgs) (record.Record, error) {
	if a.Profile == "" {
		a.Profile = "recepcion"
	}
	if len(a.Data) == 0 {
		return record.Record{}, errors.New("missing 'data' argument")
	}
	return t.engine.DecodeRecord(a.Profile, a.Data)
}

// reportSummary describes in one line what a render had to give up.
func reportSummary(rep overlay.Report) string {
	if !rep.Truncated && len(rep.Substitutions) == 0 {
		return "all fields fit"
	}
	var parts []string
	for _, o := range rep.Overflowed {
		if o.Column != "" {
			parts = append(parts, fmt.Sprintf("%s row %d %s overflowed at %.1fpt", o.Field, o.Row+1, o.Column, o.Size))
		} else {
			parts = append(parts, fmt.Sprintf("%s overflowed at %.1fpt", o.Field, o.Size))
		}
	}
	if rep.RowsDropped > 0 {
		parts = append(parts, fmt.Sprintf("%d component rows dropped", rep.RowsDropped))
	}
	for _, sub := range rep.Substitutions {
		parts = append(parts, fmt.Sprintf("%s: %s replaced", sub.Field, sub.Code))
	}
	return strings.Join(parts, "; ")
}

func (t *tools) renderActaTool() Tool {
	return Tool{
		Name:        "render_acta",
		Description: "Fill an acta form with a record and return the PDF. Writes to outputPath when given, otherwise returns the PDF as base64. Reports text that did not fit and rows that were left out.",
		InputSchema: schema([]string{"data"}, map[string]interface{}{
			"profile":    profileProp,
			"data":       dataProp,
			"outputPath": prop("string", "Optional file path for the PDF"),
		}),
		Handler: t.handleRenderActa,
	}
}

func (t *tools) handleRenderActa(args json.RawMessage) (ToolResult, error) {
	var a struct {
		recordArgs
		OutputPath string `json:"outputPath"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	rec, err := t.decodeRecord(&a.recordArgs)
	if err != nil {
		return ToolResult{}, err
	}

	if a.OutputPath != "" {
		layer, err := t.engine.RenderFile(rec, a.Profile, a.OutputPath)
		if err != nil {
			return ToolResult{}, err
		}
		return textResult("Acta %s written to %s (%s)", layer.Profile, a.OutputPath, reportSummary(layer.Report)), nil
	}

	var buf bytes.Buffer
	layer, err := t.engine.Render(&buf, rec, a.Profile)
	if err != nil {
		return ToolResult{}, err
	}
	return ToolResult{Content: []ContentBlock{
		{Type: "text", Text: fmt.Sprintf("Acta %s rendered, %d bytes (%s). Base64 data:\n%s",
			layer.Profile, buf.Len(), reportSummary(layer.Report), base64.StdEncoding.EncodeToString(buf.Bytes()))},
	}}, nil
}

func (t *tools) previewLayerTool() Tool {
	return Tool{
		Name:        "preview_layer",
		Description: "Compute the draw operations for a record without producing a PDF: positions, font sizes after fitting, and the truncation report.",
		InputSchema: schema([]string{"data"}, map[string]interface{}{
			"profile": profileProp,
			"data":    dataProp,
		}),
		Handler: t.handlePreviewLayer,
	}
}

func (t *tools) handlePreviewLayer(args json.RawMessage) (ToolResult, error) {
	var a recordArgs
	if err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	rec, err := t.decodeRecord(&a)
	if err != nil {
		return ToolResult{}, err
	}
	layer, err := t.engine.Layer(rec, a.Profile)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(layer)
}

func (t *tools) listProfilesTool() Tool {
	return Tool{
		Name:        "list_profiles",
		Description: "List the acta form variants with their template and the fields they print.",
		InputSchema: schema(nil, map[string]interface{}{}),
		Handler:     t.handleListProfiles,
	}
}

type profileInfo struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Template    string   `json:"template"`
	Fields      []string `json:"fields"`
	Choices     []string `json:"choiceFields,omitempty"`
}

func newProfileInfo(p *profile.Profile) profileInfo {
	return profileInfo{
		Name:        p.Name,
		Aliases:     p.Aliases,
		Description: p.Description,
		Template:    p.Template,
		Fields:      p.Fields(),
		Choices:     p.ChoiceFields(),
	}
}

func (t *tools) handleListProfiles(json.RawMessage) (ToolResult, error) {
	var out []profileInfo
	for _, p := range t.engine.Registry().Profiles() {
		out = append(out, newProfileInfo(p))
	}
	return jsonResult(out)
}

func (t *tools) describeProfileTool() Tool {
	return Tool{
		Name:        "describe_profile",
		Description: "Return the full geometry of a form variant: text anchors, mark positions, paragraph boxes and the components table.",
		InputSchema: schema([]string{"profile"}, map[string]interface{}{
			"profile": profileProp,
		}),
		Handler: t.handleDescribeProfile,
	}
}

func (t *tools) handleDescribeProfile(args json.RawMessage) (ToolResult, error) {
	var a struct {
		Profile string `json:"profile"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	if a.Profile == "" {
		return ToolResult{}, errors.New("missing 'profile' argument")
	}
	p, err := t.engine.Profile(a.Profile)
	if err != nil {
		return ToolResult{}, err
	}
	return jsonResult(p)
}

func (t *tools) templateInfoTool() Tool {
	return Tool{
		Name:        "template_info",
		Description: "Check the template PDF of a form variant: where it was found, page count and sizes, and whether page 1 matches the profile.",
		InputSchema: schema([]string{"profile"}, map[string]interface{}{
			"profile": profileProp,
		}),
		Handler: t.handleTemplateInfo,
	}
}

func (t *tools) handleTemplateInfo(args json.RawMessage) (ToolResult, error) {
	var a struct {
		Profile string `json:"profile"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	p, err := t.engine.Profile(a.Profile)
	if err != nil {
		return ToolResult{}, err
	}
	path, err := t.engine.Templates().Resolve(p.Template)
	if err != nil {
		return ToolResult{}, err
	}
	data, err := t.engine.Templates().ReadFile(path)
	if err != nil {
		return ToolResult{}, err
	}
	doc, err := reader.Parse(data)
	if err != nil {
		return ToolResult{}, fmt.Errorf("template %s: %w", path, err)
	}

	info := documentInfo(doc)
	info["profile"] = p.Name
	info["template"] = path
	matches := false
	if first, err := doc.Page(1); err == nil {
		matches = math.Abs(first.MediaBox.Width()-p.Page.Width) <= pageops.SizeTolerance &&
			math.Abs(first.MediaBox.Height()-p.Page.Height) <= pageops.SizeTolerance
	}
	info["pageSizeMatches"] = matches
	return jsonResult(info)
}

// documentInfo summarizes a parsed PDF.
func documentInfo(doc *reader.Document) map[string]interface{} {
	pages := make([]map[string]interface{}, 0, doc.NumPages())
	for n, page := range doc.Pages() {
		pages = append(pages, map[string]interface{}{
			"page":   n,
			"width":  page.MediaBox.Width(),
			"height": page.MediaBox.Height(),
		})
	}
	return map[string]interface{}{
		"version":  doc.Version,
		"numPages": doc.NumPages(),
		"metadata": doc.Metadata(),
		"pages":    pages,
	}
}

func extractTextTool() Tool {
	return Tool{
		Name:        "extract_text",
		Description: "Extract the text of a PDF, for example to check a filled acta. Returns all pages or the requested ones.",
		InputSchema: schema([]string{"path"}, map[string]interface{}{
			"path": prop("string", "Path to the PDF file"),
			"pages": map[string]interface{}{
				"type":        "array",
				"items":       map[string]interface{}{"type": "integer"},
				"description": "Page numbers to extract (1-based). Omit for all pages.",
			},
		}),
		Handler: handleExtractText,
	}
}

func handleExtractText(args json.RawMessage) (ToolResult, error) {
	var a struct {
		Path  string `json:"path"`
		Pages []int  `json:"pages"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	if a.Path == "" {
		return ToolResult{}, errors.New("missing 'path' argument")
	}
	doc, err := reader.Open(a.Path)
	if err != nil {
		return ToolResult{}, fmt.Errorf("opening PDF: %w", err)
	}

	var b strings.Builder
	writePages(&b, doc, a.Pages)
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: b.String()}}}, nil
}

// writePages writes the text of the selected pages, or of all of them when
// pages is empty.
func writePages(w io.Writer, doc *reader.Document, pages []int) {
	want := make(map[int]bool, len(pages))
	for _, n := range pages {
		want[n] = true
	}
	for n, page := range doc.Pages() {
		if len(want) > 0 && !want[n] {
			continue
		}
		text, err := page.ExtractText()
		if err != nil {
			fmt.Fprintf(w, "--- Page %d (error: %v) ---\n", n, err)
			continue
		}
		fmt.Fprintf(w, "--- Page %d ---\n%s\n\n", n, text)
	}
}

func (t *tools) gridOverlayTool() Tool {
	return Tool{
		Name:        "grid_overlay",
		Description: "Draw a labelled coordinate grid over page 1 of a form template, to measure positions for a new profile. Give either a profile or a templatePath.",
		InputSchema: schema([]string{"outputPath"}, map[string]interface{}{
			"profile":      profileProp,
			"templatePath": prop("string", "Path to a template PDF not yet covered by a profile"),
			"outputPath":   prop("string", "Path for the grid PDF"),
		}),
		Handler: t.handleGridOverlay,
	}
}

func (t *tools) handleGridOverlay(args json.RawMessage) (ToolResult, error) {
	var a struct {
		Profile      string `json:"profile"`
		TemplatePath string `json:"templatePath"`
		OutputPath   string `json:"outputPath"`
	}
	if err := decodeArgs(args, &a); err != nil {
		return ToolResult{}, err
	}
	switch {
	case a.OutputPath == "":
		return ToolResult{}, errors.New("missing 'outputPath' argument")
	case a.TemplatePath != "":
		if err := pageops.AddGridFile(a.TemplatePath, a.OutputPath, pageops.GridOptions{}); err != nil {
			return ToolResult{}, err
		}
		return textResult("Grid drawn over %s -> %s", a.TemplatePath, a.OutputPath), nil
	case a.Profile == "":
		return ToolResult{}, errors.New("one of 'profile' or 'templatePath' is required")
	}

	var buf bytes.Buffer
	if err := t.engine.Grid(&buf, a.Profile); err != nil {
		return ToolResult{}, err
	}
	if err := os.WriteFile(a.OutputPath, buf.Bytes(), 0o644); err != nil {
		return ToolResult{}, err
	}
	return textResult("Grid drawn over the %s template -> %s", a.Profile, a.OutputPath), nil
}
