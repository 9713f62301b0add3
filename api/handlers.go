// handlers.go - Acta generation and profile handlers
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/profile"
	"github.com/lvillar/actapdf/record"
	"github.com/lvillar/actapdf/render"
)

// DefaultReportType is the profile used when a request names none.
const DefaultReportType = "recepcion"

// Response headers describing what the render had to give up.
const (
	HeaderTruncated     = "X-Acta-Truncated"
	HeaderRowsDropped   = "X-Acta-Rows-Dropped"
	HeaderSubstitutions = "X-Acta-Substitutions"
)

// MIMEApplicationMsgpack selects msgpack responses through Accept.
const MIMEApplicationMsgpack = "application/msgpack"

// Handler serves the acta endpoints.
type Handler struct {
	engine  *render.Engine
	version string
	newID   func() string
}

// NewHandler creates a handler rendering with engine.
func NewHandler(engine *render.Engine, version string) *Handler {
	return &Handler{
		engine:  engine,
		version: version,
		newID:   uuid.NewString,
	}
}

// generateRequest is the body of the generate and layer endpoints.
type generateRequest struct {
	Data       json.RawMessage `json:"data"`
	ReportType string          `json:"reportType"`
}

// profileSummary is one entry of the profile list.
type profileSummary struct {
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Template    string   `json:"template"`
	Fields      []string `json:"fields"`
}

// decodeRequest reads the body and decodes its record for the requested
// profile.
func (h *Handler) decodeRequest(c echo.Context) (string, record.Record, error) {
	var req generateRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return "", record.Record{}, NewBadRequestError("invalid request body", err)
	}
	name := strings.TrimSpace(req.ReportType)
	if name == "" {
		name = DefaultReportType
	}
	if len(req.Data) == 0 || string(req.Data) == "null" {
		return "", record.Record{}, NewValidationError("data")
	}
	rec, err := h.engine.DecodeRecord(name, req.Data)
	if err != nil {
		return "", record.Record{}, FromRenderError(err)
	}
	return name, rec, nil
}

// HandleGenerate renders the filled acta as a PDF download.
func (h *Handler) HandleGenerate(c echo.Context) error {
	name, rec, err := h.decodeRequest(c)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	layer, err := h.engine.Render(&buf, rec, name)
	if err != nil {
		return FromRenderError(err)
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="Acta_%s_%s.pdf"`, layer.Profile, h.newID()))
	setReportHeaders(header, layer.Report)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}

// HandleLayer returns the draw operations without rendering the PDF, as
// JSON or, when the client accepts it, msgpack.
func (h *Handler) HandleLayer(c echo.Context) error {
	name, rec, err := h.decodeRequest(c)
	if err != nil {
		return err
	}
	layer, err := h.engine.Layer(rec, name)
	if err != nil {
		return FromRenderError(err)
	}
	setReportHeaders(c.Response().Header(), layer.Report)

	if strings.Contains(c.Request().Header.Get(echo.HeaderAccept), MIMEApplicationMsgpack) {
		data, err := msgpack.Marshal(layer)
		if err != nil {
			return NewInternalError("failed to encode msgpack", err)
		}
		return c.Blob(http.StatusOK, MIMEApplicationMsgpack, data)
	}
	return c.JSON(http.StatusOK, layer)
}

// HandleListProfiles lists the form variants.
func (h *Handler) HandleListProfiles(c echo.Context) error {
	profiles := h.engine.Registry().Profiles()
	out := make([]profileSummary, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, summarize(p))
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"profiles": out,
	})
}

// HandleGetProfile returns the full geometry of one profile.
func (h *Handler) HandleGetProfile(c echo.Context) error {
	p, err := h.engine.Profile(c.Param("name"))
	if err != nil {
		return FromRenderError(err)
	}
	return c.JSON(http.StatusOK, p)
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"version":  h.version,
		"profiles": len(h.engine.Registry().Names()),
	})
}

func summarize(p *profile.Profile) profileSummary {
	return profileSummary{
		Name:        p.Name,
		Aliases:     p.Aliases,
		Description: p.Description,
		Template:    p.Template,
		Fields:      p.Fields(),
	}
}

func setReportHeaders(header http.Header, rep overlay.Report) {
	header.Set(HeaderTruncated, strconv.FormatBool(rep.Truncated))
	header.Set(HeaderRowsDropped, strconv.Itoa(rep.RowsDropped))
	header.Set(HeaderSubstitutions, strconv.Itoa(len(rep.Substitutions)))
}
