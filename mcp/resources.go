package mcp

import (
	"encoding/json"
	"errors"
	"net/url"
	"strings"

	"github.com/lvillar/actapdf/reader"
	"github.com/lvillar/actapdf/render"
)

// RegisterResources adds the profile catalogue of e and the PDF inspection
// resources.
func RegisterResources(s *Server, e *render.Engine) {
	s.AddResource(Resource{
		URI:         "acta://profiles",
		Name:        "Acta profiles",
		Description: "Form variants with their template and printed fields.",
		MIMEType:    "application/json",
		Handler: func(u *url.URL) ([]ResourceContent, error) {
			out := make([]profileInfo, 0, len(e.Registry().Names()))
			for _, p := range e.Registry().Profiles() {
				out = append(out, newProfileInfo(p))
			}
			return jsonContent(u, out)
		},
	})

	s.AddResource(Resource{
		URI:         "pdf://info",
		Name:        "PDF information",
		Description: "Version, metadata and page sizes of a PDF file: pdf://info?path=/path/to/file.pdf",
		MIMEType:    "application/json",
		Handler: func(u *url.URL) ([]ResourceContent, error) {
			doc, err := openQueryPath(u)
			if err != nil {
				return nil, err
			}
			return jsonContent(u, documentInfo(doc))
		},
	})

	s.AddResource(Resource{
		URI:         "pdf://text",
		Name:        "PDF text",
		Description: "Text of every page of a PDF file: pdf://text?path=/path/to/file.pdf",
		MIMEType:    "text/plain",
		Handler: func(u *url.URL) ([]ResourceContent, error) {
			doc, err := openQueryPath(u)
			if err != nil {
				return nil, err
			}
			var b strings.Builder
			writePages(&b, doc, nil)
			return []ResourceContent{{URI: u.String(), MIMEType: "text/plain", Text: b.String()}}, nil
		},
	})
}

func openQueryPath(u *url.URL) (*reader.Document, error) {
	path := u.Query().Get("path")
	if path == "" {
		return nil, errors.New("missing 'path' parameter in URI")
	}
	return reader.Open(path)
}

func jsonContent(u *url.URL, v interface{}) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []ResourceContent{{URI: u.String(), MIMEType: "application/json", Text: string(data)}}, nil
}
