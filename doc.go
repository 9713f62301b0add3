// Package actapdf fills pre-printed certificate forms ("actas") by drawing
// a computed overlay on the first page of a PDF template.
//
// The work is split across subpackages:
//
//	record   the flat record a caller wants printed
//	metrics  core font widths, shared by fitting and drawing
//	fit      single-line and paragraph font size fitting
//	profile  named layout geometry for each template variant
//	overlay  composes a record and a profile into a draw layer
//	pageops  merges a layer onto a template, grid overlays
//	reader   minimal PDF reader used to inspect templates
//	render   engine tying the pieces together
//
// This package holds the error types shared by all of them. Callers match
// failures with errors.Is against the sentinels, or errors.As against
// ConfigurationError, TemplateError and EncodingError to recover the profile
// and field names involved.
package actapdf
