// Command actapdf-mcp is an MCP (Model Context Protocol) server that lets
// AI assistants fill acta forms and inspect their templates.
//
// # Configuration for Claude Desktop
//
//	{
//	  "mcpServers": {
//	    "actapdf": {
//	      "command": "actapdf-mcp",
//	      "args": ["-templates", "/srv/actas/templates"]
//	    }
//	  }
//	}
//
// # Available Tools
//
//   - render_acta: fill a form and return or save the PDF
//   - preview_layer: compute positions and fitted sizes without a PDF
//   - list_profiles, describe_profile: the form variants and their geometry
//   - template_info: check a profile's template PDF
//   - extract_text: read back the text of a PDF
//   - grid_overlay: draw a measuring grid over a template
//
// # Available Resources
//
//   - acta://profiles : form variants
//   - pdf://info?path=... : version, metadata and page sizes
//   - pdf://text?path=... : text of every page
package main

import (
	"flag"
	"log"
	"os"

	"github.com/lvillar/actapdf/config"
	"github.com/lvillar/actapdf/mcp"
	"github.com/lvillar/actapdf/overlay"
	"github.com/lvillar/actapdf/render"
)

// Version is set at build time.
var Version = "dev"

func main() {
	templates := flag.String("templates", ".", "directory holding the template PDFs")
	assets := flag.String("assets", "", "directory holding signature and stamp images")
	profiles := flag.String("profiles", "", "YAML file with extra or replacement profiles")
	strict := flag.Bool("strict", false, "fail on characters the font cannot print")
	flag.Parse()

	// Stdout carries the protocol, so logs go to stderr.
	log.SetOutput(os.Stderr)

	opts := []render.Option{render.WithTemplateDir(*templates)}
	if *assets != "" {
		opts = append(opts, render.WithAssetDir(*assets))
	}
	if *strict {
		opts = append(opts, render.WithEncodingPolicy(overlay.Strict))
	}
	if *profiles != "" {
		reg, err := config.LoadProfiles(*profiles)
		if err != nil {
			log.Fatalf("[ERROR] %v", err)
		}
		opts = append(opts, render.WithRegistry(reg))
	}
	engine, err := render.New(opts...)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}

	server := mcp.NewServer("actapdf-mcp", Version, os.Stdin, os.Stdout)
	mcp.RegisterTools(server, engine)
	mcp.RegisterResources(server, engine)

	log.Printf("[INFO] actapdf-mcp %s serving %d profiles from %s", Version, len(engine.Registry().Names()), *templates)
	if err := server.Run(); err != nil {
		log.Fatalf("[ERROR] actapdf-mcp: %v", err)
	}
}
