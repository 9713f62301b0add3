// Command actapdf-server serves acta generation over HTTP.
//
//	actapdf-server -config actapdf.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lvillar/actapdf/api"
	"github.com/lvillar/actapdf/config"
	"github.com/lvillar/actapdf/render"
)

// Version is set at build time.
var Version = "dev"

func main() {
	configPath := flag.String("config", "actapdf.yaml", "path to the YAML configuration")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	engine, err := render.New(opts...)
	if err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
	for _, p := range engine.Registry().Profiles() {
		if _, err := engine.Templates().Resolve(p.Template); err != nil {
			log.Printf("[WARN] profile %s: %v", p.Name, err)
		}
	}

	e := api.NewServer(cfg, api.NewHandler(engine, Version))
	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      e,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		log.Printf("[INFO] actapdf-server %s listening on %s, templates in %s", Version, srv.Addr, cfg.Render.TemplateDir)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[ERROR] %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[ERROR] shutdown: %v", err)
	}
	log.Println("[INFO] server stopped")
}
