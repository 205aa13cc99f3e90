package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"gad-esmeraldas/internal/access/routes"
	"gad-esmeraldas/pkg/app"

	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

// Writes the OpenAPI document without connecting to any backing service
func main() {
	output := flag.String("output", "", "Output file (defaults to stdout)")
	flag.Parse()

	_ = godotenv.Load()

	api := humachi.New(chi.NewRouter(), app.NewAPIConfig())
	routes.NewRoutes(nil, nil, nil, nil, nil).RegisterUnifiedRoutes(api)

	data, err := json.MarshalIndent(api.OpenAPI(), "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal OpenAPI document: %v", err)
	}

	if *output == "" {
		os.Stdout.Write(append(data, '\n'))
		return
	}
	if err := os.WriteFile(*output, data, 0o644); err != nil {
		log.Fatalf("Failed to write %s: %v", *output, err)
	}
	log.Printf("OpenAPI document written to %s", *output)
}
