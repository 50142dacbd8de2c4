// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries need from the environment.
type Config struct {
	// Port is the HTTP listen port for cmd/api.
	Port string
	// ProjectID and DatasetID locate the BigQuery template store. An empty
	// ProjectID selects the in-memory store.
	ProjectID string
	DatasetID string
	// Bucket is the GCS bucket for statement uploads.
	Bucket string
	// GeminiModel is the model name used for AI extraction.
	GeminiModel string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() Config {
	// Missing .env is the normal case outside local development.
	_ = godotenv.Load()

	return Config{
		Port:        getenv("PORT", "8080"),
		ProjectID:   os.Getenv("BQ_PROJECT_ID"),
		DatasetID:   getenv("BQ_DATASET_ID", "statements"),
		Bucket:      os.Getenv("GCS_BUCKET"),
		GeminiModel: getenv("GEMINI_MODEL", "gemini-2.5-flash"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
