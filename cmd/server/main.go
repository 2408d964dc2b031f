package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/smartocr/ocr-docx-service/api"
	"github.com/smartocr/ocr-docx-service/internal/auth"
	"github.com/smartocr/ocr-docx-service/internal/db"
	"github.com/smartocr/ocr-docx-service/internal/models"
	"github.com/smartocr/ocr-docx-service/internal/ocr"
	"github.com/smartocr/ocr-docx-service/internal/storage"
	"gopkg.in/yaml.v3"
)

func main() {
	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Resolve the OCR engine once; the service cannot run without it
	engine, err := ocr.NewEngine(config.OCR)
	if err != nil {
		log.Fatalf("Failed to initialize OCR engine: %v", err)
	}
	log.Printf("OCR engine: %s", engine.Binary())

	// Scratch directory for uploads
	if err := os.MkdirAll(config.Uploads.Dir, 0o755); err != nil {
		log.Fatalf("Failed to create upload dir: %v", err)
	}

	// Initialize database connection pool (optional)
	if err := db.Init(); err != nil {
		log.Printf("Warning: Database not available: %v", err)
		log.Println("Running without conversion history")
	} else {
		defer db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := db.EnsureSchema(ctx); err != nil {
			log.Printf("Warning: failed to ensure schema: %v", err)
		}
		cancel()
		log.Println("Database connection pool initialized")
	}

	// Initialize MinIO storage (optional)
	if err := storage.Init(); err != nil {
		log.Printf("Warning: MinIO storage not available: %v", err)
		log.Println("Generated documents will not be archived")
	} else {
		log.Println("MinIO storage initialized")
	}

	// Create API handler
	handler := api.NewHandler(config, engine)
	router := handler.SetupRoutes()

	// Optional bearer-token auth (skips /health)
	middleware := auth.NewMiddleware(config.Auth.JWTSecret)
	if middleware.Enabled() {
		log.Println("Bearer-token authentication enabled")
	}

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting OCR-to-DOCX Service v%s on %s", api.Version, addr)
	log.Printf("Default OCR language: %s", config.OCR.Language)
	log.Printf("Endpoints:")
	log.Printf("  POST http://%s/ocr             - Image to recognized text", addr)
	log.Printf("  POST http://%s/image-to-docx   - Image to DOCX", addr)
	log.Printf("  POST http://%s/images-to-docx  - Images to one DOCX", addr)
	log.Printf("  POST http://%s/build-docx      - Text to DOCX", addr)
	log.Printf("  GET  http://%s/jobs            - Conversion history", addr)
	log.Printf("  GET  http://%s/health          - Health check", addr)

	if err := http.ListenAndServe(addr, middleware.Wrap(router)); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func loadConfig(path string) (*models.Config, error) {
	var config models.Config

	// Config file is optional; env vars and defaults cover everything
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Port = p
		}
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if lang := os.Getenv("OCR_LANG"); lang != "" {
		config.OCR.Language = lang
	}
	if dir := os.Getenv("OCR_DEBUG_DIR"); dir != "" {
		config.OCR.DebugDir = dir
	}
	if path := os.Getenv("TESSERACT_PATH"); path != "" {
		config.OCR.BinaryPath = path
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		config.Uploads.Dir = dir
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}

	config.Defaults()
	return &config, nil
}
