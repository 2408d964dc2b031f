package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/smartocr/ocr-docx-service/internal/db"
	"github.com/smartocr/ocr-docx-service/internal/docx"
	"github.com/smartocr/ocr-docx-service/internal/layout"
	"github.com/smartocr/ocr-docx-service/internal/models"
	"github.com/smartocr/ocr-docx-service/internal/ocr"
	"github.com/smartocr/ocr-docx-service/internal/storage"
)

const (
	Version = "0.3.1"

	resultFilename = "result.docx"
)

// Recognizer is the OCR engine port the handlers depend on. ocr.Engine is
// the production implementation; tests plug in fakes.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath, lang string) (ocr.Page, error)
	RecognizeText(ctx context.Context, imagePath, lang string) (string, error)
	Version(ctx context.Context) (string, error)
}

// allowedExtensions whitelists upload types.
var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true,
	".webp": true, ".bmp": true, ".tif": true, ".tiff": true,
}

// Handler handles HTTP requests for OCR and document conversion
type Handler struct {
	config *models.Config
	engine Recognizer
	params layout.Params
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, engine Recognizer) *Handler {
	return &Handler{
		config: config,
		engine: engine,
		params: layout.ParamsFromConfig(config.Layout),
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/ocr", h.OCR).Methods("POST")
	router.HandleFunc("/image-to-docx", h.ImageToDocx).Methods("POST")
	router.HandleFunc("/images-to-docx", h.ImagesToDocx).Methods("POST")
	router.HandleFunc("/build-docx", h.BuildDocx).Methods("POST")
	// kept for older clients
	router.HandleFunc("/build_docx", h.BuildDocx).Methods("POST")

	router.HandleFunc("/jobs", h.Jobs).Methods("GET")
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string        `json:"status"`
	Version   string        `json:"version"`
	Timestamp string        `json:"timestamp"`
	Uptime    string        `json:"uptime"`
	Memory    MemoryStats   `json:"memory"`
	Tesseract ServiceStatus `json:"tesseract"`
	Database  ServiceStatus `json:"database"`
	Storage   ServiceStatus `json:"storage"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

// ServiceStatus represents the status of a service dependency
type ServiceStatus struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Error     string `json:"error,omitempty"`
}

var startTime = time.Now()

// Health endpoint - enhanced for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	tesseractStatus := h.checkTesseract(r.Context())

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Tesseract: tesseractStatus,
		Database:  h.checkDatabase(),
		Storage:   h.checkStorage(),
	}

	// The OCR engine is the only hard dependency.
	if !tesseractStatus.Available {
		response.Status = "degraded"
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(response)
}

func (h *Handler) checkTesseract(ctx context.Context) ServiceStatus {
	version, err := h.engine.Version(ctx)
	if err != nil {
		return ServiceStatus{
			Available: false,
			Error:     "tesseract not found or not executable",
		}
	}
	return ServiceStatus{
		Available: true,
		Version:   version,
	}
}

func (h *Handler) checkDatabase() ServiceStatus {
	if db.Pool == nil {
		return ServiceStatus{
			Available: false,
			Error:     "database pool not initialized",
		}
	}
	return ServiceStatus{
		Available: true,
		Version:   "PostgreSQL",
	}
}

func (h *Handler) checkStorage() ServiceStatus {
	if storage.Client == nil {
		return ServiceStatus{
			Available: false,
			Error:     "storage client not initialized",
		}
	}
	return ServiceStatus{
		Available: true,
		Version:   "MinIO S3",
	}
}

// OCR handles image -> recognized text
func (h *Handler) OCR(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	start := time.Now()

	savePath, filename, err := h.saveUpload(w, r, "image")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(savePath)

	lang := h.language(r)
	text, err := h.engine.RecognizeText(r.Context(), savePath, lang)
	if err != nil {
		h.recordJob(r, &db.ConversionJob{
			Endpoint: "/ocr", Filename: filename, Language: lang,
			Duration: time.Since(start).Seconds(), Status: "error", Error: err.Error(),
		})
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("OCR error: %v", err))
		return
	}

	h.recordJob(r, &db.ConversionJob{
		Endpoint: "/ocr", Filename: filename, Language: lang, PageCount: 1,
		Duration: time.Since(start).Seconds(), Status: "ok",
	})

	json.NewEncoder(w).Encode(map[string]string{"text": text})
}

// ImageToDocx converts a single image into a formatted document
func (h *Handler) ImageToDocx(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	savePath, filename, err := h.saveUpload(w, r, "image")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer os.Remove(savePath)

	lang := h.language(r)
	page, err := h.engine.Recognize(r.Context(), savePath, lang)
	if err != nil {
		h.recordJob(r, &db.ConversionJob{
			Endpoint: "/image-to-docx", Filename: filename, Language: lang,
			Duration: time.Since(start).Seconds(), Status: "error", Error: err.Error(),
		})
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("IMAGE->DOCX error: %v", err))
		return
	}

	doc := docx.New()
	doc.AppendClassified(layout.Classify(page.Lines, h.params), h.params)

	data, err := doc.Bytes()
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("DOCX error: %v", err))
		return
	}

	job := &db.ConversionJob{
		Endpoint: "/image-to-docx", Filename: filename, Language: lang,
		PageCount: 1, LineCount: len(page.Lines),
		Duration: time.Since(start).Seconds(), Status: "ok",
	}
	job.DocumentURL = h.archiveDocument(r.Context(), data)
	h.recordJob(r, job)

	h.sendDocument(w, data)
}

// ImagesToDocx converts multiple images into one combined document,
// one page per image
func (h *Handler) ImagesToDocx(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize())
	if err := r.ParseMultipartForm(h.maxUploadSize()); err != nil {
		h.sendError(w, http.StatusBadRequest, "File too large or invalid form data")
		return
	}

	files := r.MultipartForm.File["images"]
	if len(files) == 0 {
		// single-file clients sometimes reuse the singular field
		files = r.MultipartForm.File["image"]
	}
	if len(files) == 0 {
		h.sendError(w, http.StatusBadRequest, "No files provided (use 'images' field)")
		return
	}

	var saved []string
	defer func() {
		for _, p := range saved {
			os.Remove(p)
		}
	}()

	for _, fh := range files {
		path, err := h.savePart(fh)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, err.Error())
			return
		}
		saved = append(saved, path)
	}

	lang := h.language(r)
	doc := docx.New()
	lineCount := 0
	for i, path := range saved {
		if i > 0 {
			doc.AddPageBreak()
		}
		page, err := h.engine.Recognize(r.Context(), path, lang)
		if err != nil {
			h.recordJob(r, &db.ConversionJob{
				Endpoint: "/images-to-docx", Filename: files[i].Filename, Language: lang,
				PageCount: len(saved), Duration: time.Since(start).Seconds(),
				Status: "error", Error: err.Error(),
			})
			h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("IMAGES->DOCX error: %v", err))
			return
		}
		lineCount += len(page.Lines)
		doc.AppendClassified(layout.Classify(page.Lines, h.params), h.params)
	}

	data, err := doc.Bytes()
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("DOCX error: %v", err))
		return
	}

	job := &db.ConversionJob{
		Endpoint: "/images-to-docx", Filename: files[0].Filename, Language: lang,
		PageCount: len(saved), LineCount: lineCount,
		Duration: time.Since(start).Seconds(), Status: "ok",
	}
	job.DocumentURL = h.archiveDocument(r.Context(), data)
	h.recordJob(r, job)

	h.sendDocument(w, data)
}

// BuildDocx converts plain text into a document using the text-only
// heuristics; no OCR involved
func (h *Handler) BuildDocx(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize())
	text := r.FormValue("text")
	if strings.TrimSpace(text) == "" {
		h.sendError(w, http.StatusBadRequest, "No text provided (use 'text' field)")
		return
	}

	data, err := docx.FromText(text).Bytes()
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("DOCX error: %v", err))
		return
	}

	job := &db.ConversionJob{
		Endpoint: "/build-docx", PageCount: 1,
		Duration: time.Since(start).Seconds(), Status: "ok",
	}
	job.DocumentURL = h.archiveDocument(r.Context(), data)
	h.recordJob(r, job)

	h.sendDocument(w, data)
}

// Jobs returns recent conversion history
func (h *Handler) Jobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if db.Pool == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	jobs, err := db.GetRecentJobs(r.Context(), 50)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get jobs: %v", err))
		return
	}

	// stored object paths become temporary download links when the
	// archive is configured; presign failures keep the raw path
	if storage.Client != nil {
		for i := range jobs {
			if jobs[i].DocumentURL == "" {
				continue
			}
			url, err := storage.GetPresignedURL(r.Context(), jobs[i].DocumentURL)
			if err != nil {
				log.Printf("Warning: failed to presign document URL: %v", err)
				continue
			}
			jobs[i].DocumentURL = url
		}
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"jobs":    jobs,
		"count":   len(jobs),
	})
}

// saveUpload persists the uploaded image to the scratch directory.
// The caller removes the returned path on every exit.
func (h *Handler) saveUpload(w http.ResponseWriter, r *http.Request, field string) (string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize())
	if err := r.ParseMultipartForm(h.maxUploadSize()); err != nil {
		return "", "", fmt.Errorf("file too large or invalid form data")
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		// accept both "image" and "file" field names
		file, header, err = r.FormFile("file")
		if err != nil {
			return "", "", fmt.Errorf("no file provided (use '%s' or 'file' field)", field)
		}
	}
	file.Close()

	path, err := h.savePart(header)
	if err != nil {
		return "", "", err
	}
	return path, header.Filename, nil
}

// savePart writes one multipart file to a request-unique scratch name.
func (h *Handler) savePart(header *multipart.FileHeader) (string, error) {
	if header.Size == 0 {
		return "", fmt.Errorf("empty upload: %s", header.Filename)
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if ext == "" {
		ext = ".jpg"
	}
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}

	src, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	defer src.Close()

	// uuid per file keeps concurrent requests collision-free
	path := filepath.Join(h.config.Uploads.Dir, "img_"+uuid.New().String()+ext)
	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

func (h *Handler) language(r *http.Request) string {
	if lang := r.FormValue("lang"); lang != "" {
		return lang
	}
	return h.config.OCR.Language
}

func (h *Handler) maxUploadSize() int64 {
	return h.config.Uploads.MaxSizeMB * 1024 * 1024
}

// sendDocument streams the generated document as an attachment
func (h *Handler) sendDocument(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", docx.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", resultFilename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// archiveDocument uploads the generated bytes to the object store when one
// is configured. Archive failures only log; the response is unaffected.
func (h *Handler) archiveDocument(ctx context.Context, data []byte) string {
	if storage.Client == nil {
		return ""
	}
	name := fmt.Sprintf("%s_%s.docx",
		time.Now().Format("20060102_150405"),
		uuid.New().String()[:8],
	)
	url, err := storage.UploadDocument(ctx, name, bytes.NewReader(data), int64(len(data)), docx.ContentType)
	if err != nil {
		log.Printf("Warning: failed to archive document: %v", err)
		return ""
	}
	return url
}

// recordJob persists history in the background when a database is
// configured. Insert failures never fail the request.
func (h *Handler) recordJob(r *http.Request, job *db.ConversionJob) {
	if db.Pool == nil {
		return
	}
	job.ID = uuid.New().String()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.SaveJob(ctx, job); err != nil {
			log.Printf("Warning: failed to save conversion job: %v", err)
		}
	}()
}

// sendError sends an error response
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
