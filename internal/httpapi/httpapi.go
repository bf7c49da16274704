// Package httpapi exposes the drawing-to-image pipeline over HTTP.
//
// Endpoints:
//
//	POST /api/generate-from-drawing   {"imageData": "data:image/png;base64,..."}
//	GET  /healthz
//
// Client mistakes (bad JSON, missing or undecodable image) are rejected with
// 400 before any remote call. Pipeline failures return a generic 500; the
// cause is only logged.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/ironsheep/sketchpad/internal/canvas"
	"github.com/ironsheep/sketchpad/internal/pipeline"
)

// DefaultMaxBodyBytes limits the size of a generation request.
const DefaultMaxBodyBytes = 10 << 20

// genericFailure is the only error text a pipeline failure exposes.
const genericFailure = "Failed to generate image"

// Generator runs the pipeline over an uploaded image.
type Generator interface {
	GenerateFromImage(ctx context.Context, img image.Image) (*pipeline.Result, error)
}

// GenerateRequest is the body of POST /api/generate-from-drawing.
type GenerateRequest struct {
	ImageData string `json:"imageData"`
}

// GenerateResponse is the success body of POST /api/generate-from-drawing.
type GenerateResponse struct {
	Tags           []string `json:"tags"`
	EnhancedPrompt string   `json:"enhancedPrompt"`
	GeneratedImage string   `json:"generatedImage"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler serves the HTTP API.
type Handler struct {
	gen          Generator
	logger       *slog.Logger
	maxBodyBytes int64
	mux          *http.ServeMux
}

// NewHandler builds the API handler, wrapped in request logging.
func NewHandler(gen Generator, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		gen:          gen,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
		mux:          http.NewServeMux(),
	}
	h.mux.HandleFunc("POST /api/generate-from-drawing", h.handleGenerate)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	return h
}

// SetMaxBodyBytes changes the request size limit.
func (h *Handler) SetMaxBodyBytes(n int64) {
	if n > 0 {
		h.maxBodyBytes = n
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rec, r)
	h.logger.Info("request",
		"method", r.Method,
		"path", r.URL.Path,
		"status", rec.status,
		"duration", time.Since(start))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ImageData == "" {
		writeError(w, http.StatusBadRequest, "imageData is required")
		return
	}

	img, format, err := canvas.DecodeDataURL(req.ImageData)
	if err != nil {
		h.logger.Warn("rejecting upload", "error", err)
		writeError(w, http.StatusBadRequest, "imageData is not a valid image")
		return
	}
	h.logger.Debug("decoded upload", "format", format, "width", img.Bounds().Dx(), "height", img.Bounds().Dy())

	res, err := h.gen.GenerateFromImage(r.Context(), img)
	if err != nil {
		h.logger.Error("generation failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, genericFailure)
		return
	}

	writeJSON(w, http.StatusOK, GenerateResponse{
		Tags:           res.Tags,
		EnhancedPrompt: res.EnhancedPrompt,
		GeneratedImage: res.GeneratedImageRef,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
