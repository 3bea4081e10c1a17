// Package chi is the HTTP API: detection and search endpoints plus the
// health and metrics surface.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/domain"
	"github.com/snapseek/snapseek/internal/domain/box"
)

const maxSearchBoxes = 100

// Error response codes.
const (
	codeBadRequest          = "bad_request"
	codeBadImage            = "bad_image"
	codeAssetNotFound       = "asset_not_found"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeInternalError       = "internal_error"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// DetectService is the consumer interface for the detection pipeline.
type DetectService interface {
	Detect(ctx context.Context, encodedImage string) (domain.Detection, error)
}

// SearchService is the consumer interface for the search pipeline.
type SearchService interface {
	Search(ctx context.Context, id string, boxes []box.Box) ([][]domain.Product, error)
}

// Server is the HTTP API server.
type Server struct {
	detect        DetectService
	search        SearchService
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(detect DetectService, search SearchService, logger *zap.Logger) *Server {
	s := &Server{
		detect: detect,
		search: search,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrBadImage, http.StatusBadRequest, codeBadImage),
		sentinelHandler(domain.ErrAssetNotFound, http.StatusNotFound, codeAssetNotFound),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, codeUpstreamUnavailable),
	}
	return s
}

// Routes mounts the API handlers on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/detect", s.Detect)
	r.Post("/search", s.Search)
	r.Get("/healthz", s.Health)
	r.Get("/metrics", s.Metrics)
}

// boxDTO is the wire form of a box: percent-of-frame center coordinates
// and extents, so clients can place overlays without knowing pixel sizes.
type boxDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Conf   float64 `json:"conf"`
}

type priceDTO struct {
	Original   float64 `json:"original"`
	Discounted float64 `json:"discounted"`
}

type productDTO struct {
	ID       string   `json:"id"`
	Image    string   `json:"image"`
	Banner   string   `json:"banner,omitempty"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Price    priceDTO `json:"price"`
	Ratings  [5]int   `json:"ratings"`
	InStock  bool     `json:"in_stock"`
}

// Detect handles POST /detect.
func (s *Server) Detect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Image string `json:"image"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Image is required")
		return
	}

	det, err := s.detect.Detect(r.Context(), req.Image)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	boxes := make([]boxDTO, len(det.Boxes))
	for i, b := range det.Boxes {
		boxes[i] = boxToDTO(b)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":    det.ID,
		"boxes": boxes,
	})
}

// Search handles POST /search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID    string   `json:"id"`
		Boxes []boxDTO `json:"boxes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Detection id is required")
		return
	}
	if len(req.Boxes) == 0 || len(req.Boxes) > maxSearchBoxes {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Boxes count must be between 1 and 100")
		return
	}

	boxes := make([]box.Box, len(req.Boxes))
	for i, dto := range req.Boxes {
		boxes[i] = boxFromDTO(dto)
	}

	results, err := s.search.Search(r.Context(), req.ID, boxes)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	out := make([][]productDTO, len(results))
	for i, products := range results {
		out[i] = make([]productDTO, len(products))
		for j, p := range products {
			out[i][j] = productToDTO(p)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"id":      req.ID,
		"results": out,
	})
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func boxToDTO(b box.Box) boxDTO {
	return boxDTO{
		X:      b.CX * 100,
		Y:      b.CY * 100,
		Width:  b.W * 100,
		Height: b.H * 100,
		Conf:   b.Conf,
	}
}

func boxFromDTO(dto boxDTO) box.Box {
	return box.Box{
		CX:   dto.X / 100,
		CY:   dto.Y / 100,
		W:    dto.Width / 100,
		H:    dto.Height / 100,
		Conf: dto.Conf,
	}
}

func productToDTO(p domain.Product) productDTO {
	return productDTO{
		ID:       p.ID,
		Image:    p.Image,
		Banner:   p.Banner,
		Name:     p.Name,
		Category: p.Category,
		Price:    priceDTO{Original: p.Price.Original, Discounted: p.Price.Discounted},
		Ratings:  p.Ratings,
		InStock:  p.InStock,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrBadImage,
		domain.ErrAssetNotFound,
		domain.ErrUpstreamUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code string) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
