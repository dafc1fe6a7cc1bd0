package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/pm25-stats/internal/domain"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ResultSource exposes the city reports of the last batch run.
type ResultSource interface {
	Reports() []domain.CityReport
}

// Server exposes health, readiness, metrics, and batch result endpoints.
type Server struct {
	httpServer *http.Server
	results    ResultSource
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// read-only /cities routes.
func NewServer(addr string, ready sharedobs.ReadinessChecker, results ResultSource, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      r,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		results: results,
		logger:  logger,
	}

	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())
	r.Route("/cities", func(r chi.Router) {
		r.Get("/", s.handleCities)
		r.Get("/{city}", s.handleCity)
		r.Get("/{city}/monthly", s.handleMonthly)
	})

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type citySummary struct {
	City      string            `json:"city"`
	Hours     int               `json:"hours"`
	Domestic  domain.BandShares `json:"domestic"`
	Reference domain.BandShares `json:"reference"`
}

func (s *Server) handleCities(w http.ResponseWriter, _ *http.Request) {
	reports := s.results.Reports()
	out := make([]citySummary, 0, len(reports))
	for _, r := range reports {
		out = append(out, citySummary{City: r.City, Hours: r.Hours, Domestic: r.Domestic, Reference: r.Reference})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCity(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(chi.URLParam(r, "city"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "city not found"})
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type monthlyResponse struct {
	City     string                  `json:"city"`
	Stations []string                `json:"stations"`
	Months   []domain.MonthlyAverage `json:"months"`
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	report, ok := s.lookup(chi.URLParam(r, "city"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "city not found"})
		return
	}
	writeJSON(w, http.StatusOK, monthlyResponse{City: report.City, Stations: report.Stations, Months: report.Monthly})
}

func (s *Server) lookup(city string) (domain.CityReport, bool) {
	for _, r := range s.results.Reports() {
		if r.City == city {
			return r, true
		}
	}
	return domain.CityReport{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
