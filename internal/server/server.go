// Package server exposes the dashboards over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
	"github.com/hussaintmg/Population-Weather-App/internal/export"
)

const (
	maxBodySize  = 1 << 20
	dateLayout   = "2006-01-02"
	headerDataID = "X-Dataset-ID"
)

// Server serves the dashboard API.
type Server struct {
	boards   map[dashboard.Kind]*dashboard.Board
	logger   *slog.Logger
	validate *validator.Validate
	topN     int
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTopN sets the ranking length used when a request omits top_n.
func WithTopN(n int) Option { return func(s *Server) { s.topN = n } }

// New builds a server over boards.
func New(boards []*dashboard.Board, opts ...Option) *Server {
	v := validator.New()
	// Use JSON tag names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	s := &Server{
		boards:   make(map[dashboard.Kind]*dashboard.Board, len(boards)),
		logger:   slog.Default(),
		validate: v,
		topN:     dashboard.DefaultTopN,
	}
	for _, b := range boards {
		s.boards[b.Kind()] = b
	}
	for _, o := range opts {
		o(s)
	}
	s.logger = s.logger.With(slog.String("component", "http"))
	return s
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/{kind}", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(s.boardCtx)
		r.With(instrument("options")).Get("/options", s.options)
		r.With(instrument("dashboard")).Post("/dashboard", s.compute)
		r.With(instrument("export")).Post("/export", s.export)
		r.With(instrument("invalidate")).Post("/invalidate", s.invalidate)
	})
	return r
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// DashboardRequest is the body of the dashboard and export endpoints.
type DashboardRequest struct {
	Filters  map[string][]string `json:"filters" validate:"omitempty,dive,keys,min=1,endkeys"`
	DateFrom string              `json:"date_from" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string              `json:"date_to" validate:"omitempty,datetime=2006-01-02"`
	TopN     *int                `json:"top_n" validate:"omitempty,min=0,max=1000"`
}

func (s *Server) decode(r *http.Request) (*DashboardRequest, error) {
	var req DashboardRequest
	if err := render.DecodeJSON(io.LimitReader(r.Body, maxBodySize), &req); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode body: %w", errInvalidRequest, err)
	}
	if err := s.validate.Struct(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

func (req *DashboardRequest) selection() (dashboard.Selection, error) {
	sel := dashboard.Selection{Filters: req.Filters}
	for _, p := range []struct {
		raw string
		dst **time.Time
	}{{req.DateFrom, &sel.From}, {req.DateTo, &sel.To}} {
		if p.raw == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, p.raw, time.UTC)
		if err != nil {
			return sel, fmt.Errorf("%w: %w", errInvalidRequest, err)
		}
		*p.dst = &t
	}
	return sel, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	kinds := make([]string, 0, len(s.boards))
	for _, k := range dashboard.Kinds() {
		if _, ok := s.boards[k]; ok {
			kinds = append(kinds, string(k))
		}
	}
	render.JSON(w, r, map[string]any{"status": "ok", "boards": kinds})
}

func (s *Server) options(w http.ResponseWriter, r *http.Request) {
	opts, err := boardFrom(r).Options(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set(headerDataID, opts.DatasetID)
	render.JSON(w, r, opts)
}

func (s *Server) compute(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	req, err := s.decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sel, err := req.selection()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	spec, err := b.BuildSpec(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	topN := s.topN
	if req.TopN != nil {
		topN = *req.TopN
	}
	res, err := b.ComputeTop(r.Context(), spec, topN)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set(headerDataID, res.DatasetID)
	render.JSON(w, r, res)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errInvalidRequest, err))
		return
	}
	req, err := s.decode(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sel, err := req.selection()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	spec, err := b.BuildSpec(sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dl, err := b.Export(r.Context(), spec, format)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set(headerDataID, dl.DatasetID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dl.Data); err != nil {
		s.logger.Warn("write download", slog.String("error", err.Error()))
	}
}

func (s *Server) invalidate(w http.ResponseWriter, r *http.Request) {
	b := boardFrom(r)
	b.Invalidate()
	s.logger.Info("dataset invalidated", slog.String("kind", string(b.Kind())), slog.String("source", b.Source()))
	render.NoContent(w, r)
}
