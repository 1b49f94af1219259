package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
	"github.com/hussaintmg/Population-Weather-App/internal/metrics"
)

type ctxKey int

const boardKey ctxKey = iota

// requestLogger logs one line per request with slog.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request completed",
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// boardCtx resolves the {kind} URL parameter to a configured board.
func (s *Server) boardCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kind, err := dashboard.ParseKind(chi.URLParam(r, "kind"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		b, ok := s.boards[kind]
		if !ok {
			s.fail(w, r, fmt.Errorf("%w: %s board is not configured", dashboard.ErrUnknownKind, kind))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), boardKey, b)))
	})
}

func boardFrom(r *http.Request) *dashboard.Board {
	b, _ := r.Context().Value(boardKey).(*dashboard.Board)
	return b
}

// instrument counts requests to op by board and status class.
func instrument(op string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.Requests.WithLabelValues(chi.URLParam(r, "kind"), op, fmt.Sprintf("%dxx", status/100)).Inc()
		})
	}
}
