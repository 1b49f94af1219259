package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	"github.com/hussaintmg/Population-Weather-App/internal/dashboard"
	"github.com/hussaintmg/Population-Weather-App/internal/dataset"
)

// errInvalidRequest marks malformed request bodies and parameters.
var errInvalidRequest = errors.New("invalid request")

// FieldError is one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

// ErrResponse is the JSON body of every failed request.
type ErrResponse struct {
	HTTPStatusCode int          `json:"-"`
	Message        string       `json:"error"`
	Code           string       `json:"code"`
	RequestID      string       `json:"request_id,omitempty"`
	Fields         []FieldError `json:"fields,omitempty"`
}

// Render implements render.Renderer.
func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

// errorResponse maps err onto a status code and a stable error code.
func errorResponse(err error) *ErrResponse {
	resp := &ErrResponse{Message: err.Error()}
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		resp.HTTPStatusCode, resp.Code = http.StatusBadRequest, "VALIDATION_ERROR"
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
	case errors.Is(err, errInvalidRequest):
		resp.HTTPStatusCode, resp.Code = http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, dataset.ErrUnknownColumn):
		resp.HTTPStatusCode, resp.Code = http.StatusBadRequest, "UNKNOWN_COLUMN"
	case errors.Is(err, dataset.ErrColumnType):
		resp.HTTPStatusCode, resp.Code = http.StatusBadRequest, "COLUMN_TYPE"
	case errors.Is(err, dashboard.ErrUnknownKind):
		resp.HTTPStatusCode, resp.Code = http.StatusNotFound, "UNKNOWN_BOARD"
	case errors.Is(err, dataset.ErrSourceUnavailable):
		resp.HTTPStatusCode, resp.Code = http.StatusServiceUnavailable, "SOURCE_UNAVAILABLE"
	case errors.Is(err, dataset.ErrSchemaMismatch):
		resp.HTTPStatusCode, resp.Code = http.StatusInternalServerError, "SCHEMA_MISMATCH"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		resp.HTTPStatusCode, resp.Code = http.StatusGatewayTimeout, "TIMEOUT"
	default:
		resp.HTTPStatusCode, resp.Code = http.StatusInternalServerError, "INTERNAL"
	}
	return resp
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	resp := errorResponse(err)
	resp.RequestID = middleware.GetReqID(r.Context())
	level := slog.LevelWarn
	if resp.HTTPStatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.String("code", resp.Code),
		slog.Int("status", resp.HTTPStatusCode),
		slog.String("request_id", resp.RequestID),
		slog.String("path", r.URL.Path),
	)
	if rerr := render.Render(w, r, resp); rerr != nil {
		http.Error(w, fmt.Sprintf("render error: %v", rerr), http.StatusInternalServerError)
	}
}
