package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/easyref/easyref-api/internal/api/metrics"
	"github.com/easyref/easyref-api/internal/core/domain"
	"github.com/easyref/easyref-api/internal/core/ports"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error  string              `json:"error"`
	Code   string              `json:"code,omitempty"`
	Fields []domain.FieldError `json:"fields,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that maps the domain
// error taxonomy to status codes and renders {"error", "code", "fields"}.
// Only unexpected errors and remote failures are logged.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, errorResponse{Error: ve.Error(), Code: "validation_failed", Fields: ve.Fields}
	}

	var dc *domain.DomainConflict
	if errors.As(err, &dc) {
		metrics.RejectedMutationsTotal.WithLabelValues(string(dc.Kind)).Inc()
		return http.StatusConflict, errorResponse{Error: dc.Message, Code: string(dc.Kind)}
	}

	switch {
	case errors.Is(err, domain.ErrProfileNotFound):
		return http.StatusNotFound, errorResponse{Error: "user not found", Code: "profile_not_found"}
	case errors.Is(err, domain.ErrReferralNotFound):
		return http.StatusNotFound, errorResponse{Error: "referral not found", Code: "referral_not_found"}
	case errors.Is(err, domain.ErrTagNotFound):
		return http.StatusNotFound, errorResponse{Error: "tag not found", Code: "tag_not_found"}
	case errors.Is(err, domain.ErrBusy):
		metrics.RejectedMutationsTotal.WithLabelValues("busy").Inc()
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "busy"}
	case errors.Is(err, domain.ErrSubmitInFlight):
		metrics.RejectedMutationsTotal.WithLabelValues("submit_in_flight").Inc()
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "submit_in_flight"}
	case errors.Is(err, domain.ErrEditorClosed):
		return http.StatusConflict, errorResponse{Error: err.Error(), Code: "editor_closed"}
	case errors.Is(err, domain.ErrConfirmationRequired):
		return http.StatusPreconditionRequired, errorResponse{Error: err.Error(), Code: "confirmation_required"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden", Code: "forbidden"}
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, errorResponse{Error: err.Error(), Code: "unauthenticated"}
	case errors.Is(err, ports.ErrInvalidSignature):
		return http.StatusBadRequest, errorResponse{Error: "invalid webhook signature", Code: "invalid_signature"}
	}

	var re *domain.RemoteError
	if errors.As(err, &re) {
		log.Warn().
			Err(err).
			Str("op", re.Op).
			Str("method", c.Request().Method).
			Str("path", c.Path()).
			Msg("remote call failed")
		return http.StatusBadGateway, errorResponse{Error: "the backend could not complete the request", Code: "remote_error"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}
