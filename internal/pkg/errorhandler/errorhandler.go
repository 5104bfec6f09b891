package errorhandler

import (
	"context"
	"net/http"

	"github.com/songstudio/studio-api/internal/pkg/logger"
	"github.com/songstudio/studio-api/internal/pkg/response"
)

// HandleError logs an unexpected failure with the request-scoped logger and
// answers with the generic 500 envelope. The cause is never sent to clients.
func HandleError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logger.FromContext(ctx).Error().
		Err(err).
		Str("operation", op).
		Msg("Request failed")
	response.InternalError(w)
}

// HandleUpstreamError logs a failed call to an external provider and answers 502.
func HandleUpstreamError(ctx context.Context, w http.ResponseWriter, service string, err error) {
	logger.FromContext(ctx).Error().
		Err(err).
		Str("external_service", service).
		Msg("External service error")
	response.BadGateway(w, service+" is unavailable, please try again")
}

// LogValidationError records rejected input at warn level.
func LogValidationError(ctx context.Context, fieldErrors map[string]string) {
	logger.FromContext(ctx).Warn().
		Interface("validation_errors", fieldErrors).
		Msg("Validation error")
}
