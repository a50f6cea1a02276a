package http

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/stateset/commerce-engine/internal/models"
)

// errorResponse is the error body shape for every handler: a stable
// code clients may switch on, a human message, and the request id for
// correlating with logs.
type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	RequestID string `json:"request_id"`
}

// statusForKind maps a ServiceError's Kind to the HTTP status code,
// following the engine's error taxonomy.
func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindInvalidOperation:
		return http.StatusBadRequest
	case models.KindInsufficientStock:
		return http.StatusConflict
	case models.KindConflict:
		return http.StatusConflict
	case models.KindInvariant:
		return http.StatusConflict
	case models.KindPaymentFailed:
		return http.StatusPaymentRequired
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindUnavailable, models.KindTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err to its HTTP status and writes the standard error
// body.
func writeError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	se := models.AsServiceError(err)
	status := statusForKind(se.Kind)

	if status == http.StatusInternalServerError {
		logger.Error().Err(err).Str("request_id", requestIDFromContext(r)).Msg("internal error")
	}

	resp := errorResponse{RequestID: requestIDFromContext(r)}
	resp.Error.Code = string(se.Kind)
	if status == http.StatusInternalServerError {
		resp.Error.Message = "internal server error"
	} else {
		resp.Error.Message = se.Message
	}

	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func decodeJSON(r *http.Request, out interface{}) error {
	if r.Body == nil {
		return models.NewServiceError(models.KindValidation, "request body is required", nil)
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return models.NewServiceError(models.KindValidation, "malformed request body", err)
	}
	return nil
}
