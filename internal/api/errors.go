package api

import (
	"encoding/json"
	"net/http"

	"statusgen/internal/errors"
	"statusgen/internal/logging"
)

// ErrorResponse is what untrusted callers see: a generic message and an
// opaque tracking id. The real error text only goes to the server log.
type ErrorResponse struct {
	Error      string `json:"error"`
	Code       string `json:"code"`
	TrackingID string `json:"trackingId,omitempty"`
}

// WriteStatusError logs err in full and writes its caller-safe rendering
// with the mapped HTTP status.
func WriteStatusError(w http.ResponseWriter, logger *logging.Logger, err error) {
	se := errors.AsStatus(err)
	logger.Error("Request failed", map[string]interface{}{
		"code":       string(se.Code),
		"trackingId": se.TrackingID,
		"error":      se.Error(),
	})

	WriteJSON(w, ErrorResponse{
		Error:      errors.PublicMessage(se.Code),
		Code:       string(se.Code),
		TrackingID: se.TrackingID,
	}, statusOf(se.Code))
}

// statusOf maps error codes to HTTP status codes
func statusOf(code errors.ErrorCode) int {
	switch code {
	case errors.InvalidRequest:
		return http.StatusBadRequest // 400
	case errors.RateLimited:
		return http.StatusTooManyRequests // 429
	case errors.UpstreamUnavailable:
		return http.StatusBadGateway // 502
	case errors.SummarizerFailed:
		return http.StatusBadGateway // 502
	case errors.MissingCredentials:
		return http.StatusServiceUnavailable // 503
	case errors.Timeout:
		return http.StatusGatewayTimeout // 504
	case errors.InternalError:
		return http.StatusInternalServerError // 500
	default:
		return http.StatusInternalServerError // 500
	}
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
