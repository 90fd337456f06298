package web

// errors.go maps pipeline errors onto JSON responses. The technical error is
// logged server-side with the request id; the client sees the catalogued
// user-facing message, action, and code.

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledgerflow/internal/errs"
	"ledgerflow/internal/ingest"
	"ledgerflow/internal/logging"
)

// ErrorResponse is the JSON body for every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := errs.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// statusFor picks an HTTP status from the error taxonomy: client-side
// format problems are 422, timeouts 504, capacity 429, the rest 500.
func statusFor(err error) int {
	switch {
	case errs.IsFormat(err):
		return http.StatusUnprocessableEntity
	case errs.IsTimeout(err):
		return http.StatusGatewayTimeout
	case errors.Is(err, ingest.ErrTooManyJobs):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
