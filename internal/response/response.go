// Package response writes the uniform JSON envelope returned by every endpoint.
//
// SUCCESS SHAPE:
//
//	{"statusCode":200,"data":{...},"message":"Video fetched successfully","success":true}
//
// ERROR SHAPE (same keys plus "errors"):
//
//	{"statusCode":404,"data":null,"message":"video not found with id abc","success":false,"errors":[]}
//
// success is always statusCode < 400. Domain errors from the service layer are
// mapped to status codes here, in one place.
package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/sakif/videotube/internal/apperror"
	"github.com/sakif/videotube/internal/logging"
)

// Envelope is the body of every successful response.
type Envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// Empty is used as data where the response carries no payload, encoding as {}.
var Empty = struct{}{}

const internalMessage = "Something went wrong"

// JSON writes data wrapped in the success envelope.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	write(w, r, status, Envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
}

// Error maps err onto a status code and writes the error envelope.
//
// *apperror.AppError values keep their message. Oversized bodies become 413.
// Anything else is an unexpected failure: it is logged with the request's
// logger and the client only sees a generic 500 message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status, message, details := Classify(err)

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	} else {
		logger.Warn("request returned client error",
			slog.Int("status", status),
			slog.String("message", message),
		)
	}

	if details == nil {
		details = []string{}
	}

	write(w, r, status, ErrorEnvelope{
		StatusCode: status,
		Data:       nil,
		Message:    message,
		Success:    false,
		Errors:     details,
	})
}

// Classify returns the HTTP status, client-facing message and error details for err.
func Classify(err error) (int, string, []string) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return http.StatusRequestEntityTooLarge, "Request body too large", nil
	}

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError, internalMessage, nil
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrRateLimited):
		status = http.StatusTooManyRequests
	}

	message := appErr.Message
	if message == "" {
		message = internalMessage
	}
	return status, message, appErr.Details
}

func write(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; all we can do is record it.
		logging.FromContext(r.Context()).Error("failed to encode JSON response",
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}
}
