package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmehra2102/storefront/pkg/apperr"
)

const maxBody = 1 << 20

type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// Decode reads a JSON body into v. Malformed bodies become a ValidationError.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("request body is required")
		}
		return apperr.Validation("invalid request body: " + err.Error())
	}
	return nil
}

// WriteError maps the error taxonomy onto status codes. Anything unknown is
// logged and answered with a generic 500.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status, body := classify(err)
	if status == http.StatusInternalServerError {
		log.Error("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
	}
	WriteJSON(w, status, body)
}

func classify(err error) (int, errorBody) {
	var (
		validation *apperr.ValidationError
		notFound   *apperr.NotFoundError
		stock      *apperr.StockError
		transition *apperr.InvalidTransitionError
		denied     *apperr.AccessDeniedError
		conflict   *apperr.ConflictError
		unauth     *apperr.UnauthenticatedError
	)
	switch {
	case errors.As(err, &validation):
		return http.StatusBadRequest, errorBody{Error: "Validation failed", Details: validation.Details}
	case errors.As(err, &stock):
		return http.StatusBadRequest, errorBody{Error: "Insufficient stock", Details: stock.Shortages}
	case errors.As(err, &transition):
		return http.StatusBadRequest, errorBody{Error: transition.Error(), Details: map[string]string{"from": transition.From, "to": transition.To}}
	case errors.As(err, &notFound):
		var details any
		if len(notFound.IDs) > 0 {
			details = notFound.IDs
		}
		return http.StatusNotFound, errorBody{Error: notFound.Error(), Details: details}
	case errors.As(err, &denied):
		return http.StatusForbidden, errorBody{Error: denied.Error()}
	case errors.As(err, &unauth):
		return http.StatusUnauthorized, errorBody{Error: unauth.Error()}
	case errors.As(err, &conflict):
		return http.StatusConflict, errorBody{Error: conflict.Error()}
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal server error"}
	}
}

// Authenticator wraps routes that need a caller identity. Optional lets
// anonymous requests through but still attaches an identity when a valid
// credential is present.
type Authenticator interface {
	Require(next http.Handler) http.Handler
	Optional(next http.Handler) http.Handler
}
