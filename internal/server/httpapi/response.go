package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/cloudconfig/internal/common"
	"github.com/dmitrijs2005/cloudconfig/internal/logging"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(payload)
}

// mapError turns a service error into a status and the message shown to the
// caller. Internal failures never leak their text.
func mapError(err error) (int, string) {
	switch common.KindOf(err) {
	case common.KindUnauthorized:
		return http.StatusUnauthorized, "unauthorized"
	case common.KindForbidden:
		return http.StatusForbidden, "forbidden"
	case common.KindValidation:
		return http.StatusBadRequest, err.Error()
	case common.KindConflict:
		return http.StatusConflict, err.Error()
	case common.KindNotFound:
		return http.StatusNotFound, err.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	status, msg := mapError(err)
	if status == http.StatusInternalServerError {
		logger.Error(ctx, "request failed", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON object from r, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", common.ErrorValidation)
	}
	return nil
}
