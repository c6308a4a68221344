package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/robalyx/imagegate/internal/database/types"
	restTypes "github.com/robalyx/imagegate/internal/rest/types"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// writeJSON writes value with the given status code.
func writeJSON(w http.ResponseWriter, status int, value any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return bunrouter.JSON(w, value)
}

// writeError maps a domain error onto an HTTP status.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) error {
	status, code := http.StatusInternalServerError, "internal"

	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		status, code = http.StatusRequestEntityTooLarge, "too_large"
	case errors.Is(err, types.ErrValidation):
		status, code = http.StatusBadRequest, "validation"
	case errors.Is(err, types.ErrDecode):
		status, code = http.StatusUnprocessableEntity, "decode"
	case errors.Is(err, types.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrConflict):
		status, code = http.StatusConflict, "conflict"
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		logger.Error("Request failed", zap.Error(err))
		msg = "internal server error"
	}

	return writeJSON(w, status, restTypes.ErrorResponse{Error: msg, Code: code})
}

// forbidden rejects a caller that may not see a resource.
func forbidden(w http.ResponseWriter) error {
	return writeJSON(w, http.StatusForbidden, restTypes.ErrorResponse{Error: "access denied", Code: "forbidden"})
}

// decodeJSON reads a bounded request body into v.
func decodeJSON(w http.ResponseWriter, req bunrouter.Request, maxBytes int64, v any) error {
	body := http.MaxBytesReader(w, req.Body, maxBytes)
	defer body.Close()

	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		return fmt.Errorf("%w: empty request body", types.ErrValidation)
	}
	if err := sonic.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: invalid request body: %w", types.ErrValidation, err)
	}
	return nil
}
