package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"tenge/internal/core"
	"tenge/internal/services"
)

const maxBodyBytes = 1 << 20 // 1 MiB

// writeResult serializes the service result envelope as JSON using its
// own status code.
func writeResult(w http.ResponseWriter, r *http.Request, res *services.Result) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(res.Status)
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.ErrorContext(r.Context(), "Failed to encode response",
			"error", err,
			"path", r.URL.Path)
	}
}

// writeError translates a service failure into the same envelope shape.
// Untyped errors become an opaque 500 so internals never leak.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := core.StatusOf(err)

	message := "Internal server error"
	var typed *core.Error
	if errors.As(err, &typed) {
		message = typed.Message
	} else if status != http.StatusInternalServerError {
		message = err.Error()
	}

	if status >= 500 {
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"status", status)
	}

	writeResult(w, r, &services.Result{Status: status, Message: message})
}

// decodeBody parses a JSON request body into dst, rejecting unknown
// fields and oversized payloads.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return core.InvalidInput("Request body is empty")
		}
		return core.InvalidInput("Invalid request body: %v", err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return core.InvalidInput("Request body must contain a single JSON object")
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, core.InvalidInput("Invalid id in path")
	}
	return id, nil
}
