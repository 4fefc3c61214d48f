package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"realestate/internal/templates"
)

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

// RenderTemplate renders a full page template with data
func RenderTemplate(w http.ResponseWriter, renderer *templates.Renderer, templateName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.Render(w, templateName, data)
	} else {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><h1>" + templateName + "</h1><p>Templates not loaded. Check configuration.</p></body></html>"))
	}
}

// RenderPartial renders a partial template with data
func RenderPartial(w http.ResponseWriter, renderer *templates.Renderer, partialName string, data map[string]interface{}) {
	if renderer != nil {
		renderer.RenderPartial(w, partialName, data)
	} else {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<div><!-- Partial " + partialName + " not loaded --></div>"))
	}
}

// ErrorResponse sends a plain-text error response
func ErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	logStatus(message, statusCode)
	http.Error(w, message, statusCode)
}

// WriteJSON encodes v as the response body
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// ErrorJSON sends {"error": message}
func ErrorJSON(w http.ResponseWriter, message string, statusCode int) {
	logStatus(message, statusCode)
	WriteJSON(w, statusCode, map[string]string{"error": message})
}

// InternalError logs err and sends a generic 500
func InternalError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}

func logStatus(message string, statusCode int) {
	if statusCode >= 500 {
		slog.Error("request failed", "status", statusCode, "error", message)
	} else {
		slog.Debug("request rejected", "status", statusCode, "error", message)
	}
}

// DecodeJSON reads a JSON request body into v, rejecting unknown fields
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body is empty")
		}
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// ParseFormFloat parses an optional float64 form or query value
func ParseFormFloat(r *http.Request, key string, def float64) (float64, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", key)
	}
	return val, nil
}

// ParseFormInt parses an optional int form or query value
func ParseFormInt(r *http.Request, key string, def int) (int, error) {
	v := r.FormValue(key)
	if v == "" {
		return def, nil
	}
	val, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be an integer", key)
	}
	return val, nil
}

// ParseRequiredFormFloat parses a required float64 form value
func ParseRequiredFormFloat(r *http.Request, key string) (float64, error) {
	v := r.FormValue(key)
	if v == "" {
		return 0, fmt.Errorf("missing required field: %s", key)
	}
	val, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: must be a number", key)
	}
	return val, nil
}
