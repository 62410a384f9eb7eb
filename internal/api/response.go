// Package api holds the JSON envelope every endpoint answers with and the
// single mapping from error kinds to HTTP status codes.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"unicode"
	"unicode/utf8"

	"spendwise/internal/apperr"
	"spendwise/internal/logging"
)

// Body is the response envelope. Endpoint payload keys are merged in by
// passing a map to JSON instead.
type Body struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Errors  []string `json:"errors,omitempty"`
	Error   string   `json:"error,omitempty"`
}

type M map[string]any

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope with payload merged in.
func OK(w http.ResponseWriter, status int, message string, payload M) {
	body := M{"success": true}
	if message != "" {
		body["message"] = message
	}
	for k, v := range payload {
		body[k] = v
	}
	JSON(w, status, body)
}

func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindUnauthenticated, apperr.KindTokenExpired, apperr.KindInvalidCredentials:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindDuplicateIdentity:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Errors renders failures. Internal detail is only exposed when Debug is set.
type Errors struct {
	Logger *slog.Logger
	Debug  bool
}

func (e Errors) Write(w http.ResponseWriter, r *http.Request, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		ae = apperr.Internal("Internal server error", err)
	}
	status := StatusFor(ae.Kind)
	body := Body{Success: false, Message: ae.Message, Errors: ae.Fields}
	if body.Message == "" {
		body.Message = http.StatusText(status)
	}

	if status >= http.StatusInternalServerError {
		if e.Logger != nil {
			e.Logger.ErrorContext(r.Context(), "request failed",
				"request_id", logging.RequestID(r.Context()),
				"method", r.Method, "path", r.URL.Path, "err", err)
		}
		if e.Debug && ae.Err != nil {
			body.Error = ae.Err.Error()
		}
	}
	JSON(w, status, body)
}

const maxBody = 1 << 20

// Decode reads a JSON request body into dst, rejecting unknown trailing data.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation([]string{"Request body is required"})
		}
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		var te *json.UnmarshalTypeError
		if errors.As(err, &te) {
			if te.Field == "" {
				return apperr.Validation([]string{"Request body must be a JSON object"})
			}
			return apperr.Validation([]string{fmt.Sprintf("%s must be %s", fieldLabel(te.Field), jsonType(te.Type))})
		}
		return apperr.Validation([]string{"Request body must be valid JSON"})
	}
	if dec.More() {
		return apperr.Validation([]string{"Request body must contain a single JSON object"})
	}
	return nil
}

func fieldLabel(path string) string {
	r, n := utf8.DecodeRuneInString(path)
	return string(unicode.ToUpper(r)) + path[n:]
}

func jsonType(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "a string"
	case reflect.Bool:
		return "a boolean"
	case reflect.Slice, reflect.Array:
		return "a list"
	case reflect.Map, reflect.Struct:
		return "an object"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "a number"
	default:
		return "a " + t.String()
	}
}
