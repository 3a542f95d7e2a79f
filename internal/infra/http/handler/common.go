// Package handler contains the HTTP handlers for the hub API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/apphubio/api/pkg/apierror"
	"github.com/apphubio/api/pkg/pagination"
	"github.com/apphubio/api/pkg/validator"
)

// ListResponse represents a paginated list response.
// This is a generic type that can be reused across all handlers.
type ListResponse[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
}

// newListResponse maps a pagination result to the wire shape, converting
// each element with fn.
func newListResponse[D, R any](res *pagination.Result[D], fn func(D) R) ListResponse[R] {
	data := make([]R, len(res.Data))
	for i, d := range res.Data {
		data[i] = fn(d)
	}
	return ListResponse[R]{
		Data:       data,
		Total:      res.Total,
		Page:       res.Page,
		PerPage:    res.PerPage,
		TotalPages: res.TotalPages,
	}
}

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody decodes the request body into v, rejecting unknown fields.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// handleValidationError writes field-level validation failures as a 400
// response with per-field details.
func handleValidationError(w http.ResponseWriter, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		apiErrors := make([]apierror.ValidationError, len(validationErrors))
		for i, ve := range validationErrors {
			apiErrors[i] = apierror.ValidationError{
				Field:   ve.Field,
				Message: ve.Message,
			}
		}
		apierror.ValidationFailed("Validation failed", apiErrors).WriteJSON(w)
		return
	}
	apierror.BadRequest("Validation error").WriteJSON(w)
}

// trimSentinel strips the sentinel prefix from a wrapped domain error so
// clients see the specific message without the internal classification.
func trimSentinel(err error) string {
	msg := err.Error()
	if idx := strings.Index(msg, ": "); idx != -1 {
		return msg[idx+2:]
	}
	return msg
}

// parseQueryInt parses a query parameter as an integer.
// Returns defaultVal if the input is empty or invalid.
func parseQueryInt(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return val
}

// parseQueryBool parses a query parameter as a boolean pointer.
// Returns nil if the input is empty, otherwise returns a pointer to the
// boolean value. Accepts "true" and "1" as true, anything else as false.
func parseQueryBool(s string) *bool {
	if s == "" {
		return nil
	}
	val := s == "true" || s == "1"
	return &val
}

// parsePageQuery extracts the common page and per_page parameters.
func parsePageQuery(r *http.Request) (page, perPage int) {
	q := r.URL.Query()
	return parseQueryInt(q.Get("page"), 1), parseQueryInt(q.Get("per_page"), 0)
}
