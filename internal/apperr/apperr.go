// Package apperr is the single place where failures become HTTP responses.
//
// Handlers and services return plain Go errors. Errors that already know
// their HTTP status are *Error values; anything else is treated as an
// internal fault, logged server side and replaced by a generic message so
// that no internal detail ever reaches the response body.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/evyataryagoni/geoip-service/internal/logger"
	"github.com/evyataryagoni/geoip-service/internal/models"
)

// Fixed, caller-facing messages
const (
	MsgInvalidIP = "Ошибка формата ip"
	MsgNotFound  = "Нет данных по этому ip"
	MsgInternal  = "Ошибка сервера"
)

const (
	defaultTitle   = "Error"
	unknownRequest = "Unknown request"
)

// Error is an error that carries its own HTTP status and caller-facing detail.
// Detail is usually a string but may be any JSON encodable value.
type Error struct {
	Status int
	Detail any
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %v", e.Status, e.Detail)
}

// New creates an Error with the given status and detail
func New(status int, detail any) *Error {
	return &Error{Status: status, Detail: detail}
}

// Validation is returned when the IP candidate is absent or malformed
func Validation() *Error {
	return New(http.StatusBadRequest, MsgInvalidIP)
}

// NotFound is returned when the datastore has no record for a valid IP
func NotFound() *Error {
	return New(http.StatusNotFound, MsgNotFound)
}

// Internal is the only shape an unexpected failure is ever exposed as
func Internal() *Error {
	return New(http.StatusInternalServerError, MsgInternal)
}

// Translator converts arbitrary errors into *Error and renders them
type Translator struct {
	logger *logger.Logger
}

// NewTranslator creates a translator. A nil logger discards output.
func NewTranslator(log *logger.Logger) *Translator {
	if log == nil {
		log = logger.Nop()
	}
	return &Translator{logger: log.WithComponent("ErrorTranslator")}
}

// Translate maps err to an *Error.
// Errors that already are (or wrap) an *Error come back unchanged.
// Every other error is logged at fatal level and becomes Internal().
func (t *Translator) Translate(err error) *Error {
	if err == nil {
		return nil
	}

	var known *Error
	if errors.As(err, &known) {
		return known
	}

	// WithLevel does not exit the process the way Fatal() does
	t.logger.WithLevel(zerolog.FatalLevel).Err(err).Msg("Unexpected error")
	return Internal()
}

// Response builds the error envelope for r
func Response(e *Error, r *http.Request) models.ErrorResponse {
	title := http.StatusText(e.Status)
	if title == "" {
		title = defaultTitle
	}

	pointer := unknownRequest
	if r != nil && r.URL != nil {
		if uri := r.URL.RequestURI(); uri != "" {
			pointer = uri
		}
	}

	return models.ErrorResponse{
		Status: e.Status,
		Title:  title,
		Detail: e.Detail,
		Source: models.ErrorPointer{Pointer: pointer},
	}
}

// Render translates err and writes the envelope as JSON
func (t *Translator) Render(w http.ResponseWriter, r *http.Request, err error) {
	e := t.Translate(err)
	if e == nil {
		e = Internal()
	}
	Write(w, r, e)
}

// Write writes e as a JSON envelope without logging
func Write(w http.ResponseWriter, r *http.Request, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	_ = json.NewEncoder(w).Encode(Response(e, r))
}
