package errors

import (
	"errors"
	"net/http"
)

var (
	NotFound            = HttpError{Code: http.StatusNotFound, Err: errors.New("not found")}
	BadRequest          = HttpError{Code: http.StatusBadRequest, Err: errors.New("bad request")}
	InternalServerError = HttpError{Code: http.StatusInternalServerError, Err: errors.New("internal server error")}

	// Format is returned for malformed data URIs, base64 payloads and request bodies
	Format = HttpError{Code: http.StatusInternalServerError, Err: errors.New("format error")}
	// UnsupportedType is returned when an attachment mime type has no known extension
	UnsupportedType = HttpError{Code: http.StatusInternalServerError, Err: errors.New("unsupported type")}
	// Upstream is returned when the spreadsheet gateway fails to read, write or append
	Upstream = HttpError{Code: http.StatusInternalServerError, Err: errors.New("upstream error")}
)

type HttpError struct {
	Code    int
	Message string
	Err     error
}

func (h HttpError) Unwrap() error {
	return h.Err
}

func (h HttpError) Error() string {
	return h.Err.Error()
}

// WithMessage returns an error which is rendered with the given response message
func WithMessage(code int, message string, err error) error {
	return HttpError{Code: code, Message: message, Err: err}
}
