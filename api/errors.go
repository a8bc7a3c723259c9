package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/ruteri/entropy-vault/interfaces"
)

// maxBodySize is the maximum allowed request body size (1MB).
const maxBodySize = 1024 * 1024

// RequestError provides structured error information for HTTP responses.
// It includes both an HTTP status code and the underlying error.
type RequestError struct {
	// StatusCode is the HTTP status code to return.
	StatusCode int

	// Err is the underlying error.
	Err error
}

// Error returns the error message from the underlying error.
func (e *RequestError) Error() string {
	return e.Err.Error()
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

type domainError struct {
	err    error
	status int
	code   string
}

var domainErrors = []domainError{
	{interfaces.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{interfaces.ErrInsufficientFee, http.StatusPaymentRequired, "insufficient_fee"},
	{interfaces.ErrUnknownRequest, http.StatusNotFound, "unknown_request"},
	{interfaces.ErrKeyNotInitialized, http.StatusNotFound, "key_not_initialized"},
	{interfaces.ErrAlreadyFulfilled, http.StatusConflict, "already_fulfilled"},
	{interfaces.ErrKeyAlreadyInitialized, http.StatusConflict, "key_already_initialized"},
	{interfaces.ErrAlreadyInitialized, http.StatusConflict, "seed_already_initialized"},
	{interfaces.ErrNotFulfilled, http.StatusTooEarly, "not_fulfilled"},
	{interfaces.ErrEntropyNotReady, http.StatusTooEarly, "entropy_not_ready"},
	{interfaces.ErrSeedNotInitialized, http.StatusTooEarly, "seed_not_initialized"},
	{interfaces.ErrEmptyBatch, http.StatusBadRequest, "empty_batch"},
	{interfaces.ErrLengthMismatch, http.StatusBadRequest, "length_mismatch"},
	{interfaces.ErrInvalidFee, http.StatusBadRequest, "invalid_fee"},
	{interfaces.ErrEmptyValue, http.StatusBadRequest, "empty_value"},
	{interfaces.ErrInvalidProof, http.StatusUnprocessableEntity, "invalid_proof"},
}

// StatusFor maps a domain error to its HTTP status and code. Unrecognized
// errors are internal.
func StatusFor(err error) (int, string) {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode, ""
	}
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			return de.status, de.code
		}
	}
	return http.StatusInternalServerError, ""
}

// WriteError writes err as an ErrorResponse with the status StatusFor picks.
func WriteError(w http.ResponseWriter, log *slog.Logger, err error) {
	status, code := StatusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "err", err)
	}
	WriteJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON reads a bounded JSON body into v.
func DecodeJSON(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("could not read body: %w", err)}
	}
	if len(body) > maxBodySize {
		return &RequestError{StatusCode: http.StatusRequestEntityTooLarge, Err: errors.New("request body too large")}
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf("invalid request body: %w", err)}
	}
	return nil
}

// BadRequest wraps err as a 400.
func BadRequest(format string, args ...any) error {
	return &RequestError{StatusCode: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// ReadError turns a non-2xx response into an error. Known codes wrap the
// matching domain error, so errors.Is works across the wire.
func ReadError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))

	var errResp ErrorResponse
	if json.Unmarshal(body, &errResp) != nil || errResp.Error == "" {
		errResp.Error = string(body)
	}

	for _, de := range domainErrors {
		if de.code != "" && de.code == errResp.Code {
			return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: %s", de.err, errResp.Error)}
		}
	}
	return &RequestError{StatusCode: resp.StatusCode, Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, errResp.Error)}
}
