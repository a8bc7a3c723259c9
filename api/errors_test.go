package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/entropy-vault/interfaces"
	"github.com/stretchr/testify/assert"
)

func hexDecode(s string) ([]byte, error) { return hexutil.Decode(s) }
func hexEncode(b []byte) string          { return hexutil.Encode(b) }

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("wrapped: %w", interfaces.ErrUnknownRequest), http.StatusNotFound},
		{interfaces.ErrKeyAlreadyInitialized, http.StatusConflict},
		{interfaces.ErrEntropyNotReady, http.StatusTooEarly},
		{interfaces.ErrLengthMismatch, http.StatusBadRequest},
		{interfaces.ErrInvalidFee, http.StatusBadRequest},
		{fmt.Errorf("fulfill: %w", interfaces.ErrEmptyValue), http.StatusBadRequest},
		{interfaces.ErrUnauthorized, http.StatusForbidden},
		{interfaces.ErrInvalidProof, http.StatusUnprocessableEntity},
		{&RequestError{StatusCode: http.StatusTeapot, Err: errors.New("x")}, http.StatusTeapot},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		status, _ := StatusFor(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
	}
}

func TestReadError_RoundTrip(t *testing.T) {
	for _, de := range domainErrors {
		w := httptest.NewRecorder()
		WriteError(w, silentLogger(), fmt.Errorf("entry 2: %w", de.err))

		err := ReadError(w.Result())
		assert.ErrorIs(t, err, de.err, de.code)

		var reqErr *RequestError
		if assert.True(t, errors.As(err, &reqErr)) {
			assert.Equal(t, de.status, reqErr.StatusCode)
		}
	}

	w := httptest.NewRecorder()
	WriteError(w, silentLogger(), errors.New("boom"))
	err := ReadError(w.Result())
	assert.Contains(t, err.Error(), "boom")
}
