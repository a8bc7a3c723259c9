package api

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/entropy-vault/interfaces"
)

// Headers carried by signed requests.
const (
	CallerAddressHeader   = "X-Caller-Address"
	CallerSignatureHeader = "X-Caller-Signature"
	CallerTimestampHeader = "X-Caller-Timestamp"

	// DefaultMaxSignatureAge is used when the server config leaves it unset.
	DefaultMaxSignatureAge = 5 * time.Minute
)

type callerKey struct{}

// CallerFrom returns the authenticated caller stored by Authenticate.
func CallerFrom(ctx context.Context) (interfaces.Identity, bool) {
	id, ok := ctx.Value(callerKey{}).(interfaces.Identity)
	return id, ok
}

// WithCaller stores an authenticated caller in ctx.
func WithCaller(ctx context.Context, caller interfaces.Identity) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// SigningHash is the EIP-191 personal-message hash a caller signs:
// keccak256(method ‖ path ‖ timestamp ‖ keccak256(body)), prefixed.
func SigningHash(method, path string, timestamp int64, body []byte) []byte {
	inner := crypto.Keccak256(
		[]byte(method),
		[]byte(path),
		[]byte(strconv.FormatInt(timestamp, 10)),
		crypto.Keccak256(body),
	)
	return accounts.TextHash(inner)
}

// SignRequest adds caller authentication headers to req.
func SignRequest(req *http.Request, key *ecdsa.PrivateKey, now time.Time) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return fmt.Errorf("failed to read request body: %w", err)
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}

	timestamp := now.Unix()
	sig, err := crypto.Sign(SigningHash(req.Method, req.URL.Path, timestamp, body), key)
	if err != nil {
		return fmt.Errorf("failed to sign request: %w", err)
	}

	req.Header.Set(CallerAddressHeader, crypto.PubkeyToAddress(key.PublicKey).Hex())
	req.Header.Set(CallerTimestampHeader, strconv.FormatInt(timestamp, 10))
	req.Header.Set(CallerSignatureHeader, hexutil.Encode(sig))
	return nil
}

// Authenticator verifies signed requests.
type Authenticator struct {
	maxAge time.Duration
	log    *slog.Logger
	now    func() time.Time
}

func NewAuthenticator(maxAge time.Duration, log *slog.Logger) *Authenticator {
	if maxAge <= 0 {
		maxAge = DefaultMaxSignatureAge
	}
	return &Authenticator{maxAge: maxAge, log: log, now: time.Now}
}

// Verify recovers the signer of r and checks it matches the claimed address.
// The body is restored for later handlers.
func (a *Authenticator) Verify(r *http.Request) (interfaces.Identity, error) {
	claimed := r.Header.Get(CallerAddressHeader)
	sigHex := r.Header.Get(CallerSignatureHeader)
	tsStr := r.Header.Get(CallerTimestampHeader)
	if claimed == "" || sigHex == "" || tsStr == "" {
		return interfaces.Identity{}, errors.New("missing caller authentication headers")
	}

	caller, err := interfaces.NewIdentityFromHex(claimed)
	if err != nil {
		return interfaces.Identity{}, fmt.Errorf("invalid caller address: %w", err)
	}

	timestamp, err := strconv.ParseInt(tsStr, 10, 64)
	if err != nil {
		return interfaces.Identity{}, fmt.Errorf("invalid timestamp: %w", err)
	}
	if skew := a.now().Sub(time.Unix(timestamp, 0)); skew > a.maxAge || skew < -a.maxAge {
		return interfaces.Identity{}, fmt.Errorf("signature timestamp outside of %s window", a.maxAge)
	}

	sig, err := hexutil.Decode(sigHex)
	if err != nil || len(sig) != crypto.SignatureLength {
		return interfaces.Identity{}, errors.New("invalid signature encoding")
	}
	// Wallets produce v in {27, 28}.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	var body []byte
	if r.Body != nil {
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		if err != nil {
			return interfaces.Identity{}, fmt.Errorf("failed to read request body: %w", err)
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	pubkey, err := crypto.SigToPub(SigningHash(r.Method, r.URL.Path, timestamp, body), sig)
	if err != nil {
		return interfaces.Identity{}, fmt.Errorf("could not recover signer: %w", err)
	}
	if interfaces.Identity(crypto.PubkeyToAddress(*pubkey)) != caller {
		return interfaces.Identity{}, errors.New("signature does not match caller address")
	}
	return caller, nil
}

// Middleware rejects unsigned requests with 401 and stores the caller in the
// request context otherwise.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, err := a.Verify(r)
		if err != nil {
			a.log.Warn("Authentication failed", "path", r.URL.Path, "err", err)
			WriteError(w, a.log, &RequestError{StatusCode: http.StatusUnauthorized, Err: err})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
	})
}

// RequireCaller returns the caller Middleware authenticated.
func RequireCaller(r *http.Request) (interfaces.Identity, error) {
	caller, ok := CallerFrom(r.Context())
	if !ok {
		return interfaces.Identity{}, &RequestError{StatusCode: http.StatusUnauthorized, Err: errors.New("unauthenticated request")}
	}
	return caller, nil
}
