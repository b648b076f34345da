package errors

import (
	"errors"
	"fmt"
	"net/http"

	"paywatch.backend/internal/domain/entities"
)

// Domain errors
var (
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnsupportedNetwork = errors.New("unsupported network")

	// ErrRecordConflict is returned by the persistence layer when a guarded
	// status update matched no rows because the payment already left the
	// pending state. Callers treat it as success-no-op.
	ErrRecordConflict = errors.New("payment status already changed")

	// ErrMalformedRecord marks a single unparseable on-chain record. The
	// record is skipped; it never aborts a scan.
	ErrMalformedRecord = errors.New("malformed on-chain record")
)

// ProviderError is a transient failure talking to a chain RPC or explorer
// API (timeout, rate limit, 5xx, malformed envelope). The affected payment
// stays pending and is retried next cycle.
type ProviderError struct {
	Network entities.Network
	Op      string
	Err     error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Network, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// NewProviderError wraps a transport or envelope failure from a chain provider.
func NewProviderError(network entities.Network, op string, err error) *ProviderError {
	return &ProviderError{Network: network, Op: op, Err: err}
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe)
}

// AssetConfigError is a permanent per-payment fault: the referenced
// network/asset combination is not registered or its configuration is
// unusable. Retrying cannot help without a config change, so the payment
// is moved to the error status immediately.
type AssetConfigError struct {
	Network entities.Network
	Asset   string
	Reason  string
}

func (e *AssetConfigError) Error() string {
	return fmt.Sprintf("asset config %s/%s: %s", e.Network, e.Asset, e.Reason)
}

// NewAssetConfigError creates an AssetConfigError.
func NewAssetConfigError(network entities.Network, asset, reason string) *AssetConfigError {
	return &AssetConfigError{Network: network, Asset: asset, Reason: reason}
}

// IsAssetConfigError reports whether err is (or wraps) an AssetConfigError.
func IsAssetConfigError(err error) bool {
	var ae *AssetConfigError
	return errors.As(err, &ae)
}

// AppError represents an application error with HTTP status
type AppError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError creates a new app error
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func NotFound(message string) *AppError {
	return NewAppError(http.StatusNotFound, message, ErrNotFound)
}

func BadRequest(message string) *AppError {
	return NewAppError(http.StatusBadRequest, message, ErrInvalidInput)
}

func InternalError(err error) *AppError {
	return NewAppError(http.StatusInternalServerError, "internal server error", err)
}
