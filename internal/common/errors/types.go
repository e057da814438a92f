package errors

import (
	"fmt"
	"strings"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrTypeValidation represents validation errors
	ErrTypeValidation ErrorType = "validation"
	// ErrTypeConfig represents configuration errors
	ErrTypeConfig ErrorType = "config"
	// ErrTypeAuth represents authentication errors
	ErrTypeAuth ErrorType = "authentication"
	// ErrTypeNotFound represents resource not found errors
	ErrTypeNotFound ErrorType = "not_found"
	// ErrTypeInternal represents internal system errors
	ErrTypeInternal ErrorType = "internal"
	// ErrTypeTimeout represents timeout errors
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeMissingCode means an OAuth callback arrived without an authorization code
	ErrTypeMissingCode ErrorType = "missing_code"
	// ErrTypeStateMismatch means the callback state was absent, unknown, or already used
	ErrTypeStateMismatch ErrorType = "state_mismatch"
	// ErrTypeTokenExchange means the provider rejected a code exchange or refresh
	ErrTypeTokenExchange ErrorType = "token_exchange"
	// ErrTypeAuthorizationExpired means stored credentials are unusable and the user
	// must go through the consent flow again
	ErrTypeAuthorizationExpired ErrorType = "authorization_expired"
	// ErrTypeTransientProvider represents retryable upstream failures (5xx, timeouts)
	ErrTypeTransientProvider ErrorType = "transient_provider"
	// ErrTypeCorruptStore means persisted credential data could not be decoded
	ErrTypeCorruptStore ErrorType = "corrupt_store"
	// ErrTypeDuplicate means a uniqueness constraint was violated
	ErrTypeDuplicate ErrorType = "duplicate"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType              `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	parts := []string{string(e.Type), e.Message}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause=%v", e.Cause))
	}

	if len(e.Context) > 0 {
		contextParts := make([]string, 0, len(e.Context))
		for k, v := range e.Context {
			contextParts = append(contextParts, fmt.Sprintf("%s=%v", k, v))
		}
		parts = append(parts, fmt.Sprintf("context={%s}", strings.Join(contextParts, ", ")))
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithCode adds an error code
func (e *AppError) WithCode(code string) *AppError {
	e.Code = code
	return e
}

// ValidationError creates a new validation error
func ValidationError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeValidation,
		Message: msg,
	}
}

// ConfigError creates a new configuration error
func ConfigError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeConfig,
		Message: msg,
	}
}

// AuthError creates a new authentication error
func AuthError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuth,
		Message: msg,
	}
}

// NotFoundError creates a new not found error
func NotFoundError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
	}
}

// InternalError creates a new internal error
func InternalError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeInternal,
		Message: msg,
		Cause:   cause,
	}
}

// TimeoutError creates a new timeout error
func TimeoutError(operation string) *AppError {
	return &AppError{
		Type:    ErrTypeTimeout,
		Message: fmt.Sprintf("timeout during %s", operation),
	}
}

// MissingCodeError creates an error for a callback with no authorization code
func MissingCodeError() *AppError {
	return &AppError{
		Type:    ErrTypeMissingCode,
		Message: "authorization callback did not include a code",
	}
}

// StateMismatchError creates an error for an invalid or replayed state token
func StateMismatchError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeStateMismatch,
		Message: msg,
	}
}

// TokenExchangeError creates an error for a provider-rejected exchange or refresh
func TokenExchangeError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTokenExchange,
		Message: msg,
		Cause:   cause,
	}
}

// AuthorizationExpiredError creates an error signalling that reauthorization is required
func AuthorizationExpiredError(msg string) *AppError {
	return &AppError{
		Type:    ErrTypeAuthorizationExpired,
		Message: msg,
	}
}

// TransientProviderError creates an error for a retryable upstream failure
func TransientProviderError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeTransientProvider,
		Message: msg,
		Cause:   cause,
	}
}

// CorruptStoreError creates an error for undecodable persisted credentials
func CorruptStoreError(msg string, cause error) *AppError {
	return &AppError{
		Type:    ErrTypeCorruptStore,
		Message: msg,
		Cause:   cause,
	}
}

// DuplicateError creates a new duplicate resource error
func DuplicateError(resource string) *AppError {
	return &AppError{
		Type:    ErrTypeDuplicate,
		Message: fmt.Sprintf("%s already exists", resource),
	}
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if err == nil {
		return false
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	return appErr.Type == errType
}

// GetType returns the error type if it's an AppError, otherwise returns ErrTypeInternal
func GetType(err error) ErrorType {
	if err == nil {
		return ""
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return ErrTypeInternal
	}

	return appErr.Type
}

// WithReauthorization marks the error as requiring the consent flow again
func (e *AppError) WithReauthorization() *AppError {
	return e.WithContext("reauthorize_required", true)
}

// RequiresReauthorization reports whether the error means stored credentials are
// unusable and the consent flow must be repeated
func RequiresReauthorization(err error) bool {
	if IsType(err, ErrTypeAuthorizationExpired) {
		return true
	}

	appErr, ok := err.(*AppError)
	if !ok {
		return false
	}

	required, ok := appErr.Context["reauthorize_required"].(bool)
	return ok && required
}
