package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Venue / Transport Errors (retryable from the caller's perspective)
	ErrExchangeUnavailable   = errors.New("exchange API is unavailable")
	ErrConnectionFailed      = errors.New("failed to connect to the exchange")
	ErrRateLimited           = errors.New("API rate limit exceeded")
	ErrAuthenticationFailed  = errors.New("exchange authentication failed (check API keys)")
	ErrInsufficientFunds     = errors.New("insufficient funds for operation")
	ErrOrderNotFound         = errors.New("order not found on the exchange")
	ErrPositionNotFound      = errors.New("position not found on the exchange")
	ErrPositionAlreadyExists = errors.New("an active position already occupies the trade slot")
	ErrOrderPlacementFailed  = errors.New("failed to place order")

	// Reconciliation Errors
	// ErrEntryFillNotFound: the venue accepted the order but reported no fill
	// within the bounded polling window; the requested price is used instead.
	ErrEntryFillNotFound = errors.New("entry fill not reported in time")
	// ErrExitFillNotFound: the position is confirmed flat but no execution
	// after the trade's watermark matches the closing side. Callers must fall
	// back to a synthetic exit price rather than guessing here.
	ErrExitFillNotFound = errors.New("no matching exit fill found for flat position")

	// Database Specific Errors
	ErrDBConnection = errors.New("database connection error")
	ErrQueryFailed  = errors.New("database query failed")
	ErrUpdateFailed = errors.New("database update failed")
)
