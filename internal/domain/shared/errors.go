package shared

// DomainError represents a domain-level error with a stable machine code
// and an operator-facing message. The message is the only thing surfaced to
// callers; raw causes stay server-side.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound        = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists   = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput    = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState    = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrNotConfigured   = NewDomainError("NOT_CONFIGURED", "No configuration exists for this vendor and scope")
	ErrAlreadyRunning  = NewDomainError("ALREADY_RUNNING", "A sync run is already in progress for this vendor and scope")
	ErrStuckRun        = NewDomainError("STUCK_RUN", "Sync run exceeded its maximum duration and requires an explicit reset")
	ErrEmptyFeed       = NewDomainError("EMPTY_FEED", "Fetched feed is empty; rejected to avoid mass deletion")
	ErrMalformedFeed   = NewDomainError("MALFORMED_FEED", "Fetched feed does not parse as a tabular feed")
	ErrFeedAuth        = NewDomainError("FEED_AUTH_FAILED", "Vendor endpoint rejected the configured credentials")
	ErrFeedConnection  = NewDomainError("FEED_CONNECTION_FAILED", "Vendor endpoint could not be reached")
	ErrFeedNotFound    = NewDomainError("FEED_NOT_FOUND", "Vendor endpoint has no feed at the configured location")
	ErrRunNotResetable = NewDomainError("RUN_NOT_RESETABLE", "Only a stuck run can be reset to idle")
)
