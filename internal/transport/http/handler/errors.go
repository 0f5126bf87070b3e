package handler

// Client-facing messages. Internal error text is logged, never returned.
const (
	errInvalidRequest   = "Invalid request"
	errEmailRequired    = "Email required"
	errEmailInvalid     = "Invalid email address"
	errDomainNotAllowed = "Email domain not allowed"
	errRecentlySent     = "Magic link recently sent. Check your email or wait."
	errSendFailed       = "Failed to send email. Please try again."
	errMissingToken     = "Missing token"
	errTokenInvalid     = "Invalid or expired token"
	errLinkInvalid      = "Invalid or expired link"
	errEntityRequired   = "Entity is required"
	errUnauthorized     = "Unauthorized"
	errInternalServer   = "Internal server error"
)
