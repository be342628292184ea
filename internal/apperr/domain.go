package apperr

// Sentinels compared with errors.Is (code-only match, see AppError.Is).
var (
	ErrValidation      = &AppError{Code: CodeInvalidArgument}
	ErrUnauthenticated = &AppError{Code: CodeUnauthenticated}
	ErrForbidden       = &AppError{Code: CodePermissionDenied}
	ErrNotFound        = &AppError{Code: CodeNotFound}
	ErrRateLimited     = &AppError{Code: CodeResourceExhausted}
	ErrStore           = &AppError{Code: CodeInternal}
)

var (
	ErrMissingIdentity  = Unauthenticated("authentication required")
	ErrInvalidUUID      = Validation("identifier must be a well-formed UUID")
	ErrEmptyMessage     = Validation("message content must not be empty")
	ErrSenderMismatch   = Forbidden("sender does not match the authenticated user")
	ErrNotParticipant   = Forbidden("caller is not a participant of this conversation")
	ErrReceiverNotFound = NotFound("receiver not found")
	ErrTooManyRequests  = RateLimited("rate limit exceeded")
	ErrUserNotFound     = NotFound("user not found")
	ErrItemNotFound     = NotFound("item not found")
	ErrNotItemOwner     = Forbidden("only the seller can modify this item")
	ErrCampusOnly       = Forbidden("account does not belong to an allowed campus")
	ErrBadCredentials   = Unauthenticated("invalid credentials")
)
