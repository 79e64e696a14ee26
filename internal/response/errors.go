package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrRefreshInvalid     ErrCode = "REFRESH_TOKEN_INVALID"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrPayloadTooBig  ErrCode = "PAYLOAD_TOO_LARGE"

	// ─── Game ──────────────────────────────────────────────────────────
	ErrLevelNotFound    ErrCode = "LEVEL_NOT_FOUND"
	ErrLevelLocked      ErrCode = "LEVEL_LOCKED"
	ErrLevelNotStarted  ErrCode = "LEVEL_NOT_STARTED"
	ErrLevelNotComplete ErrCode = "LEVEL_NOT_COMPLETED"
	ErrTaskNotFound     ErrCode = "TASK_NOT_FOUND"
	ErrAttemptToken     ErrCode = "ATTEMPT_TOKEN_MISMATCH"
	ErrReplayCooldown   ErrCode = "REPLAY_COOLDOWN"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Username or password is incorrect."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrRefreshInvalid:
		return "The refresh token is invalid or has been revoked."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "The request payload is invalid."
	case ErrPayloadTooBig:
		return "The request payload exceeds the size limit."

	// ─── Game ──────────────────────────────────────────────────────────
	case ErrLevelNotFound:
		return "The level does not exist."
	case ErrLevelLocked:
		return "This level is locked. Complete the previous level first."
	case ErrLevelNotStarted:
		return "The level has not been started."
	case ErrLevelNotComplete:
		return "The level has not been completed yet."
	case ErrTaskNotFound:
		return "The task does not exist."
	case ErrAttemptToken:
		return "The attempt token does not match the current task."
	case ErrReplayCooldown:
		return "The level was replayed recently. Please wait before replaying."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
