package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrAdminAccessOnly   ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrExamNotAvailable ErrCode = "EXAM_NOT_AVAILABLE"
	ErrInvalidAnswer    ErrCode = "INVALID_ANSWER"
	ErrInvalidPosition  ErrCode = "INVALID_POSITION"
	ErrConfirmRequired  ErrCode = "CONFIRM_REQUIRED"
	ErrSubmissionFailed ErrCode = "SUBMISSION_FAILED"
	ErrAlreadySubmitted ErrCode = "ALREADY_SUBMITTED"
	ErrNoSubmission     ErrCode = "NO_SUBMISSION"
	ErrNoActiveSession  ErrCode = "NO_ACTIVE_SESSION"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Email or password is incorrect."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."
	case ErrExamNotFound:
		return "Exam not found."
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrInvalidAnswer:
		return "The selected answer is not valid for this question."
	case ErrInvalidPosition:
		return "Question index is out of range."
	case ErrConfirmRequired:
		return "Unanswered questions remain. Confirm to submit anyway."
	case ErrSubmissionFailed:
		return "The submission could not be recorded. Your progress is saved; please retry."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrNoSubmission:
		return "No submission exists for this exam."
	case ErrNoActiveSession:
		return "No active exam session."
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
