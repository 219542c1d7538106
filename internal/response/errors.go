package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation          ErrCode = "VALIDATION_ERROR"
	ErrInvalidID           ErrCode = "INVALID_ID"
	ErrInvalidPayload      ErrCode = "INVALID_PAYLOAD"
	ErrStudentNameRequired ErrCode = "STUDENT_NAME_REQUIRED"
	ErrUnknownSection      ErrCode = "UNKNOWN_SECTION"
	ErrInvalidAnswer       ErrCode = "INVALID_ANSWER"

	// ─── Session ───────────────────────────────────────────────────────
	ErrSessionNotFound   ErrCode = "SESSION_NOT_FOUND"
	ErrSessionClosed     ErrCode = "SESSION_CLOSED"
	ErrNavigationRefused ErrCode = "NAVIGATION_REFUSED"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"

	// ─── Submission ────────────────────────────────────────────────────
	ErrSubmissionInFlight ErrCode = "SUBMISSION_IN_FLIGHT"
	ErrSubmissionNetwork  ErrCode = "SUBMISSION_NETWORK_ERROR"
	ErrSubmissionServer   ErrCode = "SUBMISSION_SERVER_ERROR"

	// ─── Exam content ──────────────────────────────────────────────────
	ErrExamNotAvailable   ErrCode = "EXAM_NOT_AVAILABLE"
	ErrInvalidExamContent ErrCode = "INVALID_EXAM_CONTENT"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validierung fehlgeschlagen. Bitte überprüfen Sie Ihre Eingaben."
	case ErrInvalidID:
		return "Ungültiges ID-Format."
	case ErrInvalidPayload:
		return "Ungültige Anfragedaten."
	case ErrStudentNameRequired:
		return "Bitte geben Sie Ihren Namen ein."
	case ErrUnknownSection:
		return "Unbekannter Prüfungsteil."
	case ErrInvalidAnswer:
		return "Ungültige Antwort."

	// ─── Session ───────────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Prüfungssitzung nicht gefunden."
	case ErrSessionClosed:
		return "Die Prüfungssitzung wurde beendet."
	case ErrNavigationRefused:
		return "Dieser Prüfungsteil ist derzeit nicht verfügbar."
	case ErrAlreadySubmitted:
		return "Die Prüfung wurde bereits eingereicht."

	// ─── Submission ────────────────────────────────────────────────────
	case ErrSubmissionInFlight:
		return "Die Prüfung wird bereits eingereicht."
	case ErrSubmissionNetwork:
		return "Netzwerkfehler beim Einreichen der Prüfung. Bitte versuchen Sie es erneut."
	case ErrSubmissionServer:
		return "Fehler beim Einreichen der Prüfung"

	// ─── Exam content ──────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "Die Prüfung konnte nicht geladen werden."
	case ErrInvalidExamContent:
		return "Die Prüfungsdaten sind unvollständig."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Zu viele Anfragen. Bitte versuchen Sie es später erneut."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrNotFound:
		return "Ressource nicht gefunden."
	case ErrInternal:
		return "Interner Serverfehler."
	default:
		return "Ein unerwarteter Fehler ist aufgetreten."
	}
}
