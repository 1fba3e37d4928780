package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid  ErrCode = "TOKEN_INVALID"
	ErrTokenExpired  ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrSubscriptionRequired ErrCode = "SUBSCRIPTION_REQUIRED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidAction  ErrCode = "INVALID_ACTION"
	ErrInvalidAnswer  ErrCode = "INVALID_ANSWER"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrAttemptNotFound ErrCode = "ATTEMPT_NOT_FOUND"
	ErrDraftNotFound   ErrCode = "DRAFT_NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrNoQuestions         ErrCode = "NO_QUESTIONS"
	ErrQuestionLoadFailed  ErrCode = "QUESTION_LOAD_FAILED"
	ErrInvalidTransition   ErrCode = "INVALID_TRANSITION"
	ErrQuestionOutOfRange  ErrCode = "QUESTION_OUT_OF_RANGE"
	ErrPersistenceDown     ErrCode = "PERSISTENCE_UNAVAILABLE"
	ErrIntegrityViolations ErrCode = "INTEGRITY_LIMIT_REACHED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "Un jeton d'authentification est requis."
	case ErrTokenInvalid:
		return "Le jeton d'authentification est invalide."
	case ErrTokenExpired:
		return "Le jeton d'authentification a expiré. Veuillez vous reconnecter."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "Vous n'avez pas accès à cette ressource."
	case ErrSubscriptionRequired:
		return "Cet examen blanc est réservé aux abonnés Premium."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "La validation a échoué. Veuillez vérifier votre saisie."
	case ErrInvalidPayload:
		return "Le contenu de la requête est invalide."
	case ErrInvalidAction:
		return "Action inconnue ou mal formée."
	case ErrInvalidAnswer:
		return "Réponse non reconnue. Choisissez une des options proposées."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Ressource introuvable."
	case ErrAttemptNotFound:
		return "Aucune tentative enregistrée pour cet examen."
	case ErrDraftNotFound:
		return "Aucun examen en cours pour cet examen blanc."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrNoQuestions:
		return "Cet examen ne contient aucune question."
	case ErrQuestionLoadFailed:
		return "Impossible de charger les questions. Veuillez réessayer."
	case ErrInvalidTransition:
		return "Cette action n'est pas possible à ce stade de l'examen."
	case ErrQuestionOutOfRange:
		return "Cette question n'existe pas."
	case ErrPersistenceDown:
		return "Vos résultats sont momentanément indisponibles. Veuillez réessayer."
	case ErrIntegrityViolations:
		return "Vous avez quitté l'examen trop souvent. Il a été terminé."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Trop de requêtes. Veuillez réessayer plus tard."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Une erreur interne est survenue."
	default:
		return "Une erreur inattendue est survenue."
	}
}
