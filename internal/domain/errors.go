package domain

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnavailable      = errors.New("service unavailable")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation failed")
	ErrDuplicate        = errors.New("already exists")

	// ErrCapturePermission is a denied camera/library/source file, which retrying will not fix.
	ErrCapturePermission = errors.New("capture permission denied")
)

var (
	ErrInvalidTransition  = fmt.Errorf("%w: invalid reservation transition", ErrValidation)
	ErrAlreadyCompleted   = fmt.Errorf("%w: hand-off already completed", ErrDuplicate)
	ErrAlreadyReviewed    = fmt.Errorf("%w: review already submitted", ErrDuplicate)
	ErrCheckInNotComplete = fmt.Errorf("%w: check-in has not been completed", ErrValidation)
)

type Category string

const (
	CategoryNone              Category = ""
	CategoryPermissionDenied  Category = "permission_denied"
	CategoryCapturePermission Category = "capture_permission"
	CategoryUnavailable       Category = "unavailable"
	CategoryNotFound          Category = "not_found"
	CategoryValidation        Category = "validation"
	CategoryDuplicate         Category = "duplicate"
	CategoryInternal          Category = "internal"
)

// Classify maps an error onto the taxonomy. Capture permission is checked before the
// generic permission category so the two stay distinguishable.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, ErrCapturePermission):
		return CategoryCapturePermission
	case errors.Is(err, ErrPermissionDenied):
		return CategoryPermissionDenied
	case errors.Is(err, ErrUnavailable):
		return CategoryUnavailable
	case errors.Is(err, ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrDuplicate):
		return CategoryDuplicate
	default:
		return CategoryInternal
	}
}

// IsRetryable is true for transient failures the caller may simply try again.
func IsRetryable(err error) bool {
	return Classify(err) == CategoryUnavailable
}

// IsExpected reports errors that are ordinary business outcomes rather than faults.
func IsExpected(err error) bool {
	switch Classify(err) {
	case CategoryValidation, CategoryDuplicate, CategoryNotFound, CategoryPermissionDenied, CategoryCapturePermission:
		return true
	}
	return false
}

var userMessages = map[Category]string{
	CategoryPermissionDenied:  "No tienes permiso para realizar esta acción.",
	CategoryCapturePermission: "Debes permitir el acceso a la cámara o a la galería para continuar.",
	CategoryUnavailable:       "No hay conexión con el servidor. Revisa tu conexión e inténtalo de nuevo.",
	CategoryNotFound:          "No encontramos la información solicitada.",
	CategoryValidation:        "Revisa los datos ingresados.",
	CategoryDuplicate:         "Esta acción ya fue realizada.",
	CategoryInternal:          "Ocurrió un error inesperado. Inténtalo de nuevo.",
}

// UserMessage returns the message shown to the user for an error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyReviewed):
		return "Ya calificaste esta reserva."
	case errors.Is(err, ErrAlreadyCompleted):
		return "Este proceso ya fue completado."
	case errors.Is(err, ErrCheckInNotComplete):
		return "Primero debe completarse el check-in de esta reserva."
	}
	return userMessages[Classify(err)]
}
