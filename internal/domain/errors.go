package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound       = errors.New("recurso no encontrado")
	ErrInvalidInput   = errors.New("entrada inválida")
	ErrDuplicate      = errors.New("recurso duplicado")
	ErrUnauthorized   = errors.New("no autorizado")
	ErrForbidden      = errors.New("acceso denegado")
	ErrConflict       = errors.New("conflicto con el estado actual")
	ErrUnknownKind    = errors.New("tipo de documento desconocido")
	ErrDocumentLocked = errors.New("el documento ya fue validado y no admite cambios")

	// ErrSequencePersistence: el incremento atómico del contador no pudo registrarse.
	// El documento no debe crearse ni numerarse por otra vía.
	ErrSequencePersistence = errors.New("no se pudo reservar el número de documento")
)
