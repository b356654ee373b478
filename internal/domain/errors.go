package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrUnknownVariant    = errors.New("variante desconocida en el depósito")
	ErrInsufficientStock = errors.New("stock insuficiente")
	// ErrStaleVersion señal interna del ledger: la versión esperada ya no es la vigente.
	ErrStaleVersion = errors.New("versión de stock desactualizada")
	// ErrConflict el stock cambió durante la conversión; el llamador debe releer y reintentar.
	ErrConflict         = errors.New("el stock cambió, reintente")
	ErrValidationFailed = errors.New("la conversión no pasó la validación")
)
