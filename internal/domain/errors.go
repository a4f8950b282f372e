package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrDuplicate          = errors.New("recurso duplicado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrStorageUnavailable = errors.New("almacenamiento no disponible")
	// ErrHasLedgerHistory protege la trazabilidad: un producto con movimientos
	// en el Kardex no puede eliminarse.
	ErrHasLedgerHistory = errors.New("el producto tiene historial en el kardex")
	// ErrBatchFinalized: las líneas de una conferencia cerrada son inmutables.
	ErrBatchFinalized = errors.New("la conferencia ya fue finalizada")
)
