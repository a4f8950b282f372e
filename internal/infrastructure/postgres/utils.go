package postgres

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/varejosoft/retaguarda/internal/domain"
)

// isUniqueViolation verifica si un error es una violación de constraint
// única (23505). Es el árbitro final de idempotencia de ventas.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return strings.Contains(err.Error(), "23505")
}

// wrapErr envuelve errores de pgx distinguiendo la indisponibilidad del
// almacenamiento (errores de conexión) del resto: las rutas de lectura
// degradan a resultados vacíos ante ErrStorageUnavailable.
func wrapErr(op string, err error) error {
	var connErr *pgconn.ConnectError
	var netErr net.Error
	if errors.As(err, &connErr) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w", op, domain.ErrStorageUnavailable)
	}
	return fmt.Errorf("%s: %w", op, err)
}
