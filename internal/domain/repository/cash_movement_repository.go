package repository

import (
	"time"

	"github.com/varejosoft/retaguarda/internal/domain/entity"
)

// CashMovementFilter filtros del listado de movimientos de caja.
type CashMovementFilter struct {
	TerminalID string
	OperatorID string
	Type       string
	From       *time.Time
	To         *time.Time
}

// CashMovementRepository puerto de persistencia de movimientos de caja.
type CashMovementRepository interface {
	Create(m *entity.CashMovement) error
	ExistsByUUID(uuid string) (bool, error)
	// ExistsApprox deduplicación aproximada {tipo, valor, operador, fecha}
	// para terminales que aún no envían uuid.
	ExistsApprox(movType string, amount int64, operatorID string, movedAt time.Time) (bool, error)
	List(filter CashMovementFilter) ([]*entity.CashMovement, error)
}
