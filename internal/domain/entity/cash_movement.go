package entity

import "time"

// Tipos de movimiento de caja reportados por los terminales.
// Los nombres vienen del protocolo de los terminales y no se traducen.
const (
	CashOpening       = "ABERTURA"
	CashWithdrawal    = "SANGRIA"
	CashReinforcement = "REFORCO"
	CashClosing       = "FECHAMENTO"
)

// CashMovement es un movimiento de caja de un terminal (apertura,
// sangría, refuerzo o cierre). UUID es la clave de idempotencia generada
// por el terminal; la deduplicación aproximada por campos se mantiene
// para terminales anteriores a ese campo.
type CashMovement struct {
	ID         string
	UUID       string
	Type       string
	Amount     int64 // centavos
	OperatorID string
	TerminalID string
	MovedAt    time.Time
	Note       string
	CreatedAt  time.Time
}

// ValidCashMovementType indica si el tipo pertenece al protocolo.
func ValidCashMovementType(t string) bool {
	switch t {
	case CashOpening, CashWithdrawal, CashReinforcement, CashClosing:
		return true
	}
	return false
}
