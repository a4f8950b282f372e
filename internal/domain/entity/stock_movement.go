package entity

import "time"

// Tipos de movimiento de stock (Kardex).
const (
	MovementGoodsReceipt        = "GOODS_RECEIPT"         // entrada por recepción de mercadería (NFe)
	MovementPOSSale             = "POS_SALE"              // venta sincronizada desde un terminal
	MovementLossWriteOff        = "LOSS_WRITE_OFF"        // baja por pérdida/merma
	MovementConsumptionWriteOff = "CONSUMPTION_WRITE_OFF" // baja por consumo interno
	MovementAuditAdjustment     = "AUDIT_ADJUSTMENT"      // ajuste de auditoría de inventario
	MovementTransferIn          = "TRANSFER_IN"
	MovementTransferOut         = "TRANSFER_OUT"
	MovementReturn              = "RETURN"
)

// Estados de conferencia de un movimiento diferido.
const (
	ReconPendingConference      = "PENDING_CONFERENCE"
	ReconInConference           = "IN_CONFERENCE"
	ReconConferred              = "CONFERRED"
	ReconConferredWithDivergence = "CONFERRED_WITH_DIVERGENCE"
)

// ApplyState distingue explícitamente los dos casos de un movimiento:
// aplicado (ya afectó CurrentStock) o diferido a conferencia, con el
// estado de la conferencia a cuestas. Un movimiento diferido queda
// registrado en el Kardex pero no cambia stock hasta el finalizar.
type ApplyState struct {
	Deferred bool
	ReconciliationStatus string // vacío si !Deferred, salvo tras finalizar (CONFERRED / CONFERRED_WITH_DIVERGENCE)
}

// Applied construye el estado de un movimiento de efecto inmediato.
func Applied() ApplyState {
	return ApplyState{}
}

// DeferredTo construye el estado de un movimiento diferido a conferencia.
func DeferredTo(status string) ApplyState {
	return ApplyState{Deferred: true, ReconciliationStatus: status}
}

// StockMovement es una entrada del Kardex: inmutable una vez escrita,
// salvo el ReconciliationStatus que avanza durante la conferencia y la
// reversa administrativa que también restaura la cadena de saldos.
// Invariante: BalanceAfter = BalanceBefore + Quantity, y BalanceBefore
// es igual al CurrentStock del producto en el instante del commit.
type StockMovement struct {
	ID                string
	ProductID         string
	Type              string
	Quantity          int64 // positivo entrada, negativo salida
	BalanceBefore     int64
	BalanceAfter      int64
	UnitCost          int64  // centavos; 0 si no aplica
	ReferenceDocument string // agrupa movimientos de un mismo evento de negocio (NFe, venta, ...)
	Supplier          string
	Note              string
	Apply             ApplyState
	UserID            string
	CreatedAt         time.Time
}

// ValidMovementType indica si el tipo pertenece al conjunto del Kardex.
func ValidMovementType(t string) bool {
	switch t {
	case MovementGoodsReceipt, MovementPOSSale, MovementLossWriteOff,
		MovementConsumptionWriteOff, MovementAuditAdjustment,
		MovementTransferIn, MovementTransferOut, MovementReturn:
		return true
	}
	return false
}
