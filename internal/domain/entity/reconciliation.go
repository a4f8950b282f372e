package entity

import "time"

// Tipos de divergencia de una línea de conferencia.
const (
	DivergenceShort = "SHORT" // contado < esperado
	DivergenceOver  = "OVER"  // contado > esperado
	DivergenceOK    = "OK"
)

// Estados de una línea de conferencia.
const (
	LinePending    = "PENDING"
	LineReconciled = "RECONCILED"
	LineDivergent  = "DIVERGENT"
)

// ReconciliationLine es el conteo físico de un producto dentro de una
// recepción de mercadería. CountedQty es nil hasta que alguien cuenta.
// Los campos son estructurados; el texto legible de la divergencia se
// arma en la capa de presentación.
type ReconciliationLine struct {
	ID             string
	MovementID     string // movimiento diferido (GOODS_RECEIPT) al que pertenece
	ProductID      string
	ExpectedQty    int64
	CountedQty     *int64
	Divergence     int64  // contado - esperado (0 si no se contó)
	DivergenceType string // SHORT | OVER | OK; vacío si no se contó
	Status         string // PENDING | RECONCILED | DIVERGENT
	ScannedBarcode string
	ArrivalDate    *time.Time
	ExpiryDate     *time.Time
	CountedAt      time.Time
	UserID         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Classify calcula divergencia, tipo y estado a partir del esperado y el
// contado. Con counted nil la línea queda PENDING sin divergencia.
func (l *ReconciliationLine) Classify() {
	if l.CountedQty == nil {
		l.Divergence = 0
		l.DivergenceType = ""
		l.Status = LinePending
		return
	}
	l.Divergence = *l.CountedQty - l.ExpectedQty
	switch {
	case l.Divergence < 0:
		l.DivergenceType = DivergenceShort
	case l.Divergence > 0:
		l.DivergenceType = DivergenceOver
	default:
		l.DivergenceType = DivergenceOK
	}
	if l.Divergence != 0 {
		l.Status = LineDivergent
	} else {
		l.Status = LineReconciled
	}
}

// ReconciliationSummary es el resultado de finalizar una conferencia.
type ReconciliationSummary struct {
	TotalLines     int
	ReconciledLines int
	DivergentLines  int
	Divergences    []ReconciliationLine
}

// PendingBatch agrupa movimientos diferidos por documento de referencia
// para el listado de recepciones pendientes de conferencia.
type PendingBatch struct {
	MovementID        string
	ReferenceDocument string
	Supplier          string
	Status            string
	TotalItems        int
	CreatedAt         time.Time
}
