package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product representa un producto del catálogo de la tienda.
// Los precios van en centavos (unidades mínimas de moneda); AverageCost y
// ProfitMargin usan decimal porque se calculan con divisiones.
// CurrentStock solo se modifica a través de commits del ledger (Kardex);
// el resto de campos pertenece al colaborador de catálogo.
type Product struct {
	ID            string
	Code          string
	Barcode       string
	Description   string
	Unit          string // UN, KG, CX, ...
	CostPrice     int64  // centavos
	SalePrice     int64  // centavos
	TerminalPrice int64  // centavos; precio visible en los terminales, se refresca en la carga inicial
	AverageCost   decimal.Decimal
	ProfitMargin  decimal.Decimal // porcentaje
	MinStock      int64
	CurrentStock  int64
	LastPurchaseDate *time.Time
	LastPurchaseQty  int64
	Active        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
