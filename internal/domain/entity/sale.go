package entity

import "time"

// Estados de una venta consolidada.
const (
	SaleCompleted = "COMPLETED"
	SaleCanceled  = "CANCELED"
)

// Sale es una venta consolidada desde un terminal. SaleNumber es la
// clave de idempotencia generada por el terminal: la constraint única
// en la base es el árbitro final de duplicados.
type Sale struct {
	ID            string
	UUID          string
	SaleNumber    string
	CCF           string
	COO           string
	TerminalID    string
	SoldAt        time.Time
	TotalAmount   int64 // centavos
	DiscountAmount int64
	NetAmount     int64
	PaymentMethod string
	Status        string
	ReceiptNumber string // NFC-e
	ReceiptKey    string
	OperatorID    string
	OperatorName  string
	Note          string
	Items         []SaleItem
	CreatedAt     time.Time
}

// SaleItem es un renglón de la venta.
type SaleItem struct {
	ID        string
	SaleID    string
	ProductID string
	Quantity  int64
	UnitPrice int64 // centavos
	LineTotal int64
	LineDiscount int64
	CreatedAt time.Time
}
