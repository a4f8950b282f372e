package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
)

// ProductRepository puerto de persistencia del catálogo visto desde el
// núcleo. El core solo muta stock, costo promedio y metadatos de compra.
type ProductRepository interface {
	GetByID(id string) (*entity.Product, error)
	GetByBarcode(barcode string) (*entity.Product, error)
	// GetForUpdate bloquea la fila del producto (SELECT FOR UPDATE);
	// frontera de serialización por producto del ledger.
	GetForUpdate(id string) (*entity.Product, error)
	ListActive() ([]*entity.Product, error)
	// UpdateStock actualiza el stock con guarda optimista: falla con
	// domain.ErrConflict si el stock actual ya no es expectedStock.
	UpdateStock(id string, expectedStock, newStock int64) error
	UpdateAverageCost(id string, cost decimal.Decimal) error
	UpdatePurchaseMetadata(id string, date time.Time, qty int64) error
	// RefreshTerminalPrices iguala el precio visible en terminales al
	// precio de venta vigente (efecto colateral de la carga inicial).
	RefreshTerminalPrices() error
}
