package repository

import "github.com/varejosoft/retaguarda/internal/domain/entity"

// SaleRepository puerto de persistencia de ventas consolidadas.
// Create retorna domain.ErrDuplicate si el número de venta ya existe
// (constraint única, árbitro final de idempotencia).
type SaleRepository interface {
	Create(sale *entity.Sale) error
	CreateItem(item *entity.SaleItem) error
	ExistsByNumber(saleNumber string) (bool, error)
	GetByNumber(saleNumber string) (*entity.Sale, error)
}
