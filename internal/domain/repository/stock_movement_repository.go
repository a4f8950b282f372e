package repository

import "github.com/varejosoft/retaguarda/internal/domain/entity"

// StockMovementRepository puerto de persistencia del Kardex.
type StockMovementRepository interface {
	Create(m *entity.StockMovement) error
	GetByID(id string) (*entity.StockMovement, error)
	ListByProduct(productID string) ([]*entity.StockMovement, error)
	ListAll(limit, offset int) ([]*entity.StockMovement, error)
	ListByReference(referenceDocument string) ([]*entity.StockMovement, error)
	// ListPendingConference devuelve movimientos diferidos aún no
	// conferidos o conferidos con divergencia (para el listado agrupado).
	ListPendingConference() ([]*entity.StockMovement, error)
	UpdateReconciliationStatus(id, status string) error
	// UpdateReconciliationStatusByReference avanza el estado de todos los
	// movimientos diferidos de un mismo documento (el lote de conferencia).
	UpdateReconciliationStatusByReference(referenceDocument, status string) error
	Delete(id string) error
	CountByProduct(productID string) (int, error)
}
