package reconciliation

import (
	"context"

	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

// TxRunner ejecuta el finalizar de una conferencia dentro de una
// transacción: estado del lote, commits de stock y líneas quedan atómicos.
type TxRunner interface {
	RunConference(ctx context.Context, fn func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		reconRepo repository.ReconciliationRepository,
	) error) error
}
