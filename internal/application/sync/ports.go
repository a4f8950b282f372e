package sync

import (
	"context"

	"github.com/varejosoft/retaguarda/internal/application/dto"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

// TxRunner ejecuta el procesamiento de una venta dentro de una
// transacción: cabecera, ítems y movimientos del Kardex quedan atómicos
// por venta (nunca por lote).
type TxRunner interface {
	RunSync(ctx context.Context, fn func(
		saleRepo repository.SaleRepository,
		cashRepo repository.CashMovementRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error) error
}

// Broadcaster empuja el snapshot de catálogo a los terminales
// registrados. Fire-and-forget: sin acuse, sin garantía de entrega.
type Broadcaster interface {
	BroadcastCatalog(data interface{}) int
}

// SnapshotCache cache del snapshot de carga inicial (Redis u no-op).
type SnapshotCache interface {
	Get(ctx context.Context) (*dto.CatalogSnapshot, bool, error)
	Set(ctx context.Context, snapshot *dto.CatalogSnapshot) error
	Invalidate(ctx context.Context) error
}

// NoopSnapshotCache desactiva el cache (sin Redis configurado).
type NoopSnapshotCache struct{}

func (NoopSnapshotCache) Get(_ context.Context) (*dto.CatalogSnapshot, bool, error) {
	return nil, false, nil
}

func (NoopSnapshotCache) Set(_ context.Context, _ *dto.CatalogSnapshot) error { return nil }

func (NoopSnapshotCache) Invalidate(_ context.Context) error { return nil }
