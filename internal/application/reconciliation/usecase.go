package reconciliation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/varejosoft/retaguarda/internal/application/ledger"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

// ConferenceUseCase gobierna la conferencia de mercadería: comparar lo
// esperado contra lo contado físicamente y, al finalizar, llevar al
// Kardex las cantidades contadas (no las esperadas).
//
// Máquina de estados del lote:
// PENDING_CONFERENCE -> IN_CONFERENCE -> {CONFERRED | CONFERRED_WITH_DIVERGENCE}
type ConferenceUseCase struct {
	txRunner    TxRunner
	ledgerUC    *ledger.LedgerUseCase
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
	reconRepo   repository.ReconciliationRepository
}

// NewConferenceUseCase construye el caso de uso.
func NewConferenceUseCase(
	txRunner TxRunner,
	ledgerUC *ledger.LedgerUseCase,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	reconRepo repository.ReconciliationRepository,
) *ConferenceUseCase {
	return &ConferenceUseCase{
		txRunner:    txRunner,
		ledgerUC:    ledgerUC,
		movRepo:     movRepo,
		productRepo: productRepo,
		reconRepo:   reconRepo,
	}
}

// ListPending agrupa los movimientos diferidos por documento de
// referencia: las recepciones aún pendientes de conferencia.
func (uc *ConferenceUseCase) ListPending(ctx context.Context) ([]*entity.PendingBatch, error) {
	movs, err := uc.movRepo.ListPendingConference()
	if err != nil {
		return nil, err
	}
	grouped := make(map[string]*entity.PendingBatch)
	order := make([]string, 0)
	for _, m := range movs {
		doc := m.ReferenceDocument
		if doc == "" {
			doc = "S/N"
		}
		b, ok := grouped[doc]
		if !ok {
			b = &entity.PendingBatch{
				MovementID:        m.ID,
				ReferenceDocument: doc,
				Supplier:          m.Supplier,
				Status:            m.Apply.ReconciliationStatus,
				CreatedAt:         m.CreatedAt,
			}
			grouped[doc] = b
			order = append(order, doc)
		}
		b.TotalItems++
		// Si algún ítem avanzó, el estado del lote lo refleja
		if m.Apply.ReconciliationStatus != entity.ReconPendingConference {
			b.Status = m.Apply.ReconciliationStatus
		}
	}
	out := make([]*entity.PendingBatch, 0, len(order))
	for _, doc := range order {
		out = append(out, grouped[doc])
	}
	return out, nil
}

// ListByMovement lista las líneas de conferencia de un lote.
func (uc *ConferenceUseCase) ListByMovement(ctx context.Context, movementID string) ([]*entity.ReconciliationLine, error) {
	return uc.reconRepo.ListByMovement(movementID)
}

// Start transiciona los movimientos del lote de PENDING_CONFERENCE a
// IN_CONFERENCE. Sin efecto en stock.
func (uc *ConferenceUseCase) Start(ctx context.Context, movementID string) error {
	mov, err := uc.anchorMovement(movementID)
	if err != nil {
		return err
	}
	return uc.movRepo.UpdateReconciliationStatusByReference(mov.ReferenceDocument, entity.ReconInConference)
}

// CreateLineInput entrada para registrar el conteo de un producto.
type CreateLineInput struct {
	MovementID     string
	ProductID      string
	ExpectedQty    int64
	CountedQty     *int64
	ScannedBarcode string
	ArrivalDate    *time.Time
	ExpiryDate     *time.Time
	UserID         string
}

// CreateLine registra una línea de conferencia y la clasifica:
// divergencia = contado - esperado; < 0 SHORT, > 0 OVER, = 0 OK.
func (uc *ConferenceUseCase) CreateLine(ctx context.Context, input CreateLineInput) (*entity.ReconciliationLine, error) {
	if input.MovementID == "" || input.ProductID == "" {
		return nil, domain.ErrInvalidInput
	}
	mov, err := uc.anchorMovement(input.MovementID)
	if err != nil {
		return nil, err
	}
	if finalized(mov.Apply.ReconciliationStatus) {
		return nil, domain.ErrBatchFinalized
	}
	now := time.Now()
	line := &entity.ReconciliationLine{
		ID:             uuid.New().String(),
		MovementID:     input.MovementID,
		ProductID:      input.ProductID,
		ExpectedQty:    input.ExpectedQty,
		CountedQty:     input.CountedQty,
		ScannedBarcode: input.ScannedBarcode,
		ArrivalDate:    input.ArrivalDate,
		ExpiryDate:     input.ExpiryDate,
		CountedAt:      now,
		UserID:         input.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	line.Classify()
	if err := uc.reconRepo.Create(line); err != nil {
		return nil, err
	}
	return line, nil
}

// UpdateLineInput entrada para recontar una línea.
type UpdateLineInput struct {
	CountedQty     *int64
	ScannedBarcode string
	ArrivalDate    *time.Time
	ExpiryDate     *time.Time
}

// UpdateLine recalcula la divergencia contra el ExpectedQty original de
// la línea (nunca contra un conteo previo); repetir la llamada con el
// mismo input es idempotente.
func (uc *ConferenceUseCase) UpdateLine(ctx context.Context, id string, input UpdateLineInput) (*entity.ReconciliationLine, error) {
	line, err := uc.lineBeforeFinalize(id)
	if err != nil {
		return nil, err
	}
	if input.CountedQty != nil {
		line.CountedQty = input.CountedQty
	}
	if input.ScannedBarcode != "" {
		line.ScannedBarcode = input.ScannedBarcode
	}
	if input.ArrivalDate != nil {
		line.ArrivalDate = input.ArrivalDate
	}
	if input.ExpiryDate != nil {
		line.ExpiryDate = input.ExpiryDate
	}
	line.Classify()
	line.CountedAt = time.Now()
	line.UpdatedAt = line.CountedAt
	if err := uc.reconRepo.Update(line); err != nil {
		return nil, err
	}
	return line, nil
}

// ResetLine limpia el conteo y devuelve la línea a PENDING para
// recontar. Solo válido antes de finalizar el lote.
func (uc *ConferenceUseCase) ResetLine(ctx context.Context, id string) error {
	line, err := uc.lineBeforeFinalize(id)
	if err != nil {
		return err
	}
	line.CountedQty = nil
	line.Classify()
	line.CountedAt = time.Now()
	line.UpdatedAt = line.CountedAt
	return uc.reconRepo.Update(line)
}

// DeleteLine elimina una línea (válvula de escape pre-finalización).
func (uc *ConferenceUseCase) DeleteLine(ctx context.Context, id string) error {
	line, err := uc.lineBeforeFinalize(id)
	if err != nil {
		return err
	}
	return uc.reconRepo.Delete(line.ID)
}

// FindByBarcode busca un producto por código de barras dentro del
// alcance de un lote: el producto debe pertenecer a algún movimiento
// del mismo documento de referencia.
func (uc *ConferenceUseCase) FindByBarcode(ctx context.Context, barcode, movementID string) (*entity.Product, *entity.StockMovement, error) {
	product, err := uc.productRepo.GetByBarcode(barcode)
	if err != nil {
		return nil, nil, err
	}
	if product == nil {
		return nil, nil, domain.ErrNotFound
	}
	anchor, err := uc.anchorMovement(movementID)
	if err != nil {
		return nil, nil, err
	}
	movs, err := uc.movRepo.ListByReference(anchor.ReferenceDocument)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range movs {
		if m.ProductID == product.ID {
			return product, m, nil
		}
	}
	return nil, nil, domain.ErrNotFound
}

// Finalize cierra el lote: el estado queda CONFERRED_WITH_DIVERGENCE si
// al menos una línea es DIVERGENT, si no CONFERRED. Por cada línea con
// conteo no nulo se registra en el Kardex la cantidad CONTADA con efecto
// inmediato: lo contado manda, no lo esperado. Un lote sin líneas es un
// no-op que retorna un resumen vacío.
func (uc *ConferenceUseCase) Finalize(ctx context.Context, movementID, userID string) (*entity.ReconciliationSummary, error) {
	anchor, err := uc.anchorMovement(movementID)
	if err != nil {
		return nil, err
	}
	summary := &entity.ReconciliationSummary{Divergences: []entity.ReconciliationLine{}}
	err = uc.txRunner.RunConference(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
		reconRepo repository.ReconciliationRepository,
	) error {
		lines, err := reconRepo.ListByMovement(movementID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return nil
		}

		// El lote tiene un movimiento diferido por producto bajo el mismo
		// documento; cada línea registra el costo unitario del suyo. Un
		// producto contado sin movimiento esperado hereda el del ancla.
		siblings, err := movRepo.ListByReference(anchor.ReferenceDocument)
		if err != nil {
			return err
		}
		costByProduct := make(map[string]int64, len(siblings))
		for _, sib := range siblings {
			if sib.Apply.Deferred {
				costByProduct[sib.ProductID] = sib.UnitCost
			}
		}

		finalStatus := entity.ReconConferred
		now := time.Now()
		for _, line := range lines {
			summary.TotalLines++
			switch line.Status {
			case entity.LineDivergent:
				summary.DivergentLines++
				summary.Divergences = append(summary.Divergences, *line)
				finalStatus = entity.ReconConferredWithDivergence
			case entity.LineReconciled:
				summary.ReconciledLines++
			}
			if line.CountedQty == nil || *line.CountedQty == 0 {
				continue
			}
			unitCost, ok := costByProduct[line.ProductID]
			if !ok {
				unitCost = anchor.UnitCost
			}
			_, err := uc.ledgerUC.RecordInTx(movRepo, productRepo, ledger.RecordMovementInput{
				ProductID:         line.ProductID,
				Type:              entity.MovementGoodsReceipt,
				Quantity:          *line.CountedQty,
				UnitCost:          unitCost,
				ReferenceDocument: anchor.ReferenceDocument,
				Supplier:          anchor.Supplier,
				UserID:            userID,
				SkipCostUpdate:    true,
			}, now)
			if err != nil {
				return err
			}
		}
		return movRepo.UpdateReconciliationStatusByReference(anchor.ReferenceDocument, finalStatus)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// anchorMovement resuelve el movimiento ancla del lote y valida que sea
// un movimiento diferido.
func (uc *ConferenceUseCase) anchorMovement(movementID string) (*entity.StockMovement, error) {
	if movementID == "" {
		return nil, domain.ErrInvalidInput
	}
	mov, err := uc.movRepo.GetByID(movementID)
	if err != nil {
		return nil, err
	}
	if mov == nil || !mov.Apply.Deferred {
		return nil, domain.ErrNotFound
	}
	return mov, nil
}

// lineBeforeFinalize resuelve una línea y verifica que su lote siga abierto.
func (uc *ConferenceUseCase) lineBeforeFinalize(id string) (*entity.ReconciliationLine, error) {
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	line, err := uc.reconRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if line == nil {
		return nil, domain.ErrNotFound
	}
	mov, err := uc.movRepo.GetByID(line.MovementID)
	if err != nil {
		return nil, err
	}
	if mov != nil && finalized(mov.Apply.ReconciliationStatus) {
		return nil, domain.ErrBatchFinalized
	}
	return line, nil
}

func finalized(status string) bool {
	return status == entity.ReconConferred || status == entity.ReconConferredWithDivergence
}
