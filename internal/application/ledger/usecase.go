package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	domledger "github.com/varejosoft/retaguarda/internal/domain/ledger"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
)

// LedgerUseCase registra movimientos del Kardex de forma transaccional,
// con bloqueo de fila por producto (SELECT FOR UPDATE) y Commit/Rollback.
// Es la única autoridad sobre CurrentStock.
type LedgerUseCase struct {
	txRunner    TxRunner
	movRepo     repository.StockMovementRepository
	productRepo repository.ProductRepository
}

// NewLedgerUseCase construye el caso de uso.
func NewLedgerUseCase(
	txRunner TxRunner,
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
) *LedgerUseCase {
	return &LedgerUseCase{txRunner: txRunner, movRepo: movRepo, productRepo: productRepo}
}

// RecordMovementInput entrada para registrar un movimiento del Kardex.
// Quantity con signo: positivo entrada, negativo salida. DeferApply deja
// el movimiento registrado sin tocar stock, pendiente de conferencia.
type RecordMovementInput struct {
	ProductID         string
	Type              string
	Quantity          int64
	UnitCost          int64 // centavos; obligatorio solo en GOODS_RECEIPT
	ReferenceDocument string
	Supplier          string
	Note              string
	UserID            string
	DeferApply        bool
	// SkipCostUpdate evita recalcular costo promedio y metadatos de
	// compra: el finalizar de la conferencia ya los aplicó al registrar
	// la recepción diferida.
	SkipCostUpdate bool
}

// RecordMovement inicia una transacción, bloquea la fila del producto,
// calcula la cadena de saldos y persiste el movimiento. Si no es
// diferido, actualiza CurrentStock en la misma transacción.
func (uc *LedgerUseCase) RecordMovement(ctx context.Context, input RecordMovementInput) (*entity.StockMovement, error) {
	if input.ProductID == "" || input.Quantity == 0 {
		return nil, domain.ErrInvalidInput
	}
	if !entity.ValidMovementType(input.Type) {
		return nil, domain.ErrInvalidInput
	}
	if input.Type == entity.MovementGoodsReceipt && input.UnitCost < 0 {
		return nil, domain.ErrInvalidInput
	}

	now := time.Now()
	var mov *entity.StockMovement
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		var err error
		mov, err = uc.RecordInTx(movRepo, productRepo, input, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// RecordInTx ejecuta el registro usando repositorios del caller (misma
// transacción). Lo usan la sincronización del PDV y el finalizar de la
// conferencia para que venta/conteo y movimiento sean atómicos.
func (uc *LedgerUseCase) RecordInTx(
	movRepo repository.StockMovementRepository,
	productRepo repository.ProductRepository,
	input RecordMovementInput,
	now time.Time,
) (*entity.StockMovement, error) {
	// Bloquea la fila del producto: serializa escrituras por producto
	product, err := productRepo.GetForUpdate(input.ProductID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}

	balanceBefore := product.CurrentStock
	balanceAfter := balanceBefore + input.Quantity

	apply := entity.Applied()
	if input.DeferApply {
		apply = entity.DeferredTo(entity.ReconPendingConference)
	}

	mov := &entity.StockMovement{
		ID:                uuid.New().String(),
		ProductID:         input.ProductID,
		Type:              input.Type,
		Quantity:          input.Quantity,
		BalanceBefore:     balanceBefore,
		BalanceAfter:      balanceAfter,
		UnitCost:          input.UnitCost,
		ReferenceDocument: input.ReferenceDocument,
		Supplier:          input.Supplier,
		Note:              input.Note,
		Apply:             apply,
		UserID:            input.UserID,
		CreatedAt:         now,
	}
	if err := movRepo.Create(mov); err != nil {
		return nil, err
	}

	if !input.DeferApply {
		// Guarda optimista: si otro writer cambió el saldo entre el lock y
		// el update (no debería con FOR UPDATE), retorna ErrConflict.
		if err := productRepo.UpdateStock(input.ProductID, balanceBefore, balanceAfter); err != nil {
			return nil, err
		}
	}

	if input.Type == entity.MovementGoodsReceipt && input.Quantity > 0 && !input.SkipCostUpdate {
		// El costo promedio y los metadatos de última compra se actualizan
		// aunque el efecto en stock quede diferido a conferencia: la
		// mercadería ya fue comprada a ese costo.
		newCost := domledger.WeightedAverageCost(balanceBefore, product.AverageCost, input.Quantity, input.UnitCost)
		if err := productRepo.UpdateAverageCost(input.ProductID, newCost); err != nil {
			return nil, err
		}
		if err := productRepo.UpdatePurchaseMetadata(input.ProductID, now, input.Quantity); err != nil {
			return nil, err
		}
	}

	return mov, nil
}

// ReverseByReference reversa administrativa: los movimientos que
// afectaron stock se restan de vuelta y todos los del documento se
// eliminan. Los diferidos nunca tocaron stock y se eliminan sin efecto.
func (uc *LedgerUseCase) ReverseByReference(ctx context.Context, referenceDocument string) (int, error) {
	if referenceDocument == "" {
		return 0, domain.ErrInvalidInput
	}
	reversed := 0
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		movs, err := movRepo.ListByReference(referenceDocument)
		if err != nil {
			return err
		}
		if len(movs) == 0 {
			return domain.ErrNotFound
		}
		for _, m := range movs {
			if !m.Apply.Deferred {
				product, err := productRepo.GetForUpdate(m.ProductID)
				if err != nil {
					return err
				}
				if product == nil {
					return domain.ErrNotFound
				}
				if err := productRepo.UpdateStock(m.ProductID, product.CurrentStock, product.CurrentStock-m.Quantity); err != nil {
					return err
				}
			}
			if err := movRepo.Delete(m.ID); err != nil {
				return err
			}
			reversed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reversed, nil
}

// ListByProduct devuelve el Kardex de un producto.
func (uc *LedgerUseCase) ListByProduct(ctx context.Context, productID string) ([]*entity.StockMovement, error) {
	return uc.movRepo.ListByProduct(productID)
}

// ListAll devuelve el Kardex completo paginado, más reciente primero.
func (uc *LedgerUseCase) ListAll(ctx context.Context, limit, offset int) ([]*entity.StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return uc.movRepo.ListAll(limit, offset)
}

// GuardProductDeletion falla con ErrHasLedgerHistory si el producto tiene
// movimientos registrados. El colaborador de catálogo lo consulta antes
// de eliminar un producto, para proteger la trazabilidad del Kardex.
func (uc *LedgerUseCase) GuardProductDeletion(ctx context.Context, productID string) error {
	n, err := uc.movRepo.CountByProduct(productID)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.ErrHasLedgerHistory
	}
	return nil
}
