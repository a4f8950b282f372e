package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/varejosoft/retaguarda/internal/application/dto"
	"github.com/varejosoft/retaguarda/internal/application/ledger"
	"github.com/varejosoft/retaguarda/internal/domain"
	"github.com/varejosoft/retaguarda/internal/domain/entity"
	"github.com/varejosoft/retaguarda/internal/domain/repository"
	"github.com/varejosoft/retaguarda/pkg/logger"
)

// SyncUseCase ingesta lotes de ventas y movimientos de caja de los
// terminales offline. Idempotente ante reintentos de red y replays:
// las ventas deduplican por número único, la constraint de la base es
// el árbitro final.
type SyncUseCase struct {
	txRunner    TxRunner
	ledgerUC    *ledger.LedgerUseCase
	saleRepo    repository.SaleRepository
	cashRepo    repository.CashMovementRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	cache       SnapshotCache
	broadcaster Broadcaster
	log         *logger.Logger
}

// NewSyncUseCase construye el caso de uso.
func NewSyncUseCase(
	txRunner TxRunner,
	ledgerUC *ledger.LedgerUseCase,
	saleRepo repository.SaleRepository,
	cashRepo repository.CashMovementRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	cache SnapshotCache,
	broadcaster Broadcaster,
	log *logger.Logger,
) *SyncUseCase {
	return &SyncUseCase{
		txRunner:    txRunner,
		ledgerUC:    ledgerUC,
		saleRepo:    saleRepo,
		cashRepo:    cashRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		cache:       cache,
		broadcaster: broadcaster,
		log:         log,
	}
}

// Ingest procesa el lote ya validado: ventas primero, caja después, todo
// secuencial dentro de la llamada. Los errores por ítem se acumulan en
// el resultado y el lote continúa; solo la indisponibilidad del
// almacenamiento aborta la llamada completa. Si se procesó al menos un
// ítem, difunde el catálogo actualizado a todos los terminales.
func (uc *SyncUseCase) Ingest(ctx context.Context, req dto.SyncRequest) (*dto.SyncResult, error) {
	res := &dto.SyncResult{Erros: []string{}}

	for _, venda := range req.Vendas {
		exists, err := uc.saleRepo.ExistsByNumber(venda.NumeroVenda)
		if err != nil {
			if errors.Is(err, domain.ErrStorageUnavailable) {
				return nil, err
			}
			res.Erros = append(res.Erros, fmt.Sprintf("venda %s: %v", venda.NumeroVenda, err))
			continue
		}
		if exists {
			res.VendasDuplicadas++
			continue
		}

		err = uc.processSale(ctx, venda)
		switch {
		case err == nil:
			res.VendasProcessadas++
		case errors.Is(err, domain.ErrDuplicate):
			// Otro ingest concurrente ganó la carrera: la constraint única
			// sobre numeroVenda decide, y un duplicado no es un error.
			res.VendasDuplicadas++
		case errors.Is(err, domain.ErrStorageUnavailable):
			return nil, err
		default:
			res.Erros = append(res.Erros, fmt.Sprintf("venda %s: %v", venda.NumeroVenda, err))
		}
	}

	for _, mov := range req.MovimentosCaixa {
		processed, err := uc.processCashMovement(mov)
		switch {
		case err == nil && processed:
			res.MovimentosProcessados++
		case err == nil:
			// duplicado: se omite en silencio
		case errors.Is(err, domain.ErrStorageUnavailable):
			return nil, err
		default:
			res.Erros = append(res.Erros, fmt.Sprintf("movimento %s: %v", mov.Tipo, err))
		}
	}

	if res.VendasProcessadas > 0 || res.MovimentosProcessados > 0 {
		uc.refreshAndBroadcast(ctx)
	}

	return res, nil
}

// processSale persiste cabecera, ítems y movimientos del Kardex de una
// venta en una única transacción. El stock se decrementa de inmediato y
// sin chequeo de suficiencia: la venta física ya ocurrió en el terminal.
func (uc *SyncUseCase) processSale(ctx context.Context, venda dto.SaleReport) error {
	now := time.Now()
	return uc.txRunner.RunSync(ctx, func(
		saleRepo repository.SaleRepository,
		cashRepo repository.CashMovementRepository,
		movRepo repository.StockMovementRepository,
		productRepo repository.ProductRepository,
	) error {
		sale := &entity.Sale{
			ID:             uuid.New().String(),
			UUID:           venda.UUID,
			SaleNumber:     venda.NumeroVenda,
			CCF:            venda.CCF,
			COO:            venda.COO,
			TerminalID:     venda.PdvID,
			SoldAt:         venda.DataVenda,
			TotalAmount:    venda.ValorTotal,
			DiscountAmount: venda.ValorDesconto,
			NetAmount:      venda.ValorLiquido,
			PaymentMethod:  venda.FormaPagamento,
			Status:         entity.SaleCompleted,
			ReceiptNumber:  venda.NfceNumero,
			ReceiptKey:     venda.NfceChave,
			OperatorID:     venda.OperadorID,
			OperatorName:   venda.OperadorNome,
			Note:           venda.Observacao,
			CreatedAt:      now,
		}
		if err := saleRepo.Create(sale); err != nil {
			return err
		}
		for _, item := range venda.Itens {
			if err := saleRepo.CreateItem(&entity.SaleItem{
				ID:           uuid.New().String(),
				SaleID:       sale.ID,
				ProductID:    item.ProdutoID,
				Quantity:     item.Quantidade,
				UnitPrice:    item.PrecoUnitario,
				LineTotal:    item.ValorTotal,
				LineDiscount: item.ValorDesconto,
				CreatedAt:    now,
			}); err != nil {
				return err
			}
			_, err := uc.ledgerUC.RecordInTx(movRepo, productRepo, ledger.RecordMovementInput{
				ProductID:         item.ProdutoID,
				Type:              entity.MovementPOSSale,
				Quantity:          -item.Quantidade,
				UnitCost:          item.PrecoUnitario,
				ReferenceDocument: venda.NumeroVenda,
				UserID:            venda.OperadorID,
			}, now)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// processCashMovement persiste un movimiento de caja si no es duplicado.
// Retorna processed=false cuando se omitió por duplicación.
func (uc *SyncUseCase) processCashMovement(mov dto.CashMovementReport) (bool, error) {
	// Con uuid presente ese es el árbitro: si no existe, el movimiento es
	// nuevo aunque coincida en tipo, valor y operador con otro del día.
	if mov.UUID != "" {
		dup, err := uc.cashRepo.ExistsByUUID(mov.UUID)
		if err != nil {
			return false, err
		}
		if dup {
			return false, nil
		}
	} else {
		// Deduplicación aproximada para terminales que aún no envían uuid:
		// mismo tipo, valor, operador y fecha-hora exacta del movimiento.
		dup, err := uc.cashRepo.ExistsApprox(mov.Tipo, mov.Valor, mov.OperadorID, mov.DataMovimento)
		if err != nil {
			return false, err
		}
		if dup {
			return false, nil
		}
	}
	err := uc.cashRepo.Create(&entity.CashMovement{
		ID:         uuid.New().String(),
		UUID:       mov.UUID,
		Type:       mov.Tipo,
		Amount:     mov.Valor,
		OperatorID: mov.OperadorID,
		TerminalID: mov.PdvID,
		MovedAt:    mov.DataMovimento,
		Note:       mov.Observacao,
	})
	if errors.Is(err, domain.ErrDuplicate) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// InitialLoad arma el payload de carga inicial para un terminal:
// productos activos, credenciales de operadores y formas de pago.
// Como efecto colateral refresca el precio visible en terminales.
// Sirve desde cache cuando hay un snapshot fresco.
func (uc *SyncUseCase) InitialLoad(ctx context.Context) (*dto.CatalogSnapshot, error) {
	// Igualar precio de terminal al precio de venta se hace en cada
	// carga, incluso cuando el snapshot sale del cache. Si la base no
	// está, el cache aún puede servir y el fallo solo se loguea.
	if err := uc.productRepo.RefreshTerminalPrices(); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo refrescar precios de terminal")
	}
	if snap, ok, err := uc.cache.Get(ctx); err == nil && ok {
		return snap, nil
	} else if err != nil {
		uc.log.Warn().Err(err).Msg("cache de snapshot no disponible")
	}
	snap, err := uc.buildSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if err := uc.cache.Set(ctx, snap); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo cachear el snapshot")
	}
	return snap, nil
}

// ListCashMovements lista los movimientos de caja con filtros.
func (uc *SyncUseCase) ListCashMovements(ctx context.Context, filter repository.CashMovementFilter) ([]*entity.CashMovement, error) {
	return uc.cashRepo.List(filter)
}

// BroadcastCatalog reconstruye el snapshot y lo difunde. Lo usa el
// endpoint de "push now" y el propio ingest. Retorna cuántos terminales
// lo recibieron.
func (uc *SyncUseCase) BroadcastCatalog(ctx context.Context) (int, error) {
	if err := uc.cache.Invalidate(ctx); err != nil {
		uc.log.Warn().Err(err).Msg("no se pudo invalidar el snapshot")
	}
	snap, err := uc.InitialLoad(ctx)
	if err != nil {
		return 0, err
	}
	return uc.broadcaster.BroadcastCatalog(snap), nil
}

func (uc *SyncUseCase) buildSnapshot(ctx context.Context) (*dto.CatalogSnapshot, error) {
	products, err := uc.productRepo.ListActive()
	if err != nil {
		return nil, err
	}
	users, err := uc.userRepo.ListActive()
	if err != nil {
		return nil, err
	}

	snap := &dto.CatalogSnapshot{
		Produtos:        make([]dto.CatalogProduct, 0, len(products)),
		Usuarios:        make([]dto.CatalogOperator, 0, len(users)),
		FormasPagamento: dto.DefaultPaymentMethods(),
	}
	for _, p := range products {
		snap.Produtos = append(snap.Produtos, dto.CatalogProduct{
			ID:           p.ID,
			Codigo:       p.Code,
			CodigoBarras: p.Barcode,
			Descricao:    p.Description,
			PrecoVenda:   p.SalePrice,
			Unidade:      p.Unit,
			Estoque:      p.CurrentStock,
		})
	}
	for _, u := range users {
		snap.Usuarios = append(snap.Usuarios, dto.CatalogOperator{
			ID:           u.ID,
			Name:         u.Name,
			Email:        u.Email,
			PasswordHash: u.PasswordHash,
			Role:         u.Role,
		})
	}
	return snap, nil
}

// refreshAndBroadcast difunde el catálogo tras un ingest con cambios.
// Los fallos se loguean y se tragan: la difusión jamás hace fallar la
// sincronización que la disparó.
func (uc *SyncUseCase) refreshAndBroadcast(ctx context.Context) {
	sent, err := uc.BroadcastCatalog(ctx)
	if err != nil {
		uc.log.Error().Err(err).Msg("broadcast de catálogo falló")
		return
	}
	uc.log.Info().Int("terminales", sent).Msg("catálogo difundido")
}
